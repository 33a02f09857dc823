package contentstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a three-part semantic version. Patch defaults to 0 when a
// caller supplies only major.minor, matching the content store's "first
// save is 1.0" convention.
type Version struct {
	Major, Minor, Patch int
}

// ParseVersion parses "1", "1.2", or "1.2.3" into a Version, defaulting
// missing trailing components to 0.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) == 0 || len(parts) > 3 {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	nums := [3]int{}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a non-negative integer", s, p)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// String renders major.minor when patch is zero, else major.minor.patch.
func (v Version) String() string {
	if v.Patch == 0 {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v sorts before o.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	if v.Minor != o.Minor {
		return v.Minor < o.Minor
	}
	return v.Patch < o.Patch
}

// firstVersion is allocated when a content id has no prior versions.
var firstVersion = Version{Major: 1, Minor: 0, Patch: 0}

// nextAutoVersion bumps the minor component of the current latest version.
func nextAutoVersion(latest Version) Version {
	return Version{Major: latest.Major, Minor: latest.Minor + 1, Patch: 0}
}
