package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFull_PrefixesAppName(t *testing.T) {
	assert.True(t, strings.HasPrefix(Full(), AppName+"/"))
}

func TestGitCommit_FallsBackToDevOutsideBuildInfo(t *testing.T) {
	assert.Equal(t, "dev", GitCommit)
}
