package contentstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func (s *Store) matrixPath(v Version) string {
	return filepath.Join(s.matrixDir, fmt.Sprintf("%s.json", v))
}

// ListMatrixVersions returns every decision matrix version on disk,
// ascending.
func (s *Store) ListMatrixVersions() ([]Version, error) {
	entries, err := os.ReadDir(s.matrixDir)
	if err != nil {
		return nil, fmt.Errorf("contentstore: list matrix versions: %w", err)
	}

	var versions []Version
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		v, err := ParseVersion(strings.TrimSuffix(e.Name(), ".json"))
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sortVersions(versions)
	return versions, nil
}

// SaveMatrix writes a new immutable version of the decision matrix. The
// caller (pkg/matrix) is responsible for sanitizing the matrix and
// supplying the warnings produced during that pass, which are recorded on
// the audit entry but never block the write (spec §4.4: filter-and-warn,
// not fail-closed).
func (s *Store) SaveMatrix(ctx context.Context, matrix types.DecisionMatrix, explicitVersion, userID string, warnings []string) (types.DecisionMatrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListMatrixVersions()
	if err != nil {
		return types.DecisionMatrix{}, err
	}

	var oldVersion string
	if len(existing) > 0 {
		oldVersion = existing[len(existing)-1].String()
	}

	v, err := s.allocateVersion(existing, explicitVersion)
	if err != nil {
		return types.DecisionMatrix{}, err
	}
	matrix.Version = v.String()

	data, err := marshalIndent(matrix)
	if err != nil {
		return types.DecisionMatrix{}, fmt.Errorf("contentstore: marshal matrix: %w", err)
	}

	if err := atomicWriteFile(s.matrixPath(v), data, 0o644); err != nil {
		return types.DecisionMatrix{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "contentstore: save matrix v%s", v)
	}

	s.cacheLatest(matrixContentID, v)
	s.writeAudit(ctx, types.EventMatrixUpdate, types.ContentUpdateAuditData{
		OldVersion: oldVersion, NewVersion: v.String(), UserID: userID, Warnings: warnings,
	})

	return matrix, nil
}

// GetLatestMatrix returns the highest version of the decision matrix.
func (s *Store) GetLatestMatrix() (types.DecisionMatrix, error) {
	if v, ok := s.cachedLatest(matrixContentID); ok {
		return s.readMatrix(v)
	}

	existing, err := s.ListMatrixVersions()
	if err != nil {
		return types.DecisionMatrix{}, err
	}
	if len(existing) == 0 {
		return types.DecisionMatrix{}, fmt.Errorf("contentstore: %w", pipelineerr.ErrMatrixNotFound)
	}
	latest := existing[len(existing)-1]
	s.cacheLatest(matrixContentID, latest)
	return s.readMatrix(latest)
}

// GetMatrixVersion returns a specific version of the decision matrix.
func (s *Store) GetMatrixVersion(version string) (types.DecisionMatrix, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return types.DecisionMatrix{}, err
	}
	return s.readMatrix(v)
}

func (s *Store) readMatrix(v Version) (types.DecisionMatrix, error) {
	data, err := os.ReadFile(s.matrixPath(v))
	if err != nil {
		if os.IsNotExist(err) {
			return types.DecisionMatrix{}, fmt.Errorf("contentstore: %w: v%s", pipelineerr.ErrMatrixNotFound, v)
		}
		return types.DecisionMatrix{}, fmt.Errorf("contentstore: read matrix: %w", err)
	}
	var m types.DecisionMatrix
	if err := json.Unmarshal(data, &m); err != nil {
		return types.DecisionMatrix{}, fmt.Errorf("contentstore: unmarshal matrix v%s: %w", v, err)
	}
	return m, nil
}
