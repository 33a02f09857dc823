package contentstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func (s *Store) promptPath(promptID string, v Version) string {
	return filepath.Join(s.promptsDir, fmt.Sprintf("%s-v%s.txt", promptID, v))
}

// ListPromptVersions returns every version of promptID on disk, ascending.
func (s *Store) ListPromptVersions(promptID string) ([]Version, error) {
	entries, err := os.ReadDir(s.promptsDir)
	if err != nil {
		return nil, fmt.Errorf("contentstore: list prompt versions: %w", err)
	}

	prefix := promptID + "-v"
	var versions []Version
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		vs := strings.TrimSuffix(strings.TrimPrefix(e.Name(), prefix), ".txt")
		v, err := ParseVersion(vs)
		if err != nil {
			continue
		}
		versions = append(versions, v)
	}
	sortVersions(versions)
	return versions, nil
}

// SavePrompt writes a new immutable version of promptID's content. An
// empty explicitVersion auto-allocates the next minor version.
func (s *Store) SavePrompt(ctx context.Context, promptID, content, explicitVersion, userID string) (types.PromptArtifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.ListPromptVersions(promptID)
	if err != nil {
		return types.PromptArtifact{}, err
	}

	var oldVersion string
	if len(existing) > 0 {
		oldVersion = existing[len(existing)-1].String()
	}

	v, err := s.allocateVersion(existing, explicitVersion)
	if err != nil {
		return types.PromptArtifact{}, err
	}

	path := s.promptPath(promptID, v)
	if err := atomicWriteFile(path, []byte(content), 0o644); err != nil {
		return types.PromptArtifact{}, pipelineerr.Wrap(pipelineerr.KindStorageFailure, err, "contentstore: save prompt %s", promptID)
	}

	s.cacheLatest(promptID, v)
	s.writeAudit(ctx, types.EventPromptUpdate, types.ContentUpdateAuditData{
		ID: promptID, OldVersion: oldVersion, NewVersion: v.String(), UserID: userID,
	})

	return types.PromptArtifact{PromptID: promptID, Version: v.String(), Content: content}, nil
}

// GetLatestPrompt returns the highest version of promptID.
func (s *Store) GetLatestPrompt(promptID string) (types.PromptArtifact, error) {
	if v, ok := s.cachedLatest(promptID); ok {
		return s.readPrompt(promptID, v)
	}

	existing, err := s.ListPromptVersions(promptID)
	if err != nil {
		return types.PromptArtifact{}, err
	}
	if len(existing) == 0 {
		return types.PromptArtifact{}, fmt.Errorf("contentstore: %w: %s", pipelineerr.ErrPromptNotFound, promptID)
	}
	latest := existing[len(existing)-1]
	s.cacheLatest(promptID, latest)
	return s.readPrompt(promptID, latest)
}

// GetPromptVersion returns a specific version of promptID.
func (s *Store) GetPromptVersion(promptID, version string) (types.PromptArtifact, error) {
	v, err := ParseVersion(version)
	if err != nil {
		return types.PromptArtifact{}, err
	}
	return s.readPrompt(promptID, v)
}

func (s *Store) readPrompt(promptID string, v Version) (types.PromptArtifact, error) {
	data, err := os.ReadFile(s.promptPath(promptID, v))
	if err != nil {
		if os.IsNotExist(err) {
			return types.PromptArtifact{}, fmt.Errorf("contentstore: %w: %s v%s", pipelineerr.ErrPromptNotFound, promptID, v)
		}
		return types.PromptArtifact{}, fmt.Errorf("contentstore: read prompt: %w", err)
	}
	return types.PromptArtifact{PromptID: promptID, Version: v.String(), Content: string(data)}, nil
}
