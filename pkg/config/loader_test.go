package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfigFiles(t *testing.T, dir, classifierYAML, providersYAML string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "classifier.yaml"), []byte(classifierYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "llm-providers.yaml"), []byte(providersYAML), 0o644))
}

func TestInitialize_MinimalValidConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TEST_OPENAI_KEY", "sk-test")

	writeConfigFiles(t, dir, `
storage:
  data_dir: `+dir+`/data
defaults:
  llm_provider: primary
`, `
llm_providers:
  primary:
    type: openai
    model: gpt-4o-mini
    api_key_env: TEST_OPENAI_KEY
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	require.Equal(t, 15, cfg.Pipeline.HardLimitQuestions)
	require.Equal(t, 1, cfg.Stats().LLMProviders)
	require.True(t, cfg.LLMProviderRegistry.Has("primary"))
}

func TestInitialize_MissingDataDirFails(t *testing.T) {
	dir := t.TempDir()
	writeConfigFiles(t, dir, `defaults: {}`, `
llm_providers:
  primary:
    type: openai
    model: gpt-4o-mini
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_MissingFileFails(t *testing.T) {
	dir := t.TempDir()
	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
}

func TestInitialize_PipelineOverridesMerge(t *testing.T) {
	dir := t.TempDir()
	writeConfigFiles(t, dir, `
storage:
  data_dir: `+dir+`/data
pipeline:
  hard_limit_questions: 20
`, `
llm_providers:
  primary:
    type: bedrock
    model: anthropic.claude-3-haiku
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 20, cfg.Pipeline.HardLimitQuestions)
	// Unset fields still fall back to defaults.
	require.Equal(t, 8, cfg.Pipeline.SoftLimitQuestions)
}
