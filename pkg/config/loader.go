package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// ClassifierYAMLConfig represents the complete classifier.yaml file
// structure.
type ClassifierYAMLConfig struct {
	Defaults  *Defaults       `yaml:"defaults"`
	Pipeline  *PipelineConfig `yaml:"pipeline"`
	Storage   *StorageConfig  `yaml:"storage"`
	Retention *RetentionConfig `yaml:"retention"`
	Notify    *NotifyConfig   `yaml:"notify"`
}

// LLMProvidersYAMLConfig represents the complete llm-providers.yaml file
// structure.
type LLMProvidersYAMLConfig struct {
	LLMProviders map[string]LLMProviderConfig `yaml:"llm_providers"`
}

// Initialize loads, validates, and returns ready-to-use configuration. This
// is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load YAML files from configDir
//  2. Expand environment variables
//  3. Parse YAML into structs
//  4. Merge built-in + user-defined LLM providers
//  5. Build in-memory registries
//  6. Apply default values
//  7. Validate all configuration
//  8. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("config_dir", configDir)
	log.Info("Initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully", "llm_providers", stats.LLMProviders)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	classifierConfig, err := loader.loadClassifierYAML()
	if err != nil {
		return nil, NewLoadError("classifier.yaml", err)
	}

	llmProviders, err := loader.loadLLMProvidersYAML()
	if err != nil {
		return nil, NewLoadError("llm-providers.yaml", err)
	}

	builtin := GetBuiltinConfig()
	llmProvidersMerged := mergeLLMProviders(builtin.LLMProviders, llmProviders)
	llmProviderRegistry := NewLLMProviderRegistry(llmProvidersMerged)

	defaults := classifierConfig.Defaults
	if defaults == nil {
		defaults = &Defaults{}
	}
	if defaults.InformationCompletenessThreshold == 0 {
		defaults.InformationCompletenessThreshold = 4
	}

	pipeline := DefaultPipelineConfig()
	if classifierConfig.Pipeline != nil {
		if err := mergo.Merge(pipeline, classifierConfig.Pipeline, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge pipeline config: %w", err)
		}
	}

	retention := DefaultRetentionConfig()
	if classifierConfig.Retention != nil {
		if err := mergo.Merge(retention, classifierConfig.Retention, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge retention config: %w", err)
		}
	}

	storage := classifierConfig.Storage
	if storage == nil {
		storage = &StorageConfig{}
	}

	notify := classifierConfig.Notify
	if notify == nil {
		notify = &NotifyConfig{}
	}

	return &Config{
		configDir:           configDir,
		Defaults:            defaults,
		Pipeline:            pipeline,
		Storage:             storage,
		Retention:           retention,
		Notify:              notify,
		LLMProviderRegistry: llmProviderRegistry,
	}, nil
}

func validate(cfg *Config) error {
	validator := NewValidator(cfg)
	return validator.ValidateAll()
}

type configLoader struct {
	configDir string
}

func (l *configLoader) loadYAML(filename string, target any) error {
	path := filepath.Join(l.configDir, filename)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return err
	}

	// Expand environment variables using ${VAR}/$VAR shell syntax. ExpandEnv
	// has no error path: unset variables become empty strings, and malformed
	// YAML is left for the YAML parser to report.
	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	return nil
}

func (l *configLoader) loadClassifierYAML() (*ClassifierYAMLConfig, error) {
	var cfg ClassifierYAMLConfig
	if err := l.loadYAML("classifier.yaml", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *configLoader) loadLLMProvidersYAML() (map[string]LLMProviderConfig, error) {
	var cfg LLMProvidersYAMLConfig
	cfg.LLMProviders = make(map[string]LLMProviderConfig)

	if err := l.loadYAML("llm-providers.yaml", &cfg); err != nil {
		return nil, err
	}

	return cfg.LLMProviders, nil
}
