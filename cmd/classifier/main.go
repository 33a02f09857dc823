// Command classifier wires up the Transformation Classifier Core: the
// session store, content store, LLM provider registry, decision matrix and
// clarification/classification services, the pipeline orchestrator, the
// session-timeout sweep, and the retention cleanup loop.
//
// The core exposes its operations programmatically (spec §6: "their HTTP
// bindings are an external collaborator's concern") — this binary is the
// long-running process a collaborator (HTTP/gRPC/CLI front end) would
// embed, not a server in its own right. It runs until interrupted, keeping
// the background sweep and cleanup loops alive.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/transclassify/pkg/audit"
	"github.com/codeready-toolchain/transclassify/pkg/classification"
	"github.com/codeready-toolchain/transclassify/pkg/clarification"
	"github.com/codeready-toolchain/transclassify/pkg/cleanup"
	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/contentstore"
	"github.com/codeready-toolchain/transclassify/pkg/llmprovider"
	"github.com/codeready-toolchain/transclassify/pkg/matrix"
	"github.com/codeready-toolchain/transclassify/pkg/notify"
	"github.com/codeready-toolchain/transclassify/pkg/orchestrator"
	"github.com/codeready-toolchain/transclassify/pkg/sessionstore"
	"github.com/codeready-toolchain/transclassify/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("could not load .env file, continuing with existing environment", "path", envPath, "error", err)
	} else {
		slog.Info("loaded environment", "path", envPath)
	}

	slog.Info("starting", "version", version.Full())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		slog.Error("failed to initialize configuration", "error", err)
		os.Exit(1)
	}
	stats := cfg.Stats()
	slog.Info("configuration initialized", "llm_providers", stats.LLMProviders, "config_dir", cfg.ConfigDir())

	auditLog, err := audit.New(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to initialize audit log", "error", err)
		os.Exit(1)
	}

	content, err := contentstore.New(cfg.Storage.DataDir, auditLog)
	if err != nil {
		slog.Error("failed to initialize content store", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := content.Stop(); err != nil {
			slog.Error("error stopping content store watch", "error", err)
		}
	}()

	sessions, err := sessionstore.New(cfg.Storage.DataDir)
	if err != nil {
		slog.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}

	llmRegistry := llmprovider.NewRegistry(cfg.LLMProviderRegistry, auditLog)

	matrixService, err := matrix.NewService(content)
	if err != nil {
		slog.Error("failed to initialize decision matrix service", "error", err)
		os.Exit(1)
	}

	clarifier := clarification.NewService(content, llmRegistry)
	classifier := classification.NewService(content, llmRegistry)

	var notifier orchestrator.Notifier
	if cfg.Notify != nil {
		token := ""
		if cfg.Notify.TokenEnv != "" {
			token = os.Getenv(cfg.Notify.TokenEnv)
		}
		if svc := notify.NewService(*cfg.Notify, token); svc != nil {
			notifier = svc
		}
	}

	pipeline := orchestrator.New(sessions, clarifier, classifier, matrixService, auditLog, notifier, cfg.Pipeline, cfg.Defaults)

	sweeper := orchestrator.NewSweeper(pipeline, sessions, cfg.Pipeline)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	cleanupService := cleanup.NewService(cfg.Retention, auditLog, sessions)
	cleanupService.Start(ctx)
	defer cleanupService.Stop()

	slog.Info("transformation classifier core running", "data_dir", cfg.Storage.DataDir)
	<-ctx.Done()
	slog.Info("shutting down")
}
