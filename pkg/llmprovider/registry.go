package llmprovider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

// AuditWriter is the minimal surface llmprovider needs from pkg/audit, for
// recording model_list_success/model_list_error events (spec §3). Defined
// locally, same narrow-local-interface convention as pkg/contentstore.
type AuditWriter interface {
	Write(ctx context.Context, entry types.AuditEntry) error
}

// Registry selects a provider by name from config and constructs a fresh
// backend client per call — provider credentials are request-scoped and
// never cached between calls (spec §4.3) — while keeping a long-lived
// circuit breaker per provider name so consecutive failures are tracked
// across requests, not just within one.
type Registry struct {
	providers *config.LLMProviderRegistry
	audit     AuditWriter

	mu       sync.Mutex
	resilient map[string]*resilientProvider
}

func NewRegistry(providers *config.LLMProviderRegistry, audit AuditWriter) *Registry {
	return &Registry{providers: providers, audit: audit, resilient: make(map[string]*resilientProvider)}
}

func (r *Registry) resilientFor(name string, cfg *config.LLMProviderConfig) (*resilientProvider, error) {
	inner, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rp, ok := r.resilient[name]
	if !ok {
		rp = newResilientProvider(name, inner)
		r.resilient[name] = rp
		return rp, nil
	}
	rp.inner = inner // refresh client/credentials; breaker state carries over
	return rp, nil
}

// Chat sends messages to the named provider with retry/backoff/circuit
// breaking applied. The caller records the audit entry — llmprovider stays
// ignorant of which pipeline stage invoked it, since the abstraction
// itself is not idempotent and the orchestrator is what records both
// prompt and response (spec §4.3).
func (r *Registry) Chat(ctx context.Context, providerName string, messages []Message) (ChatResult, error) {
	cfg, err := r.providers.Get(providerName)
	if err != nil {
		return ChatResult{}, fmt.Errorf("llmprovider: %w", err)
	}
	rp, err := r.resilientFor(providerName, cfg)
	if err != nil {
		return ChatResult{}, err
	}
	return rp.Chat(ctx, messages)
}

// ListModels lists the models the named provider reports, recording a
// model_list_success or model_list_error audit entry against
// types.PublicSessionID (spec §3).
func (r *Registry) ListModels(ctx context.Context, providerName string) ([]string, error) {
	cfg, err := r.providers.Get(providerName)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: %w", err)
	}
	rp, err := r.resilientFor(providerName, cfg)
	if err != nil {
		return nil, err
	}

	models, err := rp.ListModels(ctx)
	eventType := types.EventModelListSuccess
	action := fmt.Sprintf("%v", models)
	if err != nil {
		eventType = types.EventModelListError
		action = err.Error()
	}
	r.writeAudit(ctx, eventType, providerName, action)
	return models, err
}

func (r *Registry) writeAudit(ctx context.Context, eventType types.EventType, providerName, detail string) {
	if r.audit == nil {
		return
	}
	entry := types.AuditEntry{
		SessionID: types.PublicSessionID,
		EventType: eventType,
		Metadata:  types.AuditMetadata{Action: providerName, Reason: detail},
	}
	if err := r.audit.Write(ctx, entry); err != nil {
		slog.Warn("llmprovider: audit write failed", "event_type", eventType, "error", err)
	}
}

func newProvider(cfg *config.LLMProviderConfig) (Provider, error) {
	switch cfg.Type {
	case config.LLMProviderTypeOpenAI:
		return newOpenAIProvider(cfg)
	case config.LLMProviderTypeBedrock:
		return newBedrockProvider(cfg)
	default:
		return nil, fmt.Errorf("llmprovider: unknown provider type %q", cfg.Type)
	}
}
