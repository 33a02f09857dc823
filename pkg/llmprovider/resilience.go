package llmprovider

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"

	"github.com/codeready-toolchain/transclassify/pkg/pipelineerr"
)

const (
	maxAttempts    = 3
	attemptTimeout = 30 * time.Second
)

// resilientProvider wraps a Provider with a per-attempt timeout, retry
// with exponential backoff (3 attempts total; the waits between them start
// at 1s and double, with the backoff library's default ±50% jitter), and a circuit
// breaker, so a provider that is down fails fast instead of queuing
// retries behind it (spec §4.3).
type resilientProvider struct {
	inner   Provider
	name    string
	breaker *gobreaker.CircuitBreaker[ChatResult]
}

func newResilientProvider(name string, inner Provider) *resilientProvider {
	settings := gobreaker.Settings{
		Name:        "llmprovider:" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(breakerName string, from, to gobreaker.State) {
			slog.Warn("llmprovider: circuit breaker state change", "provider", breakerName, "from", from, "to", to)
		},
	}
	return &resilientProvider{
		inner:   inner,
		name:    name,
		breaker: gobreaker.NewCircuitBreaker[ChatResult](settings),
	}
}

func (p *resilientProvider) Chat(ctx context.Context, messages []Message) (ChatResult, error) {
	var result ChatResult
	attempt := 0

	op := func() error {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		defer cancel()

		out, err := p.breaker.Execute(func() (ChatResult, error) {
			return p.inner.Chat(attemptCtx, messages)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(pipelineerr.Wrap(pipelineerr.KindLLMFailure, err, "llmprovider: %s: circuit open", p.name))
			}
			if !isRetryable(err) {
				return backoff.Permanent(pipelineerr.Wrap(pipelineerr.KindLLMFailure, err, "llmprovider: %s: non-retryable failure", p.name))
			}
			slog.Warn("llmprovider: retryable chat failure", "provider", p.name, "attempt", attempt, "error", err)
			return err
		}
		result = out
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 0
	bounded := backoff.WithMaxRetries(bo, maxAttempts-1)

	if err := backoff.Retry(op, backoff.WithContext(bounded, ctx)); err != nil {
		var perr *pipelineerr.Error
		if errors.As(err, &perr) {
			return ChatResult{}, perr
		}
		return ChatResult{}, pipelineerr.Wrap(pipelineerr.KindLLMFailure, err, "llmprovider: %s: retries exhausted after %d attempts", p.name, attempt)
	}
	return result, nil
}

func (p *resilientProvider) ListModels(ctx context.Context) ([]string, error) {
	return p.inner.ListModels(ctx)
}

// isRetryable classifies an underlying provider error per spec §4.3: HTTP
// 429, HTTP >= 500, or a network reset/timeout are retried; any other 4xx
// is not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	if strings.Contains(msg, "connection reset") || strings.Contains(msg, "timeout") || strings.Contains(msg, "too many requests") {
		return true
	}
	return false
}
