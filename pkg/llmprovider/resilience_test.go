package llmprovider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   int
	errs    []error
	results []ChatResult
}

func (f *fakeProvider) Chat(ctx context.Context, messages []Message) (ChatResult, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return ChatResult{}, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return ChatResult{}, nil
}

func (f *fakeProvider) ListModels(ctx context.Context) ([]string, error) {
	return []string{"fake-model"}, nil
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rate limited", errors.New("429 too many requests"), true},
		{"server error", errors.New("received 503 service unavailable"), true},
		{"bad request", errors.New("400 bad request: invalid model"), false},
		{"unauthorized", errors.New("401 unauthorized"), false},
		{"timeout text", errors.New("context deadline exceeded: timeout"), true},
		{"deadline exceeded sentinel", context.DeadlineExceeded, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isRetryable(tc.err))
		})
	}
}

func TestResilientProviderRetriesThenSucceeds(t *testing.T) {
	inner := &fakeProvider{
		errs:    []error{errors.New("503 service unavailable"), nil},
		results: []ChatResult{{}, {Content: "ok"}},
	}
	rp := newResilientProvider("test", inner)

	result, err := rp.Chat(context.Background(), []Message{{Role: RoleUser, Content: "hi"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content)
	assert.Equal(t, 2, inner.calls)
}

func TestResilientProviderStopsOnNonRetryable(t *testing.T) {
	inner := &fakeProvider{errs: []error{errors.New("400 bad request")}}
	rp := newResilientProvider("test", inner)

	_, err := rp.Chat(context.Background(), nil)
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
