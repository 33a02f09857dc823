package notify

import (
	"context"
	"testing"

	goslack "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"

	"github.com/codeready-toolchain/transclassify/pkg/config"
	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func TestService_NilReceiver(t *testing.T) {
	var s *Service

	t.Run("NotifyTerminal is a no-op", func(t *testing.T) {
		// Should not panic.
		s.NotifyTerminal(context.Background(), &types.Session{SessionID: "sess-1", Status: types.StatusFailed})
	})
}

func TestNewService(t *testing.T) {
	t.Run("returns nil when disabled", func(t *testing.T) {
		svc := NewService(config.NotifyConfig{Enabled: false, Channel: "C123"}, "xoxb-test")
		assert.Nil(t, svc)
	})

	t.Run("returns nil when token empty", func(t *testing.T) {
		svc := NewService(config.NotifyConfig{Enabled: true, Channel: "C123"}, "")
		assert.Nil(t, svc)
	})

	t.Run("returns nil when channel empty", func(t *testing.T) {
		svc := NewService(config.NotifyConfig{Enabled: true}, "xoxb-test")
		assert.Nil(t, svc)
	})

	t.Run("returns service when configured", func(t *testing.T) {
		svc := NewService(config.NotifyConfig{Enabled: true, Channel: "C123", DashboardURL: "https://example.com"}, "xoxb-test")
		assert.NotNil(t, svc)
	})
}

func TestBuildTerminalMessageCoversKnownStatuses(t *testing.T) {
	for _, status := range []types.SessionStatus{types.StatusManualReview, types.StatusPendingAdminReview, types.StatusFailed} {
		sess := &types.Session{SessionID: "sess-1", Status: status, Description: "we do a thing"}
		blocks := buildTerminalMessage(sess, "https://example.com")
		assert.NotEmpty(t, blocks)
	}
}

func TestBuildTerminalMessageIncludesProposedCategory(t *testing.T) {
	sess := &types.Session{
		SessionID: "sess-1",
		Status:    types.StatusManualReview,
		Classification: &types.Classification{
			Category:   types.CategoryRPA,
			Confidence: 0.4,
		},
	}
	blocks := buildTerminalMessage(sess, "")
	assert.NotEmpty(t, blocks)
	section, ok := blocks[0].(*goslack.SectionBlock)
	if assert.True(t, ok) {
		assert.Contains(t, section.Text.Text, "Proposed category: *"+string(types.CategoryRPA)+"*")
	}
}

func TestTruncateForSlackRespectsLimit(t *testing.T) {
	long := make([]byte, maxBlockTextLength+500)
	for i := range long {
		long[i] = 'a'
	}
	out := truncateForSlack(string(long))
	assert.LessOrEqual(t, len(out), maxBlockTextLength)
}
