package cleanup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/config"
)

type fakeAuditLog struct {
	prunedFiles []string
	err         error
	calledWith  int
}

func (f *fakeAuditLog) Prune(retentionDays int, now time.Time) ([]string, error) {
	f.calledWith = retentionDays
	return f.prunedFiles, f.err
}

type fakeSessionStore struct {
	deletedCount int
	err          error
	calledWith   time.Time
}

func (f *fakeSessionStore) DeleteCompletedOlderThan(cutoff time.Time) (int, error) {
	f.calledWith = cutoff
	return f.deletedCount, f.err
}

func testConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		AuditLogRetentionDays: 365,
		SessionRetentionDays:  90,
		CleanupInterval:       time.Hour,
	}
}

func TestRunAllPrunesAuditLogsWithConfiguredRetention(t *testing.T) {
	audit := &fakeAuditLog{prunedFiles: []string{"2024-01-01.jsonl", "2024-01-02.jsonl", "2024-01-03.jsonl"}}
	sessions := &fakeSessionStore{}
	svc := NewService(testConfig(), audit, sessions)

	svc.runAll(context.Background())

	assert.Equal(t, 365, audit.calledWith)
}

func TestRunAllDeletesSessionsOlderThanRetentionCutoff(t *testing.T) {
	audit := &fakeAuditLog{}
	sessions := &fakeSessionStore{deletedCount: 2}
	svc := NewService(testConfig(), audit, sessions)

	before := time.Now().AddDate(0, 0, -90)
	svc.runAll(context.Background())
	after := time.Now().AddDate(0, 0, -90)

	assert.True(t, !sessions.calledWith.Before(before) && !sessions.calledWith.After(after))
}

func TestRunAllToleratesAuditPruneFailure(t *testing.T) {
	audit := &fakeAuditLog{err: errors.New("disk full")}
	sessions := &fakeSessionStore{deletedCount: 1}
	svc := NewService(testConfig(), audit, sessions)

	require.NotPanics(t, func() { svc.runAll(context.Background()) })
}

func TestStartStopRunsWithoutBlocking(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = 50 * time.Millisecond
	svc := NewService(cfg, &fakeAuditLog{}, &fakeSessionStore{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Start(ctx)
	time.Sleep(10 * time.Millisecond)
	svc.Stop()
}
