package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func TestWrite_StampsTimestampAndSessionID(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	err = l.Write(context.Background(), types.AuditEntry{EventType: types.EventModelListSuccess})
	require.NoError(t, err)

	entries, err := l.QueryByDate(time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, types.PublicSessionID, entries[0].SessionID)
	require.False(t, entries[0].Timestamp.IsZero())
}

func TestQueryBySession_FiltersAcrossEvents(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, l.Write(ctx, types.AuditEntry{SessionID: "s1", EventType: types.EventClarification}))
	require.NoError(t, l.Write(ctx, types.AuditEntry{SessionID: "s2", EventType: types.EventClarification}))
	require.NoError(t, l.Write(ctx, types.AuditEntry{SessionID: "s1", EventType: types.EventClassification}))

	entries, err := l.QueryBySession("s1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, types.EventClarification, entries[0].EventType)
	require.Equal(t, types.EventClassification, entries[1].EventType)
}

func TestQueryByDate_EmptyWhenFileMissing(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	entries, err := l.QueryByDate(time.Now().AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestWrite_RotatesDaily(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	today := time.Now().UTC()
	yesterday := today.AddDate(0, 0, -1)

	require.NoError(t, l.Write(context.Background(), types.AuditEntry{Timestamp: today, EventType: types.EventClassification}))
	require.NoError(t, l.Write(context.Background(), types.AuditEntry{Timestamp: yesterday, EventType: types.EventClassification}))

	todayEntries, err := l.QueryByDate(today)
	require.NoError(t, err)
	require.Len(t, todayEntries, 1)

	yesterdayEntries, err := l.QueryByDate(yesterday)
	require.NoError(t, err)
	require.Len(t, yesterdayEntries, 1)
}

func TestPrune_RemovesOldFilesOnly(t *testing.T) {
	l, err := New(t.TempDir())
	require.NoError(t, err)

	now := time.Now().UTC()
	old := now.AddDate(0, 0, -400)

	require.NoError(t, l.Write(context.Background(), types.AuditEntry{Timestamp: now, EventType: types.EventClassification}))
	require.NoError(t, l.Write(context.Background(), types.AuditEntry{Timestamp: old, EventType: types.EventClassification}))

	deleted, err := l.Prune(365, now)
	require.NoError(t, err)
	require.Len(t, deleted, 1)

	recent, err := l.QueryByDate(now)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	gone, err := l.QueryByDate(old)
	require.NoError(t, err)
	require.Empty(t, gone)
}
