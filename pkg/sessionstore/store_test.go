package sessionstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/transclassify/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestCreateAndGetRoundTrips(t *testing.T) {
	s := newTestStore(t)

	created, err := s.Create("user-1", "", "we manually reconcile invoices every week")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, created.Status)

	fetched, err := s.Get(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, created.Description, fetched.Description)
	assert.Equal(t, created.UserID, fetched.UserID)
}

func TestGetMissingSessionReturnsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("does-not-exist")
	require.Error(t, err)
}

func TestUpdateMutatesAndPersists(t *testing.T) {
	s := newTestStore(t)
	created, err := s.Create("user-1", "", "desc")
	require.NoError(t, err)

	updated, err := s.Update(created.SessionID, func(sess *types.Session) error {
		sess.Status = types.StatusClarifying
		sess.Conversations = append(sess.Conversations, types.ConversationTurn{
			TurnIndex:       0,
			ClarificationQA: []types.ClarificationQA{{Question: "how often?", AskedAt: time.Now()}},
		})
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, types.StatusClarifying, updated.Status)

	reloaded, err := s.Get(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusClarifying, reloaded.Status)
	assert.Equal(t, 1, reloaded.TotalQAPairs())
}

func TestUpdateRejectsInvariantViolation(t *testing.T) {
	s := newTestStore(t)
	created, err := s.Create("user-1", "", "desc")
	require.NoError(t, err)

	_, err = s.Update(created.SessionID, func(sess *types.Session) error {
		sess.Status = types.StatusCompleted // no Classification set — violates invariant
		return nil
	})
	require.Error(t, err)

	reloaded, err := s.Get(created.SessionID)
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, reloaded.Status, "rejected update must not be persisted")
}

func TestListIdleSinceExcludesTerminalAndRecentSessions(t *testing.T) {
	s := newTestStore(t)

	idle, err := s.Create("user-1", "", "idle one")
	require.NoError(t, err)
	_, err = s.Update(idle.SessionID, func(sess *types.Session) error {
		sess.LastActivityAt = time.Now().Add(-3 * time.Hour)
		return nil
	})
	require.NoError(t, err)

	fresh, err := s.Create("user-2", "", "fresh one")
	require.NoError(t, err)
	_ = fresh

	done, err := s.Create("user-3", "", "done one")
	require.NoError(t, err)
	_, err = s.Update(done.SessionID, func(sess *types.Session) error {
		sess.LastActivityAt = time.Now().Add(-3 * time.Hour)
		sess.Status = types.StatusCompleted
		sess.Classification = &types.Classification{Category: types.CategoryRPA, Confidence: 0.9}
		return nil
	})
	require.NoError(t, err)

	results, err := s.ListIdleSince(time.Now().Add(-1 * time.Hour))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, idle.SessionID, results[0].SessionID)
}
