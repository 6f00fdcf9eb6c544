package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixStore_Upsert_GetRoundTrip(t *testing.T) {
	t.Parallel()

	f := NewFixStore(filepath.Join(t.TempDir(), "fix-state.json"))
	rec := FixRecord{IssueID: "ISSUE-001", Status: FixStatusInProgress, StartedAt: time.Now().UTC()}
	require.NoError(t, f.Upsert(rec))

	got, err := f.Get("ISSUE-001")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, FixStatusInProgress, got.Status)
}

func TestFixStore_Upsert_ReplacesExisting(t *testing.T) {
	t.Parallel()

	f := NewFixStore(filepath.Join(t.TempDir(), "fix-state.json"))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "ISSUE-001", Status: FixStatusInProgress}))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "ISSUE-001", Status: FixStatusReadyForReview, Iterations: 3}))

	all, err := f.Load()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, FixStatusReadyForReview, all[0].Status)
	assert.Equal(t, 3, all[0].Iterations)
}

func TestFixStore_Delete(t *testing.T) {
	t.Parallel()

	f := NewFixStore(filepath.Join(t.TempDir(), "fix-state.json"))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "ISSUE-001"}))
	require.NoError(t, f.Delete("ISSUE-001"))

	got, err := f.Get("ISSUE-001")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFixStore_List_FiltersByStatus(t *testing.T) {
	t.Parallel()

	f := NewFixStore(filepath.Join(t.TempDir(), "fix-state.json"))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "a", Status: FixStatusMerged}))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "b", Status: FixStatusInProgress}))

	merged, err := f.List(FixStatusMerged)
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "a", merged[0].IssueID)
}

func TestFixStore_TouchLastEvent(t *testing.T) {
	t.Parallel()

	f := NewFixStore(filepath.Join(t.TempDir(), "fix-state.json"))
	require.NoError(t, f.Upsert(FixRecord{IssueID: "a"}))

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, f.TouchLastEvent("a", now))

	got, err := f.Get("a")
	require.NoError(t, err)
	assert.True(t, got.LastEventAt.Equal(now))
}
