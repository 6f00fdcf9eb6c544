package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchRunStore_LoadOrFresh_CreatesFreshWhenMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch-run-state.json")
	b := NewBatchRunStore(path, 0)

	state, resumed, err := b.LoadOrFresh("/repo", []string{"security", "style"}, 2)
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.Len(t, state.Agents, 2)
	assert.Equal(t, AgentRunPending, state.Agents[0].Status)
	assert.NotEmpty(t, state.RunID)
}

func TestBatchRunStore_LoadOrFresh_ResumesNonStale(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch-run-state.json")
	b := NewBatchRunStore(path, time.Hour)

	first, _, err := b.LoadOrFresh("/repo", []string{"security"}, 1)
	require.NoError(t, err)

	require.NoError(t, b.UpdateAgentStatus("security", AgentRunRunning, nil, nil))

	second, resumed, err := b.LoadOrFresh("/repo", []string{"security"}, 1)
	require.NoError(t, err)
	assert.True(t, resumed)
	assert.Equal(t, first.RunID, second.RunID)
	assert.Equal(t, AgentRunRunning, second.Agents[0].Status)
}

func TestBatchRunStore_LoadOrFresh_StaleIsDiscarded(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch-run-state.json")
	b := NewBatchRunStore(path, time.Millisecond)

	first, _, err := b.LoadOrFresh("/repo", []string{"security"}, 1)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	second, resumed, err := b.LoadOrFresh("/repo", []string{"security"}, 1)
	require.NoError(t, err)
	assert.False(t, resumed)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestBatchRunStore_LoadOrFresh_CorruptedFileTreatedAsAbsent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch-run-state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	b := NewBatchRunStore(path, 0)
	_, resumed, err := b.LoadOrFresh("/repo", []string{"security"}, 1)
	require.NoError(t, err)
	assert.False(t, resumed)
}

func TestBatchRunStore_UpdateAgentStatus_MarksCompletedWhenAllTerminal(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "batch-run-state.json")
	b := NewBatchRunStore(path, 0)

	_, _, err := b.LoadOrFresh("/repo", []string{"security", "style"}, 2)
	require.NoError(t, err)

	require.NoError(t, b.UpdateAgentStatus("security", AgentRunCompleted, &AgentRunResult{ApprovedCount: 3}, nil))
	state, err := b.load()
	require.NoError(t, err)
	assert.Nil(t, state.CompletedAt)

	require.NoError(t, b.UpdateAgentStatus("style", AgentRunCompleted, nil, nil))
	state, err = b.load()
	require.NoError(t, err)
	require.NotNil(t, state.CompletedAt)
}
