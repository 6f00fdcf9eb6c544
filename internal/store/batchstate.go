package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

const batchRunStateVersion = 1

// DefaultStaleAfter is the age past which a persisted BatchRunState must not
// be resumed and a fresh run is started instead.
const DefaultStaleAfter = 24 * time.Hour

// BatchRunStore manages <target>/.rover/batch-run-state.json, the Batch
// Runner's sole writer per spec's ownership invariant. Every transition is a
// full read-modify-write, exactly like internal/task's StateManager.Update.
type BatchRunStore struct {
	mu         sync.Mutex
	filePath   string
	staleAfter time.Duration
}

// NewBatchRunStore creates a BatchRunStore for the given path. staleAfter of
// zero means DefaultStaleAfter.
func NewBatchRunStore(filePath string, staleAfter time.Duration) *BatchRunStore {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &BatchRunStore{filePath: filePath, staleAfter: staleAfter}
}

// LoadOrFresh loads the persisted state if present and not stale. A missing
// file, a corrupted file (JSON parse failure -- logged by the caller and
// treated as absent), or a stale file all result in a fresh state for the
// given target path and agent ids, with a newly generated run id.
func (b *BatchRunStore) LoadOrFresh(targetPath string, agentIDs []string, concurrency int) (*BatchRunState, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.load()
	if err == nil && state != nil && !b.isStale(state) {
		return state, true, nil
	}

	fresh := &BatchRunState{
		RunID:             uuid.NewString(),
		Version:           batchRunStateVersion,
		TargetPath:        targetPath,
		RequestedAgentIDs: agentIDs,
		StartedAt:         time.Now().UTC(),
		Concurrency:       concurrency,
	}
	for _, id := range agentIDs {
		fresh.Agents = append(fresh.Agents, BatchAgentState{
			AgentID: id,
			Status:  AgentRunPending,
		})
	}

	if writeErr := b.writeAtomic(fresh); writeErr != nil {
		return nil, false, writeErr
	}
	return fresh, false, nil
}

// load reads the raw state file. Returns (nil, nil) if the file does not
// exist. A JSON parse failure is treated as "absent" per spec's corrupted-
// file handling, not surfaced as an error to the caller of LoadOrFresh.
func (b *BatchRunStore) load() (*BatchRunState, error) {
	data, err := os.ReadFile(b.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: reading batch run state %q: %w", b.filePath, err)
	}
	var state BatchRunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, nil //nolint:nilerr // corrupted file is treated as absent
	}
	return &state, nil
}

func (b *BatchRunStore) isStale(state *BatchRunState) bool {
	return time.Since(state.StartedAt) > b.staleAfter
}

// UpdateAgentStatus transitions a single agent's status within the run
// state and persists the full document. Called after every agent state
// transition, per spec's crash-recovery invariant.
func (b *BatchRunStore) UpdateAgentStatus(agentID string, status AgentRunStatus, result *AgentRunResult, runErr error) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	state, err := b.load()
	if err != nil {
		return fmt.Errorf("store: updating agent %q status: %w", agentID, err)
	}
	if state == nil {
		return fmt.Errorf("store: updating agent %q status: %w", agentID, ErrIssueNotFound)
	}

	found := false
	for i := range state.Agents {
		if state.Agents[i].AgentID != agentID {
			continue
		}
		state.Agents[i].Status = status
		state.Agents[i].Result = result
		if runErr != nil {
			state.Agents[i].Error = runErr.Error()
		}
		if status == AgentRunCompleted || status == AgentRunError {
			now := time.Now().UTC()
			state.Agents[i].CompletedAt = &now
		}
		found = true
		break
	}
	if !found {
		return fmt.Errorf("store: updating agent %q status: agent not in run state", agentID)
	}

	if allTerminal(state.Agents) {
		now := time.Now().UTC()
		state.CompletedAt = &now
	}

	return b.writeAtomic(state)
}

func allTerminal(agents []BatchAgentState) bool {
	for _, a := range agents {
		if a.Status != AgentRunCompleted && a.Status != AgentRunError {
			return false
		}
	}
	return true
}

func (b *BatchRunStore) writeAtomic(state *BatchRunState) error {
	dir := filepath.Dir(b.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("store: creating directory %q: %w", dir, err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding batch run state: %w", err)
	}

	tmp := b.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: writing temp batch run state %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.filePath); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("store: renaming temp batch run state to %q: %w", b.filePath, err)
	}
	return nil
}
