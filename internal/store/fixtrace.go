package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// TraceStore manages append-only per-issue fix traces at
// <target>/.rover/traces/<issueId>.json. Each issue gets its own file so
// concurrent fix workers never contend on a shared document; a per-store
// mutex map still serializes retries/iterations landing on the same issue's
// trace from the same process.
type TraceStore struct {
	dir string

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
}

// NewTraceStore creates a TraceStore rooted at <target>/.rover/traces.
func NewTraceStore(dir string) *TraceStore {
	return &TraceStore{dir: dir, locks: make(map[string]*sync.Mutex)}
}

func (t *TraceStore) lockFor(issueID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[issueID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[issueID] = l
	}
	return l
}

func (t *TraceStore) pathFor(issueID string) string {
	return filepath.Join(t.dir, issueID+".json")
}

// Load returns the trace for issueID, or an empty trace if none exists yet.
func (t *TraceStore) Load(issueID string) (*FixTrace, error) {
	lock := t.lockFor(issueID)
	lock.Lock()
	defer lock.Unlock()
	return t.load(issueID)
}

func (t *TraceStore) load(issueID string) (*FixTrace, error) {
	data, err := os.ReadFile(t.pathFor(issueID))
	if err != nil {
		if os.IsNotExist(err) {
			return &FixTrace{IssueID: issueID}, nil
		}
		return nil, fmt.Errorf("store: loading fix trace %q: %w", issueID, err)
	}
	var trace FixTrace
	if err := json.Unmarshal(data, &trace); err != nil {
		return nil, fmt.Errorf("store: parsing fix trace %q: %w", issueID, err)
	}
	return &trace, nil
}

// Append adds entry to issueID's trace and writes the whole document back.
// Entries that fingerprint-match the most recent entry (same kind,
// iteration, and output hash) are skipped -- this absorbs duplicate stream
// events replayed on a driver retry within a single fix call.
func (t *TraceStore) Append(issueID string, entry FixTraceEntry) error {
	lock := t.lockFor(issueID)
	lock.Lock()
	defer lock.Unlock()

	trace, err := t.load(issueID)
	if err != nil {
		return fmt.Errorf("store: appending to fix trace %q: %w", issueID, err)
	}

	if n := len(trace.Entries); n > 0 {
		last := trace.Entries[n-1]
		if last.Kind == entry.Kind && last.Iteration == entry.Iteration &&
			fingerprint(last.Output) == fingerprint(entry.Output) {
			return nil
		}
	}

	trace.Entries = append(trace.Entries, entry)

	return t.writeAtomic(trace)
}

// fingerprint returns a stable hash of s for cheap duplicate-entry detection.
func fingerprint(s string) uint64 {
	return xxhash.Sum64String(s)
}

func (t *TraceStore) writeAtomic(trace *FixTrace) error {
	if err := os.MkdirAll(t.dir, 0755); err != nil {
		return fmt.Errorf("store: creating traces directory %q: %w", t.dir, err)
	}

	data, err := json.MarshalIndent(trace, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding fix trace: %w", err)
	}

	path := t.pathFor(trace.IssueID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: writing temp fix trace %q: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("store: renaming temp fix trace to %q: %w", path, err)
	}
	return nil
}
