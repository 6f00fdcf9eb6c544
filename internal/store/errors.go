package store

import "errors"

// ErrIssueNotFound is returned when an operation references an issue id that
// does not exist in the store.
var ErrIssueNotFound = errors.New("issue not found")

// ErrStale names a persisted run state older than the staleness threshold.
// BatchRunStore.LoadOrFresh does not return it: it replaces a stale state
// with a fresh one instead.
var ErrStale = errors.New("batch run state is stale")
