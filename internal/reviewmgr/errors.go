package reviewmgr

import "errors"

// ErrPRAlreadyExists is returned (wrapped) by GHClient.Create when gh reports
// a pull request already exists for the current branch -- the spec's
// "submit twice returns PR already exists and does not push or mutate
// state" round-trip property.
var ErrPRAlreadyExists = errors.New("reviewmgr: pull request already exists for this branch")

// ErrFixRecordNotFound is returned when an issue id has no FixRecord.
var ErrFixRecordNotFound = errors.New("reviewmgr: no fix record for issue")

// ErrWorktreeMissing names the case where the worktree path referenced by a
// FixRecord no longer exists on disk. Manager.Clean does not return it: it
// skips the worktree removal and still deletes the FixRecord.
var ErrWorktreeMissing = errors.New("reviewmgr: worktree no longer exists")
