package fix

import (
	"context"
	"sync"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

// fakeGitClient is a minimal in-memory implementation of git.Client for
// exercising branch allocation, worktree provisioning, and the orchestrator
// without shelling out to a real git binary.
type fakeGitClient struct {
	mu sync.Mutex

	existingBranches map[string]bool
	currentBranch    string

	worktreeAddCalls    []worktreeAddCall
	worktreeRemoveCalls []worktreeRemoveCall
	worktreeAddErr      error
	worktreeRemoveErr   error
	pushCalls           []pushCall
	pushErr             error
}

type worktreeAddCall struct {
	path, branch, base string
}

type worktreeRemoveCall struct {
	path  string
	force bool
}

type pushCall struct {
	remote      string
	setUpstream bool
}

func newFakeGitClient() *fakeGitClient {
	return &fakeGitClient{existingBranches: map[string]bool{}, currentBranch: "main"}
}

var _ git.Client = (*fakeGitClient)(nil)

func (f *fakeGitClient) DiffFiles(ctx context.Context, base string) ([]git.DiffEntry, error) { return nil, nil }
func (f *fakeGitClient) DiffStat(ctx context.Context, base string) (*git.DiffStats, error)    { return &git.DiffStats{}, nil }
func (f *fakeGitClient) DiffUnified(ctx context.Context, base string) (string, error)         { return "", nil }
func (f *fakeGitClient) DiffNumStat(ctx context.Context, base string) ([]git.NumStatEntry, error) {
	return nil, nil
}

func (f *fakeGitClient) WorktreeAdd(ctx context.Context, path, branch, base string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.worktreeAddCalls = append(f.worktreeAddCalls, worktreeAddCall{path, branch, base})
	if f.worktreeAddErr != nil {
		return f.worktreeAddErr
	}
	f.existingBranches[branch] = true
	return nil
}

func (f *fakeGitClient) WorktreeRemove(ctx context.Context, path string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.worktreeRemoveCalls = append(f.worktreeRemoveCalls, worktreeRemoveCall{path, force})
	return f.worktreeRemoveErr
}

func (f *fakeGitClient) WorktreeList(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeGitClient) CurrentBranch(ctx context.Context) (string, error) {
	return f.currentBranch, nil
}

func (f *fakeGitClient) BranchExists(ctx context.Context, branch string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.existingBranches[branch], nil
}

func (f *fakeGitClient) Log(ctx context.Context, n int) ([]git.LogEntry, error) { return nil, nil }

func (f *fakeGitClient) Push(ctx context.Context, remote string, setUpstream bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls = append(f.pushCalls, pushCall{remote, setUpstream})
	return f.pushErr
}

// fakeIssues is a minimal Issues implementation recording removals, used by
// orchestrator tests in place of a real store.IssueStore.
type fakeIssues struct {
	mu       sync.Mutex
	removed  []string
	removeErr error
}

func (f *fakeIssues) RemoveIssue(issueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, issueID)
	return f.removeErr
}
