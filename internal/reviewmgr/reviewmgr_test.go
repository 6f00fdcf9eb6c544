package reviewmgr

import (
	"context"
	"sync"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

type fakeGitClient struct {
	mu sync.Mutex

	pushCalls         []pushCall
	pushErr           error
	worktreeRemoveErr error
	removedWorktrees  []string
	logEntries        []git.LogEntry
}

type pushCall struct {
	remote      string
	setUpstream bool
}

func newFakeGitClient() *fakeGitClient { return &fakeGitClient{} }

var _ git.Client = (*fakeGitClient)(nil)

func (f *fakeGitClient) DiffFiles(ctx context.Context, base string) ([]git.DiffEntry, error) { return nil, nil }
func (f *fakeGitClient) DiffStat(ctx context.Context, base string) (*git.DiffStats, error)    { return &git.DiffStats{}, nil }
func (f *fakeGitClient) DiffUnified(ctx context.Context, base string) (string, error)         { return "", nil }
func (f *fakeGitClient) DiffNumStat(ctx context.Context, base string) ([]git.NumStatEntry, error) {
	return nil, nil
}
func (f *fakeGitClient) WorktreeAdd(ctx context.Context, path, branch, base string) error { return nil }

func (f *fakeGitClient) WorktreeRemove(ctx context.Context, path string, force bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removedWorktrees = append(f.removedWorktrees, path)
	return f.worktreeRemoveErr
}

func (f *fakeGitClient) WorktreeList(ctx context.Context) ([]string, error) { return nil, nil }
func (f *fakeGitClient) CurrentBranch(ctx context.Context) (string, error)  { return "fix/ISSUE-001", nil }
func (f *fakeGitClient) BranchExists(ctx context.Context, branch string) (bool, error) {
	return false, nil
}

func (f *fakeGitClient) Log(ctx context.Context, n int) ([]git.LogEntry, error) {
	return f.logEntries, nil
}

func (f *fakeGitClient) Push(ctx context.Context, remote string, setUpstream bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushCalls = append(f.pushCalls, pushCall{remote, setUpstream})
	return f.pushErr
}

// fakeGitClientFactory hands out a distinct fakeGitClient per workDir it is
// called with, and remembers which one, so a test can assert that Submit
// pushed/logged through the client scoped to a specific worktree rather than
// whichever one happened to be constructed first.
type fakeGitClientFactory struct {
	mu      sync.Mutex
	clients map[string]*fakeGitClient
}

func newFakeGitClientFactory() *fakeGitClientFactory {
	return &fakeGitClientFactory{clients: map[string]*fakeGitClient{}}
}

func (f *fakeGitClientFactory) forWorkDir(workDir string) (git.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gc := newFakeGitClient()
	f.clients[workDir] = gc
	return gc, nil
}

func (f *fakeGitClientFactory) get(workDir string) *fakeGitClient {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[workDir]
}

// fakePRCreatorFactory is the PRCreator equivalent of fakeGitClientFactory.
type fakePRCreatorFactory struct {
	mu      sync.Mutex
	clients map[string]*fakePRCreator
}

func newFakePRCreatorFactory() *fakePRCreatorFactory {
	return &fakePRCreatorFactory{clients: map[string]*fakePRCreator{}}
}

func (f *fakePRCreatorFactory) forWorkDir(workDir string) PRCreator {
	f.mu.Lock()
	defer f.mu.Unlock()
	pr := &fakePRCreator{result: &PRCreateResult{URL: "https://github.com/acme/repo/pull/" + workDir, Number: 1, Created: true}}
	f.clients[workDir] = pr
	return pr
}

func (f *fakePRCreatorFactory) get(workDir string) *fakePRCreator {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clients[workDir]
}

type fakeIssues struct {
	mu      sync.Mutex
	removed []string
}

func (f *fakeIssues) RemoveIssue(issueID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, issueID)
	return nil
}
