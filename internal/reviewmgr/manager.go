package reviewmgr

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// Issues is the narrow subset of store.IssueStore that submit needs: once a
// PR is created the issue is now tracked upstream, so it is removed from the
// local store.
type Issues interface {
	RemoveIssue(issueID string) error
}

// PRCreator is the subset of GHClient that Manager depends on, so tests can
// substitute a fake instead of shelling out to the real gh binary.
type PRCreator interface {
	Create(ctx context.Context, opts PRCreateOpts) (*PRCreateResult, error)
}

// GitClientFactory builds a git.Client scoped to workDir. Submit uses this to
// get a client rooted at a fix's own worktree (not the main target repo), so
// Push/Log operate on the fix branch's commits rather than whatever the main
// repo happens to have checked out.
type GitClientFactory func(workDir string) (git.Client, error)

// DefaultGitClientFactory opens a real git.GitClient rooted at workDir.
func DefaultGitClientFactory(workDir string) (git.Client, error) {
	return git.NewGitClient(workDir)
}

// PRCreatorFactory builds a PRCreator scoped to workDir, for the same reason
// as GitClientFactory: gh infers the head branch and repo from its working
// directory, so it must run from the fix's worktree.
type PRCreatorFactory func(workDir string) PRCreator

// NewGHClientFactory returns a PRCreatorFactory that opens a real GHClient
// rooted at whatever workDir Submit passes it. logger may be nil.
func NewGHClientFactory(logger *log.Logger) PRCreatorFactory {
	return func(workDir string) PRCreator {
		return NewGHClient(workDir, logger)
	}
}

// Manager implements the Review Manager: list/submit/clean over
// FixRecords, grounded on internal/review/pr.go's PRCreator lifecycle
// (prerequisite checks, push-then-create, URL/number parsing) generalized
// from a one-shot phase PR to a per-issue PR tied to a FixRecord.
type Manager struct {
	fixes  *store.FixStore
	issues Issues
	// git is rooted at the main target repo. It is only used for operations
	// that must run outside any worktree, such as removing one.
	git git.Client
	// gitForWorktree and ghFactory build per-call collaborators rooted at a
	// FixRecord's own worktree, so Submit pushes and PRs the fix's actual
	// branch instead of whatever the main repo has checked out.
	gitForWorktree GitClientFactory
	ghFactory      PRCreatorFactory
	body           *BodyGenerator
	logger         *log.Logger
}

// NewManager creates a Manager from its collaborators. gitClient is rooted at
// the main target repo and used for Clean's worktree removal; gitForWorktree
// and ghFactory build collaborators rooted at a FixRecord's worktree for
// Submit's push/log/PR-create. logger may be nil.
func NewManager(fixes *store.FixStore, issues Issues, gitClient git.Client, gitForWorktree GitClientFactory, ghFactory PRCreatorFactory, body *BodyGenerator, logger *log.Logger) *Manager {
	return &Manager{
		fixes:          fixes,
		issues:         issues,
		git:            gitClient,
		gitForWorktree: gitForWorktree,
		ghFactory:      ghFactory,
		body:           body,
		logger:         logger,
	}
}

// List returns every FixRecord whose worktree still exists on disk, plus
// any FixRecord with status Merged regardless of worktree presence (kept
// for history per spec's list filter rule).
func (m *Manager) List() ([]store.FixRecord, error) {
	all, err := m.fixes.Load()
	if err != nil {
		return nil, fmt.Errorf("reviewmgr: listing fix records: %w", err)
	}

	out := make([]store.FixRecord, 0, len(all))
	for _, rec := range all {
		if rec.Status == store.FixStatusMerged {
			out = append(out, rec)
			continue
		}
		if worktreeExists(rec.WorktreePath) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// SubmitInput configures one Submit call.
type SubmitInput struct {
	IssueID       string
	Summary       string
	TicketMarkdown string
	BaseBranch    string
	Draft         bool
}

// Submit pushes the issue's fix branch to origin, creates a GitHub PR with
// an auto-generated title/body, updates the FixRecord to pr_created, and
// removes the issue from the IssueStore (it is now tracked upstream). A PR
// that already exists for this branch returns ErrPRAlreadyExists without
// pushing again or mutating any state, satisfying the idempotent-submit
// round-trip property.
func (m *Manager) Submit(ctx context.Context, in SubmitInput) (*store.FixRecord, error) {
	rec, err := m.fixes.Get(in.IssueID)
	if err != nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: %w", in.IssueID, err)
	}
	if rec == nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: %w", in.IssueID, ErrFixRecordNotFound)
	}
	if rec.Status == store.FixStatusPRCreated || rec.Status == store.FixStatusMerged {
		return rec, fmt.Errorf("reviewmgr: submit %s: %w", in.IssueID, ErrPRAlreadyExists)
	}

	wtGit, err := m.gitForWorktree(rec.WorktreePath)
	if err != nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: opening worktree git client: %w", in.IssueID, err)
	}

	if err := wtGit.Push(ctx, "origin", true); err != nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: pushing branch: %w", in.IssueID, err)
	}

	commits, err := wtGit.Log(ctx, 20)
	if err != nil && m.logger != nil {
		m.logger.Warn("reviewmgr: failed to read commit log for PR body", "issue", in.IssueID, "error", err)
	}

	body, err := m.body.Generate(in.IssueID, in.Summary, in.TicketMarkdown, commits)
	if err != nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: %w", in.IssueID, err)
	}

	gh := m.ghFactory(rec.WorktreePath)
	result, err := gh.Create(ctx, PRCreateOpts{
		Title:      Title(in.IssueID, in.Summary),
		Body:       body,
		BaseBranch: in.BaseBranch,
		Head:       rec.BranchName,
		Draft:      in.Draft,
	})
	if err != nil {
		if errors.Is(err, ErrPRAlreadyExists) {
			return rec, err
		}
		return nil, fmt.Errorf("reviewmgr: submit %s: %w", in.IssueID, err)
	}

	rec.Status = store.FixStatusPRCreated
	rec.PRUrl = result.URL
	rec.PRNumber = result.Number
	if err := m.fixes.Upsert(*rec); err != nil {
		return nil, fmt.Errorf("reviewmgr: submit %s: persisting fix record: %w", in.IssueID, err)
	}

	if err := m.issues.RemoveIssue(in.IssueID); err != nil && m.logger != nil {
		m.logger.Warn("reviewmgr: failed to remove submitted issue from store", "issue", in.IssueID, "error", err)
	}

	return rec, nil
}

// Clean removes the worktree for issueID (force, ignoring local
// modifications) and deletes its FixRecord. Ticket files are left untouched
// per spec.
func (m *Manager) Clean(ctx context.Context, issueID string) error {
	rec, err := m.fixes.Get(issueID)
	if err != nil {
		return fmt.Errorf("reviewmgr: clean %s: %w", issueID, err)
	}
	if rec == nil {
		return fmt.Errorf("reviewmgr: clean %s: %w", issueID, ErrFixRecordNotFound)
	}

	if rec.WorktreePath != "" && worktreeExists(rec.WorktreePath) {
		if err := m.git.WorktreeRemove(ctx, rec.WorktreePath, true); err != nil {
			return fmt.Errorf("reviewmgr: clean %s: removing worktree: %w", issueID, err)
		}
	}

	if err := m.fixes.Delete(issueID); err != nil {
		return fmt.Errorf("reviewmgr: clean %s: deleting fix record: %w", issueID, err)
	}
	return nil
}

func worktreeExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
