package fix

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// IssueInput is one ticket the Orchestrator is asked to fix, resolved by the
// caller from a ticket ID (the CLI layer reads the markdown file and the
// issue store entry; this package has no ticket-path knowledge of its own).
type IssueInput struct {
	IssueID        string
	TicketMarkdown string
	IssueSummary   string
}

// Issues is the narrow subset of store.IssueStore the Orchestrator mutates
// directly -- only the already_fixed outcome removes an issue, per spec's
// "already_fixed: destroy the worktree, remove the issue from the store"
// rule. Every other terminal state leaves the issue store untouched; a
// successful fix is surfaced to Review Manager via the FixRecord instead.
type Issues interface {
	RemoveIssue(issueID string) error
}

// Orchestrator runs the Fix Orchestrator's per-issue worker pool: disjoint
// worktrees provisioned per issue, at most concurrency issues in flight,
// grounded on batch.Runner's errgroup.SetLimit work-queue shape and
// generalized from "one agent, one scan" to "one issue, one worktree".
type Orchestrator struct {
	branches  *BranchAllocator
	worktrees *Provisioner
	engine    *Engine
	fixes     *store.FixStore
	traces    *store.TraceStore
	issues    Issues
	gitClient git.Client
	logger    *log.Logger
}

// NewOrchestrator creates an Orchestrator from its collaborators. logger may
// be nil.
func NewOrchestrator(branches *BranchAllocator, worktrees *Provisioner, engine *Engine, fixes *store.FixStore, traces *store.TraceStore, issues Issues, gitClient git.Client, logger *log.Logger) *Orchestrator {
	return &Orchestrator{
		branches:  branches,
		worktrees: worktrees,
		engine:    engine,
		fixes:     fixes,
		traces:    traces,
		issues:    issues,
		gitClient: gitClient,
		logger:    logger,
	}
}

// RunFix drives every issue in issues through its own worktree/fix/review
// cycle, at most concurrency in flight simultaneously, each with up to
// maxIterations iterate/review rounds. Worker count is min(concurrency,
// len(issues)) per spec -- errgroup.SetLimit already degrades gracefully for
// a cap larger than the queue, so no separate clamp is needed.
func (o *Orchestrator) RunFix(ctx context.Context, targetPath string, issues []IssueInput, concurrency, maxIterations int) ([]FixResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	if maxIterations <= 0 {
		maxIterations = 10
	}

	results := make([]FixResult, len(issues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, issue := range issues {
		i, issue := i, issue
		g.Go(func() error {
			results[i] = o.runOne(gctx, targetPath, issue, maxIterations)
			// One issue's failure never aborts the pool.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fix: batch run: %w", err)
	}
	return results, nil
}

func (o *Orchestrator) runOne(ctx context.Context, targetPath string, issue IssueInput, maxIterations int) FixResult {
	branchName, err := o.branches.Allocate(ctx, issue.IssueID)
	if err != nil {
		return FixResult{IssueID: issue.IssueID, Status: OutcomeError, Error: err.Error()}
	}

	baseBranch, err := o.gitClient.CurrentBranch(ctx)
	if err != nil {
		return FixResult{IssueID: issue.IssueID, Status: OutcomeError, BranchName: branchName, Error: err.Error()}
	}

	worktreePath, err := o.worktrees.Provision(ctx, targetPath, branchName, baseBranch)
	if err != nil {
		return FixResult{IssueID: issue.IssueID, Status: OutcomeError, BranchName: branchName, Error: err.Error()}
	}

	startedAt := time.Now().UTC()
	rec := store.FixRecord{
		IssueID:      issue.IssueID,
		BranchName:   branchName,
		WorktreePath: worktreePath,
		Status:       store.FixStatusInProgress,
		StartedAt:    startedAt,
		IssueContent: issue.TicketMarkdown,
		IssueSummary: issue.IssueSummary,
	}
	if err := o.fixes.Upsert(rec); err != nil && o.logger != nil {
		o.logger.Warn("failed to persist initial fix record", "issue", issue.IssueID, "error", err)
	}

	onTrace := func(entry store.FixTraceEntry) {
		if err := o.traces.Append(issue.IssueID, entry); err != nil && o.logger != nil {
			o.logger.Warn("failed to append fix trace", "issue", issue.IssueID, "error", err)
		}
	}

	outcome, err := o.engine.Run(ctx, RunInput{
		BranchName:     branchName,
		WorktreePath:   worktreePath,
		TicketMarkdown: issue.TicketMarkdown,
		MaxIterations:  maxIterations,
		OnTrace:        onTrace,
	})
	if err != nil {
		o.finalize(issue.IssueID, rec, store.FixStatusError, 0, err.Error())
		return FixResult{IssueID: issue.IssueID, Status: OutcomeError, BranchName: branchName, WorktreePath: worktreePath, Error: err.Error()}
	}

	return o.applyOutcome(ctx, issue, branchName, worktreePath, rec, outcome)
}

func (o *Orchestrator) applyOutcome(ctx context.Context, issue IssueInput, branchName, worktreePath string, rec store.FixRecord, outcome *Outcome) FixResult {
	result := FixResult{
		IssueID:      issue.IssueID,
		Status:       outcome.Status,
		BranchName:   branchName,
		WorktreePath: worktreePath,
		Iterations:   outcome.Iterations,
		Error:        outcome.Error,
	}

	switch outcome.Status {
	case OutcomeAlreadyFixed:
		if err := o.worktrees.Destroy(ctx, worktreePath); err != nil && o.logger != nil {
			o.logger.Warn("failed to destroy already-fixed worktree", "issue", issue.IssueID, "error", err)
		}
		if err := o.issues.RemoveIssue(issue.IssueID); err != nil && o.logger != nil {
			o.logger.Warn("failed to remove already-fixed issue from store", "issue", issue.IssueID, "error", err)
		}
		if err := o.fixes.Delete(issue.IssueID); err != nil && o.logger != nil {
			o.logger.Warn("failed to delete fix record for already-fixed issue", "issue", issue.IssueID, "error", err)
		}
		result.WorktreePath = ""

	case OutcomeComplete:
		o.finalize(issue.IssueID, rec, store.FixStatusReadyForReview, outcome.Iterations, "")

	case OutcomeIterationLimit:
		// Worktree is retained for manual review per spec; this is a
		// terminal state, not an error.
		o.finalize(issue.IssueID, rec, store.FixStatusReadyForReview, outcome.Iterations, "")

	case OutcomeError:
		o.finalize(issue.IssueID, rec, store.FixStatusError, outcome.Iterations, outcome.Error)
	}

	return result
}

func (o *Orchestrator) finalize(issueID string, rec store.FixRecord, status store.FixStatus, iterations int, errMsg string) {
	now := time.Now().UTC()
	rec.Status = status
	rec.Iterations = iterations
	rec.Error = errMsg
	rec.CompletedAt = &now
	if err := o.fixes.Upsert(rec); err != nil && o.logger != nil {
		o.logger.Warn("failed to persist final fix record", "issue", issueID, "error", err)
	}
}
