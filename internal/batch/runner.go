// Package batch drives the Scan Pipeline across many catalog agents with a
// bounded worker pool and a resumable, crash-safe run state. It is grounded
// on internal/review/orchestrator.go's errgroup fan-out and
// internal/task/state.go's atomic-write discipline, generalized here to
// persist per-agent lifecycle transitions instead of a single task's phase.
package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/scan"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// AgentResult summarizes one agent's outcome within a batch run, whether it
// ran this invocation or was skipped as already-completed on resume.
type AgentResult struct {
	AgentID string
	Status  store.AgentRunStatus
	Result  *store.AgentRunResult
	Err     error
	Skipped bool
}

// Pipeline is the subset of scan.Pipeline the Runner depends on, so tests can
// substitute a stub without constructing a full scan.Pipeline.
type Pipeline interface {
	RunAgent(ctx context.Context, targetPath, agentID string) (*scan.Result, error)
}

// Runner drives a batch of agents against one target path.
type Runner struct {
	pipeline Pipeline
	runs     *store.BatchRunStore
	logger   *log.Logger
}

// NewRunner creates a Runner. logger may be nil.
func NewRunner(pipeline Pipeline, runs *store.BatchRunStore, logger *log.Logger) *Runner {
	return &Runner{pipeline: pipeline, runs: runs, logger: logger}
}

// RunAll resolves or creates the persisted BatchRunState for targetPath and
// agentIDs, skips agents already in a terminal (completed) state, and runs
// the remainder with at most concurrency agents in flight at once. Every
// agent transition is persisted immediately so a crash mid-run can resume
// from exactly where it left off.
func (r *Runner) RunAll(ctx context.Context, targetPath string, agentIDs []string, concurrency int) ([]AgentResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}

	state, resumed, err := r.runs.LoadOrFresh(targetPath, agentIDs, concurrency)
	if err != nil {
		return nil, fmt.Errorf("batch: loading run state: %w", err)
	}
	if resumed && r.logger != nil {
		r.logger.Info("resuming batch run", "runId", state.RunID, "agents", len(state.Agents))
	}

	toRun := make([]string, 0, len(state.Agents))
	resultsByAgent := make(map[string]*AgentResult, len(state.Agents))

	for _, a := range state.Agents {
		a := a
		if a.Status == store.AgentRunCompleted {
			resultsByAgent[a.AgentID] = &AgentResult{
				AgentID: a.AgentID,
				Status:  a.Status,
				Result:  a.Result,
				Skipped: true,
			}
			continue
		}
		// Pending or errored agents are (re-)scheduled.
		toRun = append(toRun, a.AgentID)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	var mu sync.Mutex

	for _, agentID := range toRun {
		agentID := agentID
		g.Go(func() error {
			res := r.runOne(gctx, targetPath, agentID)
			mu.Lock()
			resultsByAgent[agentID] = res
			mu.Unlock()
			// A single agent's failure never aborts the pool.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch: run %s: %w", state.RunID, err)
	}

	results := make([]AgentResult, 0, len(state.Agents))
	for _, a := range state.Agents {
		if res, ok := resultsByAgent[a.AgentID]; ok {
			results = append(results, *res)
		}
	}
	return results, nil
}

func (r *Runner) runOne(ctx context.Context, targetPath, agentID string) *AgentResult {
	if err := r.runs.UpdateAgentStatus(agentID, store.AgentRunRunning, nil, nil); err != nil && r.logger != nil {
		r.logger.Warn("failed to record agent running status", "agent", agentID, "error", err)
	}

	start := time.Now()
	res, err := r.pipeline.RunAgent(ctx, targetPath, agentID)
	if err != nil {
		if upErr := r.runs.UpdateAgentStatus(agentID, store.AgentRunError, nil, err); upErr != nil && r.logger != nil {
			r.logger.Warn("failed to record agent error status", "agent", agentID, "error", upErr)
		}
		return &AgentResult{AgentID: agentID, Status: store.AgentRunError, Err: err}
	}

	summary := &store.AgentRunResult{
		ApprovedCount: len(res.Approved),
		RejectedCount: len(res.Rejected),
		TicketPaths:   res.TicketPaths,
		CostUSD:       res.CostUSD,
		DurationMS:    time.Since(start).Milliseconds(),
	}
	if err := r.runs.UpdateAgentStatus(agentID, store.AgentRunCompleted, summary, nil); err != nil && r.logger != nil {
		r.logger.Warn("failed to record agent completed status", "agent", agentID, "error", err)
	}

	return &AgentResult{AgentID: agentID, Status: store.AgentRunCompleted, Result: summary}
}
