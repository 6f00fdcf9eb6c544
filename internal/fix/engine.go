package fix

import (
	_ "embed"
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

//go:embed fix_prompt.tmpl
var fixPromptTemplate string

// maxCallRetries bounds retries of a single fix call on spawn/transport
// errors (not on a non-zero exit code, which is a real outcome, not a
// transient failure).
const maxCallRetries = 2

// fixPromptData is the data passed to fix_prompt.tmpl.
type fixPromptData struct {
	BranchName      string
	TicketMarkdown  string
	PreviousReview  string
}

// RunInput configures one Engine.Run call.
type RunInput struct {
	BranchName     string
	WorktreePath   string
	TicketMarkdown string
	MaxIterations  int

	// OnTrace, when non-nil, is called once per LLM call the engine makes so
	// the caller can persist a FixTraceEntry. A nil OnTrace means traces are
	// not recorded.
	OnTrace func(store.FixTraceEntry)
}

// Engine drives one issue's fix/review/iterate loop: an initial fix call,
// terminal-marker detection, multi-aspect review, dismissal verification on
// REVIEW_NOT_APPLICABLE, and iteration up to a hard bound -- grounded
// directly on review.FixEngine.Fix's cycle loop, generalized from a
// fixed-count retry-until-verified loop to a session-resuming,
// marker-terminated state machine per spec's per-issue state machine.
type Engine struct {
	driver    llmagent.Agent
	reviewer  *Reviewer
	dismissal *DismissalChecker
	tmpl      *template.Template
	logger    *log.Logger
}

// NewEngine creates an Engine from its collaborators. logger may be nil.
func NewEngine(driver llmagent.Agent, reviewer *Reviewer, dismissal *DismissalChecker, logger *log.Logger) *Engine {
	tmpl := template.Must(template.New("fix_prompt").Delims("[[", "]]").Parse(fixPromptTemplate))
	return &Engine{driver: driver, reviewer: reviewer, dismissal: dismissal, tmpl: tmpl, logger: logger}
}

// Run executes the fix/review/iterate loop for one issue and returns its
// terminal Outcome. It never returns an error for a fix that reaches a
// terminal state via a marker or review verdict -- the returned error is
// reserved for calls the engine cannot classify (transport failure after
// retries exhausted, unparseable review output).
func (e *Engine) Run(ctx context.Context, in RunInput) (*Outcome, error) {
	sessionID := ""
	iteration := 1
	var mustFix, shouldFix []ReviewItem

	prompt, err := e.renderPrompt(in.BranchName, in.TicketMarkdown, "")
	if err != nil {
		return nil, err
	}

	for {
		result, err := e.callFix(ctx, in.WorktreePath, prompt, sessionID)
		if err != nil {
			return nil, err
		}
		sessionID = result.SessionID

		e.trace(in.OnTrace, store.FixTraceEntry{
			Timestamp: time.Now().UTC(),
			Kind:      store.FixTraceKindFixCall,
			Iteration: iteration,
			SessionID: sessionID,
			Output:    result.Stdout,
			ExitCode:  result.ExitCode,
		})

		if result.ExitCode != 0 {
			return &Outcome{Status: OutcomeError, Iterations: iteration, SessionID: sessionID,
				Error: fmt.Sprintf("fix call exited with code %d", result.ExitCode)}, nil
		}

		marker, found := DetectMarker(result.Stdout)
		if found {
			e.trace(in.OnTrace, store.FixTraceEntry{
				Timestamp: time.Now().UTC(),
				Kind:      store.FixTraceKindTerminal,
				Iteration: iteration,
				SessionID: sessionID,
				Marker:    string(marker),
			})
		}

		if found && marker == MarkerBlocked {
			return &Outcome{Status: OutcomeError, Iterations: iteration, SessionID: sessionID,
				Error: "blocked: " + result.Stdout}, nil
		}

		if found && marker == MarkerAlreadyFixed && iteration == 1 {
			return &Outcome{Status: OutcomeAlreadyFixed, Iterations: iteration, SessionID: sessionID}, nil
		}

		if found && marker == MarkerReviewNotApplicable && iteration > 1 {
			kept, err := e.verifyDismissal(ctx, in, sessionID, iteration, result.Stdout, mustFix)
			if err != nil {
				return nil, err
			}
			if len(kept) == 0 {
				return &Outcome{Status: OutcomeComplete, Iterations: iteration, SessionID: sessionID}, nil
			}
			mustFix = kept
			shouldFix = nil
			iteration++
			if iteration > in.MaxIterations {
				return &Outcome{Status: OutcomeIterationLimit, Iterations: iteration - 1, SessionID: sessionID}, nil
			}
			prompt = buildIterationPrompt(mustFix, shouldFix)
			continue
		}

		analysis, err := e.runReview(ctx, in, sessionID, iteration)
		if err != nil {
			return nil, err
		}
		if analysis.IsClean || len(analysis.Items) == 0 {
			return &Outcome{Status: OutcomeComplete, Iterations: iteration, SessionID: sessionID}, nil
		}

		mustFix = analysis.MustFixItems()
		shouldFix = analysis.ShouldFixItems()
		if len(mustFix) == 0 && len(shouldFix) == 0 {
			return &Outcome{Status: OutcomeComplete, Iterations: iteration, SessionID: sessionID}, nil
		}

		iteration++
		if iteration > in.MaxIterations {
			return &Outcome{Status: OutcomeIterationLimit, Iterations: iteration - 1, SessionID: sessionID}, nil
		}
		prompt = buildIterationPrompt(mustFix, shouldFix)
	}
}

func (e *Engine) runReview(ctx context.Context, in RunInput, sessionID string, iteration int) (*ReviewAnalysis, error) {
	analysis, err := e.reviewer.Review(ctx, in.WorktreePath, in.TicketMarkdown)
	if err != nil {
		return nil, fmt.Errorf("fix: review at iteration %d: %w", iteration, err)
	}
	e.trace(in.OnTrace, store.FixTraceEntry{
		Timestamp: time.Now().UTC(),
		Kind:      store.FixTraceKindReview,
		Iteration: iteration,
		SessionID: sessionID,
		Output:    reviewSummary(analysis),
	})
	return analysis, nil
}

func (e *Engine) verifyDismissal(ctx context.Context, in RunInput, sessionID string, iteration int, justification string, mustFix []ReviewItem) ([]ReviewItem, error) {
	kept, err := e.dismissal.Verify(ctx, in.WorktreePath, justification, mustFix)
	if err != nil {
		return nil, fmt.Errorf("fix: dismissal verification at iteration %d: %w", iteration, err)
	}
	e.trace(in.OnTrace, store.FixTraceEntry{
		Timestamp: time.Now().UTC(),
		Kind:      store.FixTraceKindDismissal,
		Iteration: iteration,
		SessionID: sessionID,
		Output:    fmt.Sprintf("%d of %d must_fix items still valid", len(kept), len(mustFix)),
	})
	return kept, nil
}

// callFix invokes the fix LLM, retrying up to maxCallRetries times with a
// 1s*attempt backoff on spawn/transport errors. A non-nil error from the
// driver is treated as retryable; a returned *RunResult with a non-zero exit
// code is a real outcome and is never retried.
func (e *Engine) callFix(ctx context.Context, workDir, prompt, sessionID string) (*llmagent.RunResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxCallRetries+1; attempt++ {
		result, err := e.driver.Run(ctx, llmagent.RunOpts{
			Prompt:       prompt,
			OutputFormat: llmagent.OutputFormatStreamJSON,
			WorkDir:      workDir,
			SessionID:    sessionID,
		})
		if err == nil {
			return result, nil
		}
		lastErr = err

		if e.logger != nil {
			e.logger.Warn("fix call transport error, retrying", "attempt", attempt, "error", err)
		}
		if attempt <= maxCallRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("fix: fix call failed after %d attempts: %w", maxCallRetries+1, lastErr)
}

func (e *Engine) renderPrompt(branchName, ticketMarkdown, previousReview string) (string, error) {
	var buf bytes.Buffer
	data := fixPromptData{BranchName: branchName, TicketMarkdown: ticketMarkdown, PreviousReview: previousReview}
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("fix: rendering fix prompt: %w", err)
	}
	return buf.String(), nil
}

func (e *Engine) trace(onTrace func(store.FixTraceEntry), entry store.FixTraceEntry) {
	if onTrace == nil {
		return
	}
	onTrace(entry)
}

// buildIterationPrompt enumerates must_fix items first, then should_fix, per
// spec's iteration-prompt ordering rule.
func buildIterationPrompt(mustFix, shouldFix []ReviewItem) string {
	var b strings.Builder
	b.WriteString("The previous attempt was reviewed and is not yet complete. Address the following, " +
		"then re-verify with `git diff --staged` and emit COMMIT_COMPLETE when done.\n\n")

	if len(mustFix) > 0 {
		b.WriteString("## Must fix\n\n")
		for _, item := range mustFix {
			writeReviewItem(&b, item)
		}
	}
	if len(shouldFix) > 0 {
		b.WriteString("\n## Should fix\n\n")
		for _, item := range shouldFix {
			writeReviewItem(&b, item)
		}
	}
	return b.String()
}

func writeReviewItem(b *strings.Builder, item ReviewItem) {
	if item.File != "" {
		fmt.Fprintf(b, "- %s (%s)\n", item.Description, item.File)
	} else {
		fmt.Fprintf(b, "- %s\n", item.Description)
	}
}

func reviewSummary(a *ReviewAnalysis) string {
	if a.IsClean {
		return "clean"
	}
	return fmt.Sprintf("%d must_fix, %d should_fix", len(a.MustFixItems()), len(a.ShouldFixItems()))
}
