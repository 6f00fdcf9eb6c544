package fix

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
)

const reviewReadOnlyTools = "Glob,Grep,Read"

// reviewAspect is one independent lens the multi-aspect reviewer applies.
type reviewAspect struct {
	name   string
	prompt string
}

// reviewAnalysisResponse is the raw shape the parse call is asked to produce.
type reviewAnalysisResponse struct {
	IsClean bool         `json:"isClean"`
	Items   []ReviewItem `json:"items"`
}

// Reviewer runs the fix orchestrator's multi-aspect review: independent
// architecture, bug, and (when issue content is available) completeness
// passes, then a dedicated parse call that turns the combined prose into a
// structured ReviewAnalysis.
type Reviewer struct {
	driver llmagent.Agent
}

// NewReviewer creates a Reviewer bound to the given LLM driver.
func NewReviewer(driver llmagent.Agent) *Reviewer {
	return &Reviewer{driver: driver}
}

// Review runs every applicable aspect concurrently against workDir (expected
// to be the fix's worktree) and parses the combined output into a
// ReviewAnalysis. ticketMarkdown drives the completeness aspect; an empty
// value skips it, per spec's "only when issue text is provided" rule. A
// failure in any aspect call aborts the whole review as an error, matching
// spec's "a failure in any makes the fix error."
func (r *Reviewer) Review(ctx context.Context, workDir, ticketMarkdown string) (*ReviewAnalysis, error) {
	aspects := []reviewAspect{
		{name: "architecture", prompt: architecturePrompt()},
		{name: "bugs", prompt: bugPrompt()},
	}
	if ticketMarkdown != "" {
		aspects = append(aspects, reviewAspect{name: "completeness", prompt: completenessPrompt(ticketMarkdown)})
	}

	outputs := make([]string, len(aspects))
	g, gctx := errgroup.WithContext(ctx)
	for i, aspect := range aspects {
		i, aspect := i, aspect
		g.Go(func() error {
			result, err := r.driver.Run(gctx, llmagent.RunOpts{
				Prompt:       aspect.prompt,
				AllowedTools: reviewReadOnlyTools,
				WorkDir:      workDir,
			})
			if err != nil {
				return fmt.Errorf("fix: %s review: %w", aspect.name, err)
			}
			if result.ExitCode != 0 {
				return fmt.Errorf("fix: %s review exited with code %d", aspect.name, result.ExitCode)
			}
			outputs[i] = fmt.Sprintf("### %s review\n\n%s", aspect.name, result.Stdout)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return r.parse(ctx, workDir, strings.Join(outputs, "\n\n"))
}

func (r *Reviewer) parse(ctx context.Context, workDir, combined string) (*ReviewAnalysis, error) {
	prompt := "Parse the following combined code review output into a single JSON object " +
		"{\"isClean\": bool, \"items\": [{\"severity\": \"must_fix|should_fix|suggestion\", " +
		"\"description\": \"...\", \"file\": \"...\"}]}. isClean is true only when there are no " +
		"must_fix or should_fix items.\n\n" + combined

	result, err := r.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      workDir,
	})
	if err != nil {
		return nil, fmt.Errorf("fix: parsing review output: %w", err)
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("fix: review parse call exited with code %d", result.ExitCode)
	}

	var resp reviewAnalysisResponse
	if err := jsonutil.ExtractInto(result.Stdout, &resp); err != nil {
		return nil, fmt.Errorf("fix: review parse output did not contain parseable JSON: %w", err)
	}

	return &ReviewAnalysis{IsClean: resp.IsClean, Items: resp.Items}, nil
}

func architecturePrompt() string {
	return "Review the uncommitted and recently committed changes in this worktree for structural " +
		"and architectural concerns: layering violations, misplaced responsibilities, inconsistent " +
		"patterns relative to the rest of the codebase. Be specific about file and reasoning."
}

func bugPrompt() string {
	return "Review the uncommitted and recently committed changes in this worktree for " +
		"implementation and runtime errors: logic bugs, unhandled edge cases, incorrect error " +
		"handling, concurrency hazards. Be specific about file and reasoning."
}

func completenessPrompt(ticketMarkdown string) string {
	return "Verify every requirement in the following issue ticket has been addressed by the " +
		"changes in this worktree. Call out anything left undone.\n\n" + ticketMarkdown
}
