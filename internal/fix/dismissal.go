package fix

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/AbdelazizMoustafa10m/Raven/internal/jsonutil"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
)

// dismissalPoolLimit bounds the concurrent skeptical-review calls, mirroring
// the voter pool's per-candidate concurrency cap.
const dismissalPoolLimit = 3

type dismissalVerdict struct {
	StillValid bool `json:"stillValid"`
}

// DismissalChecker runs a skeptical secondary review whenever the fix LLM
// claims REVIEW_NOT_APPLICABLE: each previously flagged must_fix item is
// re-examined, independently, against the LLM's justification for dismissing
// it. Per spec's Open Question resolution this checker covers must_fix items
// only -- should_fix items are dropped along with any other dismissal without
// a skeptical re-check.
type DismissalChecker struct {
	driver llmagent.Agent
}

// NewDismissalChecker creates a DismissalChecker bound to the given driver.
func NewDismissalChecker(driver llmagent.Agent) *DismissalChecker {
	return &DismissalChecker{driver: driver}
}

// Verify re-examines each must_fix item in items against justification and
// returns the subset the skeptical pass still considers valid -- these are
// re-added to the actionable list per spec's dismissal-verification rule.
func (d *DismissalChecker) Verify(ctx context.Context, workDir, justification string, items []ReviewItem) ([]ReviewItem, error) {
	if len(items) == 0 {
		return nil, nil
	}

	stillValid := make([]bool, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dismissalPoolLimit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			valid, err := d.checkOne(gctx, workDir, justification, item)
			if err != nil {
				return err
			}
			stillValid[i] = valid
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var kept []ReviewItem
	for i, item := range items {
		if stillValid[i] {
			kept = append(kept, item)
		}
	}
	return kept, nil
}

func (d *DismissalChecker) checkOne(ctx context.Context, workDir, justification string, item ReviewItem) (bool, error) {
	prompt := fmt.Sprintf(
		"A prior review flagged the following as a must-fix issue:\n\n%s (file: %s)\n\n"+
			"The implementing agent claims this is no longer applicable, with this justification:\n\n%s\n\n"+
			"Skeptically re-examine the current code. Respond with a single JSON object "+
			"{\"stillValid\": bool} -- true if the issue genuinely remains unaddressed, false if the "+
			"dismissal is justified.",
		item.Description, item.File, justification,
	)

	result, err := d.driver.Run(ctx, llmagent.RunOpts{
		Prompt:       prompt,
		AllowedTools: reviewReadOnlyTools,
		OutputFormat: llmagent.OutputFormatJSON,
		WorkDir:      workDir,
	})
	if err != nil {
		return false, fmt.Errorf("fix: dismissal check for %q: %w", item.Description, err)
	}
	if result.ExitCode != 0 {
		return false, fmt.Errorf("fix: dismissal check for %q exited with code %d", item.Description, result.ExitCode)
	}

	var verdict dismissalVerdict
	if err := jsonutil.ExtractInto(result.Stdout, &verdict); err != nil {
		return false, fmt.Errorf("fix: dismissal check output did not contain parseable JSON: %w", err)
	}
	return verdict.StillValid, nil
}
