package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/fix"
	"github.com/AbdelazizMoustafa10m/Raven/internal/logging"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

var (
	fixConcurrency   int
	fixMaxIterations int
)

// fixCmd implements "rover fix". It drives the fix/review/iterate loop for
// one or more issue ids, each in its own git worktree.
var fixCmd = &cobra.Command{
	Use:   "fix <id>...",
	Short: "Drive the fix/review loop for one or more issues",
	Long: `Fix provisions an isolated git worktree per issue and drives the
fix/review/iterate loop until the agent converges or the iteration bound is
reached.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}

		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}
		inputs := make([]fix.IssueInput, 0, len(args))
		for _, id := range args {
			iss, ticketMarkdown, err := findIssueByTicketID(doc.Issues, id)
			if err != nil {
				return err
			}
			inputs = append(inputs, fix.IssueInput{
				IssueID:        id,
				TicketMarkdown: ticketMarkdown,
				IssueSummary:   iss.Title,
			})
		}

		concurrency := fixConcurrency
		if concurrency <= 0 {
			concurrency = d.cfg.Fix.Concurrency
		}
		maxIterations := fixMaxIterations
		if maxIterations <= 0 {
			maxIterations = d.cfg.Fix.MaxIterations
		}

		logger := logging.New("fix")
		reviewer := fix.NewReviewer(d.driver)
		dismissal := fix.NewDismissalChecker(d.driver)
		engine := fix.NewEngine(d.driver, reviewer, dismissal, logger)
		branches := fix.NewBranchAllocator(d.gitClient)
		worktrees := fix.NewProvisioner(d.gitClient, logger)
		orchestrator := fix.NewOrchestrator(branches, worktrees, engine, d.fixes, d.traces, d.issues, d.gitClient, logger)

		results, err := orchestrator.RunFix(context.Background(), d.targetPath, inputs, concurrency, maxIterations)
		if err != nil {
			return fmt.Errorf("running fix: %w", err)
		}

		printFixResults(cmd, results)
		return nil
	},
}

func init() {
	fixCmd.Flags().IntVar(&fixConcurrency, "concurrency", 0, "Override fix concurrency (default from config)")
	fixCmd.Flags().IntVar(&fixMaxIterations, "max-iterations", 0, "Override max fix iterations (default from config)")
	rootCmd.AddCommand(fixCmd)
}

// findIssueByTicketID locates the approved issue whose ticket id matches id
// and returns it along with its ticket markdown read from disk.
func findIssueByTicketID(issues []store.ApprovedIssue, id string) (store.ApprovedIssue, string, error) {
	for _, iss := range issues {
		if ticketIDFromPath(iss.TicketPath) == id {
			data, err := os.ReadFile(iss.TicketPath)
			if err != nil {
				return store.ApprovedIssue{}, "", fmt.Errorf("reading ticket %s: %w", id, err)
			}
			return iss, string(data), nil
		}
	}
	return store.ApprovedIssue{}, "", fmt.Errorf("issue %s: %w", id, errIssueNotFound)
}

func printFixResults(cmd *cobra.Command, results []fix.FixResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleHeader.Render("Fix Results"))
	fmt.Fprintln(out, styleSeparator.Render("==========="))
	fmt.Fprintln(out)

	for _, r := range results {
		style := styleSuccess
		if r.Error != "" {
			style = styleErrorLbl
		}
		fmt.Fprintf(out, "%s %s (%d iteration(s))\n", style.Render(r.IssueID), r.Status, r.Iterations)
		if r.Error != "" {
			fmt.Fprintf(out, "  error: %s\n", r.Error)
		}
	}
}
