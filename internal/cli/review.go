package cli

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/reviewmgr"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

var (
	reviewDraft      bool
	reviewBaseBranch string
	reviewAll        bool
)

// reviewCmd groups the review-manager subcommands. It has no action of its
// own; "rover review" without a subcommand prints help.
var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspect and submit in-progress fixes for human review",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List fix worktrees awaiting review",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		records, err := d.newReviewManager().List()
		if err != nil {
			return fmt.Errorf("listing review records: %w", err)
		}
		printReviewList(cmd, records)
		return nil
	},
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit [<id>...]",
	Short: "Push a fix branch and open a pull request",
	Long: `Submit pushes the fix branch for one or more issues to origin and
opens a pull request via the gh CLI. Pass --all to submit every fix that is
ready_for_review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !reviewAll && len(args) == 0 {
			return fmt.Errorf("review submit: pass one or more issue ids, or --all")
		}

		d, err := newDeps("")
		if err != nil {
			return err
		}
		mgr := d.newReviewManager()

		ids := args
		if reviewAll {
			records, err := mgr.List()
			if err != nil {
				return fmt.Errorf("listing review records: %w", err)
			}
			ids = ids[:0]
			for _, rec := range records {
				if rec.Status == store.FixStatusReadyForReview {
					ids = append(ids, rec.IssueID)
				}
			}
		}

		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}

		ctx := context.Background()
		for _, id := range ids {
			iss, ticketMarkdown, err := findIssueByTicketID(doc.Issues, id)
			if err != nil {
				return err
			}
			rec, err := mgr.Submit(ctx, reviewmgr.SubmitInput{
				IssueID:        id,
				Summary:        iss.Title,
				TicketMarkdown: ticketMarkdown,
				BaseBranch:     reviewBaseBranch,
				Draft:          reviewDraft,
			})
			if err != nil {
				return fmt.Errorf("submitting %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", id, rec.PRUrl)
		}
		return nil
	},
}

var reviewCleanCmd = &cobra.Command{
	Use:   "clean [<id>...]",
	Short: "Remove a fix's worktree and branch once merged or abandoned",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !reviewAll && len(args) == 0 {
			return fmt.Errorf("review clean: pass one or more issue ids, or --all")
		}

		d, err := newDeps("")
		if err != nil {
			return err
		}
		mgr := d.newReviewManager()

		ids := args
		if reviewAll {
			records, err := mgr.List()
			if err != nil {
				return fmt.Errorf("listing review records: %w", err)
			}
			ids = ids[:0]
			for _, rec := range records {
				ids = append(ids, rec.IssueID)
			}
		}

		ctx := context.Background()
		for _, id := range ids {
			if err := mgr.Clean(ctx, id); err != nil {
				return fmt.Errorf("cleaning %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleaned %s\n", id)
		}
		return nil
	},
}

func init() {
	reviewSubmitCmd.Flags().BoolVar(&reviewDraft, "draft", false, "Open the pull request as a draft")
	reviewSubmitCmd.Flags().StringVar(&reviewBaseBranch, "base", "", "Base branch for the pull request (default repo default)")
	reviewSubmitCmd.Flags().BoolVar(&reviewAll, "all", false, "Submit every fix that is ready_for_review")
	reviewCleanCmd.Flags().BoolVar(&reviewAll, "all", false, "Clean every listed fix")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewSubmitCmd)
	reviewCmd.AddCommand(reviewCleanCmd)
	rootCmd.AddCommand(reviewCmd)
}

func printReviewList(cmd *cobra.Command, records []store.FixRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleHeader.Render("Review Queue"))
	fmt.Fprintln(out, styleSeparator.Render("============"))
	fmt.Fprintln(out)

	if len(records) == 0 {
		fmt.Fprintln(out, "Nothing awaiting review.")
		return
	}

	for _, rec := range records {
		fmt.Fprintf(out, "%-10s [%-16s] %s (%d iteration(s), started %s)\n",
			rec.IssueID, rec.Status, rec.BranchName, rec.Iterations, humanize.Time(rec.StartedAt))
		if rec.PRUrl != "" {
			fmt.Fprintf(out, "  %s\n", rec.PRUrl)
		}
	}
}
