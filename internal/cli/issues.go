package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

var (
	issuesSeverity string
	issuesAll      bool
)

// issuesCmd implements "rover issues". Bare invocation lists open issues;
// subcommands operate on a single or several ticket ids.
var issuesCmd = &cobra.Command{
	Use:   "issues",
	Short: "List and manage approved issues",
	Long:  "List open issues, or view/copy/remove/ignore a specific ticket.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}
		printIssueList(cmd, filterIssues(doc.Issues, issuesSeverity, issuesAll))
		return nil
	},
}

var issuesViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print a single ticket's full markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}
		_, markdown, err := findIssueByTicketID(doc.Issues, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), markdown)
		return nil
	},
}

// issuesCopyCmd prints a ticket's raw markdown with no decoration, so it can
// be piped into an external clipboard tool (pbcopy, xclip, wl-copy, ...).
// The clipboard itself is an external collaborator, out of scope here.
var issuesCopyCmd = &cobra.Command{
	Use:   "copy <id>",
	Short: "Print a ticket's raw markdown for piping to a clipboard tool",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}
		_, markdown, err := findIssueByTicketID(doc.Issues, args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), markdown)
		return nil
	},
}

var issuesRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Delete one or more tickets and their store entries",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		for _, id := range args {
			if err := removeIssueByTicketID(d, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
		}
		return nil
	},
}

var issuesIgnoreCmd = &cobra.Command{
	Use:   "ignore <id>...",
	Short: "Mark one or more issues as wont-fix",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}
		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}
		for _, id := range args {
			iss, _, err := findIssueByTicketID(doc.Issues, id)
			if err != nil {
				return err
			}
			if err := d.issues.SetStatus(iss.ID, store.IssueStatusWontFix); err != nil {
				return fmt.Errorf("ignoring %s: %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ignored %s\n", id)
		}
		return nil
	},
}

func init() {
	issuesCmd.Flags().StringVar(&issuesSeverity, "severity", "", "Filter by severity (low|medium|high|critical)")
	issuesCmd.Flags().BoolVar(&issuesAll, "all", false, "Include wont-fix issues")
	issuesCmd.AddCommand(issuesViewCmd)
	issuesCmd.AddCommand(issuesCopyCmd)
	issuesCmd.AddCommand(issuesRemoveCmd)
	issuesCmd.AddCommand(issuesIgnoreCmd)
	rootCmd.AddCommand(issuesCmd)
}

// filterIssues applies the --severity and --all flags to the issue list,
// excluding wont-fix issues unless all is set.
func filterIssues(issues []store.ApprovedIssue, severity string, all bool) []store.ApprovedIssue {
	out := make([]store.ApprovedIssue, 0, len(issues))
	for _, iss := range issues {
		if !all && iss.Status == store.IssueStatusWontFix {
			continue
		}
		if severity != "" && string(iss.Severity) != severity {
			continue
		}
		out = append(out, iss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TicketPath < out[j].TicketPath })
	return out
}

// removeIssueByTicketID deletes the ticket file and issue-store entry for
// the issue whose ticket id matches id.
func removeIssueByTicketID(d *deps, id string) error {
	doc, err := d.issues.Load()
	if err != nil {
		return fmt.Errorf("loading issues: %w", err)
	}
	iss, _, err := findIssueByTicketID(doc.Issues, id)
	if err != nil {
		return err
	}
	if err := os.Remove(iss.TicketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing ticket file for %s: %w", id, err)
	}
	if err := d.issues.RemoveIssue(iss.ID); err != nil {
		return fmt.Errorf("removing %s from issue store: %w", id, err)
	}
	return nil
}

func printIssueList(cmd *cobra.Command, issues []store.ApprovedIssue) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleHeader.Render("Open Issues"))
	fmt.Fprintln(out, styleSeparator.Render("==========="))
	fmt.Fprintln(out)

	if len(issues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return
	}

	for _, iss := range issues {
		id := ticketIDFromPath(iss.TicketPath)
		fmt.Fprintf(out, "%-10s [%-8s] %s (approved %s)\n", id, iss.Severity, iss.Title, humanize.Time(iss.ApprovedAt))
	}
}
