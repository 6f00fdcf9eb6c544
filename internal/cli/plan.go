package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/plan"
)

// planCmd implements "rover plan". It turns the current set of open
// approved issues into a dependency-ordered execution plan.
var planCmd = &cobra.Command{
	Use:   "plan [path]",
	Short: "Generate an execution plan for open issues",
	Long: `Plan reads the currently open approved issues and asks the LLM to
produce a dependency graph, parallel work groups, and an execution order,
saved as markdown under .rover/plans/.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var posArg string
		if len(args) == 1 {
			posArg = args[0]
		}

		d, err := newDeps(posArg)
		if err != nil {
			return err
		}

		doc, err := d.issues.Load()
		if err != nil {
			return fmt.Errorf("loading issues: %w", err)
		}

		planner := plan.NewPlanner(d.driver)
		p, err := planner.Plan(context.Background(), d.targetPath, doc.Issues)
		if err != nil {
			return fmt.Errorf("planning: %w", err)
		}

		timestamp := time.Now().UTC().Format("20060102-150405")
		path, err := plan.Save(d.targetPath, timestamp, p)
		if err != nil {
			return fmt.Errorf("saving plan: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styleHeader.Render("Execution Plan"))
		fmt.Fprintln(out, plan.Render(p))
		fmt.Fprintf(out, "saved to %s\n", path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
