package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/consolidate"
	"github.com/AbdelazizMoustafa10m/Raven/internal/logging"
)

var consolidateConcurrency int

// consolidateCmd implements "rover consolidate". It clusters near-duplicate
// open issues and merges each cluster into a single ticket via the LLM.
var consolidateCmd = &cobra.Command{
	Use:   "consolidate [path]",
	Short: "Merge near-duplicate issues into single tickets",
	Long: `Consolidate clusters open issues by file overlap and title
similarity, then asks the LLM to merge each cluster into one ticket,
replacing the originals.`,
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

		concurrency := consolidateConcurrency
		if concurrency <= 0 {
			concurrency = d.cfg.Batch.Concurrency
		}

		if flagDryRun {
			doc, err := d.issues.Load()
			if err != nil {
				return fmt.Errorf("loading issues: %w", err)
			}
			clusters := consolidate.Cluster(doc.Issues)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styleHeader.Render("Consolidate (dry run)"))
			for _, cl := range clusters {
				fmt.Fprintf(out, "  cluster %s (%s): %d issue(s)\n", cl.ID, cl.Reason, len(cl.Issues))
			}
			return nil
		}

		logger := logging.New("consolidate")
		c := consolidate.NewConsolidator(d.driver, d.tickets, d.issues, concurrency, logger)

		stats, err := c.Consolidate(context.Background(), d.targetPath)
		if err != nil {
			return fmt.Errorf("consolidating: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styleHeader.Render("Consolidate Results"))
		fmt.Fprintf(out, "clusters found: %d\n", stats.ClustersFound)
		fmt.Fprintf(out, "clusters merged: %d\n", stats.ClustersMerged)
		fmt.Fprintf(out, "clusters failed: %d\n", stats.ClustersFailed)
		fmt.Fprintf(out, "originals removed: %d\n", stats.OriginalsRemoved)
		return nil
	},
}

func init() {
	consolidateCmd.Flags().IntVar(&consolidateConcurrency, "concurrency", 0, "Override cluster-merge concurrency (default from config)")
	rootCmd.AddCommand(consolidateCmd)
}
