package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/Raven/internal/batch"
	"github.com/AbdelazizMoustafa10m/Raven/internal/logging"
	"github.com/AbdelazizMoustafa10m/Raven/internal/scan"
)

var (
	scanAll         bool
	scanAgent       string
	scanConcurrency int
)

// scanCmd implements "rover scan". It drives the Batch Runner across every
// enabled (or explicitly named) catalog agent against a target path.
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository with the review agent panel",
	Long: `Scan runs the built-in review agents against a target repository,
consolidating their findings into verified issue tickets under .rover/.`,
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

		agentIDs, err := selectedAgentIDs(d, scanAgent, scanAll)
		if err != nil {
			return err
		}
		if len(agentIDs) == 0 {
			return fmt.Errorf("no agents selected: pass --agent <id> or --all")
		}

		concurrency := scanConcurrency
		if concurrency <= 0 {
			concurrency = d.cfg.Batch.Concurrency
		}

		logger := logging.New("scan")
		pipeline := scan.NewPipeline(scan.Deps{
			Catalog:   d.catalogReg,
			Driver:    d.driver,
			Issues:    d.issues,
			Tickets:   d.tickets,
			Voters:    d.cfg.Scan.Voters,
			Threshold: d.cfg.Scan.ApprovalThreshold,
			DedupK:    d.cfg.Scan.DedupThresholdK,
			Logger:    logger,
		})

		runner := batch.NewRunner(pipeline, d.batch, logger)

		if flagDryRun {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, styleHeader.Render("Scan (dry run)"))
			for _, id := range agentIDs {
				fmt.Fprintf(out, "  would scan with agent %q\n", id)
			}
			fmt.Fprintf(out, "concurrency: %d\n", concurrency)
			return nil
		}

		results, err := runner.RunAll(context.Background(), d.targetPath, agentIDs, concurrency)
		if err != nil {
			return fmt.Errorf("running scan: %w", err)
		}

		printScanResults(cmd, results)
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanAll, "all", false, "Scan with every enabled agent")
	scanCmd.Flags().StringVar(&scanAgent, "agent", "", "Scan with a single agent id")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "Override batch concurrency (default from config)")
	rootCmd.AddCommand(scanCmd)
}

// selectedAgentIDs resolves the --agent/--all flags against the catalog.
func selectedAgentIDs(d *deps, agent string, all bool) ([]string, error) {
	if agent != "" {
		if !d.catalogReg.Has(agent) {
			return nil, fmt.Errorf("unknown agent id %q", agent)
		}
		return []string{agent}, nil
	}
	if all {
		return d.catalogReg.Enabled(), nil
	}
	return nil, nil
}

func printScanResults(cmd *cobra.Command, results []batch.AgentResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, styleHeader.Render("Scan Results"))
	fmt.Fprintln(out, styleSeparator.Render("============"))
	fmt.Fprintln(out)

	var totalApproved, totalRejected int
	var totalCost float64

	for _, r := range results {
		status := string(r.Status)
		style := styleSuccess
		if r.Err != nil {
			style = styleErrorLbl
		}
		fmt.Fprintf(out, "%s %s\n", style.Render(r.AgentID), status)
		if r.Err != nil {
			fmt.Fprintf(out, "  error: %s\n", r.Err)
			continue
		}
		if r.Skipped {
			fmt.Fprintln(out, "  skipped")
			continue
		}
		if r.Result != nil {
			elapsed := (time.Duration(r.Result.DurationMS) * time.Millisecond).Round(time.Second)
			fmt.Fprintf(out, "  %d approved, %d rejected, %d ticket(s), $%.4f, %s\n",
				r.Result.ApprovedCount, r.Result.RejectedCount, len(r.Result.TicketPaths), r.Result.CostUSD, elapsed)
			totalApproved += r.Result.ApprovedCount
			totalRejected += r.Result.RejectedCount
			totalCost += r.Result.CostUSD
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "%d approved, %d rejected across %d agent(s), $%.4f total\n",
		totalApproved, totalRejected, len(results), totalCost)
}
