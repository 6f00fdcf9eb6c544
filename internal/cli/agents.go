package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// agentsCmd implements "rover agents", listing the built-in scan policies
// and whether each is included in a `rover scan --all` run.
var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List available scan agents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, styleHeader.Render("Agents"))
		fmt.Fprintln(out, styleSeparator.Render("======"))
		fmt.Fprintln(out)

		for _, id := range d.catalogReg.List() {
			spec, err := d.catalogReg.Get(id)
			if err != nil {
				return err
			}
			status := "disabled"
			style := styleErrorLbl
			if spec.Enabled {
				status = "enabled"
				style = styleSuccess
			}
			fmt.Fprintf(out, "%-14s [%s] %s\n", spec.ID, style.Render(status), spec.Name)
			if spec.Description != "" {
				fmt.Fprintf(out, "  %s\n", spec.Description)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(agentsCmd)
}
