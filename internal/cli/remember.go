package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// rememberCmd implements "rover remember". It appends a dated note to
// .rover/memory.md, which the Scan Pipeline folds into every agent's prompt
// so project-specific context persists across scans.
var rememberCmd = &cobra.Command{
	Use:   "remember <note>",
	Short: "Append a note to project memory",
	Long: `Remember appends a timestamped note to .rover/memory.md. Every scan
agent receives the contents of this file as part of its prompt, so notes
here steer future runs (known false positives, project conventions,
context a reviewer would otherwise have to rediscover).`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps("")
		if err != nil {
			return err
		}

		note := strings.Join(args, " ")
		path := filepath.Join(d.stateDir, "memory.md")

		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening memory file: %w", err)
		}
		defer f.Close()

		if _, err := fmt.Fprintf(f, "- [%s] %s\n", time.Now().UTC().Format("2006-01-02"), note); err != nil {
			return fmt.Errorf("writing memory note: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "remembered: %s\n", note)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rememberCmd)
}
