// Package reviewmgr implements the Review Manager: list/submit/clean
// operations over completed FixRecords, and PR creation via the gh CLI.
// Grounded on internal/review/pr.go's PRCreator (gh pr create wrapper,
// temp-file body, dry-run support), simplified to Rover's single-branch,
// single-issue PR shape -- no labels/assignees/phase vocabulary, since
// SPEC_FULL.md's submit operation names none of those.
package reviewmgr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// prNumberRe extracts a PR number from a GitHub PR URL, e.g.
// "https://github.com/owner/repo/pull/42".
var prNumberRe = regexp.MustCompile(`/pull/(\d+)`)

// PRCreateOpts configures one gh pr create invocation.
type PRCreateOpts struct {
	Title      string
	Body       string
	BaseBranch string
	// Head is the fix branch the PR is created from. It is passed explicitly
	// via --head rather than relying on gh to infer it from whatever branch
	// happens to be checked out in the working directory.
	Head  string
	Draft bool
}

// PRCreateResult is the outcome of a PR creation attempt.
type PRCreateResult struct {
	URL     string
	Number  int
	Created bool
}

// GHClient wraps `gh pr create` subprocess execution.
type GHClient struct {
	workDir string
	logger  *log.Logger
}

// NewGHClient creates a GHClient rooted at workDir. logger may be nil.
func NewGHClient(workDir string, logger *log.Logger) *GHClient {
	return &GHClient{workDir: workDir, logger: logger}
}

// Create runs `gh pr create` with a temp-file body (avoids shell-escaping
// arbitrary markdown) and parses the PR URL/number from stdout. A PR that
// already exists for this branch is surfaced as ErrPRAlreadyExists so callers
// can treat it as a non-fatal, already-done outcome.
func (c *GHClient) Create(ctx context.Context, opts PRCreateOpts) (*PRCreateResult, error) {
	base := opts.BaseBranch
	if base == "" {
		base = "main"
	}

	bodyFile, err := os.CreateTemp("", "rover-pr-body-*.md")
	if err != nil {
		return nil, fmt.Errorf("reviewmgr: creating PR body temp file: %w", err)
	}
	defer os.Remove(bodyFile.Name())

	if _, err := bodyFile.WriteString(opts.Body); err != nil {
		bodyFile.Close()
		return nil, fmt.Errorf("reviewmgr: writing PR body temp file: %w", err)
	}
	if err := bodyFile.Close(); err != nil {
		return nil, fmt.Errorf("reviewmgr: closing PR body temp file: %w", err)
	}

	args := []string{"pr", "create", "--title", opts.Title, "--body-file", bodyFile.Name(), "--base", base}
	if opts.Head != "" {
		args = append(args, "--head", opts.Head)
	}
	if opts.Draft {
		args = append(args, "--draft")
	}

	exitCode, stdout, stderr, err := c.run(ctx, "gh", args...)
	if err != nil {
		combined := strings.ToLower(stdout + stderr)
		if strings.Contains(combined, "already exists") || strings.Contains(combined, "pull request already") {
			return nil, fmt.Errorf("reviewmgr: %w: %s", ErrPRAlreadyExists, strings.TrimSpace(stderr))
		}
		return nil, fmt.Errorf("reviewmgr: gh pr create exited %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	url := lastNonEmptyLine(stdout)
	number := extractPRNumber(url)

	if c.logger != nil {
		c.logger.Info("reviewmgr: pull request created", "url", url, "number", number)
	}

	return &PRCreateResult{URL: url, Number: number, Created: true}, nil
}

func (c *GHClient) run(ctx context.Context, bin string, args ...string) (int, string, string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	if c.workDir != "" {
		cmd.Dir = c.workDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr == nil {
		return 0, stdout.String(), stderr.String(), nil
	}
	if exitErr, ok := runErr.(*exec.ExitError); ok {
		return exitErr.ExitCode(), stdout.String(), stderr.String(), runErr
	}
	return -1, "", "", runErr
}

func lastNonEmptyLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

func extractPRNumber(url string) int {
	m := prNumberRe.FindStringSubmatch(url)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
