package scan

import (
	"context"
	"fmt"
	"strings"

	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// noExistingIssues is the literal dedup summary for an empty store, per
// spec's boundary behavior.
const noExistingIssues = "No existing issues detected yet."

// dedupSummaryMaxTurns bounds the optional LLM summarization call.
const dedupSummaryMaxTurns = 10

// BuildDedupSummary produces the "DO NOT report issues matching any above"
// preamble placed ahead of the Scanner's agent prompt. When the store holds
// at most k issues the summary is a direct one-line-per-issue listing;
// otherwise an LLM summarization call is attempted for a condensed,
// file-grouped fingerprint list, falling back to the truncated direct format
// on any error -- the same "degrade, don't fail" discipline the fix
// orchestrator's worktree env-file copy uses.
func BuildDedupSummary(ctx context.Context, ag llmagent.Agent, issues []store.ApprovedIssue, k int) string {
	open := openIssues(issues)
	if len(open) == 0 {
		return noExistingIssues
	}

	if len(open) <= k {
		return directSummary(open)
	}

	if ag == nil {
		return truncatedSummary(open, k)
	}

	summary, err := summarizeViaLLM(ctx, ag, open)
	if err != nil || strings.TrimSpace(summary) == "" {
		return truncatedSummary(open, k)
	}
	return summary
}

func openIssues(issues []store.ApprovedIssue) []store.ApprovedIssue {
	out := make([]store.ApprovedIssue, 0, len(issues))
	for _, iss := range issues {
		if iss.Status == store.IssueStatusWontFix {
			continue
		}
		out = append(out, iss)
	}
	return out
}

// directSummary formats every issue as a one-liner: `- [category] "title" in
// path:lines`.
func directSummary(issues []store.ApprovedIssue) string {
	var b strings.Builder
	for _, iss := range issues {
		b.WriteString(formatLine(iss))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncatedSummary is directSummary capped to the first k entries, with a
// trailing count of the remainder -- used as the fallback when LLM
// summarization is unavailable or fails.
func truncatedSummary(issues []store.ApprovedIssue, k int) string {
	if k <= 0 || k >= len(issues) {
		return directSummary(issues)
	}
	var b strings.Builder
	for _, iss := range issues[:k] {
		b.WriteString(formatLine(iss))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "... and %d more known issue(s)", len(issues)-k)
	return b.String()
}

func formatLine(iss store.ApprovedIssue) string {
	loc := iss.FilePath
	if iss.LineRange != nil {
		loc = fmt.Sprintf("%s:%d-%d", iss.FilePath, iss.LineRange.Start, iss.LineRange.End)
	}
	return fmt.Sprintf("- [%s] %q in %s", iss.Category, iss.Title, loc)
}

// summarizeViaLLM asks the LLM driver for a condensed, file-grouped
// fingerprint list of the known issues.
func summarizeViaLLM(ctx context.Context, ag llmagent.Agent, issues []store.ApprovedIssue) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize the following known issues into a condensed fingerprint list grouped by file. " +
		"Respond with plain text only, no JSON, no preamble.\n\n")
	for _, iss := range issues {
		b.WriteString(formatLine(iss))
		b.WriteString("\n")
	}

	result, err := ag.Run(ctx, llmagent.RunOpts{
		Prompt:   b.String(),
		MaxTurns: dedupSummaryMaxTurns,
	})
	if err != nil {
		return "", fmt.Errorf("scan: dedup: summarizing known issues: %w", err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("scan: dedup: summarizer exited %d", result.ExitCode)
	}
	return strings.TrimSpace(result.Stdout), nil
}
