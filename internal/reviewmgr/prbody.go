package reviewmgr

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

//go:embed prbody.tmpl
var prBodyTemplate string

// prBodyData is the data bag rendered into prbody.tmpl.
type prBodyData struct {
	Summary       string
	Commits       []git.LogEntry
	TicketID      string
	IssueMarkdown string
}

// BodyGenerator renders a PR body markdown string from a fix's summary,
// commit log, and original ticket content -- per spec's "summary + commit
// log + test-plan checklist + collapsible original-issue block" body
// format, grounded on review.PRBodyGenerator's template-execution shape
// (simplified: no AI summary agent, no phase/task vocabulary, since Rover's
// PR always covers exactly one issue).
type BodyGenerator struct {
	tmpl *template.Template
}

// NewBodyGenerator creates a BodyGenerator.
func NewBodyGenerator() *BodyGenerator {
	tmpl := template.Must(template.New("prbody").Delims("[[", "]]").Parse(prBodyTemplate))
	return &BodyGenerator{tmpl: tmpl}
}

// Generate renders the PR body for one issue fix.
func (g *BodyGenerator) Generate(ticketID, summary, issueMarkdown string, commits []git.LogEntry) (string, error) {
	var buf bytes.Buffer
	data := prBodyData{Summary: summary, Commits: commits, TicketID: ticketID, IssueMarkdown: issueMarkdown}
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("reviewmgr: rendering PR body: %w", err)
	}
	return buf.String(), nil
}

// Title builds the auto-generated PR title, per spec: "fix(ISSUE-NNN):
// <summary>".
func Title(ticketID, summary string) string {
	return fmt.Sprintf("fix(%s): %s", ticketID, summary)
}
