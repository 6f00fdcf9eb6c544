package cli

import (
	"errors"
	"regexp"
)

// errIssueNotFound is returned when a CLI argument names a ticket id that no
// open issue in the store currently carries.
var errIssueNotFound = errors.New("no open issue with that id")

var ticketIDRe = regexp.MustCompile(`(ISSUE-\d+)\.md$`)

// ticketIDFromPath extracts "ISSUE-NNN" from a ticket markdown path such as
// ".rover/tickets/high/ISSUE-007.md". Returns "" if path doesn't match.
func ticketIDFromPath(path string) string {
	m := ticketIDRe.FindStringSubmatch(path)
	if m == nil {
		return ""
	}
	return m[1]
}
