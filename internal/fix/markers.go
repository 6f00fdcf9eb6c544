package fix

import "strings"

// Marker is a sentinel string the fix LLM emits in its streamed output to
// signal a structured outcome, rather than leaving the orchestrator to infer
// intent from free-form prose.
type Marker string

const (
	MarkerAlreadyFixed        Marker = "ALREADY_FIXED"
	MarkerReviewNotApplicable Marker = "REVIEW_NOT_APPLICABLE"
	MarkerCommitComplete      Marker = "COMMIT_COMPLETE"
	MarkerBlocked             Marker = "BLOCKED"
)

// markerPriority is the order DetectMarker checks candidates in, so that if
// an LLM response somehow emits more than one sentinel, the most consequential
// one wins.
var markerPriority = []Marker{MarkerBlocked, MarkerAlreadyFixed, MarkerReviewNotApplicable, MarkerCommitComplete}

// DetectMarker scans output for any known terminal marker, returning the
// first one found in markerPriority order.
func DetectMarker(output string) (Marker, bool) {
	for _, m := range markerPriority {
		if strings.Contains(output, string(m)) {
			return m, true
		}
	}
	return "", false
}
