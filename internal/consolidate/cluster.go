// Package consolidate groups related approved issues into clusters via
// deterministic, LLM-free passes, then merges each cluster into a single
// replacement ticket via one LLM call per cluster. Grounded on
// internal/review/consolidate.go's small, pure-function shape
// (EscalateSeverity, mergeDescriptions) generalized from cross-agent
// finding dedup to cross-issue clustering.
package consolidate

import (
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// minClusterSize is the smallest accepted cluster; per spec.md's boundary
// behavior a size-1 "cluster" is never produced.
const minClusterSize = 2

// jaccardThreshold is the minimum title-keyword Jaccard similarity at which
// two issues are linked during the third clustering pass.
const jaccardThreshold = 0.40

// minTokenLength excludes short, low-signal tokens (e.g. "is", "to") from
// the keyword sets used for Jaccard similarity -- tokens of length > 2 are
// kept, per spec.
const minTokenLength = 2

// stopWords are removed from title keyword sets before similarity is
// computed.
var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true,
	"this": true, "from": true, "into": true, "not": true, "are": true,
	"when": true, "does": true, "can": true, "but": true, "has": true,
	"have": true, "its": true, "use": true, "used": true, "using": true,
}

// Cluster groups 2 or more approved issues that appear to describe the same
// underlying problem. Open (non wont_fix) issues are clustered through
// three passes, each operating only on issues left unclustered by the
// previous pass:
//
//  1. exact (filePath, category) match
//  2. exact filePath match
//  3. title-keyword Jaccard similarity >= jaccardThreshold, linked greedily
func Cluster(issues []store.ApprovedIssue) []store.IssueCluster {
	open := openIssues(issues)
	if len(open) < minClusterSize {
		return nil
	}

	remaining := make(map[string]store.ApprovedIssue, len(open))
	for _, iss := range open {
		remaining[iss.ID] = iss
	}

	var clusters []store.IssueCluster

	pass1, consumed := groupByKey(remaining, func(iss store.ApprovedIssue) string {
		return iss.FilePath + "\x00" + iss.Category
	})
	clusters = append(clusters, toClusters(pass1, "same file and category")...)
	removeConsumed(remaining, consumed)

	pass2, consumed2 := groupByKey(remaining, func(iss store.ApprovedIssue) string {
		return iss.FilePath
	})
	clusters = append(clusters, toClusters(pass2, "same file")...)
	removeConsumed(remaining, consumed2)

	clusters = append(clusters, jaccardCluster(remaining)...)

	return clusters
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

// groupByKey buckets remaining issues by keyFn, in deterministic (sorted
// key) order, returning only buckets that meet minClusterSize and the set
// of issue ids consumed by those accepted buckets.
func groupByKey(remaining map[string]store.ApprovedIssue, keyFn func(store.ApprovedIssue) string) (map[string][]store.ApprovedIssue, map[string]bool) {
	buckets := make(map[string][]store.ApprovedIssue)
	for _, iss := range remaining {
		key := keyFn(iss)
		buckets[key] = append(buckets[key], iss)
	}

	accepted := make(map[string][]store.ApprovedIssue)
	consumed := make(map[string]bool)
	for key, group := range buckets {
		if len(group) < minClusterSize {
			continue
		}
		sortIssuesByID(group)
		accepted[key] = group
		for _, iss := range group {
			consumed[iss.ID] = true
		}
	}
	return accepted, consumed
}

func removeConsumed(remaining map[string]store.ApprovedIssue, consumed map[string]bool) {
	for id := range consumed {
		delete(remaining, id)
	}
}

func toClusters(buckets map[string][]store.ApprovedIssue, reason string) []store.IssueCluster {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clusters := make([]store.IssueCluster, 0, len(buckets))
	for _, k := range keys {
		clusters = append(clusters, store.IssueCluster{
			ID:     clusterID(buckets[k]),
			Reason: reason,
			Issues: buckets[k],
		})
	}
	return clusters
}

// jaccardCluster links remaining issues greedily: issues are visited in id
// order; an issue joins the first existing group whose similarity to it
// meets jaccardThreshold against any member, or starts a new singleton
// group that is only retained if it later grows to minClusterSize.
func jaccardCluster(remaining map[string]store.ApprovedIssue) []store.IssueCluster {
	if len(remaining) < minClusterSize {
		return nil
	}

	ids := make([]string, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tokenSets := make(map[string]map[string]bool, len(ids))
	for _, id := range ids {
		tokenSets[id] = titleTokens(remaining[id].Title)
	}

	var groups [][]string
	assigned := make(map[string]int) // id -> group index

	for _, id := range ids {
		placed := false
		for gi, group := range groups {
			for _, memberID := range group {
				if jaccard(tokenSets[id], tokenSets[memberID]) >= jaccardThreshold {
					groups[gi] = append(groups[gi], id)
					assigned[id] = gi
					placed = true
					break
				}
			}
			if placed {
				break
			}
		}
		if !placed {
			groups = append(groups, []string{id})
			assigned[id] = len(groups) - 1
		}
	}

	var clusters []store.IssueCluster
	for _, group := range groups {
		if len(group) < minClusterSize {
			continue
		}
		members := make([]store.ApprovedIssue, 0, len(group))
		for _, id := range group {
			members = append(members, remaining[id])
		}
		sortIssuesByID(members)
		clusters = append(clusters, store.IssueCluster{
			ID:     clusterID(members),
			Reason: "similar title",
			Issues: members,
		})
	}
	return clusters
}

func sortIssuesByID(issues []store.ApprovedIssue) {
	sort.Slice(issues, func(i, j int) bool { return issues[i].ID < issues[j].ID })
}

// clusterID derives a stable fingerprint from the member issue ids so
// repeated clustering runs over an unchanged store produce the same id
// without an allocation-heavy string-join per call.
func clusterID(issues []store.ApprovedIssue) string {
	h := xxhash.New()
	for _, iss := range issues {
		h.WriteString(iss.ID) //nolint:errcheck
		h.WriteString("\x00") //nolint:errcheck
	}
	return "cluster-" + formatHash(h.Sum64())
}

func formatHash(v uint64) string {
	const hexDigits = "0123456789abcdef"
	buf := make([]byte, 16)
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[v&0xf]
		v >>= 4
	}
	return string(buf)
}

func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if len(tok) > minTokenLength && !stopWords[tok] {
			tokens[tok] = true
		}
	}
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
