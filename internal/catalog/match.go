package catalog

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Matches reports whether relPath (slash-separated, relative to the scan
// target) is within this spec's file scope: it must match at least one
// non-negated pattern and no negated ("!"-prefixed) pattern.
func (a AgentSpec) Matches(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	matched := false
	excluded := false
	for _, pattern := range a.FilePatterns {
		negate := strings.HasPrefix(pattern, "!")
		p := strings.TrimPrefix(pattern, "!")

		ok, err := doublestar.Match(p, relPath)
		if err != nil || !ok {
			continue
		}
		if negate {
			excluded = true
		} else {
			matched = true
		}
	}
	return matched && !excluded
}
