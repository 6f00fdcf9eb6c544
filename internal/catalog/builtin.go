package catalog

import (
	_ "embed"
	"fmt"
)

//go:embed prompts/security.md
var securityPrompt string

//go:embed prompts/performance.md
var performancePrompt string

//go:embed prompts/architecture.md
var architecturePrompt string

//go:embed prompts/correctness.md
var correctnessPrompt string

//go:embed prompts/style.md
var stylePrompt string

//go:embed prompts/testing.md
var testingPrompt string

// Builtin returns a fresh Registry populated with the six built-in scan
// policies. Called by internal/cli's newDeps each time a command assembles
// its dependencies.
func Builtin() *Registry {
	r := NewRegistry()

	specs := []AgentSpec{
		{
			ID:           "security",
			Name:         "Security",
			Description:  "Finds injection, auth, and secret-handling vulnerabilities.",
			SystemPrompt: securityPrompt,
			FilePatterns: []string{"**/*.go", "**/*.ts", "**/*.js", "**/*.py", "!**/*_test.go", "!**/testdata/**"},
			Enabled:      true,
		},
		{
			ID:           "performance",
			Name:         "Performance",
			Description:  "Finds algorithmic, allocation, and I/O hot-path issues.",
			SystemPrompt: performancePrompt,
			FilePatterns: []string{"**/*.go", "**/*.ts", "**/*.js", "!**/*_test.go", "!**/testdata/**", "!**/vendor/**"},
			Enabled:      true,
		},
		{
			ID:           "architecture",
			Name:         "Architecture",
			Description:  "Finds layering violations, leaky abstractions, and coupling problems.",
			SystemPrompt: architecturePrompt,
			FilePatterns: []string{"**/*.go", "**/*.ts", "!**/testdata/**", "!**/vendor/**"},
			Enabled:      true,
		},
		{
			ID:           "correctness",
			Name:         "Correctness",
			Description:  "Finds logic bugs, off-by-ones, and incorrect error handling.",
			SystemPrompt: correctnessPrompt,
			FilePatterns: []string{"**/*.go", "**/*.ts", "**/*.js", "**/*.py", "!**/testdata/**"},
			Enabled:      true,
		},
		{
			ID:           "style",
			Name:         "Style",
			Description:  "Finds naming, formatting, and idiom inconsistencies.",
			SystemPrompt: stylePrompt,
			FilePatterns: []string{"**/*.go", "**/*.ts", "**/*.js", "!**/testdata/**", "!**/vendor/**"},
			Enabled:      false,
		},
		{
			ID:           "testing",
			Name:         "Testing",
			Description:  "Finds untested branches, weak assertions, and flaky patterns.",
			SystemPrompt: testingPrompt,
			FilePatterns: []string{"**/*_test.go", "**/*.test.ts", "**/*.spec.ts", "**/test_*.py"},
			Enabled:      true,
		},
	}

	for _, s := range specs {
		if err := r.Register(s); err != nil {
			// Built-in ids are fixed and validated by the tests in this
			// package; a Register failure here means this file was edited
			// incorrectly.
			panic(fmt.Sprintf("catalog.Builtin: %v", err))
		}
	}

	return r
}
