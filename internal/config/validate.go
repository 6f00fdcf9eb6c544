package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ValidationSeverity indicates whether a validation issue is an error or warning.
type ValidationSeverity string

const (
	// SeverityError indicates a fatal validation issue; the configuration is unusable.
	SeverityError ValidationSeverity = "error"
	// SeverityWarning indicates an informational validation issue; the configuration works
	// but may have problems.
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue represents a single validation finding.
type ValidationIssue struct {
	Severity ValidationSeverity
	Field    string // dotted path, e.g., "scan.voters"
	Message  string
}

// ValidationResult holds all validation findings.
type ValidationResult struct {
	Issues []ValidationIssue
}

// HasErrors returns true if any issue has error severity.
func (vr *ValidationResult) HasErrors() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings returns true if any issue has warning severity.
func (vr *ValidationResult) HasWarnings() bool {
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity issues.
func (vr *ValidationResult) Errors() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityError {
			out = append(out, issue)
		}
	}
	return out
}

// Warnings returns only the warning-severity issues.
func (vr *ValidationResult) Warnings() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range vr.Issues {
		if issue.Severity == SeverityWarning {
			out = append(out, issue)
		}
	}
	return out
}

// Validate checks a Config for structural problems. meta, when non-nil, is
// used to flag unknown TOML keys as warnings.
func Validate(cfg *Config, meta *toml.MetaData) *ValidationResult {
	vr := &ValidationResult{}
	if cfg == nil {
		addError(vr, "config", "configuration is nil")
		return vr
	}

	validateScan(vr, &cfg.Scan)
	validateFix(vr, &cfg.Fix)
	validateBatch(vr, &cfg.Batch)
	validateAgents(vr, cfg.Agents)
	if meta != nil {
		validateUnknownKeys(vr, meta)
	}
	return vr
}

func validateScan(vr *ValidationResult, s *ScanConfig) {
	if s.Voters < 0 {
		addError(vr, "scan.voters", "must not be negative")
	}
	if s.Voters > 0 && s.ApprovalThreshold > s.Voters {
		addError(vr, "scan.approval_threshold", "must not exceed the voter count")
	}
	if s.DedupThresholdK < 0 {
		addError(vr, "scan.dedup_threshold_k", "must not be negative")
	}
	if s.ScannerMaxTurns < 0 || s.VoterMaxTurns < 0 {
		addError(vr, "scan.scanner_max_turns", "turn bounds must not be negative")
	}
}

func validateFix(vr *ValidationResult, f *FixConfig) {
	if f.MaxIterations < 0 {
		addError(vr, "fix.max_iterations", "must not be negative")
	}
	if f.MaxIterations == 0 {
		addWarning(vr, "fix.max_iterations", "zero disables iteration entirely; first review result is final")
	}
	if f.Concurrency < 0 {
		addError(vr, "fix.concurrency", "must not be negative")
	}
}

func validateBatch(vr *ValidationResult, b *BatchConfig) {
	if b.Concurrency < 0 {
		addError(vr, "batch.concurrency", "must not be negative")
	}
}

func validateAgents(vr *ValidationResult, agents map[string]AgentConfig) {
	for name, a := range agents {
		if a.Effort != "" {
			switch a.Effort {
			case "low", "medium", "high", "max":
			default:
				addWarning(vr, fmt.Sprintf("agents.%s.effort", name), "unrecognized effort level")
			}
		}
	}
}

func validateUnknownKeys(vr *ValidationResult, meta *toml.MetaData) {
	for _, key := range meta.Undecoded() {
		addWarning(vr, key.String(), "unknown configuration key")
	}
}

func addError(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{Severity: SeverityError, Field: field, Message: message})
}

func addWarning(vr *ValidationResult, field, message string) {
	vr.Issues = append(vr.Issues, ValidationIssue{Severity: SeverityWarning, Field: field, Message: message})
}
