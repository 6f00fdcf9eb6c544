package config

// Defaults mirror the literal knob values named in the scan, fix, and batch
// designs; they are the TOML defaults when rover.toml omits a section.
const (
	DefaultVoters            = 3
	DefaultApprovalThreshold = 2
	DefaultDedupThresholdK   = 5
	DefaultScannerMaxTurns   = 50
	DefaultVoterMaxTurns     = 10
	DefaultMaxIterations     = 10
	DefaultFixConcurrency    = 3
	DefaultBatchConcurrency  = 3
	DefaultStaleAfter        = "24h"
	DefaultStateDir          = ".rover"
)

// NewDefaults returns a Config populated with all default values.
func NewDefaults() *Config {
	return &Config{
		Project: ProjectConfig{
			StateDir: DefaultStateDir,
		},
		Agents: map[string]AgentConfig{},
		Scan: ScanConfig{
			Voters:            DefaultVoters,
			ApprovalThreshold: DefaultApprovalThreshold,
			DedupThresholdK:   DefaultDedupThresholdK,
			ScannerMaxTurns:   DefaultScannerMaxTurns,
			VoterMaxTurns:     DefaultVoterMaxTurns,
		},
		Fix: FixConfig{
			MaxIterations: DefaultMaxIterations,
			Concurrency:   DefaultFixConcurrency,
		},
		Batch: BatchConfig{
			Concurrency: DefaultBatchConcurrency,
			StaleAfter:  DefaultStaleAfter,
		},
	}
}
