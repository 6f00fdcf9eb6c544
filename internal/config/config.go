package config

// Config is the top-level configuration structure mapping to rover.toml.
type Config struct {
	Project ProjectConfig          `toml:"project"`
	Agents  map[string]AgentConfig `toml:"agents"`
	Scan    ScanConfig             `toml:"scan"`
	Fix     FixConfig              `toml:"fix"`
	Batch   BatchConfig            `toml:"batch"`
}

// ProjectConfig maps to the [project] section in rover.toml.
type ProjectConfig struct {
	// TargetPath overrides the path a bare `rover scan`/`rover fix` operates
	// against; empty means the current working directory.
	TargetPath string `toml:"target_path"`

	// StateDir names the dotdir storage lives under, relative to TargetPath.
	// Defaults to ".rover".
	StateDir string `toml:"state_dir"`
}

// AgentConfig maps to an [agents.<id>] section in rover.toml. Enabled toggles
// a built-in catalog entry; Model, Effort and AllowedTools are resolved and
// validated but no command passes them to the LLM driver. It never overrides
// the entry's prompt or file-glob scope, which are code-owned.
type AgentConfig struct {
	Enabled      *bool  `toml:"enabled"`
	Model        string `toml:"model"`
	Effort       string `toml:"effort"`
	AllowedTools string `toml:"allowed_tools"`
}

// ScanConfig maps to the [scan] section in rover.toml.
type ScanConfig struct {
	Voters            int `toml:"voters"`
	ApprovalThreshold int `toml:"approval_threshold"`
	DedupThresholdK   int `toml:"dedup_threshold_k"`
	ScannerMaxTurns   int `toml:"scanner_max_turns"`
	VoterMaxTurns     int `toml:"voter_max_turns"`
}

// FixConfig maps to the [fix] section in rover.toml.
type FixConfig struct {
	MaxIterations int `toml:"max_iterations"`
	Concurrency   int `toml:"concurrency"`
}

// BatchConfig maps to the [batch] section in rover.toml.
type BatchConfig struct {
	Concurrency int    `toml:"concurrency"`
	StaleAfter  string `toml:"stale_after"`
}
