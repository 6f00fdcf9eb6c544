package config

// ConfigSource identifies which layer supplied a resolved value.
type ConfigSource string

const (
	SourceDefault ConfigSource = "default"
	SourceFile    ConfigSource = "file"
	SourceEnv     ConfigSource = "env"
	SourceCLI     ConfigSource = "cli"
)

// EnvFunc abstracts os.LookupEnv for testability.
type EnvFunc func(key string) (string, bool)

// CLIOverrides carries flag values that should win over every other layer.
type CLIOverrides struct {
	TargetPath  string
	Concurrency int
	Voters      int
}

// ResolvedConfig is the final, flattened configuration plus provenance for
// every field, following the teacher's layered-precedence resolution model:
// defaults < rover.toml < environment < CLI flags.
type ResolvedConfig struct {
	Project ProjectConfig
	Agents  map[string]AgentConfig
	Scan    ScanConfig
	Fix     FixConfig
	Batch   BatchConfig

	// Sources maps a dotted field path (e.g. "scan.voters") to the layer
	// that ultimately supplied its value.
	Sources map[string]ConfigSource

	// Path is the rover.toml file this configuration was loaded from, empty
	// when none was found.
	Path string
}

// AsConfig flattens a ResolvedConfig back into a plain Config, discarding
// provenance. Used to feed the resolved values through Validate.
func (rc *ResolvedConfig) AsConfig() *Config {
	return &Config{
		Project: rc.Project,
		Agents:  rc.Agents,
		Scan:    rc.Scan,
		Fix:     rc.Fix,
		Batch:   rc.Batch,
	}
}

// Resolve merges defaults, an optional file-loaded Config, environment
// variables, and CLI overrides into a single ResolvedConfig. fileConfig may
// be nil when no rover.toml was found.
func Resolve(defaults *Config, fileConfig *Config, envFn EnvFunc, overrides *CLIOverrides) *ResolvedConfig {
	rc := &ResolvedConfig{
		Agents:  map[string]AgentConfig{},
		Sources: map[string]ConfigSource{},
	}

	resolveFromDefaults(rc, defaults)
	if fileConfig != nil {
		resolveFromFile(rc, fileConfig)
	}
	if envFn != nil {
		resolveFromEnv(rc, envFn)
	}
	if overrides != nil {
		resolveFromCLI(rc, overrides)
	}
	return rc
}

func resolveFromDefaults(rc *ResolvedConfig, d *Config) {
	if d == nil {
		return
	}
	rc.Project = d.Project
	rc.Scan = d.Scan
	rc.Fix = d.Fix
	rc.Batch = d.Batch
	for name, a := range d.Agents {
		rc.Agents[name] = a
	}
	for _, f := range []string{
		"project.state_dir", "scan.voters", "scan.approval_threshold",
		"scan.dedup_threshold_k", "scan.scanner_max_turns", "scan.voter_max_turns",
		"fix.max_iterations", "fix.concurrency", "batch.concurrency", "batch.stale_after",
	} {
		rc.Sources[f] = SourceDefault
	}
}

func resolveFromFile(rc *ResolvedConfig, f *Config) {
	mergeString(&rc.Project.TargetPath, f.Project.TargetPath, "project.target_path", SourceFile, rc.Sources)
	mergeString(&rc.Project.StateDir, f.Project.StateDir, "project.state_dir", SourceFile, rc.Sources)

	if f.Scan.Voters != 0 {
		rc.Scan.Voters = f.Scan.Voters
		rc.Sources["scan.voters"] = SourceFile
	}
	if f.Scan.ApprovalThreshold != 0 {
		rc.Scan.ApprovalThreshold = f.Scan.ApprovalThreshold
		rc.Sources["scan.approval_threshold"] = SourceFile
	}
	if f.Scan.DedupThresholdK != 0 {
		rc.Scan.DedupThresholdK = f.Scan.DedupThresholdK
		rc.Sources["scan.dedup_threshold_k"] = SourceFile
	}
	if f.Scan.ScannerMaxTurns != 0 {
		rc.Scan.ScannerMaxTurns = f.Scan.ScannerMaxTurns
		rc.Sources["scan.scanner_max_turns"] = SourceFile
	}
	if f.Scan.VoterMaxTurns != 0 {
		rc.Scan.VoterMaxTurns = f.Scan.VoterMaxTurns
		rc.Sources["scan.voter_max_turns"] = SourceFile
	}
	if f.Fix.MaxIterations != 0 {
		rc.Fix.MaxIterations = f.Fix.MaxIterations
		rc.Sources["fix.max_iterations"] = SourceFile
	}
	if f.Fix.Concurrency != 0 {
		rc.Fix.Concurrency = f.Fix.Concurrency
		rc.Sources["fix.concurrency"] = SourceFile
	}
	if f.Batch.Concurrency != 0 {
		rc.Batch.Concurrency = f.Batch.Concurrency
		rc.Sources["batch.concurrency"] = SourceFile
	}
	mergeString(&rc.Batch.StaleAfter, f.Batch.StaleAfter, "batch.stale_after", SourceFile, rc.Sources)

	for name, a := range f.Agents {
		rc.Agents[name] = mergeAgentConfig(rc.Agents[name], a)
		rc.Sources["agents."+name] = SourceFile
	}
}

func resolveFromEnv(rc *ResolvedConfig, envFn EnvFunc) {
	if v, ok := envFn("ROVER_TARGET_PATH"); ok && v != "" {
		rc.Project.TargetPath = v
		rc.Sources["project.target_path"] = SourceEnv
	}
	if v, ok := envFn("ROVER_BATCH_CONCURRENCY"); ok && v != "" {
		if n := atoiOrZero(v); n > 0 {
			rc.Batch.Concurrency = n
			rc.Sources["batch.concurrency"] = SourceEnv
		}
	}
	if v, ok := envFn("ROVER_FIX_CONCURRENCY"); ok && v != "" {
		if n := atoiOrZero(v); n > 0 {
			rc.Fix.Concurrency = n
			rc.Sources["fix.concurrency"] = SourceEnv
		}
	}
}

func resolveFromCLI(rc *ResolvedConfig, o *CLIOverrides) {
	if o.TargetPath != "" {
		rc.Project.TargetPath = o.TargetPath
		rc.Sources["project.target_path"] = SourceCLI
	}
	if o.Concurrency > 0 {
		rc.Batch.Concurrency = o.Concurrency
		rc.Fix.Concurrency = o.Concurrency
		rc.Sources["batch.concurrency"] = SourceCLI
		rc.Sources["fix.concurrency"] = SourceCLI
	}
	if o.Voters > 0 {
		rc.Scan.Voters = o.Voters
		rc.Sources["scan.voters"] = SourceCLI
	}
}

func mergeString(target *string, value string, path string, source ConfigSource, sources map[string]ConfigSource) {
	if value == "" {
		return
	}
	*target = value
	sources[path] = source
}

func mergeAgentConfig(base, override AgentConfig) AgentConfig {
	out := base
	if override.Enabled != nil {
		out.Enabled = override.Enabled
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Effort != "" {
		out.Effort = override.Effort
	}
	if override.AllowedTools != "" {
		out.AllowedTools = override.AllowedTools
	}
	return out
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
