package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/AbdelazizMoustafa10m/Raven/internal/catalog"
	"github.com/AbdelazizMoustafa10m/Raven/internal/config"
	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
	"github.com/AbdelazizMoustafa10m/Raven/internal/llmagent"
	"github.com/AbdelazizMoustafa10m/Raven/internal/logging"
	"github.com/AbdelazizMoustafa10m/Raven/internal/reviewmgr"
	"github.com/AbdelazizMoustafa10m/Raven/internal/store"
)

// parseStaleAfter parses cfg.Batch.StaleAfter, falling back to the package
// default on empty or malformed input rather than failing the command.
func parseStaleAfter(s string) time.Duration {
	if s == "" {
		s = config.DefaultStaleAfter
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		d, _ = time.ParseDuration(config.DefaultStaleAfter)
	}
	return d
}

// deps bundles every runtime collaborator a command RunE needs, built once
// per invocation from the resolved configuration and the target path. This
// mirrors the teacher's single deps-construction-point convention, scoped
// down from a multi-agent review/workflow dependency graph to Rover's
// scan/fix/review surface.
type deps struct {
	cfg        *config.ResolvedConfig
	targetPath string
	stateDir   string

	catalogReg *catalog.Registry
	driver     llmagent.Agent
	gitClient  *git.GitClient

	issues  *store.IssueStore
	tickets *store.TicketWriter
	batch   *store.BatchRunStore
	fixes   *store.FixStore
	traces  *store.TraceStore
}

// resolveTargetPath returns the effective target path for a command: the
// positional argument if given, else cfg.Project.TargetPath, else the
// current working directory.
func resolveTargetPath(cfg *config.ResolvedConfig, posArg string) (string, error) {
	if posArg != "" {
		return filepath.Abs(posArg)
	}
	if cfg.Project.TargetPath != "" {
		return filepath.Abs(cfg.Project.TargetPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return wd, nil
}

// newDeps loads and resolves configuration, then builds every collaborator
// rooted at targetPath's .rover state directory. staleAfter parses
// cfg.Batch.StaleAfter; a malformed duration falls back to the default
// rather than failing the whole command.
func newDeps(posArg string) (*deps, error) {
	cfg, _, err := loadAndResolveConfig()
	if err != nil {
		return nil, err
	}

	targetPath, err := resolveTargetPath(cfg, posArg)
	if err != nil {
		return nil, err
	}

	stateDirName := cfg.Project.StateDir
	if stateDirName == "" {
		stateDirName = config.DefaultStateDir
	}
	stateDir := filepath.Join(targetPath, stateDirName)
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory %s: %w", stateDir, err)
	}

	catalogReg := catalog.Builtin()
	applyAgentOverrides(catalogReg, cfg.Agents)

	logger := logging.New("llmagent")
	driver := llmagent.NewClaudeAgent(llmagent.DriverConfig{}, logger)
	if err := driver.CheckPrerequisites(); err != nil {
		return nil, fmt.Errorf("checking claude CLI prerequisites: %w", err)
	}

	gitClient, err := git.NewGitClient(targetPath)
	if err != nil {
		return nil, fmt.Errorf("initializing git client: %w", err)
	}

	return &deps{
		cfg:        cfg,
		targetPath: targetPath,
		stateDir:   stateDir,
		catalogReg: catalogReg,
		driver:     driver,
		gitClient:  gitClient,
		issues:     store.NewIssueStore(filepath.Join(stateDir, "issues.json")),
		tickets:    store.NewTicketWriter(filepath.Join(stateDir, "tickets")),
		batch:      store.NewBatchRunStore(filepath.Join(stateDir, "batch-run-state.json"), parseStaleAfter(cfg.Batch.StaleAfter)),
		fixes:      store.NewFixStore(filepath.Join(stateDir, "fix-state.json")),
		traces:     store.NewTraceStore(filepath.Join(stateDir, "traces")),
	}, nil
}

// applyAgentOverrides folds [agents.<id>] entries from rover.toml onto the
// built-in catalog. Only Enabled is applied. Model/Effort/AllowedTools are
// resolved and shown by `rover config` but are not passed on: the driver
// above is built with an empty llmagent.DriverConfig.
func applyAgentOverrides(reg *catalog.Registry, overrides map[string]config.AgentConfig) {
	for id, a := range overrides {
		if a.Enabled == nil || !reg.Has(id) {
			continue
		}
		_ = reg.SetEnabled(id, *a.Enabled)
	}
}

// newReviewManager builds a reviewmgr.Manager wired to d's fix store, issue
// store, and git client, talking to the real gh binary.
func (d *deps) newReviewManager() *reviewmgr.Manager {
	logger := logging.New("reviewmgr")
	return reviewmgr.NewManager(
		d.fixes, d.issues, d.gitClient,
		reviewmgr.DefaultGitClientFactory, reviewmgr.NewGHClientFactory(logger),
		reviewmgr.NewBodyGenerator(), logger,
	)
}
