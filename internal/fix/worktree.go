package fix

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/log"

	"github.com/AbdelazizMoustafa10m/Raven/internal/git"
)

// envCopyPattern and mcpCopyPattern are the basename patterns copied from the
// target repo into a freshly provisioned worktree, per the skip-env.example
// rule below.
const envCopyPattern = ".env*"
const mcpCopyPattern = ".mcp.json"
const envExampleBasename = ".env.example"

// skippedDirs are never descended into while scanning for files to copy.
var skippedDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"dist":         true,
	".rover":       true,
}

// Provisioner creates a git worktree for a fix attempt and seeds it with the
// target repo's local-only files (.env*, .mcp.json) that a fresh worktree
// checkout would otherwise lack.
type Provisioner struct {
	gitClient git.Client
	logger    *log.Logger
}

// NewProvisioner creates a Provisioner bound to the given git client. logger
// may be nil.
func NewProvisioner(gitClient git.Client, logger *log.Logger) *Provisioner {
	return &Provisioner{gitClient: gitClient, logger: logger}
}

// Provision creates a new worktree at <targetPath>/.rover/<branchName> on a
// new branch based on baseBranch, then copies over any .env*/.mcp.json files
// found in targetPath. Copy failures are logged as warnings, never fatal --
// the worktree itself is the operation's one required outcome.
func (p *Provisioner) Provision(ctx context.Context, targetPath, branchName, baseBranch string) (string, error) {
	worktreePath := filepath.Join(targetPath, ".rover", branchName)

	if err := p.gitClient.WorktreeAdd(ctx, worktreePath, branchName, baseBranch); err != nil {
		return "", fmt.Errorf("fix: provisioning worktree for %q: %w", branchName, err)
	}

	p.copyLocalFiles(targetPath, worktreePath)

	return worktreePath, nil
}

// Destroy removes the worktree at worktreePath, forcing removal even with
// local modifications (a fix attempt that exits already_fixed has no changes
// worth preserving).
func (p *Provisioner) Destroy(ctx context.Context, worktreePath string) error {
	if err := p.gitClient.WorktreeRemove(ctx, worktreePath, true); err != nil {
		return fmt.Errorf("fix: destroying worktree %q: %w", worktreePath, err)
	}
	return nil
}

// copyLocalFiles walks targetPath for files matching envCopyPattern (minus
// envExampleBasename) or mcpCopyPattern and copies each into the
// corresponding relative path under worktreePath.
func (p *Provisioner) copyLocalFiles(targetPath, worktreePath string) {
	_ = filepath.WalkDir(targetPath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr
		}
		if d.IsDir() {
			if skippedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		base := d.Name()
		matchesEnv, _ := doublestar.Match(envCopyPattern, base)
		isMCP := base == mcpCopyPattern
		if !matchesEnv && !isMCP {
			return nil
		}
		if base == envExampleBasename {
			return nil
		}

		rel, err := filepath.Rel(targetPath, path)
		if err != nil {
			p.warn("resolving relative path for local file copy failed", "path", path, "error", err)
			return nil
		}

		if err := copyFile(path, filepath.Join(worktreePath, rel)); err != nil {
			p.warn("copying local file into worktree failed", "path", rel, "error", err)
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func (p *Provisioner) warn(msg string, kvs ...any) {
	if p.logger == nil {
		return
	}
	p.logger.Warn(msg, kvs...)
}
