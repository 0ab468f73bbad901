package vcs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/guriri-logistics/autopilot/internal/runner"
)

// ErrDirtyTree is returned by EnsureClean when the working tree has changes.
var ErrDirtyTree = errors.New("working tree is not clean (git status --porcelain not empty)")

// #region git

// Git drives the version-control CLI through a Runner.
type Git struct {
	run runner.Runner
}

// NewGit creates a Git wrapper.
func NewGit(r runner.Runner) *Git {
	return &Git{run: r}
}

// Status returns `git status --porcelain` output.
func (g *Git) Status(ctx context.Context) (string, error) {
	res := g.run.Run(ctx, runner.Command{Name: "git", Args: []string{"status", "--porcelain"}})
	if !res.OK {
		return "", fmt.Errorf("git status: %s", strings.TrimSpace(res.Output))
	}
	return res.Output, nil
}

// EnsureClean fails with ErrDirtyTree when the tree has uncommitted or untracked files.
func (g *Git) EnsureClean(ctx context.Context) error {
	out, err := g.Status(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) != "" {
		return ErrDirtyTree
	}
	return nil
}

// Head returns the current revision, used as the rollback baseline.
func (g *Git) Head(ctx context.Context) (string, error) {
	res := g.run.Run(ctx, runner.Command{Name: "git", Args: []string{"rev-parse", "HEAD"}})
	if !res.OK {
		return "", fmt.Errorf("git rev-parse: %s", strings.TrimSpace(res.Output))
	}
	ref := strings.TrimSpace(res.Output)
	if ref == "" {
		return "", errors.New("git rev-parse: empty revision")
	}
	return ref, nil
}

// ResetHard moves the tree back to ref. When removeUntracked is set it also
// runs `git clean -fd` so files created by a patch disappear.
func (g *Git) ResetHard(ctx context.Context, ref string, removeUntracked bool) error {
	res := g.run.Run(ctx, runner.Command{Name: "git", Args: []string{"reset", "--hard", ref}})
	if !res.OK {
		return fmt.Errorf("git reset --hard %s: %s", ref, strings.TrimSpace(res.Output))
	}
	if !removeUntracked {
		return nil
	}
	res = g.run.Run(ctx, runner.Command{Name: "git", Args: []string{"clean", "-fd"}})
	if !res.OK {
		return fmt.Errorf("git clean: %s", strings.TrimSpace(res.Output))
	}
	return nil
}

// Apply runs `git apply --whitespace=nowarn` on a patch file.
func (g *Git) Apply(ctx context.Context, patchFile string) runner.Result {
	return g.run.Run(ctx, runner.Command{Name: "git", Args: []string{"apply", "--whitespace=nowarn", patchFile}})
}

// #endregion git
