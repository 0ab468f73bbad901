package patch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/guriri-logistics/autopilot/internal/vcs"
)

// DefaultMaxBytes is the diff size ceiling when none is configured.
const DefaultMaxBytes = 256 * 1024

// #region types

// ApplyResult is the outcome of applying a diff.
type ApplyResult struct {
	Applied bool
	Message string
}

// Applier applies a diff to the working tree.
type Applier interface {
	Apply(ctx context.Context, diffText string, maxBytes int) ApplyResult
}

// Stats summarizes a parsed diff.
type Stats struct {
	Files   int
	Hunks   int
	Added   int
	Deleted int
}

// #endregion types

// #region git-applier

// GitApplier writes the diff under a cache directory and runs `git apply`.
type GitApplier struct {
	git      *vcs.Git
	cacheDir string
	now      func() time.Time
}

// NewGitApplier creates an applier storing patch files in cacheDir.
func NewGitApplier(git *vcs.Git, cacheDir string) *GitApplier {
	return &GitApplier{git: git, cacheDir: cacheDir, now: time.Now}
}

// Apply enforces the size ceiling before anything touches the filesystem.
func (a *GitApplier) Apply(ctx context.Context, diffText string, maxBytes int) ApplyResult {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if n := len(diffText); n > maxBytes {
		return ApplyResult{Applied: false, Message: fmt.Sprintf("patch too large (%d bytes, max %d)", n, maxBytes)}
	}

	var summary string
	if st, err := ParseStats(diffText); err == nil {
		summary = st.String()
	} else {
		summary = "diff parse warning: " + err.Error()
	}

	if err := os.MkdirAll(a.cacheDir, 0o755); err != nil {
		return ApplyResult{Applied: false, Message: fmt.Sprintf("create cache dir: %v", err)}
	}
	patchPath := filepath.Join(a.cacheDir, fmt.Sprintf("patch-%d.diff", a.now().UnixNano()))
	if err := os.WriteFile(patchPath, []byte(diffText), 0o644); err != nil {
		return ApplyResult{Applied: false, Message: fmt.Sprintf("write patch file: %v", err)}
	}

	res := a.git.Apply(ctx, patchPath)
	if !res.OK {
		return ApplyResult{Applied: false, Message: "git apply failed: " + strings.TrimSpace(res.Output)}
	}
	return ApplyResult{Applied: true, Message: "patch applied with git apply (" + summary + ")"}
}

// #endregion git-applier

// #region stats

// ParseStats parses a multi-file unified diff and counts files, hunks and lines.
func ParseStats(diffText string) (Stats, error) {
	files, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return Stats{}, fmt.Errorf("parse diff: %w", err)
	}
	var st Stats
	st.Files = len(files)
	for _, f := range files {
		st.Hunks += len(f.Hunks)
		for _, h := range f.Hunks {
			s := h.Stat()
			st.Added += int(s.Added + s.Changed)
			st.Deleted += int(s.Deleted + s.Changed)
		}
	}
	return st, nil
}

// String renders the stats for logs.
func (s Stats) String() string {
	return fmt.Sprintf("%d file(s), %d hunk(s), +%d -%d", s.Files, s.Hunks, s.Added, s.Deleted)
}

// #endregion stats
