package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"sort"
	"strings"
)

// #region types

// Command describes one external process invocation.
type Command struct {
	Name string
	Args []string
	Env  map[string]string // merged over the current process environment
	Dir  string
}

// Result is the outcome of running a Command.
// Output holds stdout followed by stderr; on a launch failure it holds the error text.
type Result struct {
	OK     bool
	Output string
}

// Runner executes external commands synchronously.
type Runner interface {
	Run(ctx context.Context, cmd Command) Result
}

// #endregion types

// #region exec-runner

// ExecRunner runs commands as real OS processes.
type ExecRunner struct {
	// Dir is the default working directory when Command.Dir is empty.
	Dir string
}

// NewExecRunner returns a runner rooted at dir ("" means the current directory).
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

// Run executes cmd and blocks until it exits. There is no timeout; only ctx
// cancellation stops a running command.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) Result {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if c.Dir == "" {
		c.Dir = r.Dir
	}
	if len(cmd.Env) > 0 {
		c.Env = MergeEnv(os.Environ(), cmd.Env)
	}
	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	if err := c.Run(); err != nil {
		out := stdout.String() + stderr.String()
		if strings.TrimSpace(out) == "" {
			out = err.Error()
		}
		return Result{OK: false, Output: out}
	}
	return Result{OK: true, Output: stdout.String() + stderr.String()}
}

// #endregion exec-runner

// #region helpers

// MergeEnv overlays extra on base (KEY=VALUE form). Keys in extra replace
// existing entries; new keys are appended in sorted order.
func MergeEnv(base []string, extra map[string]string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if v, ok := extra[key]; ok {
			out = append(out, key+"="+v)
			seen[key] = true
			continue
		}
		out = append(out, kv)
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		out = append(out, k+"="+extra[k])
	}
	return out
}

// String renders the command line for logs.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// #endregion helpers
