package procman

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/guriri-logistics/autopilot/internal/runner"
)

// Announcer receives human-readable progress lines.
type Announcer interface {
	Info(ctx context.Context, msg string)
	Warn(ctx context.Context, msg string)
}

// #region pm2

// PM2 drives the process manager through the command runner.
type PM2 struct {
	cfg Config
	run runner.Runner
	out Announcer
}

// NewPM2 creates a PM2 driver. A nil announcer discards progress lines.
func NewPM2(cfg Config, r runner.Runner, out Announcer) *PM2 {
	if cfg.Entrypoint == "" {
		cfg.Entrypoint = DefaultEntrypoint
	}
	return &PM2{cfg: cfg, run: r, out: out}
}

// List parses `pm2 jlist`. Any leading banner noise before the JSON array is skipped.
func (p *PM2) List(ctx context.Context) ([]Process, error) {
	res := p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"jlist"}})
	if !res.OK {
		return nil, fmt.Errorf("pm2 jlist: %s", strings.TrimSpace(res.Output))
	}
	return ParseJList(res.Output)
}

// ParseJList decodes the JSON array printed by `pm2 jlist`. pm2 may print
// "[PM2] ..." banner lines first, so decoding is tried at each '[' until one
// yields an array.
func ParseJList(out string) ([]Process, error) {
	var lastErr error
	for i := 0; i < len(out); i++ {
		if out[i] != '[' {
			continue
		}
		var procs []Process
		if err := json.NewDecoder(strings.NewReader(out[i:])).Decode(&procs); err != nil {
			lastErr = err
			continue
		}
		return procs, nil
	}
	if lastErr == nil {
		return nil, fmt.Errorf("pm2 jlist: no process array in output")
	}
	return nil, fmt.Errorf("pm2 jlist: %w", lastErr)
}

// Exists reports whether a process with the given name is registered.
// A failed or unparsable listing counts as absent.
func (p *PM2) Exists(ctx context.Context, name string) bool {
	procs, err := p.List(ctx)
	if err != nil {
		return false
	}
	for _, proc := range procs {
		if proc.Name == name {
			return true
		}
	}
	return false
}

// CanaryEnv is the environment the canary runs with.
func (p *PM2) CanaryEnv() map[string]string {
	return map[string]string{
		"PORT":     strconv.Itoa(p.cfg.CanaryPort),
		"WS_PORT":  strconv.Itoa(p.cfg.CanaryPort + 1),
		"NODE_ENV": "production",
	}
}

// EnsureCanary restarts the canary with fresh env, or starts it when absent.
// A failed entrypoint start falls back to `npm start` under the canary name.
func (p *PM2) EnsureCanary(ctx context.Context) error {
	env := p.CanaryEnv()
	name := p.cfg.CanaryName

	if p.Exists(ctx, name) {
		res := p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"restart", name, "--update-env"}, Env: env})
		if !res.OK {
			return fmt.Errorf("restart canary %s: %s", name, strings.TrimSpace(res.Output))
		}
	} else {
		res := p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"start", p.cfg.Entrypoint, "--name", name}, Env: env})
		if !res.OK {
			p.warn(ctx, fmt.Sprintf("canary start via %s failed, falling back to npm start: %s", p.cfg.Entrypoint, strings.TrimSpace(res.Output)))
			res = p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"start", "npm", "--name", name, "--", "start"}, Env: env})
			if !res.OK {
				return fmt.Errorf("start canary %s: %s", name, strings.TrimSpace(res.Output))
			}
		}
	}

	p.info(ctx, fmt.Sprintf("canary started on port %d (main=%d)", p.cfg.CanaryPort, p.cfg.MainPort))
	return nil
}

// RestartMain restarts the primary process with --update-env.
func (p *PM2) RestartMain(ctx context.Context) runner.Result {
	return p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"restart", p.cfg.AppName, "--update-env"}})
}

// DeleteCanary removes the canary process.
func (p *PM2) DeleteCanary(ctx context.Context) runner.Result {
	return p.run.Run(ctx, runner.Command{Name: "pm2", Args: []string{"delete", p.cfg.CanaryName}})
}

// #endregion pm2

// #region helpers
func (p *PM2) info(ctx context.Context, msg string) {
	if p.out != nil {
		p.out.Info(ctx, msg)
	}
}

func (p *PM2) warn(ctx context.Context, msg string) {
	if p.out != nil {
		p.out.Warn(ctx, msg)
	}
}

// #endregion helpers
