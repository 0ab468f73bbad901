package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/guriri-logistics/autopilot/internal/autopilot"
	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/gate"
	"github.com/guriri-logistics/autopilot/internal/llm"
	"github.com/guriri-logistics/autopilot/internal/notify"
	"github.com/guriri-logistics/autopilot/internal/patch"
	"github.com/guriri-logistics/autopilot/internal/policy"
	"github.com/guriri-logistics/autopilot/internal/procman"
	"github.com/guriri-logistics/autopilot/internal/runner"
	"github.com/guriri-logistics/autopilot/internal/smoke"
	"github.com/guriri-logistics/autopilot/internal/state"
	"github.com/guriri-logistics/autopilot/internal/vcs"
)

const defaultBaseline = "0000000000000000000000000000000000000000"

// #region types

// TickResult is the observed outcome of one replayed tick.
type TickResult struct {
	Index          int
	Action         state.Action
	Attempts       int
	LastActionLog  string
	Err            error
	GeneratorCalls int
	Calls          []string
	Notices        []notify.Entry
}

// Count returns how many recorded command lines start with prefix.
func (r TickResult) Count(prefix string) int {
	n := 0
	for _, c := range r.Calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// Summary aggregates a replay run.
type Summary struct {
	Ticks     int
	Promoted  int
	Rollbacks int
	Terminal  int // no_patch and blocked_by_policy
	Errors    int
}

// #endregion types

// #region replay

// Replay runs every tick of the fixture through a real loop wired to
// scripted collaborators. State carries over between ticks through one
// in-memory store. Patch files land under workDir.
func Replay(ctx context.Context, f *Fixture, workDir string) ([]TickResult, error) {
	store := state.NewMemoryStore(f.StartState.ToAgentState())
	baseline := f.Baseline
	if baseline == "" {
		baseline = defaultBaseline
	}

	results := make([]TickResult, 0, len(f.Ticks))
	for i, tick := range f.Ticks {
		run := runner.NewFake().On("git rev-parse HEAD", runner.Result{OK: true, Output: baseline + "\n"})
		for prefix, answers := range tick.Commands {
			for _, a := range answers {
				run.On(prefix, runner.Result{OK: a.OK, Output: a.Output})
			}
		}
		completer := &scriptedCompleter{replies: tick.Replies}
		if tick.GenerationError != "" {
			completer.err = errors.New(tick.GenerationError)
		}
		prober := &scriptedProber{answers: tick.Smoke}
		notes := &notify.Recorder{}

		loop, err := buildLoop(f.Config, tick, store, run, completer, prober, notes, filepath.Join(workDir, fmt.Sprintf("tick-%d", i)))
		if err != nil {
			return nil, err
		}
		if err := loop.Restore(ctx); err != nil {
			return nil, err
		}

		tickErr := loop.Tick(ctx)
		st := loop.State()
		results = append(results, TickResult{
			Index:          i,
			Action:         st.LastAction,
			Attempts:       st.Attempts,
			LastActionLog:  st.LastActionLog,
			Err:            tickErr,
			GeneratorCalls: completer.calls,
			Calls:          run.CallLines(),
			Notices:        notes.Entries,
		})
	}
	return results, nil
}

func buildLoop(cfg FixtureConfig, tick FixtureTick, store state.Store, run *runner.Fake, c llm.Completer, p smoke.Prober, notes *notify.Recorder, cacheDir string) (*autopilot.Loop, error) {
	git := vcs.NewGit(run)
	checks := gate.DefaultCheckConfig()
	checks.RunBuild = cfg.RunBuild
	checks.RunTests = cfg.RunTests

	var incident *detect.Incident
	if tick.Excerpt != "" {
		incident = detect.FromExcerpt(tick.Excerpt, detect.KeywordPredicate)
	}

	return autopilot.New(autopilot.Settings{
		DryRun:                      cfg.DryRun,
		MaxAttempts:                 cfg.MaxAttempts,
		Interval:                    time.Second,
		RequireGitClean:             cfg.RequireGitClean,
		MaxPatchBytes:               cfg.MaxPatchBytes,
		Smoke:                       smoke.Target{Port: 5010, Path: "/health", Timeout: time.Second},
		TeardownCanary:              cfg.TeardownCanary,
		RetryAfterGenerationFailure: cfg.RetryAfterGenerationFailure,
	}, autopilot.Deps{
		Detector:  fixedDetector{incident: incident},
		Store:     store,
		Generator: patch.NewGenerator(c),
		Guard:     policy.NewGuard(cfg.AllowPaths, cfg.DenyPaths),
		Applier:   patch.NewGitApplier(git, cacheDir),
		Repo:      git,
		Checks:    gate.NewGate(checks, run),
		Canary:    procman.NewPM2(procman.Config{AppName: "guriri", CanaryName: "guriri-canary", MainPort: 5000, CanaryPort: 5010}, run, notes),
		Prober:    p,
		Notifier:  notes,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// #endregion replay

// #region check

// Check compares results against each tick's expectations and returns one
// line per mismatch.
func Check(f *Fixture, results []TickResult) []string {
	var out []string
	for i, r := range results {
		exp := f.Ticks[i].Expect
		if string(r.Action) != exp.Action {
			out = append(out, fmt.Sprintf("tick %d: action=%q, want %q", i, r.Action, exp.Action))
		}
		if exp.Attempts != nil && r.Attempts != *exp.Attempts {
			out = append(out, fmt.Sprintf("tick %d: attempts=%d, want %d", i, r.Attempts, *exp.Attempts))
		}
		if exp.GeneratorCalls != nil && r.GeneratorCalls != *exp.GeneratorCalls {
			out = append(out, fmt.Sprintf("tick %d: generator calls=%d, want %d", i, r.GeneratorCalls, *exp.GeneratorCalls))
		}
		switch {
		case exp.ErrorContains == "" && r.Err != nil:
			out = append(out, fmt.Sprintf("tick %d: unexpected error: %v", i, r.Err))
		case exp.ErrorContains != "" && (r.Err == nil || !strings.Contains(r.Err.Error(), exp.ErrorContains)):
			out = append(out, fmt.Sprintf("tick %d: error=%v, want it to contain %q", i, r.Err, exp.ErrorContains))
		}
		if exp.LogContains != "" && !strings.Contains(r.LastActionLog, exp.LogContains) {
			out = append(out, fmt.Sprintf("tick %d: lastActionLog=%q, want it to contain %q", i, r.LastActionLog, exp.LogContains))
		}
		for prefix, want := range exp.Calls {
			if got := r.Count(prefix); got != want {
				out = append(out, fmt.Sprintf("tick %d: %d call(s) to %q, want %d", i, got, prefix, want))
			}
		}
	}
	return out
}

// Summarize counts outcomes across ticks.
func Summarize(results []TickResult) Summary {
	s := Summary{Ticks: len(results)}
	for _, r := range results {
		if r.Err != nil {
			s.Errors++
		}
		s.Rollbacks += r.Count("git reset --hard")
		switch r.Action {
		case state.ActionPromoted:
			s.Promoted++
		case state.ActionNoPatch, state.ActionBlockedByPolicy:
			s.Terminal++
		}
	}
	return s
}

// #endregion check
