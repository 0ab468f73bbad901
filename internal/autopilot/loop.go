package autopilot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/gate"
	"github.com/guriri-logistics/autopilot/internal/logging"
	"github.com/guriri-logistics/autopilot/internal/metrics"
	"github.com/guriri-logistics/autopilot/internal/notify"
	"github.com/guriri-logistics/autopilot/internal/patch"
	"github.com/guriri-logistics/autopilot/internal/policy"
	"github.com/guriri-logistics/autopilot/internal/smoke"
	"github.com/guriri-logistics/autopilot/internal/state"
)

const (
	errorBudget  = 800
	noticeBudget = 500
)

// #region deps

// Deps are the loop's collaborators. Journal, Metrics, Logger, Now and Sleep
// are optional.
type Deps struct {
	Detector  Detector
	Store     state.Store
	Generator PatchGenerator
	Guard     *policy.Guard
	Applier   patch.Applier
	Repo      Repo
	Checks    Checks
	Canary    Canary
	Prober    smoke.Prober
	Notifier  notify.Notifier

	Journal Recorder
	Metrics *metrics.Metrics
	Logger  *slog.Logger
	Now     func() time.Time
	Sleep   func(ctx context.Context, d time.Duration) error
}

// #endregion deps

// #region loop

// Loop is the incident-remediation control loop. It owns the AgentState and
// threads it through ticks; the store only mirrors it.
type Loop struct {
	settings Settings
	deps     Deps
	state    state.AgentState
	log      *slog.Logger
}

// incidentRun carries per-incident values through the attempts.
type incidentRun struct {
	id       string
	incident detect.Incident
	baseline string
	attempt  int
}

// New validates the collaborators and builds a loop.
func New(settings Settings, deps Deps) (*Loop, error) {
	var missing []string
	if deps.Detector == nil {
		missing = append(missing, "detector")
	}
	if deps.Store == nil {
		missing = append(missing, "store")
	}
	if deps.Generator == nil {
		missing = append(missing, "generator")
	}
	if deps.Guard == nil {
		missing = append(missing, "guard")
	}
	if deps.Applier == nil {
		missing = append(missing, "applier")
	}
	if deps.Repo == nil {
		missing = append(missing, "repo")
	}
	if deps.Checks == nil {
		missing = append(missing, "checks")
	}
	if deps.Canary == nil {
		missing = append(missing, "canary")
	}
	if deps.Prober == nil {
		missing = append(missing, "prober")
	}
	if deps.Notifier == nil {
		missing = append(missing, "notifier")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("autopilot: missing collaborators: %s", strings.Join(missing, ", "))
	}

	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 2
	}
	if settings.Interval <= 0 {
		settings.Interval = 60 * time.Second
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Sleep == nil {
		deps.Sleep = sleep
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{settings: settings, deps: deps, log: logger}, nil
}

// State returns the in-memory state as of the last transition.
func (l *Loop) State() state.AgentState {
	return l.state
}

// Restore loads the persisted state into the loop.
func (l *Loop) Restore(ctx context.Context) error {
	st, err := l.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	l.state = st
	return nil
}

// Run restores state, then ticks until ctx is cancelled. Tick errors are
// reported and do not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.Restore(ctx); err != nil {
		return err
	}
	l.deps.Notifier.Info(ctx, fmt.Sprintf("autopilot active. interval=%s, dryRun=%v.", l.settings.Interval, l.settings.DryRun))

	for {
		if ctx.Err() != nil {
			l.log.Info("[AUTOPILOT] shutdown")
			return nil
		}
		err := l.Tick(ctx)
		if err != nil && ctx.Err() == nil {
			l.deps.Notifier.Error(ctx, "autopilot error: "+patch.Truncate(err.Error(), errorBudget))
		}
		if l.deps.Metrics != nil {
			l.deps.Metrics.TickDone(l.deps.Now(), err)
		}
		if err := l.deps.Sleep(ctx, l.settings.Interval); err != nil {
			l.log.Info("[AUTOPILOT] shutdown")
			return nil
		}
	}
}

// Tick runs one detection pass and, for a new incident, the full remediation.
func (l *Loop) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	inc := l.deps.Detector.Detect()
	if inc == nil {
		return nil
	}
	if inc.Fingerprint == l.state.LastFingerprint {
		l.log.Debug("[AUTOPILOT] incident already handled", "fingerprint", short(inc.Fingerprint))
		return nil
	}

	l.state.LastFingerprint = inc.Fingerprint
	l.state.LastSeenAt = l.deps.Now().UTC()
	l.state.Attempts = 0
	l.state.LastAction = state.ActionDetected
	if err := l.save(ctx); err != nil {
		return err
	}

	run := &incidentRun{id: uuid.NewString(), incident: *inc}
	l.journal(ctx, run, state.ActionDetected, "")
	if l.deps.Metrics != nil {
		l.deps.Metrics.Incidents.Inc()
	}
	l.log.Info("[AUTOPILOT] incident detected", "incident", run.id, "fingerprint", short(inc.Fingerprint))
	l.deps.Notifier.Warn(ctx, "incident detected in PM2 logs. attempting a safe fix...")

	baseline, err := l.deps.Repo.Head(ctx)
	if err != nil {
		return fmt.Errorf("snapshot baseline: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	run.baseline = baseline

	return l.remediate(ctx, run)
}

// #endregion loop

// #region attempts

func (l *Loop) remediate(ctx context.Context, run *incidentRun) error {
	allow, deny := l.deps.Guard.Describe()
	rails := patch.Guardrails{Allow: allow, Deny: deny}

	for attempt := 1; attempt <= l.settings.MaxAttempts; attempt++ {
		run.attempt = attempt
		l.state.Attempts = attempt
		if err := l.save(ctx); err != nil {
			return err
		}

		if l.settings.RequireGitClean {
			if err := l.deps.Repo.EnsureClean(ctx); err != nil {
				return err
			}
			// nothing applied yet, so no rollback
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if l.settings.DryRun {
			l.deps.Notifier.Info(ctx, "dryRun=true: not requesting or applying a patch.")
			return nil
		}

		diffText, err := l.deps.Generator.Generate(ctx, rails, run.incident, l.state.LastActionLog)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if ferr := l.forgetIfRetrying(ctx); ferr != nil {
				return ferr
			}
			return fmt.Errorf("generate patch: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if !patch.LooksLikeUnifiedDiff(diffText) {
			if err := l.transition(ctx, run, state.ActionNoPatch, fmt.Sprintf("model returned non-diff content. len=%d", len(diffText))); err != nil {
				return err
			}
			l.deps.Notifier.Warn(ctx, "model did not return a valid patch. abandoning this incident.")
			return l.forgetIfRetrying(ctx)
		}

		decision := l.deps.Guard.Evaluate(diffText)
		if !decision.Allowed {
			if err := l.transition(ctx, run, state.ActionBlockedByPolicy, "patch touched forbidden paths: "+decision.Reason); err != nil {
				return err
			}
			l.deps.Notifier.Warn(ctx, "patch blocked by policy (forbidden paths).")
			return nil
		}

		applied := l.deps.Applier.Apply(ctx, diffText, l.settings.MaxPatchBytes)
		if !applied.Applied {
			if err := l.fail(ctx, run, state.ActionApplyFailed, applied.Message, "failed to apply patch: "+patch.Truncate(applied.Message, noticeBudget)); err != nil {
				return err
			}
			continue
		}
		if err := l.abortIfDone(ctx, run); err != nil {
			return err
		}
		l.log.Info("[AUTOPILOT] patch applied", "incident", run.id, "attempt", attempt, "detail", applied.Message)

		checks := l.deps.Checks.Evaluate(ctx)
		if err := l.abortIfDone(ctx, run); err != nil {
			return err
		}
		if !checks.Passed {
			action, notice := state.ActionBuildFailed, "build failed; rolling back."
			if checks.Failure == gate.FailureTests {
				action, notice = state.ActionTestsFailed, "tests failed; rolling back."
			}
			if err := l.fail(ctx, run, action, checks.Output, notice); err != nil {
				return err
			}
			continue
		}

		if err := l.deps.Canary.EnsureCanary(ctx); err != nil {
			l.deps.Notifier.Warn(ctx, "canary launch reported an error: "+patch.Truncate(err.Error(), noticeBudget))
		}
		if err := l.abortIfDone(ctx, run); err != nil {
			return err
		}

		probe := l.deps.Prober.Check(ctx, l.settings.Smoke)
		if err := l.abortIfDone(ctx, run); err != nil {
			return err
		}
		if !probe.OK {
			if err := l.fail(ctx, run, state.ActionSmokeFailed, probe.Message, fmt.Sprintf("canary smoke failed; rolling back. (%s)", probe.Message)); err != nil {
				return err
			}
			continue
		}

		return l.promote(ctx, run)
	}

	l.log.Warn("[AUTOPILOT] attempts exhausted", "incident", run.id, "attempts", l.settings.MaxAttempts, "lastAction", l.state.LastAction)
	l.deps.Notifier.Warn(ctx, fmt.Sprintf("attempts exhausted (%d) without promotion; tree left at baseline %s.", l.settings.MaxAttempts, short(run.baseline)))
	return nil
}

// promote restarts the primary. A failed restart is reported but not compensated.
func (l *Loop) promote(ctx context.Context, run *incidentRun) error {
	if res := l.deps.Canary.RestartMain(ctx); !res.OK {
		l.deps.Notifier.Error(ctx, "primary restart failed: "+patch.Truncate(strings.TrimSpace(res.Output), errorBudget))
	}
	msg := "patch applied and validated via canary. smoke ok. main restarted. baseline=" + run.baseline
	if err := l.transition(ctx, run, state.ActionPromoted, msg); err != nil {
		return err
	}
	l.deps.Notifier.Info(ctx, "fix applied successfully (canary ok) and main restarted.")

	if l.settings.TeardownCanary {
		if res := l.deps.Canary.DeleteCanary(ctx); !res.OK {
			l.deps.Notifier.Warn(ctx, "canary teardown failed: "+patch.Truncate(strings.TrimSpace(res.Output), noticeBudget))
		}
	}
	return nil
}

// fail records a retryable outcome, announces it and resets to the baseline.
func (l *Loop) fail(ctx context.Context, run *incidentRun, action state.Action, detail, notice string) error {
	saveErr := l.transition(ctx, run, action, detail)
	l.deps.Notifier.Warn(ctx, notice)
	if err := l.rollback(ctx, run); err != nil {
		return err
	}
	return saveErr
}

// rollback runs on a context detached from cancellation so shutdown never skips it.
func (l *Loop) rollback(ctx context.Context, run *incidentRun) error {
	if l.deps.Metrics != nil {
		l.deps.Metrics.Rollbacks.Inc()
	}
	if err := l.deps.Repo.ResetHard(context.WithoutCancel(ctx), run.baseline, l.settings.RequireGitClean); err != nil {
		return fmt.Errorf("rollback to %s: %w", run.baseline, err)
	}
	l.log.Info("[AUTOPILOT] rolled back", "incident", run.id, "baseline", short(run.baseline))
	return nil
}

// abortIfDone rolls back the applied patch when ctx was cancelled mid-attempt.
func (l *Loop) abortIfDone(ctx context.Context, run *incidentRun) error {
	if ctx.Err() == nil {
		return nil
	}
	if err := l.rollback(ctx, run); err != nil {
		return errors.Join(ctx.Err(), err)
	}
	return ctx.Err()
}

// #endregion attempts

// #region state

func (l *Loop) transition(ctx context.Context, run *incidentRun, action state.Action, detail string) error {
	l.state.LastAction = action
	l.state.LastActionLog = detail
	if l.deps.Metrics != nil {
		l.deps.Metrics.Outcome(string(action))
	}
	l.journal(ctx, run, action, detail)
	return l.save(ctx)
}

func (l *Loop) forgetIfRetrying(ctx context.Context) error {
	if !l.settings.RetryAfterGenerationFailure {
		return nil
	}
	l.state.LastFingerprint = ""
	return l.save(ctx)
}

func (l *Loop) save(ctx context.Context) error {
	if err := l.deps.Store.Save(context.WithoutCancel(ctx), l.state); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (l *Loop) journal(ctx context.Context, run *incidentRun, action state.Action, detail string) {
	if l.deps.Journal == nil {
		return
	}
	err := l.deps.Journal.Record(context.WithoutCancel(ctx), logging.AttemptEntry{
		IncidentID:  run.id,
		Fingerprint: run.incident.Fingerprint,
		Attempt:     run.attempt,
		Action:      string(action),
		Baseline:    run.baseline,
		Message:     detail,
		CreatedAt:   l.deps.Now().UTC(),
	})
	if err != nil {
		l.log.Warn("[AUTOPILOT] journal write failed", "err", err)
	}
}

// #endregion state

// #region helpers
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func short(ref string) string {
	if len(ref) > 12 {
		return ref[:12]
	}
	return ref
}

// #endregion helpers
