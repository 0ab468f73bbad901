package autopilot

import (
	"context"
	"time"

	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/gate"
	"github.com/guriri-logistics/autopilot/internal/logging"
	"github.com/guriri-logistics/autopilot/internal/patch"
	"github.com/guriri-logistics/autopilot/internal/runner"
	"github.com/guriri-logistics/autopilot/internal/smoke"
)

// #region settings

// Settings are the loop knobs taken from config.
type Settings struct {
	DryRun          bool
	MaxAttempts     int
	Interval        time.Duration
	RequireGitClean bool
	MaxPatchBytes   int
	Smoke           smoke.Target
	// TeardownCanary deletes the canary after a successful promotion.
	TeardownCanary bool
	// RetryAfterGenerationFailure forgets the fingerprint after a generation
	// error or a non-diff reply so the next tick tries the incident again.
	RetryAfterGenerationFailure bool
}

// #endregion settings

// #region collaborators

// Detector produces at most one incident per call.
type Detector interface {
	Detect() *detect.Incident
}

// PatchGenerator asks the model for a diff.
type PatchGenerator interface {
	Generate(ctx context.Context, rails patch.Guardrails, incident detect.Incident, lastActionLog string) (string, error)
}

// Repo is the version-control surface the loop needs.
type Repo interface {
	EnsureClean(ctx context.Context) error
	Head(ctx context.Context) (string, error)
	ResetHard(ctx context.Context, ref string, removeUntracked bool) error
}

// Checks runs the build/test gate.
type Checks interface {
	Evaluate(ctx context.Context) gate.GateDecision
}

// Canary starts the candidate process and promotes the primary.
type Canary interface {
	EnsureCanary(ctx context.Context) error
	RestartMain(ctx context.Context) runner.Result
	DeleteCanary(ctx context.Context) runner.Result
}

// Recorder persists per-phase outcomes.
type Recorder interface {
	Record(ctx context.Context, entry logging.AttemptEntry) error
}

// #endregion collaborators
