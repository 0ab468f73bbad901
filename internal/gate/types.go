package gate

import "github.com/guriri-logistics/autopilot/internal/runner"

// #region check-config
// CheckConfig selects which checks run and how.
type CheckConfig struct {
	RunBuild bool
	RunTests bool
	Build    runner.Command
	Test     runner.Command
}

// DefaultCheckConfig returns the npm-based defaults (build on, tests off).
func DefaultCheckConfig() CheckConfig {
	return CheckConfig{
		RunBuild: true,
		RunTests: false,
		Build:    runner.Command{Name: "npm", Args: []string{"run", "build"}},
		Test:     runner.Command{Name: "npm", Args: []string{"test"}},
	}
}

// #endregion check-config

// #region gate-decision
// Failure identifies which check failed.
type Failure string

const (
	FailureNone  Failure = ""
	FailureBuild Failure = "build"
	FailureTests Failure = "tests"
)

// GateDecision is the output of running the checks.
type GateDecision struct {
	Passed  bool
	Failure Failure
	Output  string // combined output of the failing command, truncated
	Ran     []string
}

// #endregion gate-decision
