package gate

import (
	"context"

	"github.com/guriri-logistics/autopilot/internal/patch"
	"github.com/guriri-logistics/autopilot/internal/runner"
)

// OutputBudget caps the failure output kept for the next prompt.
const OutputBudget = 4000

// #region gate

// Gate runs the optional build and test commands against the patched tree.
type Gate struct {
	config CheckConfig
	run    runner.Runner
}

// NewGate creates a gate with the given configuration.
func NewGate(config CheckConfig, r runner.Runner) *Gate {
	return &Gate{config: config, run: r}
}

// Evaluate runs build then tests, stopping at the first failure.
func (g *Gate) Evaluate(ctx context.Context) GateDecision {
	var ran []string

	if g.config.RunBuild {
		ran = append(ran, g.config.Build.String())
		res := g.run.Run(ctx, g.config.Build)
		if !res.OK {
			return GateDecision{Passed: false, Failure: FailureBuild, Output: patch.Truncate(res.Output, OutputBudget), Ran: ran}
		}
	}

	if g.config.RunTests {
		ran = append(ran, g.config.Test.String())
		res := g.run.Run(ctx, g.config.Test)
		if !res.OK {
			return GateDecision{Passed: false, Failure: FailureTests, Output: patch.Truncate(res.Output, OutputBudget), Ran: ran}
		}
	}

	return GateDecision{Passed: true, Ran: ran}
}

// #endregion gate
