package replay

import (
	"context"

	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/llm"
	"github.com/guriri-logistics/autopilot/internal/smoke"
)

// #region fakes

type fixedDetector struct {
	incident *detect.Incident
}

func (d fixedDetector) Detect() *detect.Incident { return d.incident }

// scriptedCompleter returns replies in order, repeating the last one.
type scriptedCompleter struct {
	replies []string
	err     error
	calls   int
}

func (c *scriptedCompleter) Complete(_ context.Context, _ []llm.Message, _ float32) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	r := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return r, nil
}

// scriptedProber answers in order, repeating the last answer. No answers means healthy.
type scriptedProber struct {
	answers []FixtureResult
}

func (p *scriptedProber) Check(_ context.Context, _ smoke.Target) smoke.Result {
	if len(p.answers) == 0 {
		return smoke.Result{OK: true, Message: "status=200 body=ok"}
	}
	a := p.answers[0]
	if len(p.answers) > 1 {
		p.answers = p.answers[1:]
	}
	return smoke.Result{OK: a.OK, Message: a.Output}
}

// #endregion fakes
