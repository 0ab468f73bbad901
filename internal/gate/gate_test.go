package gate

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/guriri-logistics/autopilot/internal/runner"
)

func TestEvaluate_DefaultBuildOnly(t *testing.T) {
	f := runner.NewFake()
	d := NewGate(DefaultCheckConfig(), f).Evaluate(context.Background())
	if !d.Passed {
		t.Fatalf("expected pass, got %+v", d)
	}
	lines := f.CallLines()
	if len(lines) != 1 || lines[0] != "npm run build" {
		t.Fatalf("expected only the build to run, got %v", lines)
	}
}

func TestEvaluate_NothingEnabled(t *testing.T) {
	f := runner.NewFake()
	cfg := DefaultCheckConfig()
	cfg.RunBuild = false
	d := NewGate(cfg, f).Evaluate(context.Background())
	if !d.Passed {
		t.Fatal("expected pass with no checks")
	}
	if len(f.Calls) != 0 {
		t.Errorf("expected no commands, got %v", f.CallLines())
	}
}

func TestEvaluate_BuildFailureSkipsTests(t *testing.T) {
	f := runner.NewFake().On("npm run build", runner.Result{OK: false, Output: "tsc: error TS2304"})
	cfg := DefaultCheckConfig()
	cfg.RunTests = true
	d := NewGate(cfg, f).Evaluate(context.Background())
	if d.Passed || d.Failure != FailureBuild {
		t.Fatalf("expected build failure, got %+v", d)
	}
	if d.Output != "tsc: error TS2304" {
		t.Errorf("unexpected output %q", d.Output)
	}
	if f.Count("npm test") != 0 {
		t.Error("tests must not run after a failed build")
	}
}

func TestEvaluate_TestFailure(t *testing.T) {
	f := runner.NewFake().On("npm test", runner.Result{OK: false, Output: "1 failing"})
	cfg := DefaultCheckConfig()
	cfg.RunTests = true
	d := NewGate(cfg, f).Evaluate(context.Background())
	if d.Passed || d.Failure != FailureTests {
		t.Fatalf("expected test failure, got %+v", d)
	}
	if len(d.Ran) != 2 {
		t.Errorf("expected both commands recorded, got %v", d.Ran)
	}
}

func TestEvaluate_OutputTruncated(t *testing.T) {
	f := runner.NewFake().On("npm run build", runner.Result{OK: false, Output: strings.Repeat("x", OutputBudget*2)})
	d := NewGate(DefaultCheckConfig(), f).Evaluate(context.Background())
	if len(d.Output) != OutputBudget {
		t.Errorf("expected %d bytes, got %d", OutputBudget, len(d.Output))
	}
}

func TestEvaluate_OutputTruncatedOnRuneBoundary(t *testing.T) {
	// "é" is two bytes; the budget lands in the middle of one
	out := "x" + strings.Repeat("é", OutputBudget)
	f := runner.NewFake().On("npm run build", runner.Result{OK: false, Output: out})
	d := NewGate(DefaultCheckConfig(), f).Evaluate(context.Background())
	if !utf8.ValidString(d.Output) {
		t.Fatal("truncated output is not valid UTF-8")
	}
	if len(d.Output) != OutputBudget-1 {
		t.Errorf("expected %d bytes, got %d", OutputBudget-1, len(d.Output))
	}
}
