package runner

import (
	"context"
	"strings"
	"testing"
)

// #region merge-env-tests

func TestMergeEnv_OverridesAndAppends(t *testing.T) {
	base := []string{"PATH=/bin", "PORT=5000"}
	got := MergeEnv(base, map[string]string{"PORT": "5010", "NODE_ENV": "production"})

	want := []string{"PATH=/bin", "PORT=5010", "NODE_ENV=production"}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestMergeEnv_EmptyExtra(t *testing.T) {
	got := MergeEnv([]string{"A=1"}, nil)
	if len(got) != 1 || got[0] != "A=1" {
		t.Fatalf("unexpected env: %v", got)
	}
}

// #endregion merge-env-tests

// #region exec-runner-tests

func TestExecRunner_Success(t *testing.T) {
	r := NewExecRunner("")
	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo hello"}})
	if !res.OK {
		t.Fatalf("expected OK, output=%q", res.Output)
	}
	if strings.TrimSpace(res.Output) != "hello" {
		t.Errorf("expected 'hello', got %q", res.Output)
	}
}

func TestExecRunner_FailureCapturesStderr(t *testing.T) {
	r := NewExecRunner("")
	res := r.Run(context.Background(), Command{Name: "sh", Args: []string{"-c", "echo out; echo boom >&2; exit 3"}})
	if res.OK {
		t.Fatal("expected failure")
	}
	if !strings.Contains(res.Output, "out") || !strings.Contains(res.Output, "boom") {
		t.Errorf("expected stdout and stderr in output, got %q", res.Output)
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner("")
	res := r.Run(context.Background(), Command{Name: "definitely-not-a-binary-xyz"})
	if res.OK {
		t.Fatal("expected failure for missing binary")
	}
	if res.Output == "" {
		t.Error("expected error text in output")
	}
}

func TestExecRunner_Env(t *testing.T) {
	r := NewExecRunner("")
	res := r.Run(context.Background(), Command{
		Name: "sh",
		Args: []string{"-c", "echo $AUTOPILOT_TEST_VAR"},
		Env:  map[string]string{"AUTOPILOT_TEST_VAR": "canary"},
	})
	if strings.TrimSpace(res.Output) != "canary" {
		t.Errorf("expected env to reach child, got %q", res.Output)
	}
}

// #endregion exec-runner-tests

// #region fake-tests

func TestFake_LongestPrefixAndQueue(t *testing.T) {
	f := NewFake().
		On("git", Result{OK: true, Output: "generic"}).
		On("git rev-parse", Result{OK: true, Output: "abc"}, Result{OK: true, Output: "def"})

	ctx := context.Background()
	if got := f.Run(ctx, Command{Name: "git", Args: []string{"rev-parse", "HEAD"}}).Output; got != "abc" {
		t.Errorf("expected abc, got %q", got)
	}
	if got := f.Run(ctx, Command{Name: "git", Args: []string{"rev-parse", "HEAD"}}).Output; got != "def" {
		t.Errorf("expected def, got %q", got)
	}
	// last result repeats
	if got := f.Run(ctx, Command{Name: "git", Args: []string{"rev-parse", "HEAD"}}).Output; got != "def" {
		t.Errorf("expected def to repeat, got %q", got)
	}
	if got := f.Run(ctx, Command{Name: "git", Args: []string{"status"}}).Output; got != "generic" {
		t.Errorf("expected generic, got %q", got)
	}
	if n := f.Count("git rev-parse"); n != 3 {
		t.Errorf("expected 3 rev-parse calls, got %d", n)
	}
}

func TestFake_UnmatchedSucceeds(t *testing.T) {
	f := NewFake()
	res := f.Run(context.Background(), Command{Name: "pm2", Args: []string{"jlist"}})
	if !res.OK {
		t.Fatal("expected unmatched command to succeed")
	}
}

// #endregion fake-tests
