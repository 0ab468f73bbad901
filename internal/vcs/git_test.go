package vcs

import (
	"context"
	"errors"
	"testing"

	"github.com/guriri-logistics/autopilot/internal/runner"
)

func TestHead_Trims(t *testing.T) {
	f := runner.NewFake().On("git rev-parse HEAD", runner.Result{OK: true, Output: "abc123\n"})
	ref, err := NewGit(f).Head(context.Background())
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if ref != "abc123" {
		t.Errorf("expected abc123, got %q", ref)
	}
}

func TestHead_Failure(t *testing.T) {
	f := runner.NewFake().On("git rev-parse", runner.Result{OK: false, Output: "not a git repository"})
	if _, err := NewGit(f).Head(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureClean(t *testing.T) {
	clean := runner.NewFake().On("git status", runner.Result{OK: true, Output: "\n"})
	if err := NewGit(clean).EnsureClean(context.Background()); err != nil {
		t.Fatalf("expected clean tree, got %v", err)
	}

	dirty := runner.NewFake().On("git status", runner.Result{OK: true, Output: " M server/index.ts\n"})
	err := NewGit(dirty).EnsureClean(context.Background())
	if !errors.Is(err, ErrDirtyTree) {
		t.Fatalf("expected ErrDirtyTree, got %v", err)
	}
}

func TestResetHard_WithClean(t *testing.T) {
	f := runner.NewFake()
	if err := NewGit(f).ResetHard(context.Background(), "abc", true); err != nil {
		t.Fatalf("ResetHard: %v", err)
	}
	lines := f.CallLines()
	if len(lines) != 2 || lines[0] != "git reset --hard abc" || lines[1] != "git clean -fd" {
		t.Fatalf("unexpected calls: %v", lines)
	}
}

func TestResetHard_WithoutClean(t *testing.T) {
	f := runner.NewFake()
	if err := NewGit(f).ResetHard(context.Background(), "abc", false); err != nil {
		t.Fatalf("ResetHard: %v", err)
	}
	if n := f.Count("git clean"); n != 0 {
		t.Errorf("expected no git clean, got %d", n)
	}
}

func TestResetHard_Failure(t *testing.T) {
	f := runner.NewFake().On("git reset", runner.Result{OK: false, Output: "bad ref"})
	if err := NewGit(f).ResetHard(context.Background(), "nope", true); err == nil {
		t.Fatal("expected error")
	}
	if n := f.Count("git clean"); n != 0 {
		t.Errorf("clean must not run after a failed reset")
	}
}
