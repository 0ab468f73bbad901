package patch

import (
	"context"
	"regexp"
	"strings"

	"github.com/guriri-logistics/autopilot/internal/detect"
	"github.com/guriri-logistics/autopilot/internal/llm"
)

// #region constants
const (
	excerptBudget   = 14000
	lastLogBudget   = 2000
	temperature     = 0.1
	systemDirective = "Reply only with a unified diff that `git apply` accepts. Nothing else."
)

// #endregion constants

// #region generator

// Guardrails are the path lists shown to the model.
type Guardrails struct {
	Allow string // human-readable allow list
	Deny  string // human-readable deny list
}

// Generator asks a Completer for a fix.
type Generator struct {
	completer llm.Completer
}

// NewGenerator wraps a Completer.
func NewGenerator(c llm.Completer) *Generator {
	return &Generator{completer: c}
}

// Generate issues one low-temperature completion and returns the trimmed reply.
// Completer errors, including llm.ErrMissingCredential, are returned unchanged.
func (g *Generator) Generate(ctx context.Context, rails Guardrails, incident detect.Incident, lastActionLog string) (string, error) {
	prompt := BuildPrompt(rails, incident, lastActionLog)
	out, err := g.completer.Complete(ctx, []llm.Message{
		llm.System(systemDirective),
		llm.User(prompt),
	}, temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// #endregion generator

// #region prompt

// BuildPrompt renders the fix request. The excerpt and previous action log are
// truncated to bound token cost.
func BuildPrompt(rails Guardrails, incident detect.Incident, lastActionLog string) string {
	allow := rails.Allow
	if allow == "" {
		allow = "(none defined)"
	}
	deny := rails.Deny
	if deny == "" {
		deny = "(none defined)"
	}
	return strings.Join([]string{
		"You are a bug-fixing agent for a Node/Express + React/Vite app.",
		"Produce ONLY a patch in unified diff format (git apply). No explanations, no markdown.",
		"Mandatory rules:",
		"- You may only modify paths starting with: " + allow + ".",
		"- You must NOT touch: " + deny + ".",
		"- Do not change package scripts, infrastructure, Docker, nginx, or secrets.",
		"- Keep changes small and safe; prefer a local root-cause fix with minimal impact.",
		"- If you are not sure, produce an empty (NO-OP) patch.",
		"",
		"INCIDENT SIGNALS (logs):",
		Truncate(incident.Excerpt, excerptBudget),
		"",
		"LAST AGENT RUN (to avoid loops):",
		Truncate(lastActionLog, lastLogBudget),
	}, "\n")
}

// #endregion prompt

// #region shape-check

var (
	diffGitHeader = regexp.MustCompile(`(?m)^diff --git\s`)
	newFileHeader = regexp.MustCompile(`(?m)^\+\+\+\s`)
	oldFileHeader = regexp.MustCompile(`(?m)^---\s`)
)

// LooksLikeUnifiedDiff reports whether text carries diff headers: a
// `diff --git` line, or both `---` and `+++` lines.
func LooksLikeUnifiedDiff(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	if diffGitHeader.MatchString(text) {
		return true
	}
	return newFileHeader.MatchString(text) && oldFileHeader.MatchString(text)
}

// #endregion shape-check

// #region helpers

// Truncate returns at most n bytes of s without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// #endregion helpers
