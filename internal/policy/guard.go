package policy

import (
	"fmt"
	"regexp"
	"strings"
)

// #region guard

// Guard checks that a diff only touches permitted paths.
type Guard struct {
	allow []string
	deny  []string
}

// NewGuard creates a guard. An empty allow list permits any path not denied.
func NewGuard(allow, deny []string) *Guard {
	return &Guard{allow: allow, deny: deny}
}

// Allowed reports whether the diff may be applied.
func (g *Guard) Allowed(diffText string) bool {
	return g.Evaluate(diffText).Allowed
}

// Evaluate checks every path named in the diff headers. Deny beats allow.
// A diff with no extractable paths is allowed: the guard cannot restrict
// what it cannot see.
func (g *Guard) Evaluate(diffText string) Decision {
	paths := ExtractPaths(diffText)
	if len(paths) == 0 {
		return Decision{Allowed: true, Reason: "no paths in diff headers"}
	}

	var vetoes []Veto
	for _, p := range paths {
		if rule, ok := g.denied(p); ok {
			vetoes = append(vetoes, Veto{
				Type:   VetoDenied,
				Path:   p,
				Rule:   rule,
				Reason: fmt.Sprintf("%s matches deny rule %q", p, rule),
			})
			continue
		}
		if len(g.allow) > 0 && !g.allowed(p) {
			vetoes = append(vetoes, Veto{
				Type:   VetoOutsideAllow,
				Path:   p,
				Reason: fmt.Sprintf("%s is outside the allow list", p),
			})
		}
	}

	if len(vetoes) > 0 {
		return Decision{
			Allowed: false,
			Paths:   paths,
			Vetoes:  vetoes,
			Reason:  vetoes[0].Reason,
		}
	}
	return Decision{Allowed: true, Paths: paths, Reason: fmt.Sprintf("%d path(s) within policy", len(paths))}
}

// Describe renders the allow and deny lists for a prompt.
func (g *Guard) Describe() (allow, deny string) {
	return joinOrNone(g.allow), joinOrNone(g.deny)
}

// #endregion guard

// #region helpers

func (g *Guard) denied(p string) (string, bool) {
	for _, d := range g.deny {
		if d == "" {
			continue
		}
		if strings.HasPrefix(p, d) || strings.Contains(p, d) {
			return d, true
		}
	}
	return "", false
}

func (g *Guard) allowed(p string) bool {
	for _, a := range g.allow {
		if strings.HasPrefix(p, a) {
			return true
		}
	}
	return false
}

var lineSplit = regexp.MustCompile(`\r?\n`)

// ExtractPaths returns the paths named by `+++ b/` and `--- a/` header lines,
// skipping /dev/null.
func ExtractPaths(diffText string) []string {
	var paths []string
	for _, line := range lineSplit.Split(diffText, -1) {
		var p string
		switch {
		case strings.HasPrefix(line, "+++ b/"):
			p = strings.TrimPrefix(line, "+++ b/")
		case strings.HasPrefix(line, "--- a/"):
			p = strings.TrimPrefix(line, "--- a/")
		default:
			continue
		}
		p = strings.TrimSpace(p)
		if p == "" || p == "/dev/null" {
			continue
		}
		paths = append(paths, p)
	}
	return paths
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none defined)"
	}
	return strings.Join(items, ", ")
}

// #endregion helpers
