package runner

import (
	"context"
	"strings"
	"sync"
)

// #region fake

// Fake is a scripted Runner for tests and replay. Responses are matched by
// command-line prefix; the longest matching prefix wins. Each prefix may hold a
// queue of results consumed in order, with the last one repeating.
type Fake struct {
	mu        sync.Mutex
	responses map[string][]Result
	Calls     []Command
}

// NewFake creates an empty fake. Unmatched commands succeed with no output.
func NewFake() *Fake {
	return &Fake{responses: make(map[string][]Result)}
}

// On queues results for commands whose rendered line starts with prefix.
func (f *Fake) On(prefix string, results ...Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = append(f.responses[prefix], results...)
	return f
}

// Run records the call and returns the scripted result.
func (f *Fake) Run(_ context.Context, cmd Command) Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, cmd)

	line := cmd.String()
	best := ""
	found := false
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) >= len(best) {
			best = prefix
			found = true
		}
	}
	if !found {
		return Result{OK: true}
	}
	queue := f.responses[best]
	res := queue[0]
	if len(queue) > 1 {
		f.responses[best] = queue[1:]
	}
	return res
}

// CallLines returns every recorded command line in order.
func (f *Fake) CallLines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.Calls))
	for i, c := range f.Calls {
		out[i] = c.String()
	}
	return out
}

// Count returns how many recorded command lines start with prefix.
func (f *Fake) Count(prefix string) int {
	n := 0
	for _, line := range f.CallLines() {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

// #endregion fake
