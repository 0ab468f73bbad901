package smoke

import (
	"context"
	"time"
)

// #region types

// Target identifies the local endpoint to probe.
type Target struct {
	Port    int
	Path    string
	Timeout time.Duration
}

// Result is the outcome of one probe.
type Result struct {
	OK      bool
	Message string
}

// Prober checks that a freshly started process is healthy.
type Prober interface {
	Check(ctx context.Context, target Target) Result
}

// DefaultTimeout bounds a probe when the target carries none.
const DefaultTimeout = 5 * time.Second

// #endregion types
