package smoke

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const bodyBudget = 200

// #region http-prober

// HTTPProber issues a GET against 127.0.0.1 and expects status 200.
type HTTPProber struct {
	client *http.Client
	host   string
}

// NewHTTPProber creates a prober for the loopback interface.
func NewHTTPProber() *HTTPProber {
	return &HTTPProber{client: &http.Client{}, host: "127.0.0.1"}
}

// URL renders the probe address; a missing leading slash is added to the path.
func (p *HTTPProber) URL(target Target) string {
	path := target.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return fmt.Sprintf("http://%s:%d%s", p.host, target.Port, path)
}

// Check performs the probe within target.Timeout.
func (p *HTTPProber) Check(ctx context.Context, target Target) Result {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL(target), nil)
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, bodyBudget))
	return Result{
		OK:      resp.StatusCode == http.StatusOK,
		Message: fmt.Sprintf("status=%d body=%s", resp.StatusCode, body),
	}
}

// #endregion http-prober
