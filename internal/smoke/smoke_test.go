package smoke

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func portOf(t *testing.T, addr string) int {
	t.Helper()
	_, p, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	n, err := strconv.Atoi(p)
	require.NoError(t, err)
	return n
}

// #region http

func TestHTTPProber_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res := NewHTTPProber().Check(context.Background(), Target{Port: portOf(t, srv.Listener.Addr().String()), Path: "health", Timeout: time.Second})
	assert.True(t, res.OK)
	assert.Equal(t, `status=200 body={"ok":true}`, res.Message)
}

func TestHTTPProber_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(strings.Repeat("z", 1000)))
	}))
	defer srv.Close()

	res := NewHTTPProber().Check(context.Background(), Target{Port: portOf(t, srv.Listener.Addr().String()), Path: "/health"})
	assert.False(t, res.OK)
	assert.True(t, strings.HasPrefix(res.Message, "status=503 body="))
	assert.Equal(t, len("status=503 body=")+bodyBudget, len(res.Message))
}

func TestHTTPProber_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	res := NewHTTPProber().Check(context.Background(), Target{Port: portOf(t, srv.Listener.Addr().String()), Path: "/health", Timeout: 50 * time.Millisecond})
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Message)
}

func TestHTTPProber_ConnectionRefused(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := portOf(t, l.Addr().String())
	l.Close()

	res := NewHTTPProber().Check(context.Background(), Target{Port: port, Path: "/health", Timeout: time.Second})
	assert.False(t, res.OK)
}

func TestHTTPProber_URL(t *testing.T) {
	p := NewHTTPProber()
	assert.Equal(t, "http://127.0.0.1:5010/health", p.URL(Target{Port: 5010, Path: "health"}))
	assert.Equal(t, "http://127.0.0.1:5010/", p.URL(Target{Port: 5010}))
}

// #endregion http

// #region grpc

func startHealthServer(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	srv := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus("", status)
	healthpb.RegisterHealthServer(srv, hs)
	go srv.Serve(l)
	t.Cleanup(srv.Stop)
	return portOf(t, l.Addr().String())
}

func TestGRPCProber_Serving(t *testing.T) {
	port := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	res := NewGRPCProber("").Check(context.Background(), Target{Port: port, Timeout: 2 * time.Second})
	assert.True(t, res.OK, res.Message)
	assert.Equal(t, "status=SERVING", res.Message)
}

func TestGRPCProber_NotServing(t *testing.T) {
	port := startHealthServer(t, healthpb.HealthCheckResponse_NOT_SERVING)
	res := NewGRPCProber("").Check(context.Background(), Target{Port: port, Timeout: 2 * time.Second})
	assert.False(t, res.OK)
	assert.Equal(t, "status=NOT_SERVING", res.Message)
}

func TestGRPCProber_UnknownService(t *testing.T) {
	port := startHealthServer(t, healthpb.HealthCheckResponse_SERVING)
	res := NewGRPCProber("billing.v1.Billing").Check(context.Background(), Target{Port: port, Timeout: 2 * time.Second})
	assert.False(t, res.OK)
}

// #endregion grpc
