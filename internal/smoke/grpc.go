package smoke

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// #region grpc-prober

// GRPCProber calls grpc.health.v1.Health/Check on the target port.
// Target.Path is ignored; Service names the health service ("" is the server as a whole).
type GRPCProber struct {
	Service string
	host    string
}

// NewGRPCProber creates a health-check prober for the loopback interface.
func NewGRPCProber(service string) *GRPCProber {
	return &GRPCProber{Service: service, host: "127.0.0.1"}
}

// Check dials, asks for the serving status and closes the connection.
func (p *GRPCProber) Check(ctx context.Context, target Target) Result {
	timeout := target.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	addr := fmt.Sprintf("%s:%d", p.host, target.Port)
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return Result{OK: false, Message: fmt.Sprintf("grpc dial %s: %v", addr, err)}
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: p.Service})
	if err != nil {
		return Result{OK: false, Message: err.Error()}
	}
	status := resp.GetStatus()
	return Result{
		OK:      status == healthpb.HealthCheckResponse_SERVING,
		Message: "status=" + status.String(),
	}
}

// #endregion grpc-prober
