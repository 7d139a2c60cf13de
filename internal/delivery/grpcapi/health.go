package grpcapi

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	ServiceName = "payment.PaymentService"
	SweeperName = "payment.Sweeper"
)

// HealthReporter publishes readiness over the standard gRPC health protocol.
// The overall ("") and service entries follow the process; the sweeper
// entry follows the result of the last reconciliation pass.
type HealthReporter struct {
	server *health.Server
}

func NewHealthReporter() *HealthReporter {
	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(SweeperName, healthpb.HealthCheckResponse_UNKNOWN)
	return &HealthReporter{server: hs}
}

func (h *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

func (h *HealthReporter) SetReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

func (h *HealthReporter) SweepFinished(err error) {
	status := healthpb.HealthCheckResponse_SERVING
	if err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus(SweeperName, status)
}

// Shutdown flips every entry to NOT_SERVING and ignores later updates.
func (h *HealthReporter) Shutdown() {
	h.server.Shutdown()
}
