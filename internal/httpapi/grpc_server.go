package httpapi

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/Auth-Wave/authwave-backend/internal/obs"
)

// GRPCServer exposes the standard gRPC health service, backed by the same
// readiness probe as /readyz so orchestrators can watch either surface.
type GRPCServer struct {
	srv       *grpc.Server
	health    *health.Server
	readiness readinessChecker
	interval  time.Duration
}

// NewGRPCServer creates the gRPC health wrapper.
func NewGRPCServer(r readinessChecker) *GRPCServer {
	srv := grpc.NewServer()
	h := health.NewServer()
	healthpb.RegisterHealthServer(srv, h)
	return &GRPCServer{
		srv:       srv,
		health:    h,
		readiness: r,
		interval:  10 * time.Second,
	}
}

// Serve blocks serving gRPC until the listener fails or ctx is cancelled.
// Readiness is re-evaluated on a fixed interval.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.refresh(ctx)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.srv.GracefulStop()
				return
			case <-ticker.C:
				s.refresh(ctx)
			}
		}
	}()
	return s.srv.Serve(lis)
}

func (s *GRPCServer) refresh(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	ready := true
	if s.readiness != nil {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := s.readiness.Check(checkCtx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			ready = false
		}
	}
	obs.SetReady(ready)
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(serviceName, status)
}
