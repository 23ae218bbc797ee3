package grpc

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// probe runs check immediately and then every interval until ctx is done.
func (s *GRPCServer) probe(ctx context.Context) {
	s.check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.check(ctx)
		}
	}
}

func (s *GRPCServer) check(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	if err := s.db.Ping(pingCtx); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn(ctx, "health probe failed", "error", err)
			s.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		}
		return
	}
	s.setStatus(healthpb.HealthCheckResponse_SERVING)
}
