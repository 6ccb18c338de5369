package callrisk

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"callguard/pkg/logger"
)

// CheckFunc probes one dependency
type CheckFunc func(ctx context.Context) error

// RegisterHealthServer registers the gRPC health service and keeps its
// status current by running checks every interval until ctx ends.
func RegisterHealthServer(
	ctx context.Context,
	grpcServer *grpc.Server,
	checks map[string]CheckFunc,
	interval time.Duration,
	log *logger.Logger,
) *health.Server {
	healthServer := health.NewServer()
	setStatus(healthServer, grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	if len(checks) == 0 || interval <= 0 {
		return healthServer
	}

	log = log.WithComponent("grpc-health")
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			setStatus(healthServer, runChecks(ctx, checks, log))
			select {
			case <-ctx.Done():
				healthServer.Shutdown()
				return
			case <-ticker.C:
			}
		}
	}()

	return healthServer
}

func runChecks(ctx context.Context, checks map[string]CheckFunc, log *logger.Logger) grpc_health_v1.HealthCheckResponse_ServingStatus {
	result := grpc_health_v1.HealthCheckResponse_SERVING
	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("dependency", name).Msg("health check failed")
			result = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	return result
}

func setStatus(s *health.Server, st grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.SetServingStatus("", st)
	s.SetServingStatus(ServiceName, st)
}
