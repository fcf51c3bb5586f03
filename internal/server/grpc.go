package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
)

// NewGRPCServer builds a gRPC server with ReviewService and the standard health
// service registered. The returned health server lets callers flip serving status.
func NewGRPCServer(review ReviewServiceServer, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	RegisterReviewServiceServer(srv, review)

	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(srv, healthServer)
	// empty string means overall server health
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(ReviewServiceName, grpc_health_v1.HealthCheckResponse_SERVING)
	return srv, healthServer
}

func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		log := common.LoggerFromContext(ctx, logger)
		code := status.Code(err)
		if err != nil {
			log.Warn("grpc.request", "method", info.FullMethod, "code", code.String(), "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
		} else {
			log.Debug("grpc.request", "method", info.FullMethod, "code", code.String(), "elapsed_ms", time.Since(start).Milliseconds())
		}
		return resp, err
	}
}
