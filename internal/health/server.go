// Package health publishes host liveness over the standard gRPC health
// service and checks it from the controller side.
package health

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/rbright/liveosc/internal/logging"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Service is the health service name the host reports under, alongside "".
const Service = "liveosc.host"

// Serve runs a gRPC health server on lis until ctx is cancelled, then marks
// every service NOT_SERVING and stops gracefully.
func Serve(ctx context.Context, lis net.Listener, logger *slog.Logger) error {
	logger = logging.OrDiscard(logger)

	status := health.NewServer()
	status.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	status.SetServingStatus(Service, healthpb.HealthCheckResponse_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, status)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	logger.Info("health server listening", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		status.Shutdown()
		srv.GracefulStop()
		<-errCh
		logger.Info("health server stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}
