package server

import (
	"context"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside the overall "" status.
const ServiceName = "order-intake"

// Pinger is satisfied by *repository.DB.
type Pinger interface {
	HealthCheck(ctx context.Context, timeout time.Duration) error
}

// Admin is the gRPC admin listener: standard health checking and reflection for grpcurl.
type Admin struct {
	grpc   *grpc.Server
	health *health.Server
	db     Pinger
	logger *slog.Logger
}

func NewAdmin(db Pinger, logger *slog.Logger) *Admin {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)
	a := &Admin{grpc: gs, health: hs, db: db, logger: logger}
	a.setServing(false)
	return a
}

func (a *Admin) setServing(ok bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if ok {
		st = healthpb.HealthCheckResponse_SERVING
	}
	a.health.SetServingStatus("", st)
	a.health.SetServingStatus(ServiceName, st)
}

// Check pings the database once and updates the reported status.
func (a *Admin) Check(ctx context.Context) bool {
	err := a.db.HealthCheck(ctx, 3*time.Second)
	if err != nil {
		a.logger.Warn("database ping failed", "error", err)
	}
	a.setServing(err == nil)
	return err == nil
}

// Watch re-checks the database every interval until ctx ends.
func (a *Admin) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	a.Check(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.Check(ctx)
		}
	}
}

func (a *Admin) Serve(lis net.Listener) error {
	a.logger.Info("gRPC admin serving", "addr", lis.Addr().String())
	return a.grpc.Serve(lis)
}

// Stop marks the service as not serving and drains in-flight RPCs.
func (a *Admin) Stop() {
	a.health.Shutdown()
	a.grpc.GracefulStop()
}
