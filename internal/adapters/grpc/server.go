package grpc

import (
	"context"

	"github.com/viralforge/reelpay/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthServer reports SERVING while the ledger store accepts transactions.
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	store ports.Store
}

func NewHealthServer(store ports.Store) *HealthServer {
	return &HealthServer{store: store}
}

func Register(server grpc.ServiceRegistrar, svc *HealthServer) {
	grpc_health_v1.RegisterHealthServer(server, svc)
}

func (s *HealthServer) Check(ctx context.Context, _ *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: s.status(ctx)}, nil
}

func (s *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	if req.GetService() != "" && req.GetService() != grpc_health_v1.Health_ServiceDesc.ServiceName {
		return status.Error(codes.NotFound, "unknown service")
	}
	return stream.Send(&grpc_health_v1.HealthCheckResponse{Status: s.status(stream.Context())})
}

func (s *HealthServer) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		_, _, err := tx.Settings().Get(ctx, ports.SettingSettlementEngine)
		return err
	})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}
