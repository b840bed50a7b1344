// Package grpc hosts the admin server: the standard health service the
// platform's probes talk to. Disabled when no listen address is configured.
package grpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/fx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/gridline/table-sync-service/config"
)

type Server struct {
	srv    *grpc.Server
	health *health.Server
	addr   string
	logger *slog.Logger
}

func NewServer(cfg *config.Config, logger *slog.Logger) *Server {
	if cfg.GRPC.Listen == "" {
		return &Server{logger: logger}
	}

	recoveryHandler := recovery.WithRecoveryHandler(func(p any) error {
		logger.Error("grpc handler panic recovered", "panic", p)
		return fmt.Errorf("internal error")
	})

	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(recovery.UnaryServerInterceptor(recoveryHandler)),
		grpc.ChainStreamInterceptor(recovery.StreamServerInterceptor(recoveryHandler)),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &Server{srv: srv, health: hs, addr: cfg.GRPC.Listen, logger: logger}
}

func (s *Server) Start() error {
	if s.srv == nil {
		s.logger.Info("admin grpc server disabled")
		return nil
	}
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", s.addr, err)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("admin grpc server listening", "addr", s.addr)
	go func() {
		if err := s.srv.Serve(lis); err != nil {
			s.logger.Error("grpc server failed", "error", err)
		}
	}()
	return nil
}

func (s *Server) Stop() {
	if s.srv == nil {
		return
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.srv.GracefulStop()
}

var Module = fx.Module("grpc-server",
	fx.Provide(NewServer),
	fx.Invoke(func(lc fx.Lifecycle, s *Server) {
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error { return s.Start() },
			OnStop: func(context.Context) error {
				s.Stop()
				return nil
			},
		})
	}),
)
