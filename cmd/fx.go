package cmd

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"

	"github.com/gridline/table-sync-service/config"
	grpcsrv "github.com/gridline/table-sync-service/infra/server/grpc"
	httpsrv "github.com/gridline/table-sync-service/infra/server/http"
	"github.com/gridline/table-sync-service/internal/adapter/postgres"
	"github.com/gridline/table-sync-service/internal/adapter/pubsub"
	"github.com/gridline/table-sync-service/internal/domain/table"
	"github.com/gridline/table-sync-service/internal/handler/stats"
	wshandler "github.com/gridline/table-sync-service/internal/handler/ws"
	"github.com/gridline/table-sync-service/internal/service"
)

func NewApp(cfg *config.Config) *fx.App {
	return fx.New(
		fx.Provide(
			func() *config.Config { return cfg },
			ProvideLogger,
			ProvideWatermillLogger,
			ProvideTracerProvider,
			func(r *table.Registry) stats.Provider { return r },
			stats.NewHandler,
		),
		fx.Invoke(func(*sdktrace.TracerProvider) {}),
		postgres.Module,
		pubsub.Module,
		table.Module,
		service.Module,
		wshandler.Module,
		httpsrv.Module,
		grpcsrv.Module,
	)
}
