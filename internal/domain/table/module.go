package table

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/gridline/table-sync-service/config"
)

var Module = fx.Module("table",
	fx.Provide(
		func(cfg *config.Config, store Store, exporter Exporter, logger *slog.Logger) *Registry {
			return NewRegistry(store, exporter, logger,
				WithHubCapacity(cfg.Table.HubCapacity),
			)
		},
	),
	fx.Invoke(func(lc fx.Lifecycle, r *Registry) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				r.Shutdown()
				return nil
			},
		})
	}),
)
