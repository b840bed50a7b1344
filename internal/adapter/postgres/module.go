package postgres

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/gridline/table-sync-service/config"
	"github.com/gridline/table-sync-service/internal/domain/table"
)

var Module = fx.Module("postgres",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger) (*Store, error) {
			return NewStore(cfg.Postgres.DSN, logger)
		},
		func(s *Store) table.Store { return s },
	),
	fx.Invoke(func(lc fx.Lifecycle, s *Store) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return s.Ping(ctx)
			},
			OnStop: func(context.Context) error {
				return s.Close()
			},
		})
	}),
)
