package pubsub

import (
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"go.uber.org/fx"

	"github.com/gridline/table-sync-service/config"
	infrapubsub "github.com/gridline/table-sync-service/infra/pubsub"
	"github.com/gridline/table-sync-service/internal/domain/table"
)

var Module = fx.Module("pubsub",
	fx.Provide(
		func(cfg *config.Config, logger *slog.Logger, wmLogger watermill.LoggerAdapter) (table.Exporter, error) {
			if cfg.AMQP.URL == "" {
				logger.Info("event export disabled, no amqp url configured")
				return table.NopExporter{}, nil
			}
			pub, err := infrapubsub.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, wmLogger)
			if err != nil {
				return nil, err
			}
			logger.Info("event export enabled", "exchange", cfg.AMQP.Exchange)
			return NewEventDispatcher(pub, logger), nil
		},
	),
)
