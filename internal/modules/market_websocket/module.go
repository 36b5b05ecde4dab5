package market_websocket

import (
	"crossover_bot/internal/models"
	cache "crossover_bot/internal/modules/cache/service"
	"crossover_bot/internal/modules/config"
	health "crossover_bot/internal/modules/health/service"
	"crossover_bot/internal/modules/market_websocket/service"
	notify "crossover_bot/internal/modules/notify/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewClient(cfg *config.Config, c *cache.Cache, st *health.State, m *health.Metrics, n notify.Notifier, log *zap.Logger) *service.Client {
	return service.NewClient(service.Config{
		URL:          cfg.Market.WSURL,
		Symbols:      cfg.Market.Symbols,
		ReconnectMin: cfg.Market.ReconnectMin,
		ReconnectMax: cfg.Market.ReconnectMax,
		ReadTimeout:  cfg.Market.ReadTimeout,
	}, c, st, n, m.WSReconnects, log)
}

// Module поднимает источник тиков. Стартует его runner, после прогрева истории.
func Module() fx.Option {
	return fx.Module("market_websocket",
		fx.Provide(
			NewClient,
			func(cfg *config.Config) chan models.Tick {
				// общий буфер тиков перед роутером
				return make(chan models.Tick, cfg.Market.QueueSize)
			},
		),
	)
}
