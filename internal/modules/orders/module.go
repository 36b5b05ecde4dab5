package orders

import (
	cache "crossover_bot/internal/modules/cache/service"
	candles "crossover_bot/internal/modules/candles/service"
	"crossover_bot/internal/modules/config"
	health "crossover_bot/internal/modules/health/service"
	notify "crossover_bot/internal/modules/notify/service"
	"crossover_bot/internal/modules/orders/service"
	store "crossover_bot/internal/modules/store/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewManager(cfg *config.Config, c *cache.Cache, st *store.Store, book *candles.PriceBook, n notify.Notifier, m *health.Metrics, log *zap.Logger) *service.Manager {
	return service.NewManager(c, st, book, n, m, cfg.Retry, log)
}

func Module() fx.Option {
	return fx.Module("orders",
		fx.Provide(NewManager),
	)
}
