package crossover

import (
	cache "crossover_bot/internal/modules/cache/service"
	"crossover_bot/internal/modules/config"
	"crossover_bot/internal/modules/crossover/service"
	health "crossover_bot/internal/modules/health/service"
	notify "crossover_bot/internal/modules/notify/service"
	orders "crossover_bot/internal/modules/orders/service"
	store "crossover_bot/internal/modules/store/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewDetector(cfg *config.Config, c *cache.Cache, st *store.Store, m *orders.Manager, n notify.Notifier, metrics *health.Metrics, log *zap.Logger) *service.Detector {
	return service.NewDetector(service.Config{
		ShortPeriod: cfg.Strategy.ShortPeriod,
		LongPeriod:  cfg.Strategy.LongPeriod,
		Retry:       cfg.Retry,
	}, c, st, m, n, metrics, log)
}

func Module() fx.Option {
	return fx.Module("crossover",
		fx.Provide(NewDetector),
	)
}
