package candles

import (
	cache "crossover_bot/internal/modules/cache/service"
	"crossover_bot/internal/modules/candles/service"
	"crossover_bot/internal/modules/config"
	crossover "crossover_bot/internal/modules/crossover/service"
	health "crossover_bot/internal/modules/health/service"
	store "crossover_bot/internal/modules/store/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewDeriver(cfg *config.Config, st *store.Store, c *cache.Cache, det *crossover.Detector, book *service.PriceBook, hs *health.State, m *health.Metrics, log *zap.Logger) *service.Deriver {
	return service.NewDeriver(service.Config{
		WindowSize:    cfg.Strategy.WindowSize,
		MaxFutureSkew: cfg.Strategy.MaxFutureSkew,
		MaxTickAge:    cfg.Strategy.MaxTickAge,
		Retry:         cfg.Retry,
	}, st, c, det, book, hs, m, log)
}

func Module() fx.Option {
	return fx.Module("candles",
		fx.Provide(
			service.NewPriceBook,
			NewDeriver,
		),
	)
}
