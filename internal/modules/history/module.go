package history

import (
	cache "crossover_bot/internal/modules/cache/service"
	"crossover_bot/internal/modules/config"
	"crossover_bot/internal/modules/history/service"
	notify "crossover_bot/internal/modules/notify/service"
	store "crossover_bot/internal/modules/store/service"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewLoader(cfg *config.Config, st *store.Store, c *cache.Cache, n notify.Notifier, log *zap.Logger) *service.Loader {
	var src service.KlineSource
	if cfg.History.Enabled {
		src = service.NewKlinesClient(cfg.Market.RESTURL, cfg.History.RequestsPerSecond,
			cfg.History.Timeout, cfg.Retry, log)
	}
	return service.NewLoader(st, src, c, n, cfg.Strategy.WindowSize, log)
}

// Module только собирает загрузчик; запускает его runner до старта стрима.
func Module() fx.Option {
	return fx.Module("history",
		fx.Provide(NewLoader),
	)
}
