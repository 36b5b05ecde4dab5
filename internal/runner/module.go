package runner

import (
	"context"

	"crossover_bot/internal/models"
	candles "crossover_bot/internal/modules/candles/service"
	"crossover_bot/internal/modules/config"
	health "crossover_bot/internal/modules/health/service"
	history "crossover_bot/internal/modules/history/service"
	market "crossover_bot/internal/modules/market_websocket/service"
	"crossover_bot/internal/runner/router"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewRunner(cfg *config.Config, loader *history.Loader, source *market.Client, d *candles.Deriver, ticks chan models.Tick, st *health.State, m *health.Metrics, log *zap.Logger) *Runner {
	return New(Config{
		Symbols:   cfg.Market.Symbols,
		QueueSize: cfg.Market.QueueSize,
	}, loader, source, d, router.NewRouter(m.TicksDropped, log), ticks, st, log)
}

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(NewRunner),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					// контекст OnStart живёт только до конца старта
					r.Start(context.Background())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return r.Stop(ctx)
				},
			})
		}),
	)
}
