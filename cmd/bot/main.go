package main

import (
	"context"
	"log"

	"crossover_bot/internal/modules/cache"
	"crossover_bot/internal/modules/candles"
	"crossover_bot/internal/modules/config"
	"crossover_bot/internal/modules/crossover"
	"crossover_bot/internal/modules/health"
	"crossover_bot/internal/modules/history"
	"crossover_bot/internal/modules/market_websocket"
	"crossover_bot/internal/modules/notify"
	"crossover_bot/internal/modules/orders"
	"crossover_bot/internal/modules/postgres"
	"crossover_bot/internal/modules/redis"
	"crossover_bot/internal/modules/store"
	"crossover_bot/internal/modules/tracing"
	"crossover_bot/internal/runner"
	"crossover_bot/pkg/logger"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			func(cfg *config.Config) (*zap.Logger, error) {
				logger.SetServiceName(cfg.Service.Name)
				return logger.New(cfg.Service.LogLevel, cfg.Service.Development)
			},
		),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx")}
		}),
		config.Module(),
		tracing.Module(),
		postgres.Module(),
		redis.Module(),
		store.Module(),
		cache.Module(),
		notify.Module(),
		health.Module(),
		history.Module(),
		market_websocket.Module(),
		orders.Module(),
		crossover.Module(),
		candles.Module(),
		runner.Module(),
	)
	if err := app.Err(); err != nil {
		log.Fatal(err)
	}
	app.Run()
}
