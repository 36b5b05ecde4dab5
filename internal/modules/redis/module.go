package redis

import (
	"context"
	"fmt"

	"crossover_bot/internal/modules/config"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module поднимает клиент Redis. Недоступный Redis на старте - фатально.
func Module() fx.Option {
	return fx.Module("redis",
		fx.Provide(
			func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*goredis.Client, error) {
				rdb := goredis.NewClient(&goredis.Options{
					Addr:     cfg.Redis.Addr,
					Password: cfg.Redis.Password,
					DB:       cfg.Redis.DB,
				})

				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						if err := rdb.Ping(ctx).Err(); err != nil {
							return fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
						}
						log.Info("redis connected", zap.String("addr", cfg.Redis.Addr))
						return nil
					},
					OnStop: func(ctx context.Context) error {
						return rdb.Close()
					},
				})
				return rdb, nil
			},
		),
	)
}
