package tracing

import (
	"context"

	"crossover_bot/internal/modules/config"
	"crossover_bot/pkg/tracing"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module ставит глобальный трейсер до старта пайплайна и закрывает его на остановке.
func Module() fx.Option {
	return fx.Module("tracing",
		fx.Provide(func(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (opentracing.Tracer, error) {
			tracing.SetServiceName(cfg.Service.Name)
			tracer, closer, err := tracing.InitTracer(cfg.Tracing)
			if err != nil {
				return nil, err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closer()
					return nil
				},
			})
			log.Info("tracer ready", zap.Bool("jaeger", cfg.Tracing.Enabled))
			return tracer, nil
		}),
		fx.Invoke(func(opentracing.Tracer) {}),
	)
}
