package cache

import (
	"crossover_bot/internal/modules/cache/service"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("cache",
		fx.Provide(
			service.New, // *service.Cache
		),
	)
}
