package notify

import (
	"context"
	"net/http"

	cache "crossover_bot/internal/modules/cache/service"
	"crossover_bot/internal/modules/config"
	"crossover_bot/internal/modules/notify/service"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewNotifier выбирает Telegram при наличии токена и chat_id, иначе лог.
// Недоступный Telegram не валит сервис. Доставка в Telegram идёт через очередь,
// чтобы медленный API не держал обработку тиков.
func NewNotifier(lc fx.Lifecycle, cfg *config.Config, c *cache.Cache, log *zap.Logger) service.Notifier {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		log.Info("telegram not configured, notifications go to log")
		return service.NewLog(log)
	}

	client := &http.Client{Timeout: service.PollTimeout + cfg.Telegram.Timeout}
	bot, err := tgbot.NewBotAPIWithClient(cfg.Telegram.Token, tgbot.APIEndpoint, client)
	if err != nil {
		log.Warn("telegram init failed, notifications go to log", zap.Error(err))
		return service.NewLog(log)
	}

	t := service.NewTelegram(bot, cfg.Telegram.ChatID, c, cfg.Market.Symbols,
		cfg.Strategy.ShortPeriod, cfg.Strategy.LongPeriod, log)
	q := service.NewQueue(t, cfg.Telegram.QueueSize, cfg.Telegram.Timeout, log)

	var cancel context.CancelFunc
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			q.Start(ctx)
			t.Start(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			if cancel != nil {
				cancel()
			}
			t.Stop()
			q.Stop()
			return nil
		},
	})
	return q
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewNotifier),
	)
}
