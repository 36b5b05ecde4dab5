package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"crossover_bot/internal/models"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// PollTimeout - long-polling getUpdates. http-клиент бота должен ждать дольше.
const PollTimeout = 30 * time.Second

// StatusReader - то, что нужно команде /status.
type StatusReader interface {
	Position(ctx context.Context, symbol string) (models.PositionState, bool, error)
	Status(ctx context.Context, symbol string) (string, error)
	PreviousSMA(ctx context.Context, symbol string, shortPeriod, longPeriod int) (models.SMAState, bool, error)
}

// Telegram - пассивный нотифайер + обработка команды /status.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    *zap.Logger

	reader  StatusReader
	symbols []string
	short   int
	long    int
}

func NewTelegram(bot *tgbot.BotAPI, chatID int64, reader StatusReader, symbols []string, short, long int, log *zap.Logger) *Telegram {
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		log:     log.Named("telegram"),
		reader:  reader,
		symbols: symbols,
		short:   short,
		long:    long,
	}
}

// Send ждёт ответа API не дольше ctx. Сам запрос ограничен таймаутом http-клиента бота.
func (t *Telegram) Send(ctx context.Context, msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if err := ctx.Err(); err != nil {
		t.log.Warn("telegram send skipped", zap.Error(err))
		return
	}

	done := make(chan error, 1)
	go func() {
		_, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.log.Warn("telegram send failed", zap.Error(err))
		}
	case <-ctx.Done():
		t.log.Warn("telegram send abandoned", zap.Error(ctx.Err()))
	}
}

func (t *Telegram) Sendf(ctx context.Context, format string, args ...any) {
	t.Send(ctx, fmt.Sprintf(format, args...))
}

// Start: long-polling для команд из настроенного чата.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = int(PollTimeout / time.Second)
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "status":
					t.Send(ctx, t.statusText(ctx))
				}
			}
		}
	}()
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) statusText(ctx context.Context) string {
	rows := make([]StatusRow, 0, len(t.symbols))
	for _, sym := range t.symbols {
		row := StatusRow{Symbol: sym}
		if p, _, err := t.reader.Position(ctx, sym); err == nil {
			row.Position = p
		} else {
			row.Err = err
		}
		if s, err := t.reader.Status(ctx, sym); err == nil {
			row.Stream = s
		}
		if st, ok, err := t.reader.PreviousSMA(ctx, sym, t.short, t.long); err == nil && ok {
			row.SMA = &st
		}
		rows = append(rows, row)
	}
	return FormatStatus(rows)
}

type StatusRow struct {
	Symbol   string
	Position models.PositionState
	Stream   string
	SMA      *models.SMAState
	Err      error
}

func FormatStatus(rows []StatusRow) string {
	if len(rows) == 0 {
		return "📭 Нет отслеживаемых пар"
	}
	var b strings.Builder
	b.WriteString("📊 Состояние:\n")
	for _, r := range rows {
		if r.Err != nil {
			fmt.Fprintf(&b, "- %s: ❗️ %v\n", r.Symbol, r.Err)
			continue
		}
		stream := r.Stream
		if stream == "" {
			stream = "unknown"
		}
		fmt.Fprintf(&b, "- %s [%s] ws=%s", r.Symbol, r.Position, stream)
		if r.SMA != nil {
			fmt.Fprintf(&b, " sma%d=%s sma%d=%s",
				r.SMA.ShortPeriod, r.SMA.Short.StringFixed(4),
				r.SMA.LongPeriod, r.SMA.Long.StringFixed(4))
		}
		b.WriteString("\n")
	}
	return b.String()
}
