package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Notifier - исходящие уведомления оператору. Ошибки доставки не возвращаются.
type Notifier interface {
	Send(ctx context.Context, msg string)
	Sendf(ctx context.Context, format string, args ...any)
}

// Log пишет уведомления в zap, когда Telegram не настроен.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	return &Log{log: log.Named("notify")}
}

func (l *Log) Send(_ context.Context, msg string) {
	l.log.Info("notification", zap.String("text", msg))
}

func (l *Log) Sendf(ctx context.Context, format string, args ...any) {
	l.Send(ctx, fmt.Sprintf(format, args...))
}

var (
	_ Notifier = (*Log)(nil)
	_ Notifier = (*Telegram)(nil)
)
