package service

import (
	"context"
	"fmt"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"
	health "crossover_bot/internal/modules/health/service"
	notify "crossover_bot/internal/modules/notify/service"
	"crossover_bot/pkg/retry"
	"crossover_bot/pkg/tracing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SMACache interface {
	Closes(ctx context.Context, symbol string, n int) ([]decimal.Decimal, error)
	PreviousSMA(ctx context.Context, symbol string, shortPeriod, longPeriod int) (models.SMAState, bool, error)
	SetPreviousSMA(ctx context.Context, st models.SMAState) error
}

type SignalStore interface {
	InsertSignal(ctx context.Context, sig models.Signal) (bool, error)
}

type SignalHandler interface {
	OnSignal(ctx context.Context, sig models.Signal) error
}

type Config struct {
	ShortPeriod int
	LongPeriod  int
	Retry       retry.Policy
}

// Detector считает SMA по окну и ловит пересечения.
type Detector struct {
	cfg     Config
	cache   SMACache
	store   SignalStore
	orders  SignalHandler
	n       notify.Notifier
	metrics *health.Metrics
	log     *zap.Logger

	now func() time.Time
}

func NewDetector(cfg Config, c SMACache, store SignalStore, orders SignalHandler, n notify.Notifier, m *health.Metrics, log *zap.Logger) *Detector {
	return &Detector{
		cfg:     cfg,
		cache:   c,
		store:   store,
		orders:  orders,
		n:       n,
		metrics: m,
		log:     log.Named("crossover"),
		now:     time.Now,
	}
}

func (d *Detector) OnDailyClose(ctx context.Context, candle models.DailyPrice) (err error) {
	span, ctx := tracing.StartSpan(ctx, "crossover.evaluate", candle.Symbol)
	defer func() { tracing.Finish(span, err) }()

	sym := candle.Symbol
	dayStr := helper.FormatDay(candle.Day)

	var closes []decimal.Decimal
	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		var e error
		closes, e = d.cache.Closes(ctx, sym, d.cfg.LongPeriod)
		return e
	}); err != nil {
		return fmt.Errorf("read window: %w", err)
	}

	shortSMA, okShort := SMA(closes, d.cfg.ShortPeriod)
	longSMA, okLong := SMA(closes, d.cfg.LongPeriod)
	if !okShort || !okLong {
		d.log.Info("insufficient history, skipping crossover check",
			zap.String("symbol", sym),
			zap.String("day", dayStr),
			zap.Int("have", len(closes)),
			zap.Int("need", d.cfg.LongPeriod),
		)
		return nil
	}

	cur := models.SMAState{
		Symbol:      sym,
		ShortPeriod: d.cfg.ShortPeriod,
		LongPeriod:  d.cfg.LongPeriod,
		Short:       shortSMA,
		Long:        longSMA,
	}

	var (
		prev    models.SMAState
		hasPrev bool
	)
	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		var e error
		prev, hasPrev, e = d.cache.PreviousSMA(ctx, sym, d.cfg.ShortPeriod, d.cfg.LongPeriod)
		return e
	}); err != nil {
		return fmt.Errorf("read previous sma: %w", err)
	}

	log := d.log.With(
		zap.String("symbol", sym),
		zap.String("day", dayStr),
		zap.String("sma_short", shortSMA.String()),
		zap.String("sma_long", longSMA.String()),
	)

	if !hasPrev {
		log.Info("no previous sma, storing baseline")
	} else if buy, sell := Cross(prev.Diff(), cur.Diff()); buy || sell {
		side, reason := models.SideBuy, fmt.Sprintf("SMA%d crossed above SMA%d", d.cfg.ShortPeriod, d.cfg.LongPeriod)
		if sell {
			side, reason = models.SideSell, fmt.Sprintf("SMA%d crossed below SMA%d", d.cfg.ShortPeriod, d.cfg.LongPeriod)
		}
		sig := models.Signal{
			ID:           models.SignalID(sym, candle.Day, side),
			Symbol:       sym,
			Side:         side,
			Day:          candle.Day,
			Timestamp:    candle.Day,
			Price:        candle.Close,
			SMAShort:     shortSMA,
			SMALong:      longSMA,
			ShortPeriod:  d.cfg.ShortPeriod,
			LongPeriod:   d.cfg.LongPeriod,
			Reason:       reason,
			CalculatedAt: d.now().UTC(),
		}
		if err = d.emit(ctx, sig); err != nil {
			return err
		}
	} else {
		log.Info("no crossover", zap.String("prev_diff", prev.Diff().String()))
	}

	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		return d.cache.SetPreviousSMA(ctx, cur)
	}); err != nil {
		return fmt.Errorf("store sma state: %w", err)
	}
	return nil
}

func (d *Detector) emit(ctx context.Context, sig models.Signal) error {
	var inserted bool
	if err := retry.Do(ctx, d.cfg.Retry, func() error {
		var e error
		inserted, e = d.store.InsertSignal(ctx, sig)
		return e
	}); err != nil {
		return fmt.Errorf("persist signal: %w", err)
	}

	d.log.Info("crossover signal",
		zap.String("symbol", sig.Symbol),
		zap.String("day", helper.FormatDay(sig.Day)),
		zap.String("side", string(sig.Side)),
		zap.String("reason", sig.Reason),
		zap.Bool("new", inserted),
	)
	// повтор после отката: сигнал уже есть, уведомление не дублируем
	if inserted {
		d.metrics.Signals.WithLabelValues(sig.Symbol, string(sig.Side)).Inc()
		if d.n != nil {
			d.n.Send(ctx, notify.FormatSignal(sig))
		}
	}

	if err := d.orders.OnSignal(ctx, sig); err != nil {
		return fmt.Errorf("handle signal: %w", err)
	}
	return nil
}
