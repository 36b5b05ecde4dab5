package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"
	cache "crossover_bot/internal/modules/cache/service"
	health "crossover_bot/internal/modules/health/service"
	"crossover_bot/pkg/retry"
	"crossover_bot/pkg/tracing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PriceStore interface {
	SaveDailyPrice(ctx context.Context, p models.DailyPrice) error
}

type WindowCache interface {
	LastFinalized(ctx context.Context, symbol string) (time.Time, bool, error)
	Advance(ctx context.Context, symbol string, day time.Time, closePx decimal.Decimal, maxLen int) (*cache.Checkpoint, error)
	Rollback(ctx context.Context, cp *cache.Checkpoint) error
}

// Detector получает свечу после того, как её close попал в окно.
type Detector interface {
	OnDailyClose(ctx context.Context, candle models.DailyPrice) error
}

type Config struct {
	WindowSize    int
	MaxFutureSkew time.Duration
	MaxTickAge    time.Duration
	Retry         retry.Policy
}

// Drop reasons.
const (
	DropNonPositive = "non_positive"
	DropZeroTime    = "zero_time"
	DropFuture      = "future"
	DropStale       = "stale"
	DropSymbol      = "symbol"
	DropLate        = "late"
)

// Deriver собирает дневные свечи из тиков и финализирует их на смене UTC-дня.
type Deriver struct {
	cfg      Config
	store    PriceStore
	cache    WindowCache
	detector Detector
	book     *PriceBook
	health   *health.State
	metrics  *health.Metrics
	log      *zap.Logger

	now func() time.Time
}

func NewDeriver(cfg Config, store PriceStore, c WindowCache, detector Detector, book *PriceBook, st *health.State, m *health.Metrics, log *zap.Logger) *Deriver {
	return &Deriver{
		cfg:      cfg,
		store:    store,
		cache:    c,
		detector: detector,
		book:     book,
		health:   st,
		metrics:  m,
		log:      log.Named("candles"),
		now:      time.Now,
	}
}

// WithClock подменяет часы валидации. Для тестов.
func (d *Deriver) WithClock(now func() time.Time) *Deriver {
	d.now = now
	return d
}

// OnTick обрабатывает один тик символа. Возвращённая ошибка значит, что
// финализация не прошла и осталась в очереди до следующего тика; сам тик учтён.
func (d *Deriver) OnTick(ctx context.Context, st *State, tick models.Tick) error {
	if reason := d.validate(st, tick); reason != "" {
		d.drop(tick, reason)
		return nil
	}
	d.metrics.Ticks.WithLabelValues(tick.Symbol).Inc()
	d.book.Set(tick.Symbol, tick.Price)

	var errs []error
	if len(st.pending) > 0 {
		if err := d.drainPending(ctx, st); err != nil {
			errs = append(errs, err)
		}
	}

	day := helper.DayOf(tick.Time)
	switch {
	case !st.started:
		st.reset(day, tick.Price)
		d.log.Info("daily candle started",
			zap.String("symbol", st.Symbol), zap.String("day", helper.FormatDay(day)))

	case day.Equal(st.day):
		st.update(tick.Price)

	case day.After(st.day):
		st.pending = append(st.pending, st.Candle())
		st.reset(day, tick.Price)
		// после неудачного повтора новые дни только встают в очередь, порядок важнее
		if len(errs) == 0 {
			if err := d.drainPending(ctx, st); err != nil {
				errs = append(errs, err)
			}
		}

	default:
		d.drop(tick, DropLate)
	}

	return errors.Join(errs...)
}

func (d *Deriver) validate(st *State, t models.Tick) string {
	now := d.now()
	switch {
	case t.Symbol != st.Symbol:
		return DropSymbol
	case !t.Price.IsPositive():
		return DropNonPositive
	case t.Time.IsZero():
		return DropZeroTime
	case d.cfg.MaxFutureSkew > 0 && t.Time.After(now.Add(d.cfg.MaxFutureSkew)):
		return DropFuture
	case d.cfg.MaxTickAge > 0 && t.Time.Before(now.Add(-d.cfg.MaxTickAge)):
		return DropStale
	}
	return ""
}

func (d *Deriver) drop(t models.Tick, reason string) {
	d.metrics.TicksDropped.WithLabelValues(t.Symbol, reason).Inc()
	d.log.Warn("tick dropped",
		zap.String("symbol", t.Symbol),
		zap.String("reason", reason),
		zap.String("price", t.Price.String()),
		zap.Time("ts", t.Time),
	)
}

func (d *Deriver) drainPending(ctx context.Context, st *State) error {
	for len(st.pending) > 0 {
		candle := st.pending[0]
		if err := d.finalize(ctx, candle); err != nil {
			d.metrics.FinalizeFailures.WithLabelValues(st.Symbol).Inc()
			d.log.Error("finalize failed, will retry on next tick",
				zap.String("symbol", st.Symbol),
				zap.String("day", helper.FormatDay(candle.Day)),
				zap.Int("pending", len(st.pending)),
				zap.Error(err),
			)
			return err
		}
		st.pending = st.pending[1:]
	}
	return nil
}

// finalize: сохранить свечу -> окно+маркер одной транзакцией -> детектор.
// Если детектор упал, окно и маркер откатываются к чекпоинту.
func (d *Deriver) finalize(ctx context.Context, candle models.DailyPrice) (err error) {
	span, ctx := tracing.StartSpan(ctx, "candles.finalize", candle.Symbol)
	defer func() { tracing.Finish(span, err) }()

	dayStr := helper.FormatDay(candle.Day)

	var (
		guard time.Time
		ok    bool
	)
	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		var e error
		guard, ok, e = d.cache.LastFinalized(ctx, candle.Symbol)
		return e
	}); err != nil {
		return fmt.Errorf("read guard: %w", err)
	}
	if ok && !guard.Before(candle.Day) {
		d.log.Info("day already finalized, skipping",
			zap.String("symbol", candle.Symbol),
			zap.String("day", dayStr),
			zap.String("guard", helper.FormatDay(guard)),
		)
		return nil
	}

	candle.IsHistorical = false
	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		return d.store.SaveDailyPrice(ctx, candle)
	}); err != nil {
		return fmt.Errorf("save daily price: %w", err)
	}

	var cp *cache.Checkpoint
	if err = retry.Do(ctx, d.cfg.Retry, func() error {
		var e error
		cp, e = d.cache.Advance(ctx, candle.Symbol, candle.Day, candle.Close, d.cfg.WindowSize)
		return e
	}); err != nil {
		return fmt.Errorf("advance window: %w", err)
	}

	if err = d.detector.OnDailyClose(ctx, candle); err != nil {
		rbErr := retry.Do(ctx, d.cfg.Retry, func() error { return d.cache.Rollback(ctx, cp) })
		if rbErr != nil {
			return fmt.Errorf("detect: %w (rollback: %v)", err, rbErr)
		}
		return fmt.Errorf("detect: %w", err)
	}

	d.metrics.Candles.WithLabelValues(candle.Symbol).Inc()
	if d.health != nil {
		d.health.SetFinalized(candle.Symbol, candle.Day)
	}
	d.log.Info("daily candle finalized",
		zap.String("symbol", candle.Symbol),
		zap.String("day", dayStr),
		zap.String("open", candle.Open.String()),
		zap.String("high", candle.High.String()),
		zap.String("low", candle.Low.String()),
		zap.String("close", candle.Close.String()),
	)
	return nil
}
