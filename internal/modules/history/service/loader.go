package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type PriceStore interface {
	DailyPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error)
	UpsertHistorical(ctx context.Context, prices []models.DailyPrice) (int, error)
}

type KlineSource interface {
	DailyKlines(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error)
}

type WindowCache interface {
	Closes(ctx context.Context, symbol string, n int) ([]decimal.Decimal, error)
	ReplaceWindow(ctx context.Context, symbol string, closes []decimal.Decimal, maxLen int) error
	AdvanceGuard(ctx context.Context, symbol string, day time.Time) (bool, error)
}

type ServiceNotifier interface {
	Sendf(ctx context.Context, format string, args ...any)
}

// Result - итог прогрева по одному символу.
type Result struct {
	Symbol        string
	Stored        int // строк в окне после прогрева
	Fetched       int
	Upserted      int
	WindowRebuilt bool
	GuardMoved    bool
	Newest        time.Time
}

// Loader прогревает стор и окно в кеше дневными закрытиями до вчерашнего дня.
// SMA он не считает.
type Loader struct {
	store  PriceStore
	source KlineSource // nil - только из стора
	cache  WindowCache
	n      ServiceNotifier
	log    *zap.Logger

	window int
	now    func() time.Time
}

func NewLoader(store PriceStore, source KlineSource, cache WindowCache, n ServiceNotifier, window int, log *zap.Logger) *Loader {
	return &Loader{
		store:  store,
		source: source,
		cache:  cache,
		n:      n,
		log:    log.Named("history"),
		window: window,
		now:    time.Now,
	}
}

// WithClock подменяет часы. Для тестов.
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

func (l *Loader) Load(ctx context.Context, symbol string) (Result, error) {
	res := Result{Symbol: symbol}
	if l.window <= 0 {
		return res, nil
	}

	yesterday := helper.AddDays(helper.DayOf(l.now()), -1)
	from := helper.AddDays(yesterday, -(l.window - 1))

	stored, err := l.store.DailyPrices(ctx, symbol, from, yesterday)
	if err != nil {
		return res, fmt.Errorf("read stored prices: %w", err)
	}

	missing := missingDays(stored, from, yesterday)
	if len(missing) > 0 && l.source != nil {
		fetched, err := l.source.DailyKlines(ctx, symbol, missing[0], missing[len(missing)-1])
		if err != nil {
			return res, fmt.Errorf("fetch klines: %w", err)
		}
		res.Fetched = len(fetched)

		// только реально отсутствующие дни: уже сохранённые строки не трогаем
		want := make(map[time.Time]struct{}, len(missing))
		for _, d := range missing {
			want[d] = struct{}{}
		}
		toSave := make([]models.DailyPrice, 0, len(fetched))
		for _, p := range fetched {
			if _, ok := want[helper.DayOf(p.Day)]; ok {
				p.IsHistorical = true
				toSave = append(toSave, p)
			}
		}

		if len(toSave) > 0 {
			if res.Upserted, err = l.store.UpsertHistorical(ctx, toSave); err != nil {
				return res, fmt.Errorf("upsert historical: %w", err)
			}
			if stored, err = l.store.DailyPrices(ctx, symbol, from, yesterday); err != nil {
				return res, fmt.Errorf("re-read stored prices: %w", err)
			}
		}
	}

	sort.Slice(stored, func(i, j int) bool { return stored[i].Day.Before(stored[j].Day) })
	res.Stored = len(stored)
	if len(stored) == 0 {
		l.log.Warn("no history available", zap.String("symbol", symbol))
		return res, nil
	}

	closes := make([]decimal.Decimal, 0, len(stored))
	for _, p := range stored {
		closes = append(closes, p.Close)
	}

	current, err := l.cache.Closes(ctx, symbol, 0)
	if err != nil {
		return res, fmt.Errorf("read window: %w", err)
	}
	if !sameCloses(current, closes) {
		if err := l.cache.ReplaceWindow(ctx, symbol, closes, l.window); err != nil {
			return res, fmt.Errorf("rebuild window: %w", err)
		}
		res.WindowRebuilt = true
	}

	res.Newest = stored[len(stored)-1].Day
	if res.GuardMoved, err = l.cache.AdvanceGuard(ctx, symbol, res.Newest); err != nil {
		return res, fmt.Errorf("advance guard: %w", err)
	}

	l.log.Info("history loaded",
		zap.String("symbol", symbol),
		zap.Int("stored", res.Stored),
		zap.Int("fetched", res.Fetched),
		zap.Int("upserted", res.Upserted),
		zap.Bool("window_rebuilt", res.WindowRebuilt),
		zap.String("newest", helper.FormatDay(res.Newest)),
	)
	return res, nil
}

// LoadAll прогревает все символы по очереди. Ошибка по символу не останавливает остальные.
func (l *Loader) LoadAll(ctx context.Context, symbols []string) []Result {
	out := make([]Result, 0, len(symbols))
	failed := 0
	for _, sym := range symbols {
		res, err := l.Load(ctx, sym)
		if err != nil {
			failed++
			l.log.Error("history load failed", zap.String("symbol", sym), zap.Error(err))
			if l.n != nil {
				l.n.Sendf(ctx, "⚠️ history warmup %s failed: %v", sym, err)
			}
		}
		out = append(out, res)
	}
	if l.n != nil {
		l.n.Sendf(ctx, "✅ history warmup finished: symbols=%d failed=%d window=%d", len(symbols), failed, l.window)
	}
	return out
}

func missingDays(stored []models.DailyPrice, from, to time.Time) []time.Time {
	have := make(map[time.Time]struct{}, len(stored))
	for _, p := range stored {
		have[helper.DayOf(p.Day)] = struct{}{}
	}
	var out []time.Time
	for _, d := range helper.DaysBetween(from, to) {
		if _, ok := have[d]; !ok {
			out = append(out, d)
		}
	}
	return out
}

// sameCloses сравнивает значения, а не строки: "10" и "10.0" равны.
func sameCloses(a, b []decimal.Decimal) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
