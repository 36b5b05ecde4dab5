package service

import (
	"context"
	"time"

	"crossover_bot/internal/helper"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Checkpoint хранит всё, что нужно, чтобы откатить один Advance.
type Checkpoint struct {
	Symbol    string
	Day       time.Time
	PrevGuard string   // "" если маркера не было
	Evicted   []string // что LTRIM срезал с головы списка
}

// Closes returns up to n most recent closes, oldest first. n <= 0 means the whole window.
func (c *Cache) Closes(ctx context.Context, symbol string, n int) ([]decimal.Decimal, error) {
	start := int64(0)
	if n > 0 {
		start = -int64(n)
	}
	raw, err := c.rdb.LRange(ctx, WindowKey(symbol), start, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "lrange window %s", symbol)
	}
	out := make([]decimal.Decimal, 0, len(raw))
	for _, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, errors.Wrapf(err, "window %s holds non-decimal %q", symbol, s)
		}
		out = append(out, d)
	}
	return out, nil
}

func (c *Cache) WindowLen(ctx context.Context, symbol string) (int64, error) {
	n, err := c.rdb.LLen(ctx, WindowKey(symbol)).Result()
	return n, errors.Wrapf(err, "llen window %s", symbol)
}

// LastFinalized - маркер последнего финализированного дня.
func (c *Cache) LastFinalized(ctx context.Context, symbol string) (time.Time, bool, error) {
	raw, err := c.rdb.Get(ctx, GuardKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "get guard %s", symbol)
	}
	day, err := helper.ParseDay(raw)
	if err != nil {
		return time.Time{}, false, errors.Wrapf(err, "guard %s holds %q", symbol, raw)
	}
	return day, true, nil
}

// Advance appends closePx to the window, trims it to maxLen and moves the guard
// to day in one MULTI/EXEC. The returned checkpoint undoes exactly this step.
func (c *Cache) Advance(ctx context.Context, symbol string, day time.Time, closePx decimal.Decimal, maxLen int) (*Checkpoint, error) {
	key := WindowKey(symbol)
	cp := &Checkpoint{Symbol: symbol, Day: helper.DayOf(day)}

	prev, err := c.rdb.Get(ctx, GuardKey(symbol)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return nil, errors.Wrapf(err, "get guard %s", symbol)
	default:
		cp.PrevGuard = prev
	}

	n, err := c.rdb.LLen(ctx, key).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "llen window %s", symbol)
	}
	if evict := n + 1 - int64(maxLen); evict > 0 {
		cp.Evicted, err = c.rdb.LRange(ctx, key, 0, evict-1).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "lrange evicted %s", symbol)
		}
	}

	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, closePx.String())
		p.LTrim(ctx, key, -int64(maxLen), -1)
		p.Set(ctx, GuardKey(symbol), helper.FormatDay(day), 0)
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "advance window %s", symbol)
	}

	c.log.Debug("window advanced",
		zap.String("symbol", symbol),
		zap.String("day", helper.FormatDay(day)),
		zap.String("close", closePx.String()),
		zap.Int("evicted", len(cp.Evicted)),
	)
	return cp, nil
}

// Rollback reverts an Advance: pops the appended close, restores evicted heads and the old guard.
func (c *Cache) Rollback(ctx context.Context, cp *Checkpoint) error {
	if cp == nil {
		return nil
	}
	key := WindowKey(cp.Symbol)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPop(ctx, key)
		if len(cp.Evicted) > 0 {
			// LPUSH кладёт по одному в голову - идём с конца, чтобы сохранить порядок
			vals := make([]any, 0, len(cp.Evicted))
			for i := len(cp.Evicted) - 1; i >= 0; i-- {
				vals = append(vals, cp.Evicted[i])
			}
			p.LPush(ctx, key, vals...)
		}
		if cp.PrevGuard == "" {
			p.Del(ctx, GuardKey(cp.Symbol))
		} else {
			p.Set(ctx, GuardKey(cp.Symbol), cp.PrevGuard, 0)
		}
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "rollback window %s", cp.Symbol)
	}
	c.log.Warn("window rolled back",
		zap.String("symbol", cp.Symbol),
		zap.String("day", helper.FormatDay(cp.Day)),
	)
	return nil
}

// ReplaceWindow overwrites the whole window with closes (oldest first), keeping the last maxLen.
func (c *Cache) ReplaceWindow(ctx context.Context, symbol string, closes []decimal.Decimal, maxLen int) error {
	key := WindowKey(symbol)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		if len(closes) == 0 {
			return nil
		}
		vals := make([]any, 0, len(closes))
		for _, d := range closes {
			vals = append(vals, d.String())
		}
		p.RPush(ctx, key, vals...)
		p.LTrim(ctx, key, -int64(maxLen), -1)
		return nil
	})
	return errors.Wrapf(err, "replace window %s", symbol)
}

// AdvanceGuard moves the guard forward to day; it never moves it back.
func (c *Cache) AdvanceGuard(ctx context.Context, symbol string, day time.Time) (bool, error) {
	cur, ok, err := c.LastFinalized(ctx, symbol)
	if err != nil {
		return false, err
	}
	day = helper.DayOf(day)
	if ok && !cur.Before(day) {
		return false, nil
	}
	if err := c.rdb.Set(ctx, GuardKey(symbol), helper.FormatDay(day), 0).Err(); err != nil {
		return false, errors.Wrapf(err, "set guard %s", symbol)
	}
	return true, nil
}
