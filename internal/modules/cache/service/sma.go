package service

import (
	"context"

	"crossover_bot/internal/models"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// PreviousSMA reads the stored pair for the given periods. ok is false when
// either field is missing (fresh symbol or periods changed).
func (c *Cache) PreviousSMA(ctx context.Context, symbol string, shortPeriod, longPeriod int) (models.SMAState, bool, error) {
	st := models.SMAState{Symbol: symbol, ShortPeriod: shortPeriod, LongPeriod: longPeriod}

	vals, err := c.rdb.HGetAll(ctx, SMAKey(symbol)).Result()
	if err != nil {
		return st, false, errors.Wrapf(err, "hgetall sma %s", symbol)
	}
	rawShort, ok1 := vals[smaField(shortPeriod)]
	rawLong, ok2 := vals[smaField(longPeriod)]
	if !ok1 || !ok2 || rawShort == "" || rawLong == "" {
		return st, false, nil
	}

	if st.Short, err = decimal.NewFromString(rawShort); err != nil {
		return st, false, errors.Wrapf(err, "sma %s short %q", symbol, rawShort)
	}
	if st.Long, err = decimal.NewFromString(rawLong); err != nil {
		return st, false, errors.Wrapf(err, "sma %s long %q", symbol, rawLong)
	}
	return st, true, nil
}

func (c *Cache) SetPreviousSMA(ctx context.Context, st models.SMAState) error {
	err := c.rdb.HSet(ctx, SMAKey(st.Symbol), map[string]any{
		smaField(st.ShortPeriod): st.Short.String(),
		smaField(st.LongPeriod):  st.Long.String(),
	}).Err()
	return errors.Wrapf(err, "hset sma %s", st.Symbol)
}
