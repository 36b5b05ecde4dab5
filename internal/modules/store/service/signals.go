package service

import (
	"context"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"

	"github.com/pkg/errors"
)

const insertSignal = `
INSERT INTO signals (id, symbol, day, side, price, sma_short, sma_long,
                     short_period, long_period, reason, signal_ts, calculated_at)
VALUES ($1::uuid, $2, $3, $4, $5::numeric, $6::numeric, $7::numeric, $8, $9, $10, $11, $12)
ON CONFLICT DO NOTHING`

// InsertSignal is insert-only. inserted is false when the signal for that day already exists.
func (s *Store) InsertSignal(ctx context.Context, sig models.Signal) (inserted bool, err error) {
	tag, err := s.db.Conn().Exec(ctx, insertSignal,
		sig.ID.String(), sig.Symbol, helper.DayOf(sig.Day), string(sig.Side),
		sig.Price.String(), sig.SMAShort.String(), sig.SMALong.String(),
		sig.ShortPeriod, sig.LongPeriod, sig.Reason,
		sig.Timestamp.UTC(), sig.CalculatedAt.UTC(),
	)
	if err != nil {
		return false, errors.Wrapf(err, "insert signal %s %s", sig.Symbol, helper.FormatDay(sig.Day))
	}
	return tag.RowsAffected() == 1, nil
}
