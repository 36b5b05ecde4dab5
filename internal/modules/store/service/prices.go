package service

import (
	"context"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Живая свеча перекрывает историческую, но не другую живую.
const insertLivePrice = `
INSERT INTO daily_prices (symbol, day, open, high, low, close, is_historical)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, FALSE)
ON CONFLICT (symbol, day) DO UPDATE
SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close,
    is_historical = FALSE, updated_at = now()
WHERE daily_prices.is_historical`

// Историческая загрузка никогда не трогает живые свечи.
const upsertHistoricalPrice = `
INSERT INTO daily_prices (symbol, day, open, high, low, close, is_historical)
VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6::numeric, TRUE)
ON CONFLICT (symbol, day) DO UPDATE
SET open = EXCLUDED.open, high = EXCLUDED.high, low = EXCLUDED.low, close = EXCLUDED.close,
    updated_at = now()
WHERE daily_prices.is_historical`

const selectPrices = `
SELECT day, open::text, high::text, low::text, close::text, is_historical
FROM daily_prices
WHERE symbol = $1 AND day BETWEEN $2 AND $3
ORDER BY day`

// SaveDailyPrice persists a live candle. Saving the same day twice is a no-op.
func (s *Store) SaveDailyPrice(ctx context.Context, p models.DailyPrice) error {
	tag, err := s.db.Conn().Exec(ctx, insertLivePrice,
		p.Symbol, helper.DayOf(p.Day),
		p.Open.String(), p.High.String(), p.Low.String(), p.Close.String(),
	)
	if err != nil {
		return errors.Wrapf(err, "save daily price %s %s", p.Symbol, helper.FormatDay(p.Day))
	}
	if tag.RowsAffected() == 0 {
		s.log.Info("daily price already stored",
			zap.String("symbol", p.Symbol), zap.String("day", helper.FormatDay(p.Day)))
	}
	return nil
}

// UpsertHistorical writes backfilled candles in one transaction and returns how many rows changed.
func (s *Store) UpsertHistorical(ctx context.Context, prices []models.DailyPrice) (int, error) {
	if len(prices) == 0 {
		return 0, nil
	}
	var n int
	err := s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range prices {
			batch.Queue(upsertHistoricalPrice,
				p.Symbol, helper.DayOf(p.Day),
				p.Open.String(), p.High.String(), p.Low.String(), p.Close.String(),
			)
		}
		br := tx.SendBatch(ctxTx, batch)
		for range prices {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return err
			}
			n += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, errors.Wrap(err, "upsert historical prices")
	}
	return n, nil
}

// DailyPrices returns stored candles for [from, to], oldest first.
func (s *Store) DailyPrices(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error) {
	rows, err := s.db.Conn().Query(ctx, selectPrices, symbol, helper.DayOf(from), helper.DayOf(to))
	if err != nil {
		return nil, errors.Wrapf(err, "query daily prices %s", symbol)
	}
	defer rows.Close()

	var out []models.DailyPrice
	for rows.Next() {
		var (
			day                      time.Time
			open, high, low, closePx string
			hist                     bool
		)
		if err := rows.Scan(&day, &open, &high, &low, &closePx, &hist); err != nil {
			return nil, errors.Wrap(err, "scan daily price")
		}
		p := models.DailyPrice{Symbol: symbol, Day: helper.DayOf(day), IsHistorical: hist}
		if p.Open, p.High, p.Low, p.Close, err = parseOHLC(open, high, low, closePx); err != nil {
			return nil, errors.Wrapf(err, "daily price %s %s", symbol, helper.FormatDay(day))
		}
		out = append(out, p)
	}
	return out, errors.Wrap(rows.Err(), "iterate daily prices")
}

func parseOHLC(o, h, l, c string) (open, high, low, closePx decimal.Decimal, err error) {
	if open, err = decimal.NewFromString(o); err != nil {
		return
	}
	if high, err = decimal.NewFromString(h); err != nil {
		return
	}
	if low, err = decimal.NewFromString(l); err != nil {
		return
	}
	closePx, err = decimal.NewFromString(c)
	return
}
