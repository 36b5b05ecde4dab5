package service

import (
	"context"

	"crossover_bot/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

const insertOrder = `
INSERT INTO orders (id, signal_id, symbol, side, type, status, price, ts)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7::numeric, $8)
ON CONFLICT (signal_id) DO NOTHING`

const orderExists = `SELECT EXISTS (SELECT 1 FROM orders WHERE signal_id = $1::uuid)`

// RecordOrder inserts o and runs apply inside the same transaction before
// COMMIT: if apply fails the order row is rolled back. inserted is false when
// an order for the same signal already exists.
func (s *Store) RecordOrder(ctx context.Context, o models.Order, apply func(ctx context.Context) error) (inserted bool, err error) {
	err = s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		tag, err := tx.Exec(ctxTx, insertOrder,
			o.ID.String(), o.SignalID.String(), o.Symbol, string(o.Side),
			o.Type, o.Status, o.Price.String(), o.Timestamp.UTC(),
		)
		if err != nil {
			return errors.Wrap(err, "insert order")
		}
		inserted = tag.RowsAffected() == 1
		if apply == nil {
			return nil
		}
		return apply(ctxTx)
	})
	if err != nil {
		return false, errors.Wrapf(err, "record order %s %s", o.Symbol, o.Side)
	}
	return inserted, nil
}

// HasOrder reports whether an order was already recorded for the signal.
func (s *Store) HasOrder(ctx context.Context, signalID uuid.UUID) (bool, error) {
	var exists bool
	if err := s.db.Conn().QueryRow(ctx, orderExists, signalID.String()).Scan(&exists); err != nil {
		return false, errors.Wrapf(err, "check order for signal %s", signalID)
	}
	return exists, nil
}
