package service

import (
	"context"

	"crossover_bot/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Position returns the stored state; ok is false before the first write.
func (c *Cache) Position(ctx context.Context, symbol string) (models.PositionState, bool, error) {
	raw, err := c.rdb.Get(ctx, PositionKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return models.PositionFlat, false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get position %s", symbol)
	}
	p, err := models.ParsePositionState(raw)
	if err != nil {
		return "", false, errors.Wrapf(err, "position %s", symbol)
	}
	return p, true, nil
}

func (c *Cache) SetPosition(ctx context.Context, symbol string, state models.PositionState) error {
	err := c.rdb.Set(ctx, PositionKey(symbol), string(state), 0).Err()
	return errors.Wrapf(err, "set position %s", symbol)
}
