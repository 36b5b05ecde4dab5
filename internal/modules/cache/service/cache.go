package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache - быстрый и при этом долговечный стор состояния пайплайна поверх Redis.
type Cache struct {
	rdb *redis.Client
	log *zap.Logger
}

func New(rdb *redis.Client, log *zap.Logger) *Cache {
	return &Cache{rdb: rdb, log: log.Named("cache")}
}

// Liveness statuses written by the tick source.
const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusError        = "error"
)

func (c *Cache) SetStatus(ctx context.Context, symbol, status string) error {
	if err := c.rdb.Set(ctx, StatusKey(symbol), status, 0).Err(); err != nil {
		return errors.Wrapf(err, "set status %s", symbol)
	}
	return nil
}

func (c *Cache) Status(ctx context.Context, symbol string) (string, error) {
	s, err := c.rdb.Get(ctx, StatusKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "get status %s", symbol)
	}
	return s, nil
}
