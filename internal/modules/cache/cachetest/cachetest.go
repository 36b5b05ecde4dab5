// Package cachetest builds a Cache over an in-process miniredis for tests.
package cachetest

import (
	"testing"

	"crossover_bot/internal/modules/cache/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func New(t testing.TB) (*service.Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return service.New(rdb, zap.NewNop()), mr
}
