package service_test

import (
	"context"
	"testing"
	"time"

	"crossover_bot/internal/models"
	"crossover_bot/internal/modules/cache/cachetest"
	"crossover_bot/internal/modules/cache/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestAdvanceKeepsWindowBound(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)

	for i := 1; i <= 10; i++ {
		_, err := c.Advance(ctx, "BTCUSDT", day(i), decimal.NewFromInt(int64(i)), 4)
		require.NoError(t, err)

		n, err := c.WindowLen(ctx, "BTCUSDT")
		require.NoError(t, err)
		assert.LessOrEqual(t, n, int64(4))
	}

	list, err := mr.List(service.WindowKey("BTCUSDT"))
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "8", "9", "10"}, list, "oldest -> newest")

	got, ok, err := c.LastFinalized(ctx, "BTCUSDT")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, day(10), got)
}

func TestClosesReturnsTail(t *testing.T) {
	ctx := context.Background()
	c, _ := cachetest.New(t)
	require.NoError(t, c.ReplaceWindow(ctx, "BTCUSDT", []decimal.Decimal{dec("1"), dec("2.5"), dec("3")}, 10))

	tail, err := c.Closes(ctx, "BTCUSDT", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.True(t, tail[0].Equal(dec("2.5")))
	assert.True(t, tail[1].Equal(dec("3")))

	all, err := c.Closes(ctx, "BTCUSDT", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestRollbackRestoresWindowAndGuard(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)
	key := service.WindowKey("ETHUSDT")

	for i := 1; i <= 3; i++ {
		_, err := c.Advance(ctx, "ETHUSDT", day(i), decimal.NewFromInt(int64(i*10)), 3)
		require.NoError(t, err)
	}
	cp, err := c.Advance(ctx, "ETHUSDT", day(4), dec("40"), 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"10"}, cp.Evicted)
	assert.Equal(t, "2024-01-03", cp.PrevGuard)

	require.NoError(t, c.Rollback(ctx, cp))

	list, err := mr.List(key)
	require.NoError(t, err)
	assert.Equal(t, []string{"10", "20", "30"}, list)
	guard, err := mr.Get(service.GuardKey("ETHUSDT"))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", guard)
}

func TestRollbackFirstAdvanceDropsGuard(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)

	cp, err := c.Advance(ctx, "SOLUSDT", day(1), dec("100"), 5)
	require.NoError(t, err)
	require.NoError(t, c.Rollback(ctx, cp))

	assert.False(t, mr.Exists(service.GuardKey("SOLUSDT")))
	assert.False(t, mr.Exists(service.WindowKey("SOLUSDT")))
}

func TestAdvanceGuardIsMonotonic(t *testing.T) {
	ctx := context.Background()
	c, _ := cachetest.New(t)

	moved, err := c.AdvanceGuard(ctx, "BTCUSDT", day(5))
	require.NoError(t, err)
	assert.True(t, moved)

	moved, err = c.AdvanceGuard(ctx, "BTCUSDT", day(3))
	require.NoError(t, err)
	assert.False(t, moved)

	got, _, err := c.LastFinalized(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, day(5), got)
}

func TestPreviousSMA(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)

	_, ok, err := c.PreviousSMA(ctx, "BTCUSDT", 50, 200)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetPreviousSMA(ctx, models.SMAState{
		Symbol: "BTCUSDT", ShortPeriod: 50, LongPeriod: 200,
		Short: dec("7.5"), Long: dec("9"),
	}))
	assert.Equal(t, "7.5", mr.HGet(service.SMAKey("BTCUSDT"), "sma_50"))
	assert.Equal(t, "9", mr.HGet(service.SMAKey("BTCUSDT"), "sma_200"))

	st, ok, err := c.PreviousSMA(ctx, "BTCUSDT", 50, 200)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, st.Short.Equal(dec("7.5")))
	assert.True(t, st.Long.Equal(dec("9")))

	// другие периоды - состояния нет
	_, ok, err = c.PreviousSMA(ctx, "BTCUSDT", 20, 200)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPositionAndStatus(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)

	p, ok, err := c.Position(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, models.PositionFlat, p)

	require.NoError(t, c.SetPosition(ctx, "BTCUSDT", models.PositionLong))
	p, ok, err = c.Position(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.PositionLong, p)

	require.NoError(t, mr.Set(service.PositionKey("BTCUSDT"), "SHORT"))
	_, _, err = c.Position(ctx, "BTCUSDT")
	assert.Error(t, err)

	require.NoError(t, c.SetStatus(ctx, "BTCUSDT", service.StatusConnected))
	s, err := c.Status(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, "connected", s)
}

func TestCacheErrorsSurface(t *testing.T) {
	ctx := context.Background()
	c, mr := cachetest.New(t)
	mr.SetError("ERR server unavailable")

	_, err := c.Advance(ctx, "BTCUSDT", day(1), dec("1"), 5)
	assert.Error(t, err)
	_, _, err = c.LastFinalized(ctx, "BTCUSDT")
	assert.Error(t, err)
}
