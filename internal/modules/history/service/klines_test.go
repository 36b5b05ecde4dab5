package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"crossover_bot/pkg/retry"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func klineRow(d time.Time, closePx string) string {
	open := d.UnixMilli()
	return fmt.Sprintf(`[%d,"1.0","2.0","0.5","%s","100.0",%d,"0",10,"0","0","0"]`,
		open, closePx, d.Add(24*time.Hour).UnixMilli()-1)
}

func TestDailyKlinesParsesRows(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/klines", r.URL.Path)
		gotQuery = r.URL.RawQuery
		rows := []string{klineRow(day(2024, 1, 1), "42000.5"), klineRow(day(2024, 1, 2), "43000")}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	defer srv.Close()

	c := NewKlinesClient(srv.URL, 0, time.Second, retry.None(), zap.NewNop())
	out, err := c.DailyKlines(context.Background(), "BTCUSDT", day(2024, 1, 1), day(2024, 1, 2))
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, day(2024, 1, 1), out[0].Day)
	assert.True(t, out[0].Close.Equal(decimal.RequireFromString("42000.5")))
	assert.True(t, out[1].Close.Equal(decimal.NewFromInt(43000)))
	assert.True(t, out[1].IsHistorical)
	assert.Equal(t, "BTCUSDT", out[1].Symbol)

	assert.Contains(t, gotQuery, "interval=1d")
	assert.Contains(t, gotQuery, "symbol=BTCUSDT")
	assert.Contains(t, gotQuery, "limit=1000")
	assert.Contains(t, gotQuery, "startTime="+strconv.FormatInt(day(2024, 1, 1).UnixMilli(), 10))
}

func TestDailyKlinesPaginates(t *testing.T) {
	from := day(2020, 1, 1)
	to := helperAdd(from, 1499)
	var calls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		startMs, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		endMs, _ := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)
		start := time.UnixMilli(startMs).UTC()

		var rows []string
		for d := start; d.UnixMilli() <= endMs && len(rows) < 1000; d = d.Add(24 * time.Hour) {
			rows = append(rows, klineRow(d, "1"))
		}
		_, _ = w.Write([]byte("[" + strings.Join(rows, ",") + "]"))
	}))
	defer srv.Close()

	c := NewKlinesClient(srv.URL, 0, time.Second, retry.None(), zap.NewNop())
	out, err := c.DailyKlines(context.Background(), "ETHUSDT", from, to)
	require.NoError(t, err)
	assert.Len(t, out, 1500)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, to, out[len(out)-1].Day)
}

func TestDailyKlinesRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("[" + klineRow(day(2024, 1, 1), "5") + "]"))
	}))
	defer srv.Close()

	p := retry.Policy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	c := NewKlinesClient(srv.URL, 0, time.Second, p, zap.NewNop())
	out, err := c.DailyKlines(context.Background(), "BTCUSDT", day(2024, 1, 1), day(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDailyKlinesDoesNotRetryBadRequest(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
	}))
	defer srv.Close()

	p := retry.Policy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	c := NewKlinesClient(srv.URL, 0, time.Second, p, zap.NewNop())
	_, err := c.DailyKlines(context.Background(), "NOPE", day(2024, 1, 1), day(2024, 1, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid symbol.")
	assert.Equal(t, int32(1), calls.Load())
}

func TestParseKlinesRejectsShortRows(t *testing.T) {
	_, err := parseKlines("BTCUSDT", [][]any{{"1", "2"}})
	assert.Error(t, err)
}

func helperAdd(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }
