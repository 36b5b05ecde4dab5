package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"
	"crossover_bot/pkg/retry"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	klinesPath  = "/api/v3/klines"
	klinesLimit = 1000
)

// числа в klines приходят то строками, то целыми - держим их как json.Number
var klinesAPI = sonic.Config{UseNumber: true}.Froze()

// KlinesClient тянет дневные свечи с Binance REST.
type KlinesClient struct {
	http    *http.Client
	baseURL string
	limiter *rate.Limiter
	policy  retry.Policy
	log     *zap.Logger
}

func NewKlinesClient(baseURL string, rps float64, timeout time.Duration, policy retry.Policy, log *zap.Logger) *KlinesClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	lim := rate.Inf
	if rps > 0 {
		lim = rate.Limit(rps)
	}
	return &KlinesClient{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(lim, 1),
		policy:  policy,
		log:     log.Named("klines"),
	}
}

// DailyKlines returns closed daily candles for [from, to] (UTC days), oldest first.
func (c *KlinesClient) DailyKlines(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyPrice, error) {
	from, to = helper.DayOf(from), helper.DayOf(to)
	if to.Before(from) {
		return nil, nil
	}
	endMs := helper.AddDays(to, 1).UnixMilli() - 1

	var out []models.DailyPrice
	start := from
	for !start.After(to) {
		var page []models.DailyPrice
		err := retry.DoNotify(ctx, c.policy, func() error {
			var err error
			page, err = c.fetchPage(ctx, symbol, start.UnixMilli(), endMs)
			return err
		}, func(err error, next time.Duration) {
			c.log.Warn("klines request failed, retrying",
				zap.String("symbol", symbol), zap.Duration("next", next), zap.Error(err))
		})
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, p := range page {
			if p.Day.Before(from) || p.Day.After(to) {
				continue
			}
			out = append(out, p)
		}
		last := page[len(page)-1].Day
		if len(page) < klinesLimit || last.Before(start) {
			break
		}
		start = helper.AddDays(last, 1)
	}
	return out, nil
}

type binanceError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (c *KlinesClient) fetchPage(ctx context.Context, symbol string, startMs, endMs int64) ([]models.DailyPrice, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", "1d")
	q.Set("startTime", strconv.FormatInt(startMs, 10))
	q.Set("endTime", strconv.FormatInt(endMs, 10))
	q.Set("limit", strconv.Itoa(klinesLimit))
	u := c.baseURL + klinesPath + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "klines request")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read klines body")
	}

	if resp.StatusCode/100 != 2 {
		var be binanceError
		_ = klinesAPI.Unmarshal(b, &be)
		err := fmt.Errorf("klines %s: http %d code=%d msg=%s", symbol, resp.StatusCode, be.Code, be.Msg)
		// 429/418/5xx имеет смысл повторить, остальное 4xx - нет
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusTeapot || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	var rows [][]any
	if err := klinesAPI.Unmarshal(b, &rows); err != nil {
		return nil, retry.Permanent(errors.Wrap(err, "decode klines"))
	}
	return parseKlines(symbol, rows)
}

// Binance row: [openTime, open, high, low, close, volume, closeTime, ...]
func parseKlines(symbol string, rows [][]any) ([]models.DailyPrice, error) {
	out := make([]models.DailyPrice, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, retry.Permanent(fmt.Errorf("kline %d of %s: %d fields", i, symbol, len(row)))
		}
		openMs, err := klineInt(row[0])
		if err != nil {
			return nil, retry.Permanent(errors.Wrapf(err, "kline %d open time", i))
		}
		var vals [4]decimal.Decimal
		for j := range vals {
			if vals[j], err = klineDecimal(row[1+j]); err != nil {
				return nil, retry.Permanent(errors.Wrapf(err, "kline %d field %d", i, 1+j))
			}
		}
		out = append(out, models.DailyPrice{
			Symbol:       symbol,
			Day:          helper.DayOf(time.UnixMilli(openMs)),
			Open:         vals[0],
			High:         vals[1],
			Low:          vals[2],
			Close:        vals[3],
			IsHistorical: true,
		})
	}
	return out, nil
}

func klineInt(v any) (int64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Int64()
	case string:
		return strconv.ParseInt(x, 10, 64)
	case float64:
		return int64(x), nil
	}
	return 0, fmt.Errorf("unexpected %T", v)
}

func klineDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case string:
		return decimal.NewFromString(x)
	case json.Number:
		return decimal.NewFromString(x.String())
	case float64:
		return decimal.NewFromFloat(x), nil
	}
	return decimal.Zero, fmt.Errorf("unexpected %T", v)
}
