package service

import (
	"fmt"
	"strings"
	"time"

	"crossover_bot/internal/models"

	"github.com/bytedance/sonic"
	"github.com/shopspring/decimal"
)

// bookTickerFrame - кадр combined stream: {"stream":"btcusdt@bookTicker","data":{...}}
type bookTickerFrame struct {
	Stream string `json:"stream"`
	Data   struct {
		UpdateID int64  `json:"u"`
		Symbol   string `json:"s"`
		Bid      string `json:"b"`
		BidQty   string `json:"B"`
		Ask      string `json:"a"`
		AskQty   string `json:"A"`
	} `json:"data"`
}

// StreamURL собирает адрес combined stream для набора символов.
func StreamURL(base string, symbols []string) string {
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		streams = append(streams, strings.ToLower(s)+"@bookTicker")
	}
	return strings.TrimRight(base, "/") + "/stream?streams=" + strings.Join(streams, "/")
}

// parseFrame переводит кадр в тик. Время тика - момент получения:
// spot bookTicker не несёт event time.
func parseFrame(msg []byte, recv time.Time) (models.Tick, error) {
	var f bookTickerFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return models.Tick{}, fmt.Errorf("decode frame: %w", err)
	}
	if f.Data.Symbol == "" {
		return models.Tick{}, fmt.Errorf("frame %q without symbol", f.Stream)
	}
	bid, err := decimal.NewFromString(f.Data.Bid)
	if err != nil {
		return models.Tick{}, fmt.Errorf("bid %q: %w", f.Data.Bid, err)
	}
	ask, err := decimal.NewFromString(f.Data.Ask)
	if err != nil {
		return models.Tick{}, fmt.Errorf("ask %q: %w", f.Data.Ask, err)
	}
	return models.Tick{
		Symbol: strings.ToUpper(f.Data.Symbol),
		Bid:    bid,
		Ask:    ask,
		Price:  bid.Add(ask).Div(decimal.NewFromInt(2)),
		Time:   recv.UTC(),
	}, nil
}
