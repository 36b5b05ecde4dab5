package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Side - направление сигнала и ордера.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SMAState - предыдущая пара средних для символа.
type SMAState struct {
	Symbol      string
	ShortPeriod int
	LongPeriod  int
	Short       decimal.Decimal
	Long        decimal.Decimal
}

// Diff returns Short - Long.
func (s SMAState) Diff() decimal.Decimal { return s.Short.Sub(s.Long) }

type Signal struct {
	ID           uuid.UUID
	Symbol       string
	Side         Side
	Day          time.Time // UTC day the signal was computed for
	Timestamp    time.Time
	Price        decimal.Decimal // close of Day
	SMAShort     decimal.Decimal
	SMALong      decimal.Decimal
	ShortPeriod  int
	LongPeriod   int
	Reason       string
	CalculatedAt time.Time
}

var signalNamespace = uuid.MustParse("5b0f3c1e-8d7a-4c53-9a53-2f0b7f1c9e11")

// SignalID is stable for a (symbol, day, side) triple so a re-evaluated day maps to the same row.
func SignalID(symbol string, day time.Time, side Side) uuid.UUID {
	key := symbol + "|" + day.UTC().Format(time.DateOnly) + "|" + string(side)
	return uuid.NewSHA1(signalNamespace, []byte(key))
}
