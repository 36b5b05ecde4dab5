package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tick - одно наблюдение цены (mid между bid/ask).
type Tick struct {
	Symbol string
	Bid    decimal.Decimal
	Ask    decimal.Decimal
	Price  decimal.Decimal
	Time   time.Time
}

// DailyPrice - дневная OHLC-свеча по UTC-дню. Day всегда полночь UTC.
type DailyPrice struct {
	Symbol       string
	Day          time.Time
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	IsHistorical bool
}
