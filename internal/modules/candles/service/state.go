package service

import (
	"time"

	"crossover_bot/internal/models"

	"github.com/shopspring/decimal"
)

// State - текущая дневная свеча символа. Принадлежит воркеру символа,
// в Deriver передаётся по указателю и между горутинами не делится.
type State struct {
	Symbol string

	started bool
	day     time.Time
	open    decimal.Decimal
	high    decimal.Decimal
	low     decimal.Decimal
	close   decimal.Decimal

	// финализации, не дошедшие до конца, в порядке дней
	pending []models.DailyPrice
}

func NewState(symbol string) *State {
	return &State{Symbol: symbol}
}

func (s *State) Started() bool                { return s.started }
func (s *State) Day() time.Time               { return s.day }
func (s *State) Pending() []models.DailyPrice { return s.pending }

// Candle - снимок текущей свечи как живой DailyPrice.
func (s *State) Candle() models.DailyPrice {
	return models.DailyPrice{
		Symbol: s.Symbol,
		Day:    s.day,
		Open:   s.open,
		High:   s.high,
		Low:    s.low,
		Close:  s.close,
	}
}

func (s *State) reset(day time.Time, price decimal.Decimal) {
	s.started = true
	s.day = day
	s.open, s.high, s.low, s.close = price, price, price, price
}

func (s *State) update(price decimal.Decimal) {
	if price.GreaterThan(s.high) {
		s.high = price
	}
	if price.LessThan(s.low) {
		s.low = price
	}
	s.close = price
}
