package service

import (
	"sync"

	"github.com/shopspring/decimal"
)

// PriceBook - последняя цена по символу. Пишет воркер символа, читает менеджер ордеров.
type PriceBook struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]decimal.Decimal)}
}

func (b *PriceBook) Set(symbol string, price decimal.Decimal) {
	b.mu.Lock()
	b.prices[symbol] = price
	b.mu.Unlock()
}

func (b *PriceBook) Price(symbol string) (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.prices[symbol]
	return p, ok
}
