package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PositionState string

const (
	PositionFlat PositionState = "FLAT"
	PositionLong PositionState = "LONG"
)

func ParsePositionState(s string) (PositionState, error) {
	switch PositionState(s) {
	case PositionFlat, PositionLong:
		return PositionState(s), nil
	}
	return "", fmt.Errorf("unknown position state %q", s)
}

// Next returns the state a signal moves the position to. ok is false when the
// signal does not apply to the current state (no pyramiding, no shorting).
func (p PositionState) Next(side Side) (next PositionState, ok bool) {
	switch {
	case p == PositionFlat && side == SideBuy:
		return PositionLong, true
	case p == PositionLong && side == SideSell:
		return PositionFlat, true
	}
	return p, false
}

const (
	OrderTypeMarket          = "MARKET"
	OrderStatusSimulatedFill = "SIMULATED_FILLED"
)

type Order struct {
	ID        uuid.UUID
	SignalID  uuid.UUID
	Symbol    string
	Side      Side
	Type      string
	Status    string
	Price     decimal.Decimal
	Timestamp time.Time
}
