package service

import "github.com/shopspring/decimal"

// SMA - среднее последних period значений. ok=false, если значений меньше.
func SMA(values []decimal.Decimal, period int) (decimal.Decimal, bool) {
	if period <= 0 || len(values) < period {
		return decimal.Zero, false
	}
	sum := decimal.Zero
	for _, v := range values[len(values)-period:] {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(period))), true
}

// Cross сравнивает знаки разностей short-long. Сигнал только при смене знака
// и ненулевой новой разнице.
func Cross(prevDiff, newDiff decimal.Decimal) (buy, sell bool) {
	if newDiff.Sign() == 0 || prevDiff.Sign() == newDiff.Sign() {
		return false, false
	}
	return newDiff.Sign() > 0, newDiff.Sign() < 0
}
