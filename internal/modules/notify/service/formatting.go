package service

import (
	"fmt"

	"crossover_bot/internal/helper"
	"crossover_bot/internal/models"
)

func FormatSignal(s models.Signal) string {
	emoji := "🟢"
	if s.Side == models.SideSell {
		emoji = "🔴"
	}
	return fmt.Sprintf("%s %s %s %s\nclose=%s sma%d=%s sma%d=%s\n%s",
		emoji, s.Symbol, s.Side, helper.FormatDay(s.Day),
		s.Price.String(),
		s.ShortPeriod, s.SMAShort.StringFixed(4),
		s.LongPeriod, s.SMALong.StringFixed(4),
		s.Reason,
	)
}

func FormatOrder(o models.Order, next models.PositionState) string {
	return fmt.Sprintf("📝 %s %s %s @ %s (%s) → %s",
		o.Symbol, o.Type, o.Side, o.Price.String(), o.Status, next)
}
