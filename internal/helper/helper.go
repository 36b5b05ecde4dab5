package helper

import (
	"strings"
	"time"
)

// DayOf - UTC-день инстанта, нормализованный к полуночи.
func DayOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func FormatDay(day time.Time) string { return day.UTC().Format(time.DateOnly) }

func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, strings.TrimSpace(s), time.UTC)
}

// AddDays сдвигает день на n календарных дней (n может быть отрицательным).
func AddDays(day time.Time, n int) time.Time {
	return DayOf(day).AddDate(0, 0, n)
}

// DaysBetween перечисляет дни [from, to] включительно.
func DaysBetween(from, to time.Time) []time.Time {
	from, to = DayOf(from), DayOf(to)
	if to.Before(from) {
		return nil
	}
	out := make([]time.Time, 0, int(to.Sub(from).Hours()/24)+1)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// NormSymbol: " btcusdt " -> "BTCUSDT".
func NormSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
