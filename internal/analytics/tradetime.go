package analytics

import (
	"strings"
	"time"

	"github.com/trogers1052/trade-journal/internal/models"
)

const dayKeyLayout = "2006-01-02"

// timeNow is the last-resort timestamp for trades without a usable date
var timeNow = time.Now

// Layouts that carry a full timestamp. Values without an explicit offset
// are read as UTC.
var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"1/2/2006 15:04",
}

var dateLayouts = []string{
	dayKeyLayout,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"3:04:05 PM",
	"3:04 PM",
	"03:04:05 PM",
	"03:04 PM",
	"15:04:05.000",
}

// TradeTime is the resolved instant of a trade
type TradeTime struct {
	Instant time.Time
	// ParseFallbackUsed is set when neither date parsed and the current
	// time was substituted. Committed trades should never have it.
	ParseFallbackUsed bool
	// DateOnly is set when no time of day was known. Instant is then UTC
	// midnight of the civil date and must not be shifted into a zone.
	DateOnly bool
}

// ResolveTradeTime picks the trade's timestamp: open date with entry time,
// else close date with exit time, else the current time (flagged).
func ResolveTradeTime(t models.Trade) TradeTime {
	if ts, dateOnly, ok := combine(t.OpenDate, t.EntryTime); ok {
		return TradeTime{Instant: ts, DateOnly: dateOnly}
	}
	if ts, dateOnly, ok := combine(t.CloseDate, t.ExitTime); ok {
		return TradeTime{Instant: ts, DateOnly: dateOnly}
	}
	return TradeTime{Instant: timeNow().UTC(), ParseFallbackUsed: true}
}

// HoldMinutes returns the time between entry and exit in minutes. ok is
// false when either clock time is missing or unparsable. A negative span
// is clamped to zero.
func HoldMinutes(t models.Trade) (minutes float64, ok bool) {
	if _, ok := parseClock(strings.TrimSpace(t.EntryTime)); !ok {
		return 0, false
	}
	if _, ok := parseClock(strings.TrimSpace(t.ExitTime)); !ok {
		return 0, false
	}
	entry, _, ok := combine(t.OpenDate, t.EntryTime)
	if !ok {
		return 0, false
	}
	exitDate := t.CloseDate
	if strings.TrimSpace(exitDate) == "" {
		exitDate = t.OpenDate
	}
	exit, _, ok := combine(exitDate, t.ExitTime)
	if !ok {
		return 0, false
	}
	minutes = exit.Sub(entry).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	return minutes, true
}

// combine joins a date with an optional clock time. A date that already
// carries a time of day is used as is when clock is empty. dateOnly reports
// that no time of day was known.
func combine(date, clock string) (ts time.Time, dateOnly bool, ok bool) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, false, false
	}

	day, hasClock, ok := parseDate(date)
	if !ok {
		return time.Time{}, false, false
	}
	offset, clockOK := parseClock(clock)
	if !clockOK {
		// keep the date; an unreadable clock only loses intraday precision
		return day, !hasClock, true
	}
	if hasClock {
		y, m, d := day.Date()
		day = time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	}
	return day.Add(offset), false, true
}

func parseDate(s string) (ts time.Time, hasClock bool, ok bool) {
	for _, layout := range instantLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true, true
		}
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, false, true
		}
	}
	return time.Time{}, false, false
}

func parseClock(s string) (time.Duration, bool) {
	upper := strings.ToUpper(s)
	for _, layout := range clockLayouts {
		parsed, err := time.Parse(layout, upper)
		if err != nil {
			continue
		}
		return time.Duration(parsed.Hour())*time.Hour +
			time.Duration(parsed.Minute())*time.Minute +
			time.Duration(parsed.Second())*time.Second, true
	}
	return 0, false
}
