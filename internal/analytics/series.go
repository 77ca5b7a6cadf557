package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

const monthKeyLayout = "2006-01"

// SeriesPoint is the P&L of one bucket. Date is a day key, the Monday of
// the week, or a "YYYY-MM" month key.
type SeriesPoint struct {
	Date   string  `json:"date"`
	PnL    float64 `json:"pnl"`
	Trades int     `json:"trades"`
}

// DrawdownPoint is the equity and distance below the running peak after a
// bucket. Drawdown is always <= 0.
type DrawdownPoint struct {
	Date     string  `json:"date"`
	Equity   float64 `json:"equity"`
	Peak     float64 `json:"peak"`
	Drawdown float64 `json:"drawdown"`
}

// DrawdownSummary is the drawdown curve with its deepest point
type DrawdownSummary struct {
	Points          []DrawdownPoint `json:"points"`
	MaxDrawdown     float64         `json:"max_drawdown"`
	MaxDrawdownDate string          `json:"max_drawdown_date,omitempty"`
}

// StreakSummary counts consecutive wins and losses. Break-even entries end
// both kinds of streak.
type StreakSummary struct {
	MaxWinStreak      int `json:"max_win_streak"`
	MaxLossStreak     int `json:"max_loss_streak"`
	CurrentWinStreak  int `json:"current_win_streak"`
	CurrentLossStreak int `json:"current_loss_streak"`
}

// BucketDaily sums P&L per day key under tz, ascending by date
func BucketDaily(trades []models.Trade, tz TimezoneSpec) []SeriesPoint {
	return bucket(trades, tz, func(f TimeFields) string { return f.DayKey })
}

// BucketWeekly sums P&L per week. Weeks start on Monday and are keyed by
// that Monday's day key.
func BucketWeekly(trades []models.Trade, tz TimezoneSpec) []SeriesPoint {
	return bucket(trades, tz, func(f TimeFields) string {
		day, err := time.Parse(dayKeyLayout, f.DayKey)
		if err != nil {
			return f.DayKey
		}
		back := (f.Weekday + 6) % 7
		return day.AddDate(0, 0, -back).Format(dayKeyLayout)
	})
}

// BucketMonthly sums P&L per calendar month
func BucketMonthly(trades []models.Trade, tz TimezoneSpec) []SeriesPoint {
	return bucket(trades, tz, func(f TimeFields) string {
		if len(f.DayKey) < len(monthKeyLayout) {
			return f.DayKey
		}
		return f.DayKey[:len(monthKeyLayout)]
	})
}

func bucket(trades []models.Trade, tz TimezoneSpec, key func(TimeFields) string) []SeriesPoint {
	zone := tz.Bind()

	sums := make(map[string]decimal.Decimal)
	counts := make(map[string]int)
	for _, t := range trades {
		k := key(zone.TradeFields(ResolveTradeTime(t)))
		sums[k] = sums[k].Add(t.NetPnl)
		counts[k]++
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	series := make([]SeriesPoint, 0, len(keys))
	for _, k := range keys {
		series = append(series, SeriesPoint{
			Date:   k,
			PnL:    sums[k].InexactFloat64(),
			Trades: counts[k],
		})
	}
	return series
}

// Cumulative returns the running sum of series as a new slice. The input
// is not modified.
func Cumulative(series []SeriesPoint) []SeriesPoint {
	out := make([]SeriesPoint, len(series))
	running := decimal.Zero
	trades := 0
	for i, p := range series {
		running = running.Add(decimal.NewFromFloat(p.PnL))
		trades += p.Trades
		out[i] = SeriesPoint{Date: p.Date, PnL: running.InexactFloat64(), Trades: trades}
	}
	return out
}

// Drawdown walks per-bucket P&L and tracks equity against its running
// peak. The peak starts at zero, so losses from the first bucket count.
func Drawdown(series []SeriesPoint) DrawdownSummary {
	summary := DrawdownSummary{Points: make([]DrawdownPoint, 0, len(series))}

	equity, peak, worst := decimal.Zero, decimal.Zero, decimal.Zero
	for _, p := range series {
		equity = equity.Add(decimal.NewFromFloat(p.PnL))
		if equity.GreaterThan(peak) {
			peak = equity
		}
		dd := equity.Sub(peak)
		if dd.LessThan(worst) {
			worst = dd
			summary.MaxDrawdownDate = p.Date
		}
		summary.Points = append(summary.Points, DrawdownPoint{
			Date:     p.Date,
			Equity:   equity.InexactFloat64(),
			Peak:     peak.InexactFloat64(),
			Drawdown: dd.InexactFloat64(),
		})
	}
	summary.MaxDrawdown = worst.InexactFloat64()
	return summary
}

// Streaks counts win and loss streaks over trades in time order. Trades
// with the same timestamp keep their input order.
func Streaks(trades []models.Trade) StreakSummary {
	type stamped struct {
		at  time.Time
		pnl decimal.Decimal
	}
	ordered := make([]stamped, len(trades))
	for i, t := range trades {
		ordered[i] = stamped{at: ResolveTradeTime(t).Instant, pnl: t.NetPnl}
	}
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].at.Before(ordered[j].at) })

	signs := make([]int, len(ordered))
	for i, s := range ordered {
		signs[i] = s.pnl.Sign()
	}
	return streaks(signs)
}

// DayStreaks counts streaks of winning and losing buckets
func DayStreaks(series []SeriesPoint) StreakSummary {
	signs := make([]int, len(series))
	for i, p := range series {
		switch {
		case p.PnL > 0:
			signs[i] = 1
		case p.PnL < 0:
			signs[i] = -1
		}
	}
	return streaks(signs)
}

func streaks(signs []int) StreakSummary {
	var s StreakSummary
	for _, sign := range signs {
		switch sign {
		case 1:
			s.CurrentWinStreak++
			s.CurrentLossStreak = 0
		case -1:
			s.CurrentLossStreak++
			s.CurrentWinStreak = 0
		default:
			s.CurrentWinStreak = 0
			s.CurrentLossStreak = 0
		}
		if s.CurrentWinStreak > s.MaxWinStreak {
			s.MaxWinStreak = s.CurrentWinStreak
		}
		if s.CurrentLossStreak > s.MaxLossStreak {
			s.MaxLossStreak = s.CurrentLossStreak
		}
	}
	return s
}
