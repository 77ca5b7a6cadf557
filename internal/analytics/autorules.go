package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

// RuleTally is the pass rate of one auto rule. Total is a trade count for
// per-trade rules and a day count for per-day rules.
type RuleTally struct {
	Enabled bool    `json:"enabled"`
	Passed  int     `json:"passed"`
	Total   int     `json:"total"`
	Pct     float64 `json:"pct"`
}

// DayBucket is one calendar day after timezone resolution
type DayBucket struct {
	DayKey          string  `json:"day_key"`
	Trades          int     `json:"trades"`
	NetPnl          float64 `json:"net_pnl"`
	WithinMaxTrades bool    `json:"within_max_trades"`
	WithinDailyLoss bool    `json:"within_daily_loss"`
}

// AutoRuleSummary is the result of evaluating an AutoRulesConfig
type AutoRuleSummary struct {
	WithinSession   RuleTally `json:"within_session"`
	WithinMaxLoss   RuleTally `json:"within_max_loss"`
	OnAllowedDays   RuleTally `json:"on_allowed_days"`
	WithinMaxTrades RuleTally `json:"within_max_trades"`
	WithinDailyLoss RuleTally `json:"within_daily_loss"`

	// Compliance is the percentage of trades that passed every enabled
	// rule, including the per-day rules of the day they fell on.
	Compliance float64     `json:"compliance"`
	Days       []DayBucket `json:"days"`

	TotalTrades int `json:"total_trades"`
	TotalDays   int `json:"total_days"`

	// ParseFallbacks counts trades whose timestamp could not be parsed
	// and were placed at the current time.
	ParseFallbacks int `json:"parse_fallbacks"`
	// SessionWindowInverted is set when an enabled session ends before it
	// starts. Windows crossing midnight are not wrapped, so no trade
	// passes such a session.
	SessionWindowInverted bool `json:"session_window_inverted"`
}

type dayAccumulator struct {
	key    string
	trades int
	pnl    decimal.Decimal
}

type tradeCheck struct {
	dayKey string
	passed bool
}

// EvaluateAutoRules checks trades against cfg. Trades are bucketed into
// days once, in the session's zone, and both per-day rules share those
// buckets. Disabled rules pass everything; with no trades every
// percentage is 0.
func EvaluateAutoRules(trades []models.Trade, cfg models.AutoRulesConfig) AutoRuleSummary {
	zone := SessionZone(cfg.Session).Bind()

	sessionStart, sessionEnd, sessionOK := cfg.Session.Window()
	sessionEnabled := cfg.Session.Enabled && sessionOK

	summary := AutoRuleSummary{
		TotalTrades:           len(trades),
		SessionWindowInverted: sessionEnabled && sessionEnd < sessionStart,
	}

	maxLoss := cfg.MaxLossPerTrade.Value.Abs().Neg()
	days := make(map[string]*dayAccumulator)
	checks := make([]tradeCheck, 0, len(trades))

	var sessionPass, lossPass, weekdayPass int
	for _, t := range trades {
		tt := ResolveTradeTime(t)
		if tt.ParseFallbackUsed {
			summary.ParseFallbacks++
		}
		fields := zone.TradeFields(tt)

		day, ok := days[fields.DayKey]
		if !ok {
			day = &dayAccumulator{key: fields.DayKey}
			days[fields.DayKey] = day
		}
		day.trades++
		day.pnl = day.pnl.Add(t.NetPnl)

		inSession := !sessionEnabled ||
			(fields.MinutesOfDay >= sessionStart && fields.MinutesOfDay <= sessionEnd)
		withinLoss := !cfg.MaxLossPerTrade.Enabled || t.NetPnl.GreaterThanOrEqual(maxLoss)
		onAllowedDay := !cfg.AllowedWeekdays.Enabled || cfg.AllowedWeekdays.Allows(fields.Weekday)

		if inSession {
			sessionPass++
		}
		if withinLoss {
			lossPass++
		}
		if onAllowedDay {
			weekdayPass++
		}
		checks = append(checks, tradeCheck{
			dayKey: fields.DayKey,
			passed: inSession && withinLoss && onAllowedDay,
		})
	}

	summary.WithinSession = tally(sessionEnabled, sessionPass, len(trades))
	summary.WithinMaxLoss = tally(cfg.MaxLossPerTrade.Enabled, lossPass, len(trades))
	summary.OnAllowedDays = tally(cfg.AllowedWeekdays.Enabled, weekdayPass, len(trades))

	dailyLoss := cfg.MaxDailyLoss.Value.Abs().Neg()
	summary.Days = make([]DayBucket, 0, len(days))
	dayPassed := make(map[string]bool, len(days))
	var maxTradesPass, dailyLossPass int
	for _, day := range days {
		b := DayBucket{
			DayKey:          day.key,
			Trades:          day.trades,
			NetPnl:          day.pnl.InexactFloat64(),
			WithinMaxTrades: !cfg.MaxTradesPerDay.Enabled || day.trades <= cfg.MaxTradesPerDay.Value,
			WithinDailyLoss: !cfg.MaxDailyLoss.Enabled || day.pnl.GreaterThanOrEqual(dailyLoss),
		}
		if b.WithinMaxTrades {
			maxTradesPass++
		}
		if b.WithinDailyLoss {
			dailyLossPass++
		}
		dayPassed[day.key] = b.WithinMaxTrades && b.WithinDailyLoss
		summary.Days = append(summary.Days, b)
	}
	sort.Slice(summary.Days, func(i, j int) bool {
		return summary.Days[i].DayKey < summary.Days[j].DayKey
	})

	summary.TotalDays = len(days)
	summary.WithinMaxTrades = tally(cfg.MaxTradesPerDay.Enabled, maxTradesPass, len(days))
	summary.WithinDailyLoss = tally(cfg.MaxDailyLoss.Enabled, dailyLossPass, len(days))

	var compliant int
	for _, c := range checks {
		if c.passed && dayPassed[c.dayKey] {
			compliant++
		}
	}
	summary.Compliance = percent(compliant, len(trades))
	return summary
}

func tally(enabled bool, passed, total int) RuleTally {
	return RuleTally{
		Enabled: enabled,
		Passed:  passed,
		Total:   total,
		Pct:     percent(passed, total),
	}
}

// percent is part/total*100, or 0 when total is 0
func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(total))).
		InexactFloat64()
}
