package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func offsetPtr(minutes int) *int {
	return &minutes
}

// pnlTrade is a one-contract trade on 2024-03-11 (a Monday) at 10:00 UTC
func pnlTrade(id, pnl string) models.Trade {
	return models.Trade{
		ID:              id,
		Symbol:          "ES",
		Side:            models.SideLong,
		OpenDate:        "2024-03-11",
		EntryTime:       "10:00",
		NetPnl:          dec(pnl),
		ContractsTraded: dec("1"),
	}
}

func tradeAt(id, date, clock, pnl string) models.Trade {
	t := pnlTrade(id, pnl)
	t.OpenDate = date
	t.EntryTime = clock
	return t
}

// utcRules evaluates in UTC so results do not depend on the host zone
func utcRules() models.AutoRulesConfig {
	return models.AutoRulesConfig{
		Session: models.SessionRule{Timezone: models.Timezone{OffsetMinutes: offsetPtr(0)}},
	}
}
