package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade side constants
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Trade is one closed position as imported from a broker CSV. Dates and
// clock times are kept as imported; the analytics package parses them.
type Trade struct {
	ID                string           `json:"id"`
	Symbol            string           `json:"symbol"`
	Side              string           `json:"side"`
	OpenDate          string           `json:"open_date"`
	CloseDate         string           `json:"close_date,omitempty"`
	EntryTime         string           `json:"entry_time,omitempty"`
	ExitTime          string           `json:"exit_time,omitempty"`
	EntryPrice        decimal.Decimal  `json:"entry_price"`
	ExitPrice         decimal.Decimal  `json:"exit_price"`
	NetPnl            decimal.Decimal  `json:"net_pnl"`
	ContractsTraded   decimal.Decimal  `json:"contracts_traded"`
	PlannedStop       *decimal.Decimal `json:"planned_stop,omitempty"`
	PlannedTarget     *decimal.Decimal `json:"planned_target,omitempty"`
	PlannedRMultiple  *decimal.Decimal `json:"planned_r_multiple,omitempty"`
	RealizedRMultiple *decimal.Decimal `json:"realized_r_multiple,omitempty"`
	ImportedAt        time.Time        `json:"imported_at,omitempty"`
}

// IsShort reports whether the trade was a short position. Anything that
// is not explicitly SHORT is treated as long.
func (t Trade) IsShort() bool {
	return t.Side == SideShort
}

// TradeMetadata is the user-maintained annotation of a trade.
type TradeMetadata struct {
	TradeID           string           `json:"trade_id"`
	RuleChecks        map[string]bool  `json:"rule_checks,omitempty"`
	Model             string           `json:"model,omitempty"`
	PlannedRMultiple  *decimal.Decimal `json:"planned_r_multiple,omitempty"`
	RealizedRMultiple *decimal.Decimal `json:"realized_r_multiple,omitempty"`
	UpdatedAt         time.Time        `json:"updated_at,omitempty"`
}

// Followed reports whether ruleID was checked on this trade.
func (m TradeMetadata) Followed(ruleID string) bool {
	return m.RuleChecks[ruleID]
}
