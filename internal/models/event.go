package models

import (
	"encoding/json"
	"time"
)

// Event type constants
const (
	EventTypeTradeImported  = "TRADE_IMPORTED"
	EventTypeReportSnapshot = "REPORT_SNAPSHOT"
)

// TradeEvent is published by the CSV importer for every imported trade
type TradeEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source"`
	Timestamp string         `json:"timestamp"`
	Data      TradeEventData `json:"data"`
}

// TradeEventData carries the raw trade fields as strings
type TradeEventData struct {
	TradeID           string `json:"trade_id"`
	Symbol            string `json:"symbol"`
	Side              string `json:"side"`
	OpenDate          string `json:"open_date"`
	CloseDate         string `json:"close_date,omitempty"`
	EntryTime         string `json:"entry_time,omitempty"`
	ExitTime          string `json:"exit_time,omitempty"`
	EntryPrice        string `json:"entry_price"`
	ExitPrice         string `json:"exit_price"`
	NetPnl            string `json:"net_pnl"`
	ContractsTraded   string `json:"contracts_traded"`
	PlannedStop       string `json:"planned_stop,omitempty"`
	PlannedTarget     string `json:"planned_target,omitempty"`
	PlannedRMultiple  string `json:"planned_r_multiple,omitempty"`
	RealizedRMultiple string `json:"realized_r_multiple,omitempty"`
}

// ReportEvent is a computed report snapshot for a strategy
type ReportEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	StrategyID string          `json:"strategy_id"`
	Report     json.RawMessage `json:"report"`
	Timestamp  time.Time       `json:"timestamp"`
}
