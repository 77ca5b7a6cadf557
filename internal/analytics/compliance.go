package analytics

import (
	"sort"

	"github.com/trogers1052/trade-journal/internal/models"
)

// RuleMetrics are the statistics of trades on which a playbook rule was
// marked as followed.
type RuleMetrics struct {
	RuleID       string  `json:"rule_id"`
	Text         string  `json:"text,omitempty"`
	Followed     int     `json:"followed"`
	FollowRate   float64 `json:"follow_rate"`
	NetPnL       float64 `json:"net_pnl"`
	ProfitFactor Ratio   `json:"profit_factor"`
	WinRate      float64 `json:"win_rate"`
}

// GroupMetrics holds RuleMetrics for each rule of a group, in display order
type GroupMetrics struct {
	GroupID string        `json:"group_id"`
	Title   string        `json:"title"`
	Rules   []RuleMetrics `json:"rules"`
}

// ComputeRuleMetrics scores ruleID against trades. A trade without a
// metadata entry counts as not followed.
func ComputeRuleMetrics(ruleID string, trades []models.Trade, metadata map[string]models.TradeMetadata) RuleMetrics {
	followed := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		if metadata[t.ID].Followed(ruleID) {
			followed = append(followed, t)
		}
	}

	m := ComputeMetrics(followed)
	return RuleMetrics{
		RuleID:       ruleID,
		Followed:     len(followed),
		FollowRate:   percent(len(followed), len(trades)),
		NetPnL:       m.NetPnL,
		ProfitFactor: m.ProfitFactor,
		WinRate:      m.WinRate,
	}
}

// RuleGroupMetrics scores every rule of every group, ordered by position
func RuleGroupMetrics(groups []models.RuleGroup, trades []models.Trade, metadata map[string]models.TradeMetadata) []GroupMetrics {
	ordered := append([]models.RuleGroup(nil), groups...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Position < ordered[j].Position })

	out := make([]GroupMetrics, 0, len(ordered))
	for _, g := range ordered {
		rules := append([]models.Rule(nil), g.Rules...)
		sort.SliceStable(rules, func(i, j int) bool { return rules[i].Position < rules[j].Position })

		gm := GroupMetrics{
			GroupID: g.ID,
			Title:   g.Title,
			Rules:   make([]RuleMetrics, 0, len(rules)),
		}
		for _, r := range rules {
			rm := ComputeRuleMetrics(r.ID, trades, metadata)
			rm.Text = r.Text
			gm.Rules = append(gm.Rules, rm)
		}
		out = append(out, gm)
	}
	return out
}
