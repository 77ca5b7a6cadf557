package report

import (
	"time"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/models"
)

// Input is everything a report is computed from. Build is a pure function
// of it, which is what makes cached reports safe to reuse.
type Input struct {
	StrategyID string                          `json:"strategy_id,omitempty"`
	Name       string                          `json:"name,omitempty"`
	Trades     []models.Trade                  `json:"trades"`
	Metadata   map[string]models.TradeMetadata `json:"metadata"`
	AutoRules  *models.AutoRulesConfig         `json:"auto_rules,omitempty"`
	RuleGroups []models.RuleGroup              `json:"rule_groups,omitempty"`
	Timezone   analytics.TimezoneSpec          `json:"timezone"`
}

// Report is the computed analytics of a set of trades
type Report struct {
	StrategyID  string                     `json:"strategy_id,omitempty"`
	Name        string                     `json:"name,omitempty"`
	GeneratedAt time.Time                  `json:"generated_at"`
	Metrics     analytics.DerivedMetrics   `json:"metrics"`
	RMultiples  analytics.RSummary         `json:"r_multiples"`
	AutoRules   *analytics.AutoRuleSummary `json:"auto_rules,omitempty"`
	RuleGroups  []analytics.GroupMetrics   `json:"rule_groups"`
	Daily       []analytics.SeriesPoint    `json:"daily"`
	Weekly      []analytics.SeriesPoint    `json:"weekly"`
	Monthly     []analytics.SeriesPoint    `json:"monthly"`
	Equity      []analytics.SeriesPoint    `json:"equity"`
	Drawdown    analytics.DrawdownSummary  `json:"drawdown"`
	Streaks     analytics.StreakSummary    `json:"streaks"`
	DayStreaks  analytics.StreakSummary    `json:"day_streaks"`
}

// Build computes a report. Series are bucketed in the session zone of the
// auto rules when one is configured, otherwise in in.Timezone.
func Build(in Input) Report {
	zone := in.Timezone
	if in.AutoRules != nil {
		zone = seriesZone(in.AutoRules.Session, in.Timezone)
	}

	daily := analytics.BucketDaily(in.Trades, zone)
	r := Report{
		StrategyID: in.StrategyID,
		Name:       in.Name,
		Metrics:    analytics.ComputeMetrics(in.Trades),
		RMultiples: analytics.AggregateRMultiples(in.Trades, in.Metadata),
		RuleGroups: analytics.RuleGroupMetrics(in.RuleGroups, in.Trades, in.Metadata),
		Daily:      daily,
		Weekly:     analytics.BucketWeekly(in.Trades, zone),
		Monthly:    analytics.BucketMonthly(in.Trades, zone),
		Equity:     analytics.Cumulative(daily),
		Drawdown:   analytics.Drawdown(daily),
		Streaks:    analytics.Streaks(in.Trades),
		DayStreaks: analytics.DayStreaks(daily),
	}
	if in.AutoRules != nil {
		summary := analytics.EvaluateAutoRules(in.Trades, *in.AutoRules)
		r.AutoRules = &summary
	}
	return r
}

func seriesZone(s models.SessionRule, fallback analytics.TimezoneSpec) analytics.TimezoneSpec {
	if s.ApplyIn != models.ApplyInLocal && s.Timezone.IsZero() {
		return fallback
	}
	return analytics.SessionZone(s)
}

// findRule looks a playbook rule up by id across all groups
func findRule(groups []models.RuleGroup, ruleID string) (models.Rule, bool) {
	for _, g := range groups {
		for _, r := range g.Rules {
			if r.ID == ruleID {
				return r, true
			}
		}
	}
	return models.Rule{}, false
}
