package models

import "time"

// Rule frequency constants
const (
	FrequencyEveryTrade = "every_trade"
	FrequencyDaily      = "daily"
	FrequencyWeekly     = "weekly"
	FrequencySometimes  = "sometimes"
)

// Strategy is a trading model with its playbook and auto rules
type Strategy struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	AutoRules   AutoRulesConfig `json:"auto_rules"`
	RuleGroups  []RuleGroup     `json:"rule_groups"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RuleGroup is an ordered list of playbook rules under a title.
// Position only affects display order.
type RuleGroup struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
	Rules    []Rule `json:"rules"`
}

// Rule is a free-text playbook rule checked manually per trade
type Rule struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Frequency string `json:"frequency,omitempty"`
	Position  int    `json:"position"`
}
