// Package journalfile reads offline journal documents for the report CLI.
package journalfile

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/models"
	"github.com/trogers1052/trade-journal/internal/report"
)

// document is the on-disk journal. YAML and JSON share the same keys;
// camelCase and snake_case spellings of the top-level keys are accepted.
type document struct {
	StrategyID string                          `json:"strategyId"`
	Name       string                          `json:"name"`
	Timezone   models.Timezone                 `json:"timezone"`
	Trades     []models.Trade                  `json:"trades"`
	Metadata   map[string]models.TradeMetadata `json:"metadata"`
	AutoRules  *models.AutoRulesConfig         `json:"autoRules"`
	RuleGroups []models.RuleGroup              `json:"ruleGroups"`
}

var keyAliases = map[string]string{
	"strategy_id": "strategyId",
	"strategy":    "strategyId",
	"auto_rules":  "autoRules",
	"rule_groups": "ruleGroups",
}

// Options adjust how a document becomes a report input
type Options struct {
	// Model keeps only trades whose metadata model matches
	Model string
	// Timezone is used when the document does not name one
	Timezone analytics.TimezoneSpec
}

// Load reads and parses the journal at path
func Load(path string, opts Options) (report.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return report.Input{}, fmt.Errorf("failed to read journal file: %w", err)
	}
	return Parse(data, opts)
}

// Parse decodes a YAML or JSON journal. JSON is a subset of YAML, so one
// decoder serves both; the tree is then re-encoded as JSON so the models'
// JSON decoders (legacy auto-rule shapes included) apply unchanged.
func Parse(data []byte, opts Options) (report.Input, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return report.Input{}, fmt.Errorf("failed to parse journal: %w", err)
	}
	root, ok := stringKeys(tree).(map[string]any)
	if !ok {
		return report.Input{}, fmt.Errorf("journal must be a mapping, got %T", tree)
	}
	for from, to := range keyAliases {
		if v, ok := root[from]; ok {
			if _, taken := root[to]; !taken {
				root[to] = v
			}
			delete(root, from)
		}
	}

	body, err := json.Marshal(root)
	if err != nil {
		return report.Input{}, fmt.Errorf("failed to normalize journal: %w", err)
	}
	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return report.Input{}, fmt.Errorf("failed to decode journal: %w", err)
	}

	return doc.input(opts)
}

func (d document) input(opts Options) (report.Input, error) {
	metadata := make(map[string]models.TradeMetadata, len(d.Metadata))
	for id, md := range d.Metadata {
		md.TradeID = id
		metadata[id] = md
	}

	seen := make(map[string]bool, len(d.Trades))
	trades := make([]models.Trade, 0, len(d.Trades))
	for i, t := range d.Trades {
		t.ID = strings.TrimSpace(t.ID)
		if t.ID == "" {
			return report.Input{}, fmt.Errorf("trade %d has no id", i)
		}
		if seen[t.ID] {
			return report.Input{}, fmt.Errorf("duplicate trade id %s", t.ID)
		}
		seen[t.ID] = true
		t.Side = strings.ToUpper(strings.TrimSpace(t.Side))
		if opts.Model != "" && metadata[t.ID].Model != opts.Model {
			continue
		}
		trades = append(trades, t)
	}

	tz := opts.Timezone
	switch {
	case d.Timezone.Name != "":
		tz = analytics.ParseTimezone(d.Timezone.Name)
	case d.Timezone.OffsetMinutes != nil:
		tz = analytics.FixedOffset(*d.Timezone.OffsetMinutes)
	}

	strategyID := d.StrategyID
	if strategyID == "" {
		strategyID = opts.Model
	}
	return report.Input{
		StrategyID: strategyID,
		Name:       d.Name,
		Trades:     trades,
		Metadata:   metadata,
		AutoRules:  d.AutoRules,
		RuleGroups: d.RuleGroups,
		Timezone:   tz,
	}, nil
}

// stringKeys rewrites mappings with non-string keys, such as numeric
// trade ids, so the tree can be encoded as JSON.
func stringKeys(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for k, child := range node {
			node[k] = stringKeys(child)
		}
		return node
	case map[any]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[fmt.Sprint(k)] = stringKeys(child)
		}
		return out
	case []any:
		for i, child := range node {
			node[i] = stringKeys(child)
		}
		return node
	default:
		return v
	}
}
