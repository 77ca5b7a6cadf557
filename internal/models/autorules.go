package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Session applyIn values
const (
	ApplyInLocal    = "local"
	ApplyInTimezone = "timezone"
)

// LimitRule is a currency limit. Value is always a positive magnitude.
type LimitRule struct {
	Enabled bool            `json:"enabled"`
	Value   decimal.Decimal `json:"value"`
}

// CountRule is an integer cap
type CountRule struct {
	Enabled bool `json:"enabled"`
	Value   int  `json:"value"`
}

// WeekdayRule holds allowed weekday indices, Sunday=0
type WeekdayRule struct {
	Enabled bool  `json:"enabled"`
	Value   []int `json:"value"`
}

// Allows reports whether weekday is in the allowed set
func (w WeekdayRule) Allows(weekday int) bool {
	for _, d := range w.Value {
		if d == weekday {
			return true
		}
	}
	return false
}

// Timezone is either a named IANA zone or a fixed UTC offset in minutes.
// In JSON it is a string for named zones and a number for offsets.
type Timezone struct {
	Name          string
	OffsetMinutes *int
}

// IsZero reports whether no timezone was configured
func (tz Timezone) IsZero() bool {
	return tz.Name == "" && tz.OffsetMinutes == nil
}

func (tz Timezone) MarshalJSON() ([]byte, error) {
	switch {
	case tz.OffsetMinutes != nil:
		return json.Marshal(*tz.OffsetMinutes)
	case tz.Name != "":
		return json.Marshal(tz.Name)
	default:
		return []byte("null"), nil
	}
}

func (tz *Timezone) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode timezone: %w", err)
	}
	*tz = ParseTimezone(raw)
	return nil
}

// SessionRule restricts trading to a clock window
type SessionRule struct {
	Enabled  bool     `json:"enabled"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Timezone Timezone `json:"timezone"`
	ApplyIn  string   `json:"applyIn,omitempty"`
}

// Window returns the start and end of the session in minutes since
// midnight. ok is false when either bound does not parse.
func (s SessionRule) Window() (start, end int, ok bool) {
	start, okStart := ParseClock(s.Start)
	end, okEnd := ParseClock(s.End)
	return start, end, okStart && okEnd
}

// AutoRulesConfig is the canonical auto-rule configuration of a strategy.
// It decodes every legacy shape through NormalizeAutoRules, so code
// downstream of decoding only ever sees {enabled, value} rules.
type AutoRulesConfig struct {
	MaxLossPerTrade LimitRule   `json:"maxLossPerTrade"`
	MaxTradesPerDay CountRule   `json:"maxTradesPerDay"`
	MaxDailyLoss    LimitRule   `json:"maxDailyLoss"`
	Session         SessionRule `json:"session"`
	AllowedWeekdays WeekdayRule `json:"allowedWeekdays"`
}

func (c *AutoRulesConfig) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("failed to decode auto rules: %w", err)
	}
	*c = NormalizeAutoRules(raw)
	return nil
}

// NormalizeAutoRules maps a loosely shaped configuration document into the
// canonical form. Accepted per sub-rule, in order of precedence:
//
//   - {"enabled": b, "value": v}: taken as is
//   - {"value": v} without enabled: enabled whenever v is a number, zero
//     included, exactly as if enabled were true
//   - a bare value at the same key (number, or array for weekdays), with
//     the same meaning
//   - flat legacy keys: maxLossPerTradeValue, maxTradesPerDayValue,
//     maxDailyLossValue, allowedDays, sessionStart/sessionEnd/sessionTimezone
//
// Unknown keys are ignored and nothing here fails.
func NormalizeAutoRules(raw map[string]any) AutoRulesConfig {
	return AutoRulesConfig{
		MaxLossPerTrade: normalizeLimit(raw, "maxLossPerTrade"),
		MaxTradesPerDay: normalizeCount(raw, "maxTradesPerDay"),
		MaxDailyLoss:    normalizeLimit(raw, "maxDailyLoss"),
		Session:         normalizeSession(raw),
		AllowedWeekdays: normalizeWeekdays(raw),
	}
}

func normalizeLimit(raw map[string]any, key string) LimitRule {
	if obj, ok := raw[key].(map[string]any); ok {
		value, hasValue := toDecimal(obj["value"])
		value = value.Abs()
		if enabled, ok := obj["enabled"]; ok {
			return LimitRule{Enabled: toBool(enabled), Value: value}
		}
		if hasValue {
			return LimitRule{Enabled: true, Value: value}
		}
	}
	for _, k := range []string{key, key + "Value"} {
		if v, ok := toDecimal(raw[k]); ok {
			return LimitRule{Enabled: true, Value: v.Abs()}
		}
	}
	return LimitRule{}
}

func normalizeCount(raw map[string]any, key string) CountRule {
	if obj, ok := raw[key].(map[string]any); ok {
		value, hasValue := toInt(obj["value"])
		if enabled, ok := obj["enabled"]; ok {
			return CountRule{Enabled: toBool(enabled), Value: value}
		}
		if hasValue {
			return CountRule{Enabled: true, Value: value}
		}
	}
	for _, k := range []string{key, key + "Value"} {
		if v, ok := toInt(raw[k]); ok {
			return CountRule{Enabled: true, Value: v}
		}
	}
	return CountRule{}
}

func normalizeWeekdays(raw map[string]any) WeekdayRule {
	if obj, ok := raw["allowedWeekdays"].(map[string]any); ok {
		days, hasDays := toWeekdays(obj["value"])
		if enabled, ok := obj["enabled"]; ok {
			return WeekdayRule{Enabled: toBool(enabled), Value: days}
		}
		if hasDays {
			return WeekdayRule{Enabled: len(days) > 0, Value: days}
		}
	}
	for _, k := range []string{"allowedWeekdays", "allowedDays"} {
		if days, ok := toWeekdays(raw[k]); ok {
			return WeekdayRule{Enabled: len(days) > 0, Value: days}
		}
	}
	return WeekdayRule{}
}

func normalizeSession(raw map[string]any) SessionRule {
	var s SessionRule
	if obj, ok := raw["session"].(map[string]any); ok {
		s.Start = toString(obj["start"])
		s.End = toString(obj["end"])
		s.Timezone = ParseTimezone(obj["timezone"])
		if s.Timezone.IsZero() {
			s.Timezone = ParseTimezone(obj["timezoneOffset"])
		}
		s.ApplyIn = toApplyIn(obj["applyIn"])
		if enabled, ok := obj["enabled"]; ok {
			s.Enabled = toBool(enabled)
		} else {
			s.Enabled = s.Start != "" && s.End != ""
		}
	} else {
		s.Start = toString(raw["sessionStart"])
		s.End = toString(raw["sessionEnd"])
		s.Timezone = ParseTimezone(raw["sessionTimezone"])
		s.Enabled = s.Start != "" && s.End != ""
	}
	// A window that cannot be parsed can never be evaluated.
	if _, _, ok := s.Window(); s.Enabled && !ok {
		s.Enabled = false
	}
	return s
}

// ParseClock parses "HH:MM" or "HH:MM:SS" into minutes since midnight
func ParseClock(s string) (int, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

// ParseTimezone reads a timezone from a decoded document value: a zone
// name, an offset string ("-300", "UTC+2", "+05:30") or a number of
// minutes. Anything else yields the zero Timezone.
func ParseTimezone(v any) Timezone {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return Timezone{}
		}
		if offset, ok := parseOffset(s); ok {
			return Timezone{OffsetMinutes: &offset}
		}
		return Timezone{Name: s}
	}
	if n, ok := toInt(v); ok {
		return Timezone{OffsetMinutes: &n}
	}
	return Timezone{}
}

// parseOffset accepts "-300", "+05:30", "UTC-5" and "GMT+01:00"
func parseOffset(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(upper, prefix) && len(upper) > len(prefix) {
			upper = upper[len(prefix):]
			break
		}
	}
	if len(upper) < 2 || (upper[0] != '+' && upper[0] != '-') {
		return 0, false
	}
	sign := 1
	if upper[0] == '-' {
		sign = -1
	}
	body := upper[1:]
	hours, minutes := body, "0"
	if i := strings.Index(body, ":"); i >= 0 {
		hours, minutes = body[:i], body[i+1:]
	}
	h, err := strconv.Atoi(hours)
	if err != nil || h > 14 {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m > 59 {
		return 0, false
	}
	return sign * (h*60 + m), true
}

func toApplyIn(v any) string {
	switch strings.ToLower(toString(v)) {
	case "":
		return ""
	case ApplyInLocal:
		return ApplyInLocal
	default:
		return ApplyInTimezone
	}
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return strings.TrimSpace(s)
	case json.Number:
		return s.String()
	default:
		return ""
	}
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(b))
		return parsed
	default:
		if d, ok := toDecimal(v); ok {
			return !d.IsZero()
		}
		return false
	}
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		return d, err == nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(n), true
	case float32:
		return toDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int64:
		return decimal.NewFromInt(n), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(n))
		return d, err == nil
	case decimal.Decimal:
		return n, true
	default:
		return decimal.Zero, false
	}
}

func toInt(v any) (int, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return 0, false
	}
	return int(d.IntPart()), true
}

func toWeekdays(v any) ([]int, bool) {
	var items []any
	switch list := v.(type) {
	case []any:
		items = list
	case []int:
		for _, d := range list {
			items = append(items, d)
		}
	default:
		return nil, false
	}
	seen := make(map[int]bool)
	days := make([]int, 0, len(items))
	for _, item := range items {
		d, ok := toInt(item)
		if !ok || d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Ints(days)
	return days, true
}
