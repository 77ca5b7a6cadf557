package journalfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/trade-journal/internal/analytics"
	"github.com/trogers1052/trade-journal/internal/report"
)

const sampleYAML = `
name: Opening range breakout
strategy_id: orb
timezone: -300
trades:
  - id: T-1
    symbol: ES
    side: long
    open_date: 2024-03-11
    entry_time: "09:35"
    exit_time: "10:05"
    net_pnl: 225
    contracts_traded: 1
  - id: T-2
    symbol: ES
    side: short
    open_date: 2024-03-11
    entry_time: "13:10"
    exit_time: "13:40"
    net_pnl: -150.5
  - id: T-3
    symbol: NQ
    side: LONG
    open_date: 2024-03-12
    entry_time: "09:45"
    net_pnl: 80
metadata:
  T-1:
    model: orb
    rule_checks:
      r1: true
  T-2:
    model: orb
  T-3:
    model: vwap
auto_rules:
  maxLossPerTradeValue: 100
  sessionStart: "09:30"
  sessionEnd: "11:00"
  sessionTimezone: UTC
rule_groups:
  - id: entry
    title: Entry
    rules:
      - id: r1
        text: Wait for the retest
`

func TestParse_YAML(t *testing.T) {
	in, err := Parse([]byte(sampleYAML), Options{Timezone: analytics.LocalZone()})
	require.NoError(t, err)

	assert.Equal(t, "orb", in.StrategyID)
	assert.Equal(t, "Opening range breakout", in.Name)
	assert.Equal(t, analytics.FixedOffset(-300), in.Timezone)
	require.Len(t, in.Trades, 3)
	assert.Equal(t, "LONG", in.Trades[0].Side)
	assert.Equal(t, "SHORT", in.Trades[1].Side)
	assert.Equal(t, "2024-03-11", in.Trades[0].OpenDate)
	assert.Equal(t, "-150.5", in.Trades[1].NetPnl.String())

	require.Contains(t, in.Metadata, "T-1")
	assert.Equal(t, "T-1", in.Metadata["T-1"].TradeID)
	assert.True(t, in.Metadata["T-1"].Followed("r1"))

	require.NotNil(t, in.AutoRules)
	assert.True(t, in.AutoRules.MaxLossPerTrade.Enabled)
	assert.True(t, in.AutoRules.Session.Enabled)
	assert.Equal(t, "UTC", in.AutoRules.Session.Timezone.Name)

	require.Len(t, in.RuleGroups, 1)
	assert.Equal(t, "r1", in.RuleGroups[0].Rules[0].ID)
}

func TestParse_JSON(t *testing.T) {
	doc := `{"trades":[{"id":"A","side":"LONG","open_date":"2024-03-11","net_pnl":"10"}],"timezone":"local"}`

	in, err := Parse([]byte(doc), Options{Timezone: analytics.FixedOffset(60)})
	require.NoError(t, err)
	require.Len(t, in.Trades, 1)
	assert.Nil(t, in.AutoRules)
	assert.Equal(t, analytics.LocalZone(), in.Timezone)
}

func TestParse_ModelFilter(t *testing.T) {
	in, err := Parse([]byte(sampleYAML), Options{Model: "vwap"})
	require.NoError(t, err)
	require.Len(t, in.Trades, 1)
	assert.Equal(t, "T-3", in.Trades[0].ID)
	assert.Equal(t, "orb", in.StrategyID, "document id wins over the filter")
}

func TestParse_NumericMetadataKeys(t *testing.T) {
	doc := `
trades:
  - {id: "1001", side: LONG, open_date: 2024-03-11, net_pnl: 5}
metadata:
  1001: {model: orb}
`
	in, err := Parse([]byte(doc), Options{})
	require.NoError(t, err)
	assert.Equal(t, "orb", in.Metadata["1001"].Model)
}

func TestParse_Errors(t *testing.T) {
	for name, doc := range map[string]string{
		"not a mapping": `- 1`,
		"broken yaml":   "trades: [",
		"missing id":    `trades: [{side: LONG, net_pnl: 1}]`,
		"duplicate id":  `trades: [{id: A, net_pnl: 1}, {id: A, net_pnl: 2}]`,
		"bad pnl":       `trades: [{id: A, net_pnl: lots}]`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc), Options{})
			assert.Error(t, err)
		})
	}
}

func TestLoad_feedsReportBuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	in, err := Load(path, Options{Model: "orb"})
	require.NoError(t, err)

	r := report.Build(in)
	assert.Equal(t, 2, r.Metrics.Total)
	require.NotNil(t, r.AutoRules)
	// T-2 lost 150.5 against a 100 limit and traded outside the session
	assert.Equal(t, 1, r.AutoRules.WithinMaxLoss.Passed)
	assert.Equal(t, 1, r.AutoRules.WithinSession.Passed)
	require.Len(t, r.RuleGroups, 1)
	assert.Equal(t, 1, r.RuleGroups[0].Rules[0].Followed)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), Options{})
	assert.Error(t, err)
}

func TestWatch_firesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan struct{}, 1)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, nil, func() {
			select {
			case changed <- struct{}{}:
			default:
			}
		})
	}()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML+"\n"), 0o644))

	select {
	case <-changed:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change notification")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
