package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/trade-journal/internal/models"
)

func seriesTrades() []models.Trade {
	return []models.Trade{
		tradeAt("1", "2024-03-12", "10:00", "50"),
		tradeAt("2", "2024-03-11", "15:00", "-20"),
		tradeAt("3", "2024-03-11", "09:00", "100"),
		tradeAt("4", "2024-03-17", "11:00", "-150"),
		tradeAt("5", "2024-04-01", "10:00", "30"),
	}
}

func TestBucketDaily(t *testing.T) {
	series := BucketDaily(seriesTrades(), FixedOffset(0))

	assert.Equal(t, []SeriesPoint{
		{Date: "2024-03-11", PnL: 80, Trades: 2},
		{Date: "2024-03-12", PnL: 50, Trades: 1},
		{Date: "2024-03-17", PnL: -150, Trades: 1},
		{Date: "2024-04-01", PnL: 30, Trades: 1},
	}, series)
}

func TestBucketDaily_UsesZone(t *testing.T) {
	series := BucketDaily([]models.Trade{tradeAt("1", "2024-03-11", "02:00", "5")}, FixedOffset(-300))

	require.Len(t, series, 1)
	assert.Equal(t, "2024-03-10", series[0].Date)
}

func TestBucketDaily_DateOnlyTradeIgnoresZone(t *testing.T) {
	series := BucketDaily([]models.Trade{tradeAt("1", "2024-03-11", "", "5")}, FixedOffset(-300))

	require.Len(t, series, 1)
	assert.Equal(t, "2024-03-11", series[0].Date)
}

func TestBucketWeekly(t *testing.T) {
	series := BucketWeekly(seriesTrades(), FixedOffset(0))

	// 2024-03-17 is a Sunday and belongs to the week of Monday 03-11
	assert.Equal(t, []SeriesPoint{
		{Date: "2024-03-11", PnL: -20, Trades: 4},
		{Date: "2024-04-01", PnL: 30, Trades: 1},
	}, series)
}

func TestBucketMonthly(t *testing.T) {
	series := BucketMonthly(seriesTrades(), FixedOffset(0))

	assert.Equal(t, []SeriesPoint{
		{Date: "2024-03", PnL: -20, Trades: 4},
		{Date: "2024-04", PnL: 30, Trades: 1},
	}, series)
}

func TestCumulative(t *testing.T) {
	daily := []SeriesPoint{
		{Date: "2024-03-11", PnL: 0.1, Trades: 1},
		{Date: "2024-03-12", PnL: 0.2, Trades: 2},
		{Date: "2024-03-13", PnL: -1, Trades: 1},
	}
	snapshot := append([]SeriesPoint(nil), daily...)

	first := Cumulative(daily)
	second := Cumulative(daily)

	assert.Equal(t, []SeriesPoint{
		{Date: "2024-03-11", PnL: 0.1, Trades: 1},
		{Date: "2024-03-12", PnL: 0.3, Trades: 3},
		{Date: "2024-03-13", PnL: -0.7, Trades: 4},
	}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, snapshot, daily, "input is not modified")
	assert.Empty(t, Cumulative(nil))
}

func TestDrawdown(t *testing.T) {
	t.Run("tracks distance from peak", func(t *testing.T) {
		dd := Drawdown([]SeriesPoint{
			{Date: "d1", PnL: 100},
			{Date: "d2", PnL: -30},
			{Date: "d3", PnL: -50},
			{Date: "d4", PnL: 120},
			{Date: "d5", PnL: -10},
		})

		require.Len(t, dd.Points, 5)
		assert.Equal(t, -80.0, dd.MaxDrawdown)
		assert.Equal(t, "d3", dd.MaxDrawdownDate)
		assert.Equal(t, DrawdownPoint{Date: "d4", Equity: 140, Peak: 140, Drawdown: 0}, dd.Points[3])
		assert.Equal(t, -10.0, dd.Points[4].Drawdown)
	})

	t.Run("losing from the start counts", func(t *testing.T) {
		dd := Drawdown([]SeriesPoint{{Date: "d1", PnL: -25}})

		assert.Equal(t, -25.0, dd.MaxDrawdown)
	})

	t.Run("empty", func(t *testing.T) {
		dd := Drawdown(nil)

		assert.Empty(t, dd.Points)
		assert.Equal(t, 0.0, dd.MaxDrawdown)
		assert.Empty(t, dd.MaxDrawdownDate)
	})
}

func TestStreaks(t *testing.T) {
	trades := []models.Trade{
		tradeAt("5", "2024-03-15", "10:00", "-5"),
		tradeAt("1", "2024-03-11", "10:00", "10"),
		tradeAt("2", "2024-03-12", "10:00", "20"),
		tradeAt("3", "2024-03-13", "10:00", "0"),
		tradeAt("4", "2024-03-14", "10:00", "-5"),
		tradeAt("6", "2024-03-18", "10:00", "7"),
	}

	s := Streaks(trades)

	assert.Equal(t, StreakSummary{MaxWinStreak: 2, MaxLossStreak: 2, CurrentWinStreak: 1}, s)
}

func TestDayStreaks(t *testing.T) {
	s := DayStreaks([]SeriesPoint{
		{Date: "d1", PnL: -1},
		{Date: "d2", PnL: -2},
		{Date: "d3", PnL: -3},
		{Date: "d4", PnL: 4},
		{Date: "d5", PnL: -1},
	})

	assert.Equal(t, StreakSummary{MaxWinStreak: 1, MaxLossStreak: 3, CurrentLossStreak: 1}, s)
	assert.Equal(t, StreakSummary{}, DayStreaks(nil))
}
