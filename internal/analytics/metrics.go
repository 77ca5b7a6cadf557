package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

var hundred = decimal.NewFromInt(100)

// DerivedMetrics summarizes a list of trades. AvgLoser and LargestLoss are
// reported as values <= 0; GrossLoss is a magnitude.
type DerivedMetrics struct {
	Total        int     `json:"total"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	BreakEven    int     `json:"break_even"`
	WinRate      float64 `json:"win_rate"`
	NetPnL       float64 `json:"net_pnl"`
	AvgWinner    float64 `json:"avg_winner"`
	AvgLoser     float64 `json:"avg_loser"`
	ProfitFactor Ratio   `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`

	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"`
	LargestWin  float64 `json:"largest_win"`
	LargestLoss float64 `json:"largest_loss"`
	TotalVolume float64 `json:"total_volume"`

	AvgHoldMinutes       float64 `json:"avg_hold_minutes"`
	AvgWinnerHoldMinutes float64 `json:"avg_winner_hold_minutes"`
	AvgLoserHoldMinutes  float64 `json:"avg_loser_hold_minutes"`
	HoldSamples          int     `json:"hold_samples"`
}

// holdAccumulator averages only over trades that have a duration
type holdAccumulator struct {
	sum   float64
	count int
}

func (h *holdAccumulator) add(minutes float64) {
	h.sum += minutes
	h.count++
}

func (h holdAccumulator) mean() float64 {
	if h.count == 0 {
		return 0
	}
	return h.sum / float64(h.count)
}

// ComputeMetrics reduces trades into DerivedMetrics. Money is summed as
// decimals and only converted at the end so repeated calls are identical.
func ComputeMetrics(trades []models.Trade) DerivedMetrics {
	m := DerivedMetrics{Total: len(trades)}

	var (
		net, grossProfit, grossLoss decimal.Decimal
		largestWin, largestLoss     decimal.Decimal
		volume                      decimal.Decimal
		allHold, winHold, lossHold  holdAccumulator
	)

	for _, t := range trades {
		pnl := t.NetPnl
		net = net.Add(pnl)
		volume = volume.Add(t.ContractsTraded)

		switch pnl.Sign() {
		case 1:
			m.Wins++
			grossProfit = grossProfit.Add(pnl)
			if pnl.GreaterThan(largestWin) {
				largestWin = pnl
			}
		case -1:
			m.Losses++
			grossLoss = grossLoss.Add(pnl.Abs())
			if pnl.LessThan(largestLoss) {
				largestLoss = pnl
			}
		default:
			m.BreakEven++
		}

		if minutes, ok := HoldMinutes(t); ok {
			allHold.add(minutes)
			switch pnl.Sign() {
			case 1:
				winHold.add(minutes)
			case -1:
				lossHold.add(minutes)
			}
		}
	}

	m.NetPnL = net.InexactFloat64()
	m.GrossProfit = grossProfit.InexactFloat64()
	m.GrossLoss = grossLoss.InexactFloat64()
	m.LargestWin = largestWin.InexactFloat64()
	m.LargestLoss = largestLoss.InexactFloat64()
	m.TotalVolume = volume.InexactFloat64()
	m.ProfitFactor = profitFactor(grossProfit, grossLoss)

	if m.Total > 0 {
		total := decimal.NewFromInt(int64(m.Total))
		m.WinRate = percent(m.Wins, m.Total)
		// winRate*avgWinner + lossRate*avgLoser reduces to the net of the
		// gross sums over total
		m.Expectancy = grossProfit.Sub(grossLoss).Div(total).InexactFloat64()
	}
	if m.Wins > 0 {
		m.AvgWinner = grossProfit.Div(decimal.NewFromInt(int64(m.Wins))).InexactFloat64()
	}
	if m.Losses > 0 {
		m.AvgLoser = grossLoss.Div(decimal.NewFromInt(int64(m.Losses))).Neg().InexactFloat64()
	}

	m.AvgHoldMinutes = allHold.mean()
	m.AvgWinnerHoldMinutes = winHold.mean()
	m.AvgLoserHoldMinutes = lossHold.mean()
	m.HoldSamples = allHold.count
	return m
}
