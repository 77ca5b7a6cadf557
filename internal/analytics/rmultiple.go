package analytics

import (
	"github.com/shopspring/decimal"

	"github.com/trogers1052/trade-journal/internal/models"
)

// RMultiple holds a trade's planned and realized R. A nil value means the
// trade had no defined risk, which is different from zero.
type RMultiple struct {
	Planned  *float64 `json:"planned"`
	Realized *float64 `json:"realized"`
}

// RSummary averages R-multiples over the trades that have one
type RSummary struct {
	AvgPlanned      float64 `json:"avg_planned_r_multiple"`
	AvgRealized     float64 `json:"avg_realized_r_multiple"`
	PlannedSamples  int     `json:"planned_samples"`
	RealizedSamples int     `json:"realized_samples"`
}

// TradeRMultiple derives R for a trade. Explicit values win in this order:
// the metadata override, then the trade's own value, then the computed one.
// override may be nil.
func TradeRMultiple(t models.Trade, override *models.TradeMetadata) RMultiple {
	var r RMultiple

	planned := firstSet(metadataPlanned(override), t.PlannedRMultiple)
	if planned != nil {
		r.Planned = toFloat(*planned)
	} else if v, ok := plannedR(t); ok {
		r.Planned = toFloat(v)
	}

	realized := firstSet(metadataRealized(override), t.RealizedRMultiple)
	if realized != nil {
		r.Realized = toFloat(*realized)
	} else if v, ok := realizedR(t); ok {
		r.Realized = toFloat(v)
	}
	return r
}

// AggregateRMultiples averages planned and realized R separately. With no
// samples the average is 0.
func AggregateRMultiples(trades []models.Trade, metadata map[string]models.TradeMetadata) RSummary {
	var (
		summary                 RSummary
		plannedSum, realizedSum decimal.Decimal
	)
	for _, t := range trades {
		var override *models.TradeMetadata
		if md, ok := metadata[t.ID]; ok {
			override = &md
		}
		r := TradeRMultiple(t, override)
		if r.Planned != nil {
			plannedSum = plannedSum.Add(decimal.NewFromFloat(*r.Planned))
			summary.PlannedSamples++
		}
		if r.Realized != nil {
			realizedSum = realizedSum.Add(decimal.NewFromFloat(*r.Realized))
			summary.RealizedSamples++
		}
	}
	if summary.PlannedSamples > 0 {
		summary.AvgPlanned = plannedSum.Div(decimal.NewFromInt(int64(summary.PlannedSamples))).InexactFloat64()
	}
	if summary.RealizedSamples > 0 {
		summary.AvgRealized = realizedSum.Div(decimal.NewFromInt(int64(summary.RealizedSamples))).InexactFloat64()
	}
	return summary
}

// plannedR is reward over risk at entry. For shorts both legs flip sign.
func plannedR(t models.Trade) (decimal.Decimal, bool) {
	if t.PlannedStop == nil || t.PlannedTarget == nil {
		return decimal.Zero, false
	}
	stop, target := *t.PlannedStop, *t.PlannedTarget

	reward := target.Sub(t.EntryPrice)
	risk := t.EntryPrice.Sub(stop)
	if t.IsShort() {
		reward = t.EntryPrice.Sub(target)
		risk = stop.Sub(t.EntryPrice)
	}
	if risk.IsZero() {
		return decimal.Zero, false
	}
	return reward.Div(risk), true
}

// realizedR expresses net P&L in units of the money at risk:
// |entry - stop| per contract times contracts traded. Like plannedR it is
// undefined unless both stop and target were planned.
func realizedR(t models.Trade) (decimal.Decimal, bool) {
	if t.PlannedStop == nil || t.PlannedTarget == nil || !t.ContractsTraded.IsPositive() {
		return decimal.Zero, false
	}
	risk := t.EntryPrice.Sub(*t.PlannedStop).Abs().Mul(t.ContractsTraded)
	if risk.IsZero() {
		return decimal.Zero, false
	}
	return t.NetPnl.Div(risk), true
}

func metadataPlanned(md *models.TradeMetadata) *decimal.Decimal {
	if md == nil {
		return nil
	}
	return md.PlannedRMultiple
}

func metadataRealized(md *models.TradeMetadata) *decimal.Decimal {
	if md == nil {
		return nil
	}
	return md.RealizedRMultiple
}

func firstSet(values ...*decimal.Decimal) *decimal.Decimal {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func toFloat(d decimal.Decimal) *float64 {
	f := d.InexactFloat64()
	return &f
}
