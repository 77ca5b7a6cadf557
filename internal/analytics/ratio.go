package analytics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// InfinitySymbol is how an unbounded ratio is rendered
const InfinitySymbol = "∞"

// Ratio is a non-negative ratio that may be +Inf, such as a profit factor.
// It encodes +Inf as the JSON string "∞" since JSON has no infinity.
type Ratio float64

// IsInf reports whether the ratio is unbounded
func (r Ratio) IsInf() bool {
	return math.IsInf(float64(r), 1)
}

func (r Ratio) String() string {
	if r.IsInf() {
		return InfinitySymbol
	}
	return strconv.FormatFloat(float64(r), 'f', 2, 64)
}

func (r Ratio) MarshalJSON() ([]byte, error) {
	if r.IsInf() {
		return json.Marshal(InfinitySymbol)
	}
	f := float64(r)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("invalid ratio value %v", f)
	}
	return []byte(strconv.FormatFloat(f, 'g', -1, 64)), nil
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		switch s {
		case InfinitySymbol, "Infinity", "+Inf", "inf":
			*r = Ratio(math.Inf(1))
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("failed to parse ratio %q: %w", s, err)
		}
		*r = Ratio(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*r = Ratio(f)
	return nil
}

// profitFactor divides gross profit by gross loss magnitude. With no losses
// it is +Inf when there were wins and 0 otherwise.
func profitFactor(grossProfit, grossLoss decimal.Decimal) Ratio {
	if grossLoss.IsPositive() {
		return Ratio(grossProfit.Div(grossLoss).InexactFloat64())
	}
	if grossProfit.IsPositive() {
		return Ratio(math.Inf(1))
	}
	return 0
}
