// Package pivot extracts local extrema from numeric series. Two strategies
// share one contract: ordered position sequences, highs and lows disjoint.
package pivot

import (
	"fmt"

	"stockscreen/internal/market"
)

// Kind tags a pivot as a local maximum or minimum.
type Kind string

const (
	High Kind = "high"
	Low  Kind = "low"
)

// Pivot is a local extremum. Value is always the raw series value at Pos,
// even when detection ran on a smoothed copy of the series.
type Pivot struct {
	Pos   int     `json:"pos"`
	Value float64 `json:"value"`
	Kind  Kind    `json:"kind"`
}

// Set holds the four disjoint pivot sequences for a price/indicator pair,
// each in increasing position order. Price and indicator pivots are computed
// independently and only ever associated by position proximity.
type Set struct {
	PriceHighs     []Pivot
	PriceLows      []Pivot
	IndicatorHighs []Pivot
	IndicatorLows  []Pivot
}

// Strategy turns a value series (with its bar positions) into ordered pivot
// sequences. Implementations are pure and safe for concurrent use.
type Strategy interface {
	Name() string
	Detect(positions []int, values []float64) (highs, lows []Pivot)
}

// Strategy names accepted by ForName.
const (
	MethodSwing    = "swing"
	MethodEMADeriv = "ema-deriv"
)

// ForName selects a detection strategy once per call. window applies to the
// swing strategy, span to the EMA-derivative strategy.
func ForName(name string, window, span int) (Strategy, error) {
	switch name {
	case MethodSwing, "":
		if window <= 0 {
			return nil, fmt.Errorf("pivot: swing window must be positive, got %d", window)
		}
		return Windowed{Window: window}, nil
	case MethodEMADeriv:
		if span <= 0 {
			return nil, fmt.Errorf("pivot: ema span must be positive, got %d", span)
		}
		return EMADerivative{Span: span}, nil
	default:
		return nil, fmt.Errorf("pivot: unknown method %q", name)
	}
}

// finiteStrictGreater reports v > w with NaN failing the comparison.
func finiteStrictGreater(v, w float64) bool {
	return market.IsFinite(v) && market.IsFinite(w) && v > w
}
