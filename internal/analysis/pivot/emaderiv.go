package pivot

import (
	"stockscreen/internal/analysis/indicator"
	"stockscreen/internal/market"
)

// EMADerivative smooths the series with an EMA of the given span and flags
// sign flips of the first difference: falling-to-rising marks a pivot low,
// rising-to-falling a pivot high. It reacts to smoothed local curvature
// rather than a hard window, so it is deliberately more permissive than the
// windowed strategy. A flat series never flips (a zero derivative is treated
// as non-positive), so degenerate inputs yield no pivots.
type EMADerivative struct {
	Span int
}

func (e EMADerivative) Name() string { return MethodEMADeriv }

// Detect returns pivot highs and lows in increasing position order. Reported
// values are the raw series values at the flagged positions; smoothing only
// drives detection.
func (e EMADerivative) Detect(positions []int, values []float64) (highs, lows []Pivot) {
	if e.Span <= 0 || len(values) < 3 {
		return nil, nil
	}
	smoothed := indicator.EMASeries(values, e.Span)
	deriv := indicator.DiffSeries(smoothed)
	for i := 2; i < len(deriv); i++ {
		prev, cur := deriv[i-1], deriv[i]
		if !market.IsFinite(prev) || !market.IsFinite(cur) {
			continue
		}
		switch {
		case prev < 0 && cur >= 0:
			lows = append(lows, Pivot{Pos: positions[i], Value: values[i], Kind: Low})
		case prev > 0 && cur <= 0:
			highs = append(highs, Pivot{Pos: positions[i], Value: values[i], Kind: High})
		}
	}
	return highs, lows
}
