package pivot

// Windowed flags a bar as a pivot high when its value strictly exceeds every
// value within Window bars on both sides; pivot lows are the mirror. Bars
// within Window of either boundary are never pivots. O(n·Window), which is
// fine for single-digit windows over a few hundred bars.
type Windowed struct {
	Window int
}

func (w Windowed) Name() string { return MethodSwing }

// Detect returns the pivot highs and lows in increasing position order.
// A series of length <= 2*Window yields two empty sequences, not an error.
func (w Windowed) Detect(positions []int, values []float64) (highs, lows []Pivot) {
	n := len(values)
	if w.Window <= 0 || n <= 2*w.Window {
		return nil, nil
	}
	for i := w.Window; i < n-w.Window; i++ {
		center := values[i]
		isHigh := true
		isLow := true
		for j := i - w.Window; j <= i+w.Window && (isHigh || isLow); j++ {
			if j == i {
				continue
			}
			if isHigh && !finiteStrictGreater(center, values[j]) {
				isHigh = false
			}
			if isLow && !finiteStrictGreater(values[j], center) {
				isLow = false
			}
		}
		// Strict comparisons make both directions impossible at once.
		if isHigh {
			highs = append(highs, Pivot{Pos: positions[i], Value: center, Kind: High})
		} else if isLow {
			lows = append(lows, Pivot{Pos: positions[i], Value: center, Kind: Low})
		}
	}
	return highs, lows
}
