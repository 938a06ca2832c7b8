package indicator

import (
	"math"

	talib "github.com/markcheno/go-talib"

	"stockscreen/internal/market"
)

// RSI computes the Wilder relative strength index over closes. Warmup bars
// (the first period entries) are NaN so they fail downstream comparisons
// instead of posing as real readings.
func RSI(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) == 0 {
		return nil
	}
	out := talib.Rsi(closes, period)
	markWarmup(out, period)
	return out
}

// ATR computes the average true range for the series. When every bar carries
// a finite high/low range the talib ATR is used; close-only feeds fall back
// to a Wilder-smoothed absolute close-to-close move.
func ATR(candles []market.Candle, period int) []float64 {
	if period <= 0 || len(candles) == 0 {
		return nil
	}
	closes, highs, lows, _ := market.ExtractSeries(candles)
	if hasRange(highs, lows) {
		out := talib.Atr(highs, lows, closes, period)
		markWarmup(out, period)
		return out
	}
	return closeATR(closes, period)
}

// EMASeries smooths values with an exponential moving average of the given
// span, alpha = 2/(span+1), seeded at the first finite value. Non-finite
// inputs propagate as NaN without contaminating later bars.
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span <= 0 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	alpha := 2.0 / (float64(span) + 1.0)
	prev := math.NaN()
	for i, v := range values {
		if !market.IsFinite(v) {
			out[i] = math.NaN()
			continue
		}
		if !market.IsFinite(prev) {
			prev = v
		} else {
			prev = alpha*v + (1-alpha)*prev
		}
		out[i] = prev
	}
	return out
}

// DiffSeries returns first differences; out[0] is NaN.
func DiffSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 || !market.IsFinite(values[i]) || !market.IsFinite(values[i-1]) {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

func hasRange(highs, lows []float64) bool {
	for i := range highs {
		if !market.IsFinite(highs[i]) || !market.IsFinite(lows[i]) || highs[i] < lows[i] {
			return false
		}
	}
	return len(highs) > 0
}

func closeATR(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(closes) <= period {
		return out
	}
	// Seed with a simple average of the first period moves, then Wilder-smooth.
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += math.Abs(closes[i] - closes[i-1])
	}
	prev := sum / float64(period)
	out[period] = prev
	for i := period + 1; i < len(closes); i++ {
		tr := math.Abs(closes[i] - closes[i-1])
		prev = (prev*float64(period-1) + tr) / float64(period)
		out[i] = prev
	}
	return out
}

func markWarmup(values []float64, period int) {
	for i := 0; i < period && i < len(values); i++ {
		if values[i] == 0 {
			values[i] = math.NaN()
		}
	}
}
