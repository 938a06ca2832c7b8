package market

import "math"

// Candle is one OHLCV bar. High/Low may be NaN when the upstream feed only
// carries closes; consumers fall back to close-only volatility in that case.
type Candle struct {
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Trades    int64   `json:"trades,omitempty"`
}

// ExtractSeries splits candles into parallel value slices.
func ExtractSeries(candles []Candle) (closes, highs, lows, volumes []float64) {
	n := len(candles)
	if n == 0 {
		return nil, nil, nil, nil
	}
	closes = make([]float64, n)
	highs = make([]float64, n)
	lows = make([]float64, n)
	volumes = make([]float64, n)
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
		volumes[i] = c.Volume
	}
	return closes, highs, lows, volumes
}

// IsFinite reports whether v is a usable number. NaN and ±Inf fail every
// comparison in the detection pipeline, so pivots and monotonicity checks
// involving them silently evaluate false.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
