package divergence

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"stockscreen/internal/market"
)

func breakoutSeries(n int, mutate func(candles []market.Candle)) *market.Series {
	candles := make([]market.Candle, n)
	for i := range candles {
		candles[i] = market.Candle{Close: 100, High: 100, Low: 100}
	}
	if mutate != nil {
		mutate(candles)
	}
	return market.NewSeries(candles)
}

func TestBreakoutOccurredBullish(t *testing.T) {
	s := breakoutSeries(30, func(c []market.Candle) {
		c[29].Close = 106
	})
	require.True(t, BreakoutOccurred(s, 10, Bullish, 0.05))
	require.False(t, BreakoutOccurred(s, 10, Bullish, 0.07))
	require.False(t, BreakoutOccurred(s, 10, Bearish, 0.05))
}

func TestBreakoutOccurredBearish(t *testing.T) {
	s := breakoutSeries(30, func(c []market.Candle) {
		c[29].Close = 94
	})
	require.True(t, BreakoutOccurred(s, 10, Bearish, 0.05))
	require.False(t, BreakoutOccurred(s, 10, Bearish, 0.07))
}

func TestBreakoutOccurredExactThreshold(t *testing.T) {
	// Landing exactly on the implied target counts as resolved.
	s := breakoutSeries(30, func(c []market.Candle) {
		c[29].Close = 125
	})
	require.True(t, BreakoutOccurred(s, 10, Bullish, 0.25))
}

func TestBreakoutOccurredUnknownPosition(t *testing.T) {
	s := breakoutSeries(30, nil)
	require.False(t, BreakoutOccurred(s, 99, Bullish, 0.05))
	require.False(t, BreakoutOccurred(nil, 10, Bullish, 0.05))
	require.False(t, BreakoutOccurred(s, 10, DirectionNone, 0.05))
}

func TestFailedBreakoutBullish(t *testing.T) {
	// Price pokes 3.5% above the divergence close, then closes back inside
	// the 1% band: an aborted move.
	s := breakoutSeries(30, func(c []market.Candle) {
		c[15].High = 103.5
		c[29].Close = 100.5
	})
	require.True(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))

	// Never cleared the attempt threshold.
	s = breakoutSeries(30, func(c []market.Candle) {
		c[15].High = 102
		c[29].Close = 100.5
	})
	require.False(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))

	// Attempted and held: not a failure.
	s = breakoutSeries(30, func(c []market.Candle) {
		c[15].High = 103.5
		c[29].Close = 104
	})
	require.False(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))
}

func TestFailedBreakoutBearish(t *testing.T) {
	s := breakoutSeries(30, func(c []market.Candle) {
		c[15].Low = 96.5
		c[29].Close = 99.5
	})
	require.True(t, FailedBreakout(s, 10, Bearish, 10, 0.03, 0.01))

	s = breakoutSeries(30, func(c []market.Candle) {
		c[15].Low = 98
		c[29].Close = 99.5
	})
	require.False(t, FailedBreakout(s, 10, Bearish, 10, 0.03, 0.01))
}

func TestFailedBreakoutWindowBound(t *testing.T) {
	// The attempt happens past the lookback window, so it does not count.
	s := breakoutSeries(40, func(c []market.Candle) {
		c[25].High = 103.5
		c[39].Close = 100.5
	})
	require.False(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))
	require.True(t, FailedBreakout(s, 10, Bullish, 15, 0.03, 0.01))
}

func TestFailedBreakoutEndOfSeries(t *testing.T) {
	s := breakoutSeries(30, nil)
	require.False(t, FailedBreakout(s, 29, Bullish, 10, 0.03, 0.01))
	require.False(t, FailedBreakout(s, 99, Bullish, 10, 0.03, 0.01))
	require.False(t, FailedBreakout(nil, 10, Bullish, 10, 0.03, 0.01))
	require.False(t, FailedBreakout(s, 10, Bullish, 0, 0.03, 0.01))
}

func TestFailedBreakoutNaNRangeFallsBackToClose(t *testing.T) {
	// Close-only feed: highs are NaN, closes carry the attempt.
	s := breakoutSeries(30, func(c []market.Candle) {
		for i := range c {
			c[i].High = math.NaN()
			c[i].Low = math.NaN()
		}
		c[15].Close = 103.5
		c[29].Close = 100.5
	})
	require.True(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))
}

func TestBreakoutNaNDivergencePrice(t *testing.T) {
	s := breakoutSeries(30, func(c []market.Candle) {
		c[10].Close = math.NaN()
	})
	require.False(t, BreakoutOccurred(s, 10, Bullish, 0.05))
	require.False(t, FailedBreakout(s, 10, Bullish, 10, 0.03, 0.01))
}
