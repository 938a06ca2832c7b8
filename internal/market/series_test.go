package market

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func closesOnly(closes ...float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		out[i] = Candle{Close: c, High: c, Low: c}
	}
	return out
}

func TestNewSeriesContiguousPositions(t *testing.T) {
	s := NewSeries(closesOnly(1, 2, 3))
	require.Equal(t, 3, s.Len())
	for i := 0; i < 3; i++ {
		require.Equal(t, i, s.Position(i))
		off, ok := s.Locate(i)
		require.True(t, ok)
		require.Equal(t, i, off)
	}
}

func TestNewSeriesAtRejectsRegressions(t *testing.T) {
	_, err := NewSeriesAt([]int{0, 2, 1}, closesOnly(1, 2, 3))
	require.Error(t, err)

	_, err = NewSeriesAt([]int{0, 1, 1}, closesOnly(1, 2, 3))
	require.Error(t, err)

	_, err = NewSeriesAt([]int{0, 1}, closesOnly(1, 2, 3))
	require.Error(t, err)
}

func TestSeriesGappedPositions(t *testing.T) {
	s, err := NewSeriesAt([]int{3, 7, 12}, closesOnly(10, 20, 30))
	require.NoError(t, err)

	off, ok := s.Locate(7)
	require.True(t, ok)
	require.Equal(t, 1, off)
	require.Equal(t, 20.0, s.Candle(off).Close)

	_, ok = s.Locate(5)
	require.False(t, ok)
}

func TestSeriesTail(t *testing.T) {
	s, err := NewSeriesAt([]int{1, 4, 9, 16}, closesOnly(1, 2, 3, 4))
	require.NoError(t, err)

	tail := s.Tail(2)
	require.Equal(t, 2, tail.Len())
	require.Equal(t, []int{9, 16}, tail.Positions())

	off, ok := tail.Locate(9)
	require.True(t, ok)
	require.Equal(t, 3.0, tail.Candle(off).Close)

	// Positions outside the tail are gone from its index.
	_, ok = tail.Locate(1)
	require.False(t, ok)

	// Oversized tails return the series unchanged.
	require.Equal(t, s, s.Tail(10))
}

func TestSeriesLast(t *testing.T) {
	s := NewSeries(nil)
	_, ok := s.Last()
	require.False(t, ok)

	s = NewSeries(closesOnly(1, 2, 3))
	last, ok := s.Last()
	require.True(t, ok)
	require.Equal(t, 3.0, last.Close)
}

func TestClosesReturnsCopy(t *testing.T) {
	s := NewSeries(closesOnly(1, 2, 3))
	closes := s.Closes()
	closes[0] = 99
	require.Equal(t, 1.0, s.Candle(0).Close)
}

func TestIsFinite(t *testing.T) {
	require.True(t, IsFinite(0))
	require.True(t, IsFinite(-1.5))
	require.False(t, IsFinite(math.NaN()))
	require.False(t, IsFinite(math.Inf(1)))
	require.False(t, IsFinite(math.Inf(-1)))
}

func TestExtractSeries(t *testing.T) {
	candles := []Candle{
		{Open: 1, High: 3, Low: 0.5, Close: 2, Volume: 100},
		{Open: 2, High: 4, Low: 1.5, Close: 3, Volume: 200},
	}
	closes, highs, lows, volumes := ExtractSeries(candles)
	require.Equal(t, []float64{2, 3}, closes)
	require.Equal(t, []float64{3, 4}, highs)
	require.Equal(t, []float64{0.5, 1.5}, lows)
	require.Equal(t, []float64{100, 200}, volumes)

	closes, highs, lows, volumes = ExtractSeries(nil)
	require.Nil(t, closes)
	require.Nil(t, highs)
	require.Nil(t, lows)
	require.Nil(t, volumes)
}
