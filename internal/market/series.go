package market

import "fmt"

// Series is an immutable, position-indexed view over a candle sequence.
// Positions are bar ordinals: strictly increasing integers that may be gapped
// (missing sessions). All pivot alignment is done on positions, never on
// calendar time, so irregular calendars cannot skew distances. The position
// index is built once at construction and gives O(1) lookup.
type Series struct {
	positions []int
	candles   []Candle
	index     map[int]int
}

// NewSeries builds a Series with contiguous positions 0..n-1.
func NewSeries(candles []Candle) *Series {
	positions := make([]int, len(candles))
	for i := range positions {
		positions[i] = i
	}
	s, _ := NewSeriesAt(positions, candles)
	return s
}

// NewSeriesAt builds a Series with explicit bar positions. Positions must
// strictly increase; duplicates or regressions are a caller bug.
func NewSeriesAt(positions []int, candles []Candle) (*Series, error) {
	if len(positions) != len(candles) {
		return nil, fmt.Errorf("positions/candles length mismatch: %d vs %d", len(positions), len(candles))
	}
	index := make(map[int]int, len(positions))
	for i, pos := range positions {
		if i > 0 && pos <= positions[i-1] {
			return nil, fmt.Errorf("positions must strictly increase: %d after %d", pos, positions[i-1])
		}
		index[pos] = i
	}
	return &Series{positions: positions, candles: candles, index: index}, nil
}

// Len returns the number of bars.
func (s *Series) Len() int { return len(s.candles) }

// Candle returns the bar at offset i (not position).
func (s *Series) Candle(i int) Candle { return s.candles[i] }

// Position returns the bar position at offset i.
func (s *Series) Position(i int) int { return s.positions[i] }

// Locate maps a bar position to its offset.
func (s *Series) Locate(pos int) (int, bool) {
	i, ok := s.index[pos]
	return i, ok
}

// Last returns the most recent bar; ok is false for an empty series.
func (s *Series) Last() (Candle, bool) {
	if len(s.candles) == 0 {
		return Candle{}, false
	}
	return s.candles[len(s.candles)-1], true
}

// Positions returns the position slice. Callers must not mutate it.
func (s *Series) Positions() []int { return s.positions }

// Candles returns the backing candle slice. Callers must not mutate it.
func (s *Series) Candles() []Candle { return s.candles }

// Closes returns a copy of the close values.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.candles))
	for i, c := range s.candles {
		out[i] = c.Close
	}
	return out
}

// Tail returns a view of the most recent n bars. The returned Series shares
// the underlying arena but carries its own position index.
func (s *Series) Tail(n int) *Series {
	if n >= len(s.candles) {
		return s
	}
	start := len(s.candles) - n
	sub, _ := NewSeriesAt(s.positions[start:], s.candles[start:])
	return sub
}
