package divergence

import (
	"fmt"

	"stockscreen/internal/analysis/pivot"
)

// Direction labels a divergence: bullish patterns form on lows, bearish on
// highs.
type Direction string

const (
	DirectionNone Direction = "none"
	Bullish       Direction = "bullish"
	Bearish       Direction = "bearish"
)

// Candidate is a detected divergence. The point count is encoded in the
// concrete type (TwoPoint or ThreePoint) rather than inferred from tuple
// lengths. Candidates are immutable once emitted; the scorer and breakout
// validator only read them.
type Candidate interface {
	Direction() Direction
	Points() int
	// PricePivots and IndicatorPivots return the matched tuples in
	// increasing position order.
	PricePivots() []pivot.Pivot
	IndicatorPivots() []pivot.Pivot
	// Anchor is the final price pivot — the reference bar for breakout
	// validation.
	Anchor() pivot.Pivot
	Describe() string
}

// TwoPoint is a standard two-pivot divergence.
type TwoPoint struct {
	Dir   Direction
	Price [2]pivot.Pivot
	Ind   [2]pivot.Pivot
}

func (t *TwoPoint) Direction() Direction           { return t.Dir }
func (t *TwoPoint) Points() int                    { return 2 }
func (t *TwoPoint) PricePivots() []pivot.Pivot     { return t.Price[:] }
func (t *TwoPoint) IndicatorPivots() []pivot.Pivot { return t.Ind[:] }
func (t *TwoPoint) Anchor() pivot.Pivot            { return t.Price[1] }

func (t *TwoPoint) Describe() string {
	return fmt.Sprintf("price %.2f -> %.2f (%s) | indicator %.2f -> %.2f (%s)",
		t.Price[0].Value, t.Price[1].Value, legLabel(t.Dir, true),
		t.Ind[0].Value, t.Ind[1].Value, legLabel(t.Dir, false))
}

// ThreePoint is a confirmed three-pivot divergence. Score and the diagnostic
// magnitudes are populated only when sequence scoring produced the candidate.
type ThreePoint struct {
	Dir    Direction
	Price  [3]pivot.Pivot
	Ind    [3]pivot.Pivot
	Scored bool
	Score  float64
	// LegSpans are the absolute price moves of the two legs; LegATR the
	// local ATR at each price pivot.
	LegSpans [2]float64
	LegATR   [3]float64
}

func (t *ThreePoint) Direction() Direction           { return t.Dir }
func (t *ThreePoint) Points() int                    { return 3 }
func (t *ThreePoint) PricePivots() []pivot.Pivot     { return t.Price[:] }
func (t *ThreePoint) IndicatorPivots() []pivot.Pivot { return t.Ind[:] }
func (t *ThreePoint) Anchor() pivot.Pivot            { return t.Price[2] }

func (t *ThreePoint) Describe() string {
	s := fmt.Sprintf("price %.2f -> %.2f -> %.2f (%s) | indicator %.2f -> %.2f -> %.2f (%s)",
		t.Price[0].Value, t.Price[1].Value, t.Price[2].Value, legLabel(t.Dir, true),
		t.Ind[0].Value, t.Ind[1].Value, t.Ind[2].Value, legLabel(t.Dir, false))
	if t.Scored {
		s += fmt.Sprintf(" | score %.2f", t.Score)
	}
	return s
}

// Result is one detection pass over a series pair. A nil Candidate means no
// divergence on that track — absence is a normal outcome, never an error.
type Result struct {
	Bullish    Candidate
	Bearish    Candidate
	LastSignal Direction
}

// Found reports whether either track produced a candidate.
func (r Result) Found() bool { return r.Bullish != nil || r.Bearish != nil }

func legLabel(dir Direction, price bool) string {
	if (dir == Bullish) == price {
		// Bullish price legs descend; bearish indicator legs descend.
		if price {
			return "lower low"
		}
		return "lower high"
	}
	if price {
		return "higher high"
	}
	return "higher low"
}
