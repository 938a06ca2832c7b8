package divergence

import (
	"math"
	"sort"

	"stockscreen/internal/analysis/indicator"
	"stockscreen/internal/analysis/pivot"
	"stockscreen/internal/market"
)

// ScoredSequence is one passing 3-point triple with its conviction score and
// the magnitudes that produced it.
type ScoredSequence struct {
	Price    [3]pivot.Pivot
	Ind      [3]pivot.Pivot
	Score    float64
	LegSpans [2]float64
	LegATR   [3]float64
}

func (s ScoredSequence) candidate(dir Direction) *ThreePoint {
	return &ThreePoint{
		Dir:      dir,
		Price:    s.Price,
		Ind:      s.Ind,
		Scored:   true,
		Score:    s.Score,
		LegSpans: s.LegSpans,
		LegATR:   s.LegATR,
	}
}

// ScoreSequences evaluates every window of three consecutive price pivots,
// not just the most recent, so an older but stronger formation can outrank the
// latest one. Each pivot is aligned independently to the nearest indicator
// pivot within cfg.MaxBarGap. Triples survive only if they are non-degenerate,
// monotone per the divergence law, and large enough relative to local
// volatility. Passing triples come back sorted best first.
//
// Pure function of its arguments: never mutates the series or the pivot
// slices, safe to call concurrently across instruments.
func ScoreSequences(s *market.Series, pricePivs, indPivs []pivot.Pivot, dir Direction, cfg Config) []ScoredSequence {
	if s == nil || len(pricePivs) < 3 || len(indPivs) == 0 {
		return nil
	}
	atr := indicator.ATR(s.Candles(), cfg.ATRPeriod)
	atrAt := func(pos int) float64 {
		off, ok := s.Locate(pos)
		if !ok || off >= len(atr) {
			return math.NaN()
		}
		return atr[off]
	}

	var out []ScoredSequence
	for i := 0; i+2 < len(pricePivs); i++ {
		p := [3]pivot.Pivot{pricePivs[i], pricePivs[i+1], pricePivs[i+2]}
		if p[2].Pos-p[0].Pos < minTripleSpanBars {
			continue
		}

		var ind [3]pivot.Pivot
		aligned := true
		for j, pp := range p {
			m, ok := nearestPivot(pp.Pos, indPivs, cfg.MaxBarGap)
			if !ok {
				aligned = false
				break
			}
			ind[j] = m
		}
		if !aligned {
			continue
		}

		if !monotonePair(dir, p[0].Value, p[1].Value, ind[0].Value, ind[1].Value, cfg, cfg.RequireStrictOrder) ||
			!monotonePair(dir, p[1].Value, p[2].Value, ind[1].Value, ind[2].Value, cfg, cfg.RequireStrictOrder) {
			continue
		}

		legATR := [3]float64{atrAt(p[0].Pos), atrAt(p[1].Pos), atrAt(p[2].Pos)}
		spans := [2]float64{
			math.Abs(p[1].Value - p[0].Value),
			math.Abs(p[2].Value - p[1].Value),
		}
		// Magnitude floor: at least one leg must exceed the volatility at
		// its own starting pivot.
		if !legClears(spans[0], legATR[0], cfg.MinMagnitudeATRMult) &&
			!legClears(spans[1], legATR[1], cfg.MinMagnitudeATRMult) {
			continue
		}
		midATR := legATR[1]
		if !market.IsFinite(midATR) || midATR <= 0 {
			continue
		}

		indMove := math.Abs(ind[1].Value-ind[0].Value) + math.Abs(ind[2].Value-ind[1].Value)
		score := (spans[0]+spans[1])/(2*midATR) + indMove/indicatorScoreDivisor
		out = append(out, ScoredSequence{
			Price:    p,
			Ind:      ind,
			Score:    score,
			LegSpans: spans,
			LegATR:   legATR,
		})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].Score > out[b].Score })
	return out
}

func legClears(span, atr, mult float64) bool {
	return market.IsFinite(atr) && atr > 0 && span >= mult*atr
}
