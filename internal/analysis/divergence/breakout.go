package divergence

import (
	"math"

	"stockscreen/internal/market"
)

// BreakoutOccurred reports whether price has already moved past the implied
// target of a divergence anchored at divPos. Callers wanting only fresh
// signals discard candidates where this is true. An unknown position returns
// false, never an error.
func BreakoutOccurred(s *market.Series, divPos int, dir Direction, threshold float64) bool {
	if s == nil {
		return false
	}
	off, ok := s.Locate(divPos)
	if !ok {
		return false
	}
	last, ok := s.Last()
	if !ok {
		return false
	}
	divPrice := s.Candle(off).Close
	cur := last.Close
	if !market.IsFinite(divPrice) || !market.IsFinite(cur) {
		return false
	}
	switch dir {
	case Bullish:
		return cur >= divPrice*(1+threshold)
	case Bearish:
		return cur <= divPrice*(1-threshold)
	}
	return false
}

// FailedBreakout reports whether price attempted the move implied by the
// divergence and then reverted: within lookback bars after divPos an extreme
// cleared the attempt threshold, but the latest close sits back inside the
// reversal band around the divergence price. An end-of-series divergence
// (nothing after divPos) returns false.
func FailedBreakout(s *market.Series, divPos int, dir Direction, lookback int, attemptThreshold, reversalThreshold float64) bool {
	if s == nil || lookback <= 0 {
		return false
	}
	off, ok := s.Locate(divPos)
	if !ok || off >= s.Len()-1 {
		return false
	}
	end := off + lookback + 1
	if end > s.Len() {
		end = s.Len()
	}
	if end-off < 2 {
		return false
	}
	divPrice := s.Candle(off).Close
	if !market.IsFinite(divPrice) {
		return false
	}
	last, _ := s.Last()
	cur := last.Close
	if !market.IsFinite(cur) {
		return false
	}

	switch dir {
	case Bullish:
		attempted := extremeOver(s, off, end, true)
		return market.IsFinite(attempted) &&
			attempted >= divPrice*(1+attemptThreshold) &&
			cur < divPrice*(1+reversalThreshold)
	case Bearish:
		attempted := extremeOver(s, off, end, false)
		return market.IsFinite(attempted) &&
			attempted <= divPrice*(1-attemptThreshold) &&
			cur > divPrice*(1-reversalThreshold)
	}
	return false
}

// extremeOver scans [from, to) for the highest high (or lowest low), falling
// back to the close on bars with a non-finite range.
func extremeOver(s *market.Series, from, to int, wantHigh bool) float64 {
	best := math.NaN()
	for i := from; i < to; i++ {
		c := s.Candle(i)
		v := c.High
		if !wantHigh {
			v = c.Low
		}
		if !market.IsFinite(v) {
			v = c.Close
		}
		if !market.IsFinite(v) {
			continue
		}
		if !market.IsFinite(best) || (wantHigh && v > best) || (!wantHigh && v < best) {
			best = v
		}
	}
	return best
}
