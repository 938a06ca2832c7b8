package divergence

import (
	"stockscreen/internal/analysis/pivot"
	"stockscreen/internal/market"
)

// Detect scans the most recent cfg.Lookback bars of the series pair for
// bullish and bearish divergences. The indicator slice must be aligned
// bar-for-bar with the series; a length mismatch or a too-short series is a
// data condition and yields an empty Result, not an error. Only malformed
// configuration errors.
//
// The two tracks are evaluated independently and both may report. LastSignal
// resolves to bullish when both fire: the lows track is evaluated first,
// matching the screener's long-standing reporting order.
func Detect(series *market.Series, ind []float64, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	res := Result{LastSignal: DirectionNone}
	if series == nil || series.Len() == 0 || len(ind) != series.Len() {
		return res, nil
	}
	if series.Len() < cfg.Lookback {
		return res, nil
	}

	recent := series.Tail(cfg.Lookback)
	indTail := ind[len(ind)-recent.Len():]

	set, err := extractPivots(recent, indTail, cfg)
	if err != nil {
		return Result{}, err
	}

	res.Bullish = track(recent, set.PriceLows, set.IndicatorLows, Bullish, cfg)
	res.Bearish = track(recent, set.PriceHighs, set.IndicatorHighs, Bearish, cfg)
	switch {
	case res.Bullish != nil:
		res.LastSignal = Bullish
	case res.Bearish != nil:
		res.LastSignal = Bearish
	}
	return res, nil
}

// extractPivots runs the configured strategy over price and indicator
// independently. The two pivot populations are never merged, only aligned
// later by position proximity.
func extractPivots(recent *market.Series, ind []float64, cfg Config) (pivot.Set, error) {
	priceStrat, err := pivot.ForName(cfg.Method, cfg.Window, cfg.EMAPriceSpan)
	if err != nil {
		return pivot.Set{}, err
	}
	indStrat, err := pivot.ForName(cfg.Method, cfg.Window, cfg.EMAIndicatorSpan)
	if err != nil {
		return pivot.Set{}, err
	}
	positions := recent.Positions()
	var set pivot.Set
	set.PriceHighs, set.PriceLows = priceStrat.Detect(positions, recent.Closes())
	set.IndicatorHighs, set.IndicatorLows = indStrat.Detect(positions, ind)
	return set, nil
}

// track evaluates one direction. 3-point requests degrade to 2-point when
// the fallback is enabled and scoring is off; scoring mode is strictly
// 3-point or nothing.
func track(recent *market.Series, price, indPivs []pivot.Pivot, dir Direction, cfg Config) Candidate {
	if cfg.MinSwingPoints == 3 {
		if cfg.UseScoring {
			seqs := ScoreSequences(recent, price, indPivs, dir, cfg)
			if len(seqs) > 0 && seqs[0].Score >= cfg.MinScore {
				return seqs[0].candidate(dir)
			}
			return nil
		}
		if c := matchRecent(price, indPivs, dir, 3, cfg); c != nil {
			return c
		}
		if !cfg.TwoPointFallback {
			return nil
		}
	}
	return matchRecent(price, indPivs, dir, 2, cfg)
}

// matchRecent takes the most recent k price pivots, aligns each to the
// nearest indicator pivot of the matching kind, and checks the monotonicity
// law pairwise. Any failed alignment or check yields no candidate.
func matchRecent(price, indPivs []pivot.Pivot, dir Direction, k int, cfg Config) Candidate {
	if len(price) < k || len(indPivs) == 0 {
		return nil
	}
	pricePts := price[len(price)-k:]
	maxGap := cfg.alignGap()
	indPts := make([]pivot.Pivot, k)
	for i, p := range pricePts {
		m, ok := nearestPivot(p.Pos, indPivs, maxGap)
		if !ok {
			return nil
		}
		indPts[i] = m
	}
	for i := 1; i < k; i++ {
		if !monotonePair(dir, pricePts[i-1].Value, pricePts[i].Value, indPts[i-1].Value, indPts[i].Value, cfg, false) {
			return nil
		}
	}
	if k == 3 {
		c := &ThreePoint{Dir: dir}
		copy(c.Price[:], pricePts)
		copy(c.Ind[:], indPts)
		return c
	}
	c := &TwoPoint{Dir: dir}
	copy(c.Price[:], pricePts)
	copy(c.Ind[:], indPts)
	return c
}

// monotonePair checks one leg of the divergence law. Bullish: price
// descending within tolerance while the indicator ascends by at least the
// confirmation delta. Bearish is the mirror. NaN values fail every
// comparison, so they reject the leg without propagating.
func monotonePair(dir Direction, prevPrice, curPrice, prevInd, curInd float64, cfg Config, strict bool) bool {
	confirm := indicatorConfirmPoints + cfg.IndicatorTolerance
	switch dir {
	case Bullish:
		priceOK := curPrice <= prevPrice*(1+cfg.TolerancePct)
		if strict {
			priceOK = curPrice < prevPrice
		}
		return priceOK && curInd >= prevInd+confirm
	case Bearish:
		priceOK := curPrice >= prevPrice*(1-cfg.TolerancePct)
		if strict {
			priceOK = curPrice > prevPrice
		}
		return priceOK && curInd <= prevInd-confirm
	default:
		return false
	}
}
