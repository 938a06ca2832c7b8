// Package divergence detects and scores price/indicator divergences: patterns
// where a price series and a bounded oscillator disagree in direction across
// matched pivots. Everything here is a pure function of its arguments, safe
// to invoke concurrently across independent series.
package divergence

import (
	"fmt"

	"stockscreen/internal/analysis/pivot"
)

const (
	// indicatorConfirmPoints is the minimum indicator move between pivots
	// required to confirm a divergence; it suppresses false signals from
	// minor oscillator jitter.
	indicatorConfirmPoints = 0.5

	// indicatorScoreDivisor scales indicator deltas into the same ballpark
	// as ATR-normalized price legs when scoring 3-point sequences.
	indicatorScoreDivisor = 10.0

	// minTripleSpanBars rejects degenerate 3-point sequences whose pivots
	// cluster on adjacent bars: the first and last pivot must be at least
	// this many bars apart.
	minTripleSpanBars = 2
)

// Config carries every detection knob as an explicit immutable value; there
// is no package-level tunable state.
type Config struct {
	// Method selects the pivot strategy: pivot.MethodSwing or
	// pivot.MethodEMADeriv.
	Method string `json:"method" toml:"method"`
	// Window is the swing detection half-width.
	Window int `json:"window" toml:"window"`
	// EMAPriceSpan / EMAIndicatorSpan smooth the respective series when the
	// EMA-derivative method is selected.
	EMAPriceSpan     int `json:"ema_price_span" toml:"ema_price_span"`
	EMAIndicatorSpan int `json:"ema_indicator_span" toml:"ema_indicator_span"`
	// Lookback bounds how many recent bars are scanned.
	Lookback int `json:"lookback" toml:"lookback"`
	// MinSwingPoints requires 2-point (standard) or 3-point (confirmed)
	// patterns.
	MinSwingPoints int `json:"min_swing_points" toml:"min_swing_points"`
	// TolerancePct is the relative slack allowed on price monotonicity.
	TolerancePct float64 `json:"tolerance_pct" toml:"tolerance_pct"`
	// IndicatorTolerance adds extra confirmation points on top of the fixed
	// minimum indicator delta.
	IndicatorTolerance float64 `json:"indicator_tolerance" toml:"indicator_tolerance"`
	// IndexProximityFactor scales the detection window (or EMA span) into
	// the classifier's pivot alignment bound.
	IndexProximityFactor int `json:"index_proximity_factor" toml:"index_proximity_factor"`
	// TwoPointFallback lets a failed 3-point match degrade to a 2-point
	// candidate. Ignored (always off) when UseScoring is set: scoring mode
	// is 3-point or nothing.
	TwoPointFallback bool `json:"two_point_fallback" toml:"two_point_fallback"`
	// UseScoring gates 3-point candidates on the ATR-normalized sequence
	// score; MinScore is the acceptance threshold.
	UseScoring bool    `json:"use_scoring" toml:"use_scoring"`
	MinScore   float64 `json:"min_score" toml:"min_score"`
	// MaxBarGap bounds pivot alignment during sequence scoring.
	MaxBarGap int `json:"max_bar_gap" toml:"max_bar_gap"`
	// ATRPeriod and MinMagnitudeATRMult drive the volatility magnitude
	// floor for scored sequences.
	ATRPeriod           int     `json:"atr_period" toml:"atr_period"`
	MinMagnitudeATRMult float64 `json:"min_magnitude_atr_mult" toml:"min_magnitude_atr_mult"`
	// RequireStrictOrder switches sequence monotonicity from
	// tolerance-banded to strict inequality.
	RequireStrictOrder bool `json:"require_strict_order" toml:"require_strict_order"`

	// Breakout validation thresholds (see BreakoutOccurred/FailedBreakout).
	BreakoutThreshold       float64 `json:"breakout_threshold" toml:"breakout_threshold"`
	FailedLookback          int     `json:"failed_lookback" toml:"failed_lookback"`
	FailedAttemptThreshold  float64 `json:"failed_attempt_threshold" toml:"failed_attempt_threshold"`
	FailedReversalThreshold float64 `json:"failed_reversal_threshold" toml:"failed_reversal_threshold"`
}

// DefaultConfig returns the standard screening parameters.
func DefaultConfig() Config {
	return Config{
		Method:                  pivot.MethodSwing,
		Window:                  5,
		EMAPriceSpan:            5,
		EMAIndicatorSpan:        5,
		Lookback:                60,
		MinSwingPoints:          2,
		TolerancePct:            0.002,
		IndicatorTolerance:      0,
		IndexProximityFactor:    2,
		TwoPointFallback:        true,
		UseScoring:              false,
		MinScore:                1.0,
		MaxBarGap:               10,
		ATRPeriod:               14,
		MinMagnitudeATRMult:     0.5,
		RequireStrictOrder:      false,
		BreakoutThreshold:       0.05,
		FailedLookback:          10,
		FailedAttemptThreshold:  0.03,
		FailedReversalThreshold: 0.01,
	}
}

// Validate rejects malformed configuration before any series is scanned.
// These are programmer errors, unlike data conditions, which degrade to
// empty results.
func (c Config) Validate() error {
	switch c.Method {
	case pivot.MethodSwing, "":
		if c.Window <= 0 {
			return fmt.Errorf("divergence: window must be positive, got %d", c.Window)
		}
	case pivot.MethodEMADeriv:
		if c.EMAPriceSpan <= 0 || c.EMAIndicatorSpan <= 0 {
			return fmt.Errorf("divergence: ema spans must be positive, got %d/%d", c.EMAPriceSpan, c.EMAIndicatorSpan)
		}
	default:
		return fmt.Errorf("divergence: unknown pivot method %q", c.Method)
	}
	if c.Lookback <= 0 {
		return fmt.Errorf("divergence: lookback must be positive, got %d", c.Lookback)
	}
	if c.MinSwingPoints != 2 && c.MinSwingPoints != 3 {
		return fmt.Errorf("divergence: min swing points must be 2 or 3, got %d", c.MinSwingPoints)
	}
	if c.IndexProximityFactor <= 0 {
		return fmt.Errorf("divergence: index proximity factor must be positive, got %d", c.IndexProximityFactor)
	}
	if c.UseScoring {
		if c.MaxBarGap <= 0 {
			return fmt.Errorf("divergence: max bar gap must be positive, got %d", c.MaxBarGap)
		}
		if c.ATRPeriod <= 0 {
			return fmt.Errorf("divergence: atr period must be positive, got %d", c.ATRPeriod)
		}
	}
	return nil
}

// alignGap derives the classifier's alignment bound from the detection
// granularity.
func (c Config) alignGap() int {
	base := c.Window
	if c.Method == pivot.MethodEMADeriv {
		base = c.EMAPriceSpan
	}
	return base * c.IndexProximityFactor
}
