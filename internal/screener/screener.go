// Package screener fans divergence detection out across the stored universe
// and filters the hits. The analysis core is purely functional, so one
// goroutine per symbol needs no synchronization beyond collecting results.
package screener

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stockscreen/internal/analysis/divergence"
	"stockscreen/internal/analysis/indicator"
	"stockscreen/internal/analysis/pivot"
	"stockscreen/internal/logger"
	"stockscreen/internal/market"
	"stockscreen/internal/store"
)

// Options filter and shape one screening run.
type Options struct {
	Interval  string `json:"interval" toml:"interval"`
	RSIPeriod int    `json:"rsi_period" toml:"rsi_period"`
	// Direction keeps only bullish or bearish hits when set.
	Direction string `json:"direction" toml:"direction"`
	// Price and volume gates applied to the latest bar; zero disables.
	MinPrice  float64 `json:"min_price" toml:"min_price"`
	MaxPrice  float64 `json:"max_price" toml:"max_price"`
	MinVolume float64 `json:"min_volume" toml:"min_volume"`
	// ExcludeBrokenOut drops already-resolved signals; ExcludeFailed drops
	// aborted ones.
	ExcludeBrokenOut bool `json:"exclude_broken_out" toml:"exclude_broken_out"`
	ExcludeFailed    bool `json:"exclude_failed" toml:"exclude_failed"`
	Concurrency      int  `json:"concurrency" toml:"concurrency"`
}

// DefaultOptions screens daily bars with a 14-period RSI.
func DefaultOptions() Options {
	return Options{
		Interval:    "1d",
		RSIPeriod:   14,
		Concurrency: 8,
	}
}

// Signal is one divergence hit on one symbol.
type Signal struct {
	Symbol          string               `json:"symbol"`
	Interval        string               `json:"interval"`
	Direction       divergence.Direction `json:"direction"`
	Points          int                  `json:"points"`
	Scored          bool                 `json:"scored"`
	Score           float64              `json:"score"`
	Description     string               `json:"description"`
	PricePivots     []pivot.Pivot        `json:"price_pivots"`
	IndicatorPivots []pivot.Pivot        `json:"indicator_pivots"`
	LastClose       float64              `json:"last_close"`
	BrokenOut       bool                 `json:"broken_out"`
	Failed          bool                 `json:"failed"`
}

// Result is one complete run over the universe.
type Result struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	Scanned   int       `json:"scanned"`
	Skipped   int       `json:"skipped"`
	Signals   []Signal  `json:"signals"`
}

// Screener runs divergence detection over a candle store.
type Screener struct {
	store store.CandleStore
	cfg   divergence.Config
	opts  Options
	// oscillator derives the indicator series from closes; RSI by default.
	oscillator func(closes []float64) []float64
}

func New(st store.CandleStore, cfg divergence.Config, opts Options) (*Screener, error) {
	if st == nil {
		return nil, fmt.Errorf("screener: store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = 14
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	switch opts.Direction {
	case "", string(divergence.Bullish), string(divergence.Bearish):
	default:
		return nil, fmt.Errorf("screener: unknown direction filter %q", opts.Direction)
	}
	s := &Screener{store: st, cfg: cfg, opts: opts}
	s.oscillator = func(closes []float64) []float64 {
		return indicator.RSI(closes, opts.RSIPeriod)
	}
	return s, nil
}

// Run screens the given symbols; an empty slice means every stored symbol for
// the configured interval. Per-symbol failures are logged and skipped so one
// bad series cannot sink the run.
func (s *Screener) Run(ctx context.Context, symbols []string) (Result, error) {
	res := Result{RunID: uuid.NewString(), StartedAt: time.Now()}
	if len(symbols) == 0 {
		var err error
		symbols, err = s.store.Symbols(ctx, s.opts.Interval)
		if err != nil {
			return res, fmt.Errorf("screener: list symbols: %w", err)
		}
	}
	res.Scanned = len(symbols)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			signals, err := s.screenOne(gctx, symbol)
			if err != nil {
				logger.Warnf("screen %s skipped: %v", symbol, err)
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				return nil
			}
			if len(signals) > 0 {
				mu.Lock()
				res.Signals = append(res.Signals, signals...)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	sort.SliceStable(res.Signals, func(i, j int) bool {
		if res.Signals[i].Score != res.Signals[j].Score {
			return res.Signals[i].Score > res.Signals[j].Score
		}
		return res.Signals[i].Symbol < res.Signals[j].Symbol
	})
	logger.Infof("screen run %s: %d symbols, %d skipped, %d signals",
		res.RunID, res.Scanned, res.Skipped, len(res.Signals))
	return res, nil
}

func (s *Screener) screenOne(ctx context.Context, symbol string) ([]Signal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candles, err := s.store.Get(ctx, symbol, s.opts.Interval)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 {
		return nil, fmt.Errorf("no candles stored")
	}

	last := candles[len(candles)-1]
	if !s.passesGates(last) {
		return nil, nil
	}

	series := market.NewSeries(candles)
	osc := s.oscillator(series.Closes())
	det, err := divergence.Detect(series, osc, s.cfg)
	if err != nil {
		return nil, err
	}

	var out []Signal
	for _, c := range []divergence.Candidate{det.Bullish, det.Bearish} {
		if c == nil {
			continue
		}
		if s.opts.Direction != "" && string(c.Direction()) != s.opts.Direction {
			continue
		}
		sig := s.buildSignal(symbol, series, c, last.Close)
		if s.opts.ExcludeBrokenOut && sig.BrokenOut {
			continue
		}
		if s.opts.ExcludeFailed && sig.Failed {
			continue
		}
		out = append(out, sig)
	}
	return out, nil
}

func (s *Screener) passesGates(last market.Candle) bool {
	if s.opts.MinPrice > 0 && last.Close < s.opts.MinPrice {
		return false
	}
	if s.opts.MaxPrice > 0 && last.Close > s.opts.MaxPrice {
		return false
	}
	if s.opts.MinVolume > 0 && last.Volume < s.opts.MinVolume {
		return false
	}
	return true
}

func (s *Screener) buildSignal(symbol string, series *market.Series, c divergence.Candidate, lastClose float64) Signal {
	sig := Signal{
		Symbol:          symbol,
		Interval:        s.opts.Interval,
		Direction:       c.Direction(),
		Points:          c.Points(),
		Description:     c.Describe(),
		PricePivots:     c.PricePivots(),
		IndicatorPivots: c.IndicatorPivots(),
		LastClose:       lastClose,
	}
	if tp, ok := c.(*divergence.ThreePoint); ok && tp.Scored {
		sig.Scored = true
		sig.Score = tp.Score
	}
	anchor := c.Anchor().Pos
	sig.BrokenOut = divergence.BreakoutOccurred(series, anchor, c.Direction(), s.cfg.BreakoutThreshold)
	sig.Failed = divergence.FailedBreakout(series, anchor, c.Direction(),
		s.cfg.FailedLookback, s.cfg.FailedAttemptThreshold, s.cfg.FailedReversalThreshold)
	return sig
}

// Records converts a run into persistable signal rows.
func (r Result) Records() []store.SignalRecord {
	out := make([]store.SignalRecord, 0, len(r.Signals))
	for _, sig := range r.Signals {
		out = append(out, store.SignalRecord{
			RunID:       r.RunID,
			CreatedAt:   r.StartedAt.Unix(),
			Symbol:      sig.Symbol,
			Interval:    sig.Interval,
			Direction:   string(sig.Direction),
			Points:      sig.Points,
			Score:       sig.Score,
			Description: sig.Description,
			BrokenOut:   sig.BrokenOut,
			Failed:      sig.Failed,
		})
	}
	return out
}
