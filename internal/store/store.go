// Package store keeps candle history per symbol and interval. The memory
// implementation backs tests and one-shot screens; the sqlite one persists
// imported history across runs.
package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"stockscreen/internal/market"
)

// CandleStore reads and writes the candle sequence for a symbol+interval.
type CandleStore interface {
	Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error
	Set(ctx context.Context, symbol, interval string, candles []market.Candle) error
	Get(ctx context.Context, symbol, interval string) ([]market.Candle, error)
	Symbols(ctx context.Context, interval string) ([]string, error)
}

// SnapshotExporter exports a fixed recent window of candles.
type SnapshotExporter interface {
	Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error)
}

// MemoryCandleStore is the in-process implementation.
type MemoryCandleStore struct {
	mu   sync.RWMutex
	data map[string][]market.Candle
}

func NewMemoryCandleStore() *MemoryCandleStore {
	return &MemoryCandleStore{data: make(map[string][]market.Candle)}
}

func key(symbol, interval string) string { return symbol + "@" + interval }

// Put appends and trims to max. A candle sharing the last open time is an
// incremental update and replaces the tail instead of duplicating it.
func (s *MemoryCandleStore) Put(ctx context.Context, symbol, interval string, candles []market.Candle, max int) error {
	if symbol == "" || interval == "" {
		return errors.New("store: symbol/interval must not be empty")
	}
	if len(candles) == 0 {
		return nil
	}
	if max <= 0 {
		max = 500
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(symbol, interval)
	cur := s.data[k]
	for _, candle := range candles {
		n := len(cur)
		if n > 0 && cur[n-1].OpenTime == candle.OpenTime {
			cur[n-1] = candle
			continue
		}
		cur = append(cur, candle)
	}
	if len(cur) > max {
		cur = cur[len(cur)-max:]
	}
	s.data[k] = cur
	return nil
}

// Set replaces the whole sequence for symbol+interval.
func (s *MemoryCandleStore) Set(ctx context.Context, symbol, interval string, candles []market.Candle) error {
	if symbol == "" || interval == "" {
		return errors.New("store: symbol/interval must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	dst := make([]market.Candle, len(candles))
	copy(dst, candles)
	s.data[key(symbol, interval)] = dst
	return nil
}

// Get returns a copy.
func (s *MemoryCandleStore) Get(ctx context.Context, symbol, interval string) ([]market.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[key(symbol, interval)]
	out := make([]market.Candle, len(cur))
	copy(out, cur)
	return out, nil
}

// Symbols lists the stored symbols for one interval, sorted.
func (s *MemoryCandleStore) Symbols(ctx context.Context, interval string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	suffix := "@" + interval
	var out []string
	for k := range s.data {
		if len(k) > len(suffix) && k[len(k)-len(suffix):] == suffix {
			out = append(out, k[:len(k)-len(suffix)])
		}
	}
	sort.Strings(out)
	return out, nil
}

// Export returns the most recent limit candles in time order.
func (s *MemoryCandleStore) Export(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if symbol == "" || interval == "" {
		return nil, errors.New("store: symbol/interval must not be empty")
	}
	if limit <= 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur := s.data[key(symbol, interval)]
	if len(cur) == 0 {
		return nil, nil
	}
	if limit > len(cur) {
		limit = len(cur)
	}
	out := make([]market.Candle, limit)
	copy(out, cur[len(cur)-limit:])
	return out, nil
}
