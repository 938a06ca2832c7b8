package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"stockscreen/internal/market"
)

// BuildCandleCSV renders candles as CSV with a header row, newest last.
func BuildCandleCSV(candles []market.Candle) string {
	if len(candles) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("open_time,open,high,low,close,volume,trades\n")
	for _, c := range candles {
		b.WriteString(strconv.FormatInt(c.OpenTime, 10))
		b.WriteByte(',')
		b.WriteString(formatPlainFloat(c.Open))
		b.WriteByte(',')
		b.WriteString(formatPlainFloat(c.High))
		b.WriteByte(',')
		b.WriteString(formatPlainFloat(c.Low))
		b.WriteByte(',')
		b.WriteString(formatPlainFloat(c.Close))
		b.WriteByte(',')
		b.WriteString(formatPlainFloat(c.Volume))
		b.WriteByte(',')
		b.WriteString(strconv.FormatInt(c.Trades, 10))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatPlainFloat(value float64) string {
	if !market.IsFinite(value) {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// ParseCandlesCSV reads candle rows. The first column is an open time, either
// unix milliseconds or a date (2006-01-02 or RFC3339); then open, high, low,
// close, volume and an optional trade count. Empty high/low cells yield NaN,
// which downstream volatility code treats as a close-only feed. A header row
// is detected and skipped.
func ParseCandlesCSV(r io.Reader) ([]market.Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []market.Candle
	line := 0
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		line++
		if line == 1 && looksLikeHeader(rec) {
			continue
		}
		if len(rec) < 5 {
			return nil, fmt.Errorf("csv line %d: expected at least 5 columns, got %d", line, len(rec))
		}
		openTime, err := parseTimestamp(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		c := market.Candle{OpenTime: openTime, CloseTime: openTime}
		if c.Open, err = parseCell(rec[1]); err != nil {
			return nil, fmt.Errorf("csv line %d: open: %w", line, err)
		}
		if c.High, err = parseCell(rec[2]); err != nil {
			return nil, fmt.Errorf("csv line %d: high: %w", line, err)
		}
		if c.Low, err = parseCell(rec[3]); err != nil {
			return nil, fmt.Errorf("csv line %d: low: %w", line, err)
		}
		if c.Close, err = parseCell(rec[4]); err != nil {
			return nil, fmt.Errorf("csv line %d: close: %w", line, err)
		}
		if len(rec) > 5 && rec[5] != "" {
			if c.Volume, err = parseCell(rec[5]); err != nil {
				return nil, fmt.Errorf("csv line %d: volume: %w", line, err)
			}
		}
		if len(rec) > 6 && rec[6] != "" {
			if c.Trades, err = strconv.ParseInt(rec[6], 10, 64); err != nil {
				return nil, fmt.Errorf("csv line %d: trades: %w", line, err)
			}
		}
		out = append(out, c)
	}
	return out, nil
}

func looksLikeHeader(rec []string) bool {
	if len(rec) == 0 {
		return false
	}
	_, err := parseTimestamp(rec[0])
	return err != nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), nil
		}
	}
	return 0, fmt.Errorf("unrecognized time %q", s)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}
