package divergence

import (
	"math"
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"stockscreen/internal/market"
)

func flatSeries(n int, base float64) ([]market.Candle, []float64) {
	candles := make([]market.Candle, n)
	ind := make([]float64, n)
	for i := range candles {
		candles[i] = market.Candle{Close: base, High: base, Low: base}
		ind[i] = 50
	}
	return candles, ind
}

func testConfig(n int) Config {
	cfg := DefaultConfig()
	cfg.Window = 3
	cfg.Lookback = n
	return cfg
}

func TestDetectBullishTwoPoint(t *testing.T) {
	candles, ind := flatSeries(30, 100)
	candles[5].Close, candles[5].High, candles[5].Low = 90, 90, 90
	candles[15].Close, candles[15].High, candles[15].Low = 85, 85, 85
	ind[5], ind[15] = 30, 35

	res, err := Detect(market.NewSeries(candles), ind, testConfig(30))
	require.NoError(t, err)
	require.True(t, res.Found())
	require.Nil(t, res.Bearish)
	require.Equal(t, Bullish, res.LastSignal)

	c := res.Bullish
	require.Equal(t, 2, c.Points())
	price := c.PricePivots()
	require.Equal(t, 5, price[0].Pos)
	require.Equal(t, 15, price[1].Pos)
	require.Equal(t, 90.0, price[0].Value)
	require.Equal(t, 85.0, price[1].Value)

	indPivs := c.IndicatorPivots()
	require.Equal(t, 5, indPivs[0].Pos)
	require.Equal(t, 15, indPivs[1].Pos)

	require.Equal(t, 15, c.Anchor().Pos)
	require.Contains(t, c.Describe(), "lower low")
	require.Contains(t, c.Describe(), "higher low")
}

func TestDetectBearishTwoPoint(t *testing.T) {
	candles, ind := flatSeries(30, 100)
	candles[5].Close, candles[5].High, candles[5].Low = 110, 110, 110
	candles[15].Close, candles[15].High, candles[15].Low = 115, 115, 115
	ind[5], ind[15] = 70, 65

	res, err := Detect(market.NewSeries(candles), ind, testConfig(30))
	require.NoError(t, err)
	require.Nil(t, res.Bullish)
	require.NotNil(t, res.Bearish)
	require.Equal(t, Bearish, res.LastSignal)
	require.Contains(t, res.Bearish.Describe(), "higher high")
	require.Contains(t, res.Bearish.Describe(), "lower high")
}

func TestDetectMonotonicSeriesYieldsNothing(t *testing.T) {
	candles := make([]market.Candle, 30)
	ind := make([]float64, 30)
	for i := range candles {
		c := 100 + float64(i)
		candles[i] = market.Candle{Close: c, High: c, Low: c}
		ind[i] = float64(i)
	}
	res, err := Detect(market.NewSeries(candles), ind, testConfig(30))
	require.NoError(t, err)
	require.False(t, res.Found())
	require.Equal(t, DirectionNone, res.LastSignal)
}

func TestDetectThreePoint(t *testing.T) {
	candles, ind := flatSeries(34, 100)
	for _, p := range []struct {
		pos   int
		price float64
		rsi   float64
	}{{5, 90, 30}, {15, 87, 31}, {25, 85, 32}} {
		candles[p.pos].Close, candles[p.pos].High, candles[p.pos].Low = p.price, p.price, p.price
		ind[p.pos] = p.rsi
	}

	cfg := testConfig(34)
	cfg.MinSwingPoints = 3

	res, err := Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Bullish)
	require.Equal(t, 3, res.Bullish.Points())

	tp, ok := res.Bullish.(*ThreePoint)
	require.True(t, ok)
	require.False(t, tp.Scored)
	require.Equal(t, [3]int{5, 15, 25}, [3]int{tp.Price[0].Pos, tp.Price[1].Pos, tp.Price[2].Pos})
	require.Equal(t, 25, res.Bullish.Anchor().Pos)
}

func TestDetectThreePointFallsBackToTwo(t *testing.T) {
	candles, ind := flatSeries(34, 100)
	for _, p := range []struct {
		pos   int
		price float64
		rsi   float64
	}{{5, 90, 30}, {15, 87, 30.2}, {25, 85, 31}} {
		// The first indicator leg (30 -> 30.2) misses the confirmation delta,
		// the second (30.2 -> 31) clears it.
		candles[p.pos].Close, candles[p.pos].High, candles[p.pos].Low = p.price, p.price, p.price
		ind[p.pos] = p.rsi
	}

	cfg := testConfig(34)
	cfg.MinSwingPoints = 3
	cfg.TwoPointFallback = true

	res, err := Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Bullish)
	require.Equal(t, 2, res.Bullish.Points())
	require.Equal(t, 15, res.Bullish.PricePivots()[0].Pos)
	require.Equal(t, 25, res.Bullish.PricePivots()[1].Pos)

	cfg.TwoPointFallback = false
	res, err = Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.Nil(t, res.Bullish)
}

func TestDetectScoreGatedThreePoint(t *testing.T) {
	candles, ind := flatSeries(34, 100)
	for _, p := range []struct {
		pos   int
		price float64
		rsi   float64
	}{{5, 90, 30}, {15, 87, 31}, {25, 85, 32}} {
		candles[p.pos].Close, candles[p.pos].High, candles[p.pos].Low = p.price, p.price, p.price
		ind[p.pos] = p.rsi
	}

	cfg := testConfig(34)
	cfg.MinSwingPoints = 3
	cfg.UseScoring = true
	cfg.MinScore = 0.01

	res, err := Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.NotNil(t, res.Bullish)
	tp, ok := res.Bullish.(*ThreePoint)
	require.True(t, ok)
	require.True(t, tp.Scored)
	require.Greater(t, tp.Score, 0.0)
	require.Contains(t, tp.Describe(), "score")

	// Scoring mode never degrades to 2-point, even with the fallback on.
	cfg.MinScore = 1000
	cfg.TwoPointFallback = true
	res, err = Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.Nil(t, res.Bullish)
}

func TestDetectNoIndicatorPivotsYieldsNothing(t *testing.T) {
	candles, ind := flatSeries(30, 100)
	candles[5].Close, candles[5].High, candles[5].Low = 90, 90, 90
	candles[15].Close, candles[15].High, candles[15].Low = 85, 85, 85
	// Indicator stays flat: nothing to align against.

	res, err := Detect(market.NewSeries(candles), ind, testConfig(30))
	require.NoError(t, err)
	require.False(t, res.Found())
}

func TestDetectAlignmentGapTooWide(t *testing.T) {
	candles, ind := flatSeries(30, 100)
	candles[5].Close, candles[5].High, candles[5].Low = 90, 90, 90
	candles[15].Close, candles[15].High, candles[15].Low = 85, 85, 85
	ind[5] = 30
	// The second indicator low sits NaN-masked; its pivot disappears and the
	// nearest remaining one is 10 bars away, past the window*factor bound.
	ind[15] = math.NaN()

	res, err := Detect(market.NewSeries(candles), ind, testConfig(30))
	require.NoError(t, err)
	require.False(t, res.Found())
}

func TestDetectDegradedInputs(t *testing.T) {
	cfg := testConfig(30)

	res, err := Detect(nil, nil, cfg)
	require.NoError(t, err)
	require.False(t, res.Found())

	// Shorter than the lookback.
	candles, ind := flatSeries(10, 100)
	res, err = Detect(market.NewSeries(candles), ind, cfg)
	require.NoError(t, err)
	require.False(t, res.Found())

	// Indicator length mismatch.
	candles, ind = flatSeries(30, 100)
	res, err = Detect(market.NewSeries(candles), ind[:20], cfg)
	require.NoError(t, err)
	require.False(t, res.Found())
}

func TestDetectConfigErrors(t *testing.T) {
	candles, ind := flatSeries(30, 100)
	s := market.NewSeries(candles)

	cfg := testConfig(30)
	cfg.Window = 0
	_, err := Detect(s, ind, cfg)
	require.Error(t, err)

	cfg = testConfig(30)
	cfg.MinSwingPoints = 4
	_, err = Detect(s, ind, cfg)
	require.Error(t, err)

	cfg = testConfig(30)
	cfg.Method = "zigzag"
	_, err = Detect(s, ind, cfg)
	require.Error(t, err)

	cfg = testConfig(30)
	cfg.Lookback = 0
	_, err = Detect(s, ind, cfg)
	require.Error(t, err)

	cfg = testConfig(30)
	cfg.UseScoring = true
	cfg.MaxBarGap = 0
	_, err = Detect(s, ind, cfg)
	require.Error(t, err)
}

func TestProperty_DetectDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("identical inputs give identical results", prop.ForAll(
		func(closes []float64, indVals []float64) bool {
			n := len(closes)
			if len(indVals) < n {
				n = len(indVals)
			}
			candles := make([]market.Candle, n)
			for i := 0; i < n; i++ {
				candles[i] = market.Candle{Close: closes[i], High: closes[i], Low: closes[i]}
			}
			cfg := testConfig(n)
			s := market.NewSeries(candles)
			r1, err1 := Detect(s, indVals[:n], cfg)
			r2, err2 := Detect(s, indVals[:n], cfg)
			return err1 == nil && err2 == nil && reflect.DeepEqual(r1, r2)
		},
		gen.SliceOfN(40, gen.Float64Range(50, 150)),
		gen.SliceOfN(40, gen.Float64Range(0, 100)),
	))

	properties.TestingRun(t)
}

func TestProperty_EmittedCandidatesObeyMonotonicityLaw(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	check := func(c Candidate, cfg Config) bool {
		if c == nil {
			return true
		}
		price := c.PricePivots()
		ind := c.IndicatorPivots()
		for i := 1; i < len(price); i++ {
			if !monotonePair(c.Direction(), price[i-1].Value, price[i].Value, ind[i-1].Value, ind[i].Value, cfg, false) {
				return false
			}
		}
		return true
	}

	properties.Property("bullish and bearish candidates satisfy the divergence law", prop.ForAll(
		func(closes []float64, indVals []float64) bool {
			candles := make([]market.Candle, len(closes))
			for i, c := range closes {
				candles[i] = market.Candle{Close: c, High: c, Low: c}
			}
			cfg := testConfig(len(closes))
			res, err := Detect(market.NewSeries(candles), indVals[:len(closes)], cfg)
			if err != nil {
				return false
			}
			return check(res.Bullish, cfg) && check(res.Bearish, cfg)
		},
		gen.SliceOfN(50, gen.Float64Range(50, 150)),
		gen.SliceOfN(50, gen.Float64Range(0, 100)),
	))

	properties.TestingRun(t)
}
