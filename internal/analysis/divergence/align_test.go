package divergence

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"

	"stockscreen/internal/analysis/pivot"
)

func lowsAt(positions ...int) []pivot.Pivot {
	out := make([]pivot.Pivot, len(positions))
	for i, p := range positions {
		out[i] = pivot.Pivot{Pos: p, Value: float64(p), Kind: pivot.Low}
	}
	return out
}

func TestNearestPivotPicksClosest(t *testing.T) {
	candidates := lowsAt(2, 9, 17)
	got, ok := nearestPivot(10, candidates, 5)
	require.True(t, ok)
	require.Equal(t, 9, got.Pos)
}

func TestNearestPivotTieKeepsFirst(t *testing.T) {
	candidates := lowsAt(5, 15)
	got, ok := nearestPivot(10, candidates, 10)
	require.True(t, ok)
	require.Equal(t, 5, got.Pos)

	// Order decides the tie, not position value.
	candidates = lowsAt(15, 5)
	got, ok = nearestPivot(10, candidates, 10)
	require.True(t, ok)
	require.Equal(t, 15, got.Pos)
}

func TestNearestPivotRespectsMaxGap(t *testing.T) {
	candidates := lowsAt(2, 30)
	_, ok := nearestPivot(10, candidates, 5)
	require.False(t, ok)

	got, ok := nearestPivot(10, candidates, 8)
	require.True(t, ok)
	require.Equal(t, 2, got.Pos)
}

func TestNearestPivotExactGapMatches(t *testing.T) {
	candidates := lowsAt(15)
	got, ok := nearestPivot(10, candidates, 5)
	require.True(t, ok)
	require.Equal(t, 15, got.Pos)
}

func TestNearestPivotDegenerateInputs(t *testing.T) {
	_, ok := nearestPivot(10, nil, 5)
	require.False(t, ok)

	_, ok = nearestPivot(10, lowsAt(11), -1)
	require.False(t, ok)
}

func TestProperty_AlignmentBoundRespected(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("matches never exceed the gap bound", prop.ForAll(
		func(target int, positions []int, maxGap int) bool {
			got, ok := nearestPivot(target, lowsAt(positions...), maxGap)
			if !ok {
				return true
			}
			d := got.Pos - target
			if d < 0 {
				d = -d
			}
			return d <= maxGap
		},
		gen.IntRange(0, 100),
		gen.SliceOfN(10, gen.IntRange(0, 100)),
		gen.IntRange(0, 20),
	))

	properties.TestingRun(t)
}
