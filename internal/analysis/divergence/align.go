package divergence

import "stockscreen/internal/analysis/pivot"

// nearestPivot matches a price pivot position to the closest candidate pivot
// by bar-count distance. Calendar distance would be wrong here: the two
// series can have different sampling gaps (missing sessions), while position
// offsets are calendar-agnostic and deterministic. Ties keep the first
// candidate in input order; nothing beyond maxGap matches.
func nearestPivot(target int, candidates []pivot.Pivot, maxGap int) (pivot.Pivot, bool) {
	if maxGap < 0 {
		return pivot.Pivot{}, false
	}
	bestIdx := -1
	bestDist := 0
	for i, c := range candidates {
		d := c.Pos - target
		if d < 0 {
			d = -d
		}
		if bestIdx < 0 || d < bestDist {
			bestIdx, bestDist = i, d
		}
	}
	if bestIdx < 0 || bestDist > maxGap {
		return pivot.Pivot{}, false
	}
	return candidates[bestIdx], true
}
