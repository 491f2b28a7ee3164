package analytics

import (
	"math"
	"sort"
)

// Quantile returns the p-quantile of sorted using linear interpolation
// between the two closest ranks (index = p * (n-1)).
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	index := p * float64(n-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// sortedCopy returns an ascending copy of values
func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// OrdinalRank assigns ranks 1..n in ascending value order. Ties are broken
// by first occurrence, so every rank is distinct.
func OrdinalRank(values []float64) []float64 {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[order[a]] < values[order[b]]
	})

	ranks := make([]float64, len(values))
	for rank, idx := range order {
		ranks[idx] = float64(rank + 1)
	}
	return ranks
}

// quartileEdges returns the 25th, 50th and 75th percentiles of values
func quartileEdges(values []float64) [3]float64 {
	sorted := sortedCopy(values)
	return [3]float64{
		Quantile(sorted, 0.25),
		Quantile(sorted, 0.50),
		Quantile(sorted, 0.75),
	}
}

// quartileBin places v into one of four right-closed bins: (-inf, q1],
// (q1, q2], (q2, q3], (q3, +inf). Coinciding edges leave bins empty.
func quartileBin(v float64, edges [3]float64) int {
	bin := 0
	for _, edge := range edges {
		if v > edge {
			bin++
		}
	}
	return bin
}
