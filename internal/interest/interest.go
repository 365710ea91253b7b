// Package interest weighs theme clusters against per-category
// user-interest signals. Scoring is pure and deterministic so ranks can
// be recomputed at any point in a run.
package interest

import (
	"sort"

	"newsdesk/internal/report"
)

// DefaultWeight applies to categories the weight map does not mention.
const DefaultWeight = 1.0

// Score sums the interest weights of a cluster's categories. There is
// no normalization by cluster size: a cluster touching more relevant
// categories scores higher, which favors breadth.
func Score(c report.ThemeCluster, weights map[string]float64) float64 {
	total := 0.0
	for _, category := range c.Categories {
		w, ok := weights[category]
		if !ok {
			w = DefaultWeight
		}
		total += w
	}
	return total
}

// Rank recomputes every cluster's ImportanceScore from weights and
// returns the clusters ordered by descending score. Ties keep creation
// order (the input order). The input slice is not modified.
func Rank(clusters []report.ThemeCluster, weights map[string]float64) []report.ThemeCluster {
	out := make([]report.ThemeCluster, len(clusters))
	copy(out, clusters)
	for i := range out {
		out[i].ImportanceScore = Score(out[i], weights)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ImportanceScore > out[j].ImportanceScore
	})
	return out
}
