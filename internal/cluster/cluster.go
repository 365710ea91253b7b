// Package cluster groups a run's documents into theme clusters by
// lexical overlap: bag-of-words Jaccard similarity and a greedy single
// pass in input order. No embeddings, no external calls.
package cluster

import (
	"strings"
	"unicode"

	"github.com/google/uuid"

	"newsdesk/internal/report"
)

// DefaultThreshold is the minimum similarity for joining an existing
// cluster; below it a document starts a new singleton cluster.
const DefaultThreshold = 0.3

// Engine clusters documents. The zero value is not usable; construct
// with New.
type Engine struct {
	threshold float64
}

// New returns an Engine with the given similarity threshold.
// A non-positive threshold selects DefaultThreshold.
func New(threshold float64) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{threshold: threshold}
}

// Cluster partitions documents into theme clusters. Documents are
// processed in input order; each joins the existing cluster it is most
// similar to, provided the similarity clears the threshold, otherwise
// it seeds a new cluster. Ties prefer the earliest-created cluster, so
// the result is reproducible for a given input sequence.
//
// Empty input yields an empty result; a single document yields one
// singleton cluster.
func (e *Engine) Cluster(docs []report.Document) []report.ThemeCluster {
	if len(docs) == 0 {
		return nil
	}

	type group struct {
		members []int // indexes into docs
		tokens  []map[string]struct{}
	}
	var groups []group

	tokenSets := make([]map[string]struct{}, len(docs))
	for i, d := range docs {
		tokenSets[i] = tokenize(d.Title + " " + d.Excerpt)
	}

	for i := range docs {
		best := -1
		bestSim := e.threshold
		for gi := range groups {
			sim := 0.0
			for _, ts := range groups[gi].tokens {
				if s := jaccard(tokenSets[i], ts); s > sim {
					sim = s
				}
			}
			// strict > keeps the earliest cluster on ties
			if sim > bestSim {
				bestSim = sim
				best = gi
			}
		}
		if best >= 0 {
			groups[best].members = append(groups[best].members, i)
			groups[best].tokens = append(groups[best].tokens, tokenSets[i])
		} else {
			groups = append(groups, group{members: []int{i}, tokens: []map[string]struct{}{tokenSets[i]}})
		}
	}

	clusters := make([]report.ThemeCluster, 0, len(groups))
	for _, g := range groups {
		members := make([]report.Document, 0, len(g.members))
		ids := make([]string, 0, len(g.members))
		for _, idx := range g.members {
			members = append(members, docs[idx])
			ids = append(ids, docs[idx].ID)
		}
		clusters = append(clusters, report.ThemeCluster{
			ID:         uuid.NewString(),
			MemberIDs:  ids,
			Label:      label(members),
			Categories: estimateCategories(members),
		})
	}
	return clusters
}

// jaccard is token-set intersection over union.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(b) < len(a) {
		small, large = b, a
	}
	common := 0
	for t := range small {
		if _, ok := large[t]; ok {
			common++
		}
	}
	union := len(a) + len(b) - common
	return float64(common) / float64(union)
}

func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// label picks the longest member title as the cluster's theme label.
func label(members []report.Document) string {
	best := ""
	for _, d := range members {
		if len(d.Title) > len(best) {
			best = d.Title
		}
	}
	if best == "" {
		return "untitled theme"
	}
	return best
}
