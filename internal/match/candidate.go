package match

import (
	"cmp"
	"slices"
)

// DefaultThreshold is the minimum NameSimilarity for a suggestion.
const DefaultThreshold = 0.6

// Candidate is a ranked suggestion.
type Candidate struct {
	Name  string
	Score float64
}

// Rank scores every candidate against name and returns those at or above
// threshold, best first. Ties keep alphabetical order.
func Rank(name string, candidates []string, threshold float64) []Candidate {
	var ranked []Candidate

	for _, c := range candidates {
		score := NameSimilarity(name, c)
		if score >= threshold {
			ranked = append(ranked, Candidate{Name: c, Score: score})
		}
	}

	slices.SortFunc(ranked, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return ranked
}

// Suggest returns up to limit candidate names closest to name.
func Suggest(name string, candidates []string, limit int) []string {
	ranked := Rank(name, candidates, DefaultThreshold)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	names := make([]string, 0, len(ranked))
	for _, c := range ranked {
		names = append(names, c.Name)
	}

	return names
}
