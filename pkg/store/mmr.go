package store

import (
	"math"

	"github.com/askdocs/askdocs/internal/models"
)

// MaximalMarginalRelevance selects k matches from relevance-ordered
// candidates, balancing similarity to the query against diversity among the
// already selected results. lambda 1 is pure relevance, 0 pure diversity.
func MaximalMarginalRelevance(query []float32, candidates []models.Match, k int, lambda float32) []models.Match {
	if k <= 0 {
		return nil
	}
	if len(candidates) <= k {
		return candidates
	}

	simToQuery := make([]float32, len(candidates))
	for i, c := range candidates {
		simToQuery[i] = cosineSimilarity(query, c.Embedding)
	}

	selected := make([]models.Match, 0, k)
	chosen := make([]bool, len(candidates))

	for len(selected) < k {
		best := -1
		bestScore := float32(math.Inf(-1))

		for i := range candidates {
			if chosen[i] {
				continue
			}
			var redundancy float32
			for _, s := range selected {
				if sim := cosineSimilarity(candidates[i].Embedding, s.Embedding); sim > redundancy {
					redundancy = sim
				}
			}
			score := lambda*simToQuery[i] - (1-lambda)*redundancy
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		chosen[best] = true
		selected = append(selected, candidates[best])
	}

	return selected
}
