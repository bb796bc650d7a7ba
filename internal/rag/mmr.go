package rag

import (
	"math"
)

// MaximalMarginalRelevance selects up to k documents from candidates,
// greedily maximising
//
//	lambda * sim(query, doc) - (1 - lambda) * max sim(doc, selected)
//
// so each pick balances relevance to the query against redundancy with what
// has already been selected. lambda=1 is pure relevance, lambda=0 pure
// diversity. Candidates without a stored vector fall back to their search
// score for the relevance term and contribute no redundancy penalty.
func MaximalMarginalRelevance(query []float32, candidates []Candidate, k int, lambda float32) []Document {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	relevance := make([]float32, len(candidates))
	for i, c := range candidates {
		if len(c.Vector) > 0 {
			relevance[i] = cosineSimilarity(query, c.Vector)
		} else {
			relevance[i] = c.Score
		}
	}

	selected := make([]int, 0, k)
	remaining := make(map[int]bool, len(candidates))
	for i := range candidates {
		remaining[i] = true
	}

	for len(selected) < k {
		best := -1
		bestScore := float32(math.Inf(-1))

		for i := range candidates {
			if !remaining[i] {
				continue
			}

			var redundancy float32
			for _, j := range selected {
				if len(candidates[i].Vector) == 0 || len(candidates[j].Vector) == 0 {
					continue
				}
				if sim := cosineSimilarity(candidates[i].Vector, candidates[j].Vector); sim > redundancy {
					redundancy = sim
				}
			}

			score := lambda*relevance[i] - (1-lambda)*redundancy
			if score > bestScore {
				bestScore = score
				best = i
			}
		}

		if best < 0 {
			break
		}
		selected = append(selected, best)
		delete(remaining, best)
	}

	docs := make([]Document, 0, len(selected))
	for _, i := range selected {
		docs = append(docs, candidates[i].Document)
	}
	return docs
}

// cosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 for mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
