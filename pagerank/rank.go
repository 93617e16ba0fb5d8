package pagerank

import "sort"

// Score associates a vertex ID with its PageRank score.
type Score struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Ranking returns the entries of scores sorted by descending score. Vertices
// with equal scores are ordered by ascending ID.
func Ranking(scores map[string]float64) []Score {
	ranking := make([]Score, 0, len(scores))
	for id, score := range scores {
		ranking = append(ranking, Score{ID: id, Score: score})
	}

	sort.Slice(ranking, func(i, j int) bool {
		if ranking[i].Score != ranking[j].Score {
			return ranking[i].Score > ranking[j].Score
		}
		return ranking[i].ID < ranking[j].ID
	})
	return ranking
}

// Normalize returns a copy of scores scaled so that they add up to 1. A copy
// of the input is returned unchanged if its sum is zero.
func Normalize(scores map[string]float64) map[string]float64 {
	total := Sum(scores)
	out := make(map[string]float64, len(scores))
	for id, score := range scores {
		if total != 0 {
			score /= total
		}
		out[id] = score
	}
	return out
}

// Sum returns the total of all scores.
func Sum(scores map[string]float64) float64 {
	values := make([]float64, 0, len(scores))
	for _, score := range scores {
		values = append(values, score)
	}
	return sortedSum(values)
}

// sortedSum sorts values in place and returns their sum. Adding the values in
// a fixed order keeps the total independent of map iteration order.
func sortedSum(values []float64) float64 {
	sort.Float64s(values)
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}
