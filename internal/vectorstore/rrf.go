package vectorstore

import (
	"sort"

	"webpagegenie/models"
)

// rrfK is the reciprocal-rank-fusion smoothing constant. Larger values
// flatten the difference between adjacent ranks.
const rrfK = 60

// FuseRRF merges a vector-ranked and a lexical-ranked list (each ordered
// best-first) by reciprocal-rank fusion: each chunk scores the sum of
// 1/(K + rank + 1) over whichever lists contain it, with rank the
// zero-based position. Only ranks matter, so the incomparable scoring
// scales of the two searches never touch. Returns the top kFinal chunks
// by descending fused score.
func FuseRRF(vectorRanked, lexicalRanked []models.Chunk, kFinal int) []models.Chunk {
	type fused struct {
		chunk models.Chunk
		score float64
		order int // first-seen position, keeps ties deterministic
	}

	scores := make(map[string]*fused)
	seen := 0

	accumulate := func(list []models.Chunk) {
		for rank, c := range list {
			key := c.Key()
			contribution := 1.0 / float64(rrfK+rank+1)
			if f, ok := scores[key]; ok {
				f.score += contribution
			} else {
				scores[key] = &fused{chunk: c, score: contribution, order: seen}
				seen++
			}
		}
	}
	accumulate(vectorRanked)
	accumulate(lexicalRanked)

	ranked := make([]*fused, 0, len(scores))
	for _, f := range scores {
		ranked = append(ranked, f)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].order < ranked[j].order
	})

	if kFinal > len(ranked) {
		kFinal = len(ranked)
	}
	out := make([]models.Chunk, 0, kFinal)
	for _, f := range ranked[:kFinal] {
		out = append(out, f.chunk)
	}
	return out
}
