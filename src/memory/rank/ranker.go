package rank

import (
	"sort"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// DefaultLimit is the number of memories returned when the caller passes a
// non-positive limit.
const DefaultLimit = 5

// Ranker orders candidate memories by relevance to a query vector. The
// brute-force CosineRanker is the correctness baseline; an index-backed
// implementation can be swapped in behind the same contract.
type Ranker interface {
	Rank(query []float32, candidates []model.MemoryRecord, limit int) []model.MemoryRecord
}

// CosineRanker scores every candidate with cosine similarity and returns the
// top entries. Candidates without an embedding (and zero vectors) score 0 and
// sort last.
type CosineRanker struct{}

func (CosineRanker) Rank(query []float32, candidates []model.MemoryRecord, limit int) []model.MemoryRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if len(candidates) == 0 {
		return nil
	}
	scored := make([]model.MemoryRecord, len(candidates))
	for i, rec := range candidates {
		rec.Score = model.CosineSimilarity(query, rec.Embedding)
		scored[i] = rec
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Deterministic tie-break: most recent first, then highest id.
		if !scored[i].CreatedAt.Equal(scored[j].CreatedAt) {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		}
		return scored[i].ID > scored[j].ID
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}
