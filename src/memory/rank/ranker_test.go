package rank

import (
	"math"
	"testing"
	"time"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

func rec(id int64, content string, embedding []float32, created time.Time) model.MemoryRecord {
	return model.MemoryRecord{ID: id, Content: content, Embedding: embedding, CreatedAt: created}
}

func TestRankOrdersBySimilarity(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	candidates := []model.MemoryRecord{
		rec(1, "far", []float32{0, 1}, now),
		rec(2, "near", []float32{1, 0}, now),
		rec(3, "mid", []float32{1, 1}, now),
	}

	got := CosineRanker{}.Rank([]float32{1, 0}, candidates, 10)
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].Content != "near" || got[1].Content != "mid" || got[2].Content != "far" {
		t.Fatalf("order = %q %q %q", got[0].Content, got[1].Content, got[2].Content)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Fatalf("scores not descending: %v then %v", got[i-1].Score, got[i].Score)
		}
	}
	if math.Abs(got[0].Score-1) > 1e-9 {
		t.Fatalf("top score = %f, want 1", got[0].Score)
	}
}

func TestRankLimitsResults(t *testing.T) {
	now := time.Now()
	var candidates []model.MemoryRecord
	for i := int64(1); i <= 10; i++ {
		candidates = append(candidates, rec(i, "m", []float32{1, 0}, now))
	}

	if got := (CosineRanker{}).Rank([]float32{1, 0}, candidates, 3); len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	// Non-positive limit falls back to the default.
	if got := (CosineRanker{}).Rank([]float32{1, 0}, candidates, 0); len(got) != DefaultLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultLimit)
	}
}

func TestRankTieBreaksByRecencyThenID(t *testing.T) {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	candidates := []model.MemoryRecord{
		rec(1, "old", []float32{1, 0}, older),
		rec(2, "new", []float32{1, 0}, newer),
		rec(3, "new-high-id", []float32{1, 0}, newer),
	}

	got := CosineRanker{}.Rank([]float32{1, 0}, candidates, 10)
	if got[0].ID != 3 || got[1].ID != 2 || got[2].ID != 1 {
		t.Fatalf("tie-break order = %d %d %d, want 3 2 1", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRankHandlesMissingEmbeddings(t *testing.T) {
	now := time.Now()
	candidates := []model.MemoryRecord{
		rec(1, "no-embedding", nil, now),
		rec(2, "embedded", []float32{1, 0}, now),
	}

	got := CosineRanker{}.Rank([]float32{1, 0}, candidates, 10)
	if got[0].Content != "embedded" {
		t.Fatalf("embedded record should rank first, got %q", got[0].Content)
	}
	if got[1].Score != 0 {
		t.Fatalf("missing embedding score = %f, want 0", got[1].Score)
	}
	if math.IsNaN(got[1].Score) {
		t.Fatalf("score is NaN")
	}
}

func TestRankEmptyCandidates(t *testing.T) {
	if got := (CosineRanker{}).Rank([]float32{1}, nil, 5); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	now := time.Now()
	candidates := []model.MemoryRecord{rec(1, "a", []float32{1, 0}, now)}
	CosineRanker{}.Rank([]float32{1, 0}, candidates, 5)
	if candidates[0].Score != 0 {
		t.Fatalf("input slice mutated: score = %f", candidates[0].Score)
	}
}
