package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// fixedClock returns a clock that advances one second per call.
func fixedClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(time.Second)
		return now
	}
}

func TestAddAndGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	meta := model.Metadata{Importance: 8, Category: "preference", Entities: []string{"Shram"}}
	added, err := s.AddMemory(ctx, "I use Shram", []float32{0.1, 0.2}, meta)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.ID != 1 {
		t.Fatalf("first id = %d, want 1", added.ID)
	}
	if !added.CreatedAt.Equal(added.UpdatedAt) {
		t.Fatalf("fresh record has CreatedAt %v != UpdatedAt %v", added.CreatedAt, added.UpdatedAt)
	}

	got, err := s.GetMemory(ctx, added.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Content != "I use Shram" {
		t.Fatalf("content = %q", got.Content)
	}
	if !got.Metadata.Equal(meta) {
		t.Fatalf("metadata = %+v", got.Metadata)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.GetMemory(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestIDsAreMonotonicAndNeverReused(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	a, _ := s.AddMemory(ctx, "a", nil, model.Metadata{})
	b, _ := s.AddMemory(ctx, "b", nil, model.Metadata{})
	if deleted, _ := s.DeleteMemory(ctx, b.ID); !deleted {
		t.Fatalf("delete of existing record returned false")
	}

	c, _ := s.AddMemory(ctx, "c", nil, model.Metadata{})
	if c.ID <= b.ID {
		t.Fatalf("id %d reused after delete of %d", c.ID, b.ID)
	}
	if a.ID >= b.ID || b.ID >= c.ID {
		t.Fatalf("ids not monotonic: %d %d %d", a.ID, b.ID, c.ID)
	}
}

func TestDeleteSemantics(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	rec, _ := s.AddMemory(ctx, "x", nil, model.Metadata{})

	deleted, err := s.DeleteMemory(ctx, rec.ID)
	if err != nil || !deleted {
		t.Fatalf("first delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = s.DeleteMemory(ctx, rec.ID)
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
	if _, err := s.GetMemory(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestListMemoriesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore().WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	s.AddMemory(ctx, "A", nil, model.Metadata{})
	s.AddMemory(ctx, "B", nil, model.Metadata{})
	s.AddMemory(ctx, "C", nil, model.Metadata{})

	got, err := s.ListMemories(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"C", "B", "A"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, rec := range got {
		if rec.Content != want[i] {
			t.Fatalf("position %d = %q, want %q", i, rec.Content, want[i])
		}
	}
}

func TestListTieBreaksOnID(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewInMemoryStore().WithClock(func() time.Time { return now })

	s.AddMemory(ctx, "first", nil, model.Metadata{})
	s.AddMemory(ctx, "second", nil, model.Metadata{})

	got, _ := s.ListMemories(ctx)
	if got[0].Content != "second" || got[1].Content != "first" {
		t.Fatalf("equal timestamps should order by id descending, got %q then %q", got[0].Content, got[1].Content)
	}
}

func TestUpdateMemory(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore().WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	rec, _ := s.AddMemory(ctx, "old", []float32{1}, model.Metadata{Importance: 5})

	content := "new"
	updated, err := s.UpdateMemory(ctx, rec.ID, Update{Content: &content})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Content != "new" {
		t.Fatalf("content = %q", updated.Content)
	}
	if !updated.UpdatedAt.After(rec.UpdatedAt) {
		t.Fatalf("UpdatedAt did not advance on real change")
	}
	if !updated.CreatedAt.Equal(rec.CreatedAt) {
		t.Fatalf("CreatedAt changed on update")
	}
}

func TestNoOpUpdateLeavesUpdatedAt(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore().WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	rec, _ := s.AddMemory(ctx, "same", nil, model.Metadata{})

	same := "same"
	updated, err := s.UpdateMemory(ctx, rec.ID, Update{Content: &same})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Fatalf("UpdatedAt moved on no-op update: %v -> %v", rec.UpdatedAt, updated.UpdatedAt)
	}

	updated, err = s.UpdateMemory(ctx, rec.ID, Update{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if !updated.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Fatalf("UpdatedAt moved on empty update")
	}
}

func TestUpdateMissingReturnsNotFound(t *testing.T) {
	s := NewInMemoryStore()
	content := "x"
	_, err := s.UpdateMemory(context.Background(), 7, Update{Content: &content})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSearchByContent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore().WithClock(fixedClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))

	s.AddMemory(ctx, "I love hiking in the mountains", nil, model.Metadata{})
	s.AddMemory(ctx, "Hiking boots need replacing", nil, model.Metadata{})
	s.AddMemory(ctx, "I prefer tea over coffee", nil, model.Metadata{})

	got, err := s.SearchByContent(ctx, "hiking", 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2 (case-insensitive)", len(got))
	}
	if got[0].Content != "Hiking boots need replacing" {
		t.Fatalf("results not newest first: %q", got[0].Content)
	}

	got, _ = s.SearchByContent(ctx, "hiking", 1)
	if len(got) != 1 {
		t.Fatalf("limit not applied: %d", len(got))
	}

	got, _ = s.SearchByContent(ctx, "hiking", 0)
	if len(got) != 0 {
		t.Fatalf("non-positive limit should yield nothing, got %d", len(got))
	}
}

func TestCount(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	for i := 0; i < 3; i++ {
		s.AddMemory(ctx, "m", nil, model.Metadata{})
	}
	n, err := s.Count(ctx)
	if err != nil || n != 3 {
		t.Fatalf("count = (%d, %v), want (3, nil)", n, err)
	}
}

func TestStoredRecordsAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	vec := []float32{1, 2}
	rec, _ := s.AddMemory(ctx, "iso", vec, model.Metadata{Entities: []string{"a"}})

	vec[0] = 99
	rec.Embedding[1] = 99
	rec.Metadata.Entities[0] = "z"

	got, _ := s.GetMemory(ctx, rec.ID)
	if got.Embedding[0] != 1 || got.Embedding[1] != 2 {
		t.Fatalf("stored embedding aliased: %v", got.Embedding)
	}
	if got.Metadata.Entities[0] != "a" {
		t.Fatalf("stored metadata aliased: %v", got.Metadata.Entities)
	}
}
