package embed

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// countingEmbedder tracks provider calls so cache behaviour is observable.
type countingEmbedder struct {
	calls int64
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	atomic.AddInt64(&c.calls, 1)
	return DummyEmbedding(text), nil
}

type erroringEmbedder struct{}

func (erroringEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func TestDummyEmbeddingIsDeterministic(t *testing.T) {
	a := DummyEmbedding("hello world")
	b := DummyEmbedding("hello world")
	if len(a) != 768 {
		t.Fatalf("len = %d, want 768", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d", i)
		}
	}
	c := DummyEmbedding("different text")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("distinct texts produced identical embeddings")
	}
}

func TestCachedEmbedderAvoidsRepeatCalls(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 10, time.Minute)

	first, err := cached.Embed(ctx, "likes tea")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	second, err := cached.Embed(ctx, "likes tea")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("provider calls = %d, want 1", inner.calls)
	}
	if len(first) != len(second) {
		t.Fatalf("cached vector differs in length")
	}

	// A cached vector must not alias the caller's slice.
	second[0] = 42
	third, _ := cached.Embed(ctx, "likes tea")
	if third[0] == 42 {
		t.Fatalf("cache handed out an aliased slice")
	}
}

func TestCachedEmbedderEvictsAtCapacity(t *testing.T) {
	ctx := context.Background()
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner, 2, time.Minute)

	cached.Embed(ctx, "a")
	cached.Embed(ctx, "b")
	cached.Embed(ctx, "c") // evicts "a"
	if cached.Len() != 2 {
		t.Fatalf("len = %d, want 2", cached.Len())
	}

	cached.Embed(ctx, "a")
	if inner.calls != 4 {
		t.Fatalf("provider calls = %d, want 4 (evicted entry re-fetched)", inner.calls)
	}
}

func TestCachedEmbedderPropagatesErrors(t *testing.T) {
	cached := NewCachedEmbedder(erroringEmbedder{}, 10, time.Minute)
	if _, err := cached.Embed(context.Background(), "x"); err == nil {
		t.Fatalf("expected provider error")
	}
	if cached.Len() != 0 {
		t.Fatalf("failed embed was cached")
	}
}

func TestEmbedAllPreservesOrder(t *testing.T) {
	ctx := context.Background()
	texts := []string{"one", "two", "three", "four", "five"}

	vectors, err := EmbedAll(ctx, DummyEmbedder{}, texts, 2)
	if err != nil {
		t.Fatalf("embed all: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("len = %d, want %d", len(vectors), len(texts))
	}
	for i, text := range texts {
		want := DummyEmbedding(text)
		if vectors[i][0] != want[0] {
			t.Fatalf("vector %d does not match its text", i)
		}
	}
}

func TestEmbedAllAbortsOnError(t *testing.T) {
	if _, err := EmbedAll(context.Background(), erroringEmbedder{}, []string{"a", "b"}, 2); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEmbedAllEmptyInput(t *testing.T) {
	vectors, err := EmbedAll(context.Background(), DummyEmbedder{}, nil, 2)
	if err != nil || vectors != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", vectors, err)
	}
}
