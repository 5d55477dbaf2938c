package recall

import (
	"context"
	"testing"

	"github.com/Protocol-Lattice/recall/src/memory/embed"
	"github.com/Protocol-Lattice/recall/src/models"
)

func TestNewWithExplicitComponents(t *testing.T) {
	ctx := context.Background()
	eng, err := New(ctx, Config{
		Store:    NewInMemoryStore(),
		Embedder: embed.DummyEmbedder{},
		Chat:     models.NewScriptedChat("ok"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	rec, err := eng.Remember(ctx, "I use Shram and Magnet as productivity tools", Metadata{
		Importance: 8,
		Category:   "preference",
		Entities:   []string{"Shram", "Magnet"},
	})
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if rec.ID != 1 {
		t.Fatalf("id = %d, want 1", rec.ID)
	}

	got, err := eng.Recall(ctx, "What productivity tools do I use?", 5)
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(got) != 1 || got[0].ID != rec.ID {
		t.Fatalf("recall = %v", got)
	}
}

func TestNewRequiresChatCredentials(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_KEY", "")

	if _, err := New(context.Background(), Config{
		Store:    NewInMemoryStore(),
		Embedder: embed.DummyEmbedder{},
	}); err == nil {
		t.Fatalf("expected error when no chat model and no API key are available")
	}
}

func TestCosineSimilarityReexport(t *testing.T) {
	if got := CosineSimilarity([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Fatalf("got %f, want 1", got)
	}
}
