package curate

import (
	"context"
	"errors"
	"testing"

	"github.com/Protocol-Lattice/recall/src/memory/model"
	"github.com/Protocol-Lattice/recall/src/models"
)

type failingChat struct{}

func (failingChat) Chat(context.Context, []models.Message, models.ChatOptions) (string, error) {
	return "", errors.New("model unavailable")
}

var conversation = []models.Message{
	{Role: models.RoleUser, Content: "I don't use Magnet anymore."},
}

var memories = []model.MemoryRecord{
	{ID: 1, Content: "I use Shram as a productivity tool"},
	{ID: 2, Content: "I use Magnet as a productivity tool"},
}

func TestIdentifyStale(t *testing.T) {
	chat := models.NewScriptedChat(`[2]`)
	got := New(chat).IdentifyStale(context.Background(), conversation, memories)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("got %v, want [2]", got)
	}
}

func TestIdentifyStaleIgnoresUnknownIDs(t *testing.T) {
	chat := models.NewScriptedChat(`[2, 99]`)
	got := New(chat).IdentifyStale(context.Background(), conversation, memories)
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("unknown id not filtered: %v", got)
	}
}

func TestIdentifyStaleEmptyAnswer(t *testing.T) {
	chat := models.NewScriptedChat(`[]`)
	if got := New(chat).IdentifyStale(context.Background(), conversation, memories); len(got) != 0 {
		t.Fatalf("got %v, want none", got)
	}
}

func TestIdentifyStaleFailsSoft(t *testing.T) {
	if got := New(failingChat{}).IdentifyStale(context.Background(), conversation, memories); got != nil {
		t.Fatalf("model failure should yield nil, got %v", got)
	}
	chat := models.NewScriptedChat("Nothing needs deleting, thanks for asking!")
	if got := New(chat).IdentifyStale(context.Background(), conversation, memories); got != nil {
		t.Fatalf("unparseable output should yield nil, got %v", got)
	}
}

func TestIdentifyStaleNoMemories(t *testing.T) {
	chat := models.NewScriptedChat(`[1]`)
	if got := New(chat).IdentifyStale(context.Background(), conversation, nil); got != nil {
		t.Fatalf("no stored memories should skip the model, got %v", got)
	}
}
