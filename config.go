package recall

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Protocol-Lattice/recall/src/memory/embed"
	"github.com/Protocol-Lattice/recall/src/memory/engine"
	"github.com/Protocol-Lattice/recall/src/models"
)

// Config declares the components an engine should run with. Unset fields are
// defaulted at build time:
//
//   - Store: in-memory store
//   - Embedder: provider from RECALL_EMBED_PROVIDER, else a deterministic
//     offline embedder
//   - Chat: OpenAI via OPENAI_API_KEY; building fails if neither Chat nor
//     the key is available
type Config struct {
	Store    Store
	Embedder Embedder
	Chat     ChatModel
	Options  Options
}

func (c Config) build(ctx context.Context) (*Engine, error) {
	st := c.Store
	if st == nil {
		st = NewInMemoryStore()
	}

	emb := c.Embedder
	if emb == nil {
		// Default providers sit behind a cache; memory workloads re-embed
		// the same texts constantly.
		emb = embed.NewCachedEmbedder(embed.AutoEmbedder(), 1024, time.Hour)
	}

	chat := c.Chat
	if chat == nil {
		if os.Getenv("OPENAI_API_KEY") == "" && os.Getenv("OPENAI_KEY") == "" {
			return nil, fmt.Errorf("recall: no chat model configured and OPENAI_API_KEY is unset")
		}
		chat = models.NewOpenAIChat("")
	}

	eng, err := engine.New(st, emb, chat, c.Options)
	if err != nil {
		return nil, err
	}
	if err := eng.InitSchema(ctx, ""); err != nil {
		return nil, fmt.Errorf("recall: init schema: %w", err)
	}
	return eng, nil
}
