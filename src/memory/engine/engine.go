// Package engine wires storage, embeddings, extraction, curation and ranking
// into a single conversational memory pipeline.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Protocol-Lattice/recall/src/memory/curate"
	"github.com/Protocol-Lattice/recall/src/memory/embed"
	"github.com/Protocol-Lattice/recall/src/memory/extract"
	"github.com/Protocol-Lattice/recall/src/memory/model"
	"github.com/Protocol-Lattice/recall/src/memory/rank"
	"github.com/Protocol-Lattice/recall/src/memory/store"
	"github.com/Protocol-Lattice/recall/src/models"
)

// Engine is the top-level memory system. One engine serves one memory store;
// conversation turns are serialized so extraction and curation see a stable
// view of the store.
type Engine struct {
	mu        sync.Mutex
	store     store.Store
	embedder  embed.Embedder
	ranker    rank.Ranker
	extractor *extract.Extractor
	curator   *curate.Curator
	chat      models.ChatModel
	opts      Options
}

// ProcessResult reports what a single turn did to the store.
type ProcessResult struct {
	NewMemories      []model.MemoryRecord
	DeletedMemories  []int64
	RelevantMemories []model.MemoryRecord
}

// RespondResult carries a generated reply plus the turn's memory effects.
type RespondResult struct {
	Response string
	ProcessResult
}

// New assembles an engine. Store, embedder and chat are required; the ranker
// defaults to cosine ranking.
func New(st store.Store, embedder embed.Embedder, chat models.ChatModel, opts Options) (*Engine, error) {
	if st == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("engine: embedder is required")
	}
	if chat == nil {
		return nil, fmt.Errorf("engine: chat model is required")
	}
	opts = opts.withDefaults()
	return &Engine{
		store:    st,
		embedder: embedder,
		ranker:   rank.CosineRanker{},
		extractor: extract.New(chat,
			extract.WithModel(opts.ChatModel),
			extract.WithLogger(opts.Logger)),
		curator: curate.New(chat,
			curate.WithModel(opts.ChatModel),
			curate.WithLogger(opts.Logger)),
		chat: chat,
		opts: opts,
	}, nil
}

// WithRanker swaps the ranking strategy. Call before first use.
func (e *Engine) WithRanker(r rank.Ranker) *Engine {
	if r != nil {
		e.ranker = r
	}
	return e
}

// InitSchema prepares backend storage when the store supports it. An empty
// schema path uses the store's built-in schema.
func (e *Engine) InitSchema(ctx context.Context, schemaPath string) error {
	if si, ok := e.store.(store.SchemaInitializer); ok {
		return si.CreateSchema(ctx, schemaPath)
	}
	return nil
}

// Process runs one conversation turn against the store: extract and persist
// new memories, delete stale ones, then retrieve memories relevant to the
// latest user message. Extraction and curation degrade to no-ops on model
// failure; storage and embedding failures abort the turn.
func (e *Engine) Process(ctx context.Context, conversation []models.Message, popts ProcessOptions) (ProcessResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.processLocked(ctx, conversation, popts)
}

func (e *Engine) processLocked(ctx context.Context, conversation []models.Message, popts ProcessOptions) (ProcessResult, error) {
	var result ProcessResult

	if !popts.SkipExtract {
		candidates := e.extractor.Extract(ctx, conversation, e.opts.ImportanceThreshold)
		if len(candidates) > 0 {
			texts := make([]string, len(candidates))
			for i, cand := range candidates {
				texts[i] = cand.Content
			}
			vectors, err := embed.EmbedAll(ctx, e.embedder, texts, e.opts.EmbedConcurrency)
			if err != nil {
				return result, fmt.Errorf("embed memory: %w", err)
			}
			for i, cand := range candidates {
				meta := model.Metadata{
					Importance: cand.Importance,
					Category:   cand.Category,
					Entities:   cand.Entities,
				}
				if meta.Category == "" {
					meta.Category = "general"
				}
				rec, err := e.store.AddMemory(ctx, cand.Content, vectors[i], meta)
				if err != nil {
					return result, err
				}
				result.NewMemories = append(result.NewMemories, rec)
			}
		}
	}

	if !popts.SkipCurate {
		all, err := e.store.ListMemories(ctx)
		if err != nil {
			return result, err
		}
		stale := e.curator.IdentifyStale(ctx, conversation, all)
		for _, id := range stale {
			deleted, err := e.store.DeleteMemory(ctx, id)
			if err != nil {
				return result, err
			}
			if deleted {
				result.DeletedMemories = append(result.DeletedMemories, id)
			}
		}
	}

	// Retrieval runs after curation so freshly deleted memories can no
	// longer surface as relevant.
	if query := lastUserMessage(conversation); query != "" {
		relevant, err := e.recallLocked(ctx, query, e.opts.RetrievalLimit)
		if err != nil {
			return result, err
		}
		result.RelevantMemories = relevant
	}

	return result, nil
}

// Respond processes the turn, injects relevant memories into a system prompt
// and asks the chat model for a reply.
func (e *Engine) Respond(ctx context.Context, conversation []models.Message) (RespondResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	processed, err := e.processLocked(ctx, conversation, ProcessOptions{})
	if err != nil {
		return RespondResult{ProcessResult: processed}, err
	}

	system := models.Message{
		Role: models.RoleSystem,
		Content: "You are a helpful assistant with access to the user's long-term memories. " +
			"Use the following memories to inform your responses:\n\n" +
			FormatMemoryContext(processed.RelevantMemories),
	}
	augmented := append([]models.Message{system}, conversation...)

	reply, err := e.chat.Chat(ctx, augmented, models.ChatOptions{
		Model:       e.opts.ChatModel,
		Temperature: e.opts.Temperature,
		MaxTokens:   e.opts.MaxTokens,
	})
	if err != nil {
		return RespondResult{ProcessResult: processed}, fmt.Errorf("chat completion: %w", err)
	}
	return RespondResult{Response: reply, ProcessResult: processed}, nil
}

// Remember embeds and stores a memory directly, bypassing extraction.
func (e *Engine) Remember(ctx context.Context, content string, meta model.Metadata) (model.MemoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vec, err := e.embedder.Embed(ctx, content)
	if err != nil {
		return model.MemoryRecord{}, fmt.Errorf("embed memory: %w", err)
	}
	return e.store.AddMemory(ctx, content, vec, meta)
}

// Update applies a partial mutation to a stored memory. When the content
// changes and no explicit embedding is supplied, the embedding is recomputed
// so retrieval stays consistent with the new text.
func (e *Engine) Update(ctx context.Context, id int64, update store.Update) (model.MemoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if update.Content != nil && update.Embedding == nil {
		vec, err := e.embedder.Embed(ctx, *update.Content)
		if err != nil {
			return model.MemoryRecord{}, fmt.Errorf("embed memory: %w", err)
		}
		update.Embedding = vec
	}
	return e.store.UpdateMemory(ctx, id, update)
}

// Forget deletes a memory by id. It reports whether anything was removed.
func (e *Engine) Forget(ctx context.Context, id int64) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.DeleteMemory(ctx, id)
}

// Recall returns up to limit memories ranked by relevance to the query.
// A non-positive limit uses the engine default.
func (e *Engine) Recall(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if limit <= 0 {
		limit = e.opts.RetrievalLimit
	}
	return e.recallLocked(ctx, query, limit)
}

func (e *Engine) recallLocked(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	all, err := e.store.ListMemories(ctx)
	if err != nil {
		return nil, err
	}
	return e.ranker.Rank(vec, all, limit), nil
}

// Get fetches a single memory by id.
func (e *Engine) Get(ctx context.Context, id int64) (model.MemoryRecord, error) {
	return e.store.GetMemory(ctx, id)
}

// List returns every stored memory, newest first.
func (e *Engine) List(ctx context.Context) ([]model.MemoryRecord, error) {
	return e.store.ListMemories(ctx)
}

// SearchByContent finds memories whose content contains the query substring,
// case-insensitively. A non-positive limit yields no results.
func (e *Engine) SearchByContent(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	return e.store.SearchByContent(ctx, query, limit)
}

// Count reports how many memories are stored.
func (e *Engine) Count(ctx context.Context) (int, error) {
	return e.store.Count(ctx)
}

// FormatMemoryContext renders memories for inclusion in a system prompt.
func FormatMemoryContext(memories []model.MemoryRecord) string {
	if len(memories) == 0 {
		return "No relevant memories found."
	}
	var b strings.Builder
	b.WriteString("Relevant memories:")
	for _, rec := range memories {
		b.WriteString("\n- ")
		b.WriteString(rec.Content)
	}
	return b.String()
}

func lastUserMessage(conversation []models.Message) string {
	for i := len(conversation) - 1; i >= 0; i-- {
		if conversation[i].Role == models.RoleUser {
			return conversation[i].Content
		}
	}
	return ""
}
