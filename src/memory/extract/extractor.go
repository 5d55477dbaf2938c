// Package extract turns raw conversation turns into candidate memories by
// asking a chat model to pick out durable, personally relevant facts.
package extract

import (
	"context"
	"log"

	"github.com/Protocol-Lattice/recall/src/models"
)

// DefaultThreshold is the minimum importance a candidate needs to survive
// filtering when the caller does not override it.
const DefaultThreshold = 5

const extractionPrompt = `You are an AI assistant that extracts important information from conversations to be stored as long-term memories.
Your task is to identify statements that contain personal preferences, facts, or important information that the user might want to remember in the future.

For each such statement, create a memory object with the following structure:
{
    "content": "The exact statement or a concise summary of the information",
    "importance": a score from 1 to 10 indicating how important this memory is,
    "category": a string categorizing the memory (e.g., "preference", "fact", "personal_info"),
    "entities": a list of entities mentioned in the memory
}

Only extract information that seems personally relevant to the user and might be useful in future conversations.
Ignore general knowledge, transient information, or casual conversation.

Return your response as a JSON array of memory objects.`

// Candidate is one memory proposed by the model, before embedding/storage.
type Candidate struct {
	Content    string   `json:"content"`
	Importance int      `json:"importance"`
	Category   string   `json:"category"`
	Entities   []string `json:"entities"`
}

// Extractor drives memory extraction through a chat model.
type Extractor struct {
	chat   models.ChatModel
	model  string
	logger *log.Logger
}

// Option mutates an Extractor during construction.
type Option func(*Extractor)

func WithModel(model string) Option {
	return func(e *Extractor) { e.model = model }
}

func WithLogger(l *log.Logger) Option {
	return func(e *Extractor) { e.logger = l }
}

func New(chat models.ChatModel, opts ...Option) *Extractor {
	e := &Extractor{chat: chat, model: "gpt-4"}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the chat model for candidate memories and keeps those whose
// importance meets the threshold. A missing importance counts as zero. Model
// or parse failures are logged and yield an empty slice; extraction never
// aborts a conversation turn.
func (e *Extractor) Extract(ctx context.Context, conversation []models.Message, threshold int) []Candidate {
	if len(conversation) == 0 {
		return nil
	}

	messages := []models.Message{
		{Role: models.RoleSystem, Content: extractionPrompt},
		{Role: models.RoleUser, Content: models.FormatConversation(conversation)},
	}
	raw, err := e.chat.Chat(ctx, messages, models.ChatOptions{
		Model:       e.model,
		Temperature: 0.3,
	})
	if err != nil {
		e.logf("extraction call failed: %v", err)
		return nil
	}

	var candidates []Candidate
	if !models.DecodeLooseArray(raw, &candidates) {
		e.logf("extraction returned unparseable output")
		return nil
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.Content == "" {
			continue
		}
		if c.Importance >= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}

func (e *Extractor) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}
