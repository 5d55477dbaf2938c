// Package curate identifies stored memories that a conversation has made
// stale, so the engine can delete them.
package curate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/Protocol-Lattice/recall/src/memory/model"
	"github.com/Protocol-Lattice/recall/src/models"
)

const curationPrompt = `You are an AI assistant that identifies memories to delete based on the user's input.
Your task is to analyze the conversation and determine which memories should be deleted.

The user might explicitly ask to delete memories or imply that certain information is no longer valid.

For each memory, decide if it should be deleted based on the conversation.
Return your response as a JSON array of memory IDs that should be deleted.
If no memories should be deleted, return an empty array.`

// Curator drives stale-memory identification through a chat model.
type Curator struct {
	chat   models.ChatModel
	model  string
	logger *log.Logger
}

type Option func(*Curator)

func WithModel(model string) Option {
	return func(c *Curator) { c.model = model }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Curator) { c.logger = l }
}

func New(chat models.ChatModel, opts ...Option) *Curator {
	c := &Curator{chat: chat, model: "gpt-4"}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IdentifyStale returns the IDs of memories the model judged obsolete.
// IDs that do not refer to an existing memory are dropped with a warning.
// Model or parse failures are logged and yield nil; curation never aborts
// a conversation turn.
func (c *Curator) IdentifyStale(ctx context.Context, conversation []models.Message, memories []model.MemoryRecord) []int64 {
	if len(conversation) == 0 || len(memories) == 0 {
		return nil
	}

	var listing strings.Builder
	known := make(map[int64]bool, len(memories))
	for i, rec := range memories {
		if i > 0 {
			listing.WriteString("\n")
		}
		fmt.Fprintf(&listing, "ID: %d, Content: %s", rec.ID, rec.Content)
		known[rec.ID] = true
	}

	prompt := fmt.Sprintf("%s\n\nConversation:\n%s\n\nMemories:\n%s",
		curationPrompt, models.FormatConversation(conversation), listing.String())

	raw, err := c.chat.Chat(ctx, []models.Message{
		{Role: models.RoleSystem, Content: curationPrompt},
		{Role: models.RoleUser, Content: prompt},
	}, models.ChatOptions{
		Model:       c.model,
		Temperature: 0.3,
	})
	if err != nil {
		c.logf("curation call failed: %v", err)
		return nil
	}

	var ids []int64
	if !models.DecodeLooseArray(raw, &ids) {
		c.logf("curation returned unparseable output")
		return nil
	}

	valid := ids[:0]
	for _, id := range ids {
		if !known[id] {
			c.logf("curation proposed unknown memory id %d, ignoring", id)
			continue
		}
		valid = append(valid, id)
	}
	return valid
}

func (c *Curator) logf(format string, args ...any) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
