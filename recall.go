// Package recall provides long-term conversational memory for LLM
// applications: it extracts durable facts from chat turns, stores them with
// embeddings, prunes facts the user has invalidated, and injects the most
// relevant ones back into the model's context.
//
// The root package is a thin facade; the implementation lives under
// src/memory and src/models.
package recall

import (
	"context"

	"github.com/Protocol-Lattice/recall/src/memory/embed"
	"github.com/Protocol-Lattice/recall/src/memory/engine"
	"github.com/Protocol-Lattice/recall/src/memory/model"
	"github.com/Protocol-Lattice/recall/src/memory/rank"
	"github.com/Protocol-Lattice/recall/src/memory/store"
	"github.com/Protocol-Lattice/recall/src/models"
)

// Core data types.
type (
	MemoryRecord = model.MemoryRecord
	Metadata     = model.Metadata

	Message     = models.Message
	Role        = models.Role
	ChatOptions = models.ChatOptions
)

// Roles for conversation messages.
const (
	RoleUser      = models.RoleUser
	RoleAssistant = models.RoleAssistant
	RoleSystem    = models.RoleSystem
)

// Pluggable component interfaces.
type (
	Store     = store.Store
	Embedder  = embed.Embedder
	ChatModel = models.ChatModel
	Ranker    = rank.Ranker
)

// Update describes a partial memory mutation.
type Update = store.Update

// Storage errors.
var (
	ErrNotFound = store.ErrNotFound
	ErrStorage  = store.ErrStorage
)

// Engine orchestration types.
type (
	Engine         = engine.Engine
	Options        = engine.Options
	ProcessOptions = engine.ProcessOptions
	ProcessResult  = engine.ProcessResult
	RespondResult  = engine.RespondResult
)

// Store constructors.
var (
	NewInMemoryStore = store.NewInMemoryStore
	NewPostgresStore = store.NewPostgresStore
	NewMongoStore    = store.NewMongoStore
)

// New assembles an engine from the config, filling unset components with
// defaults. See Config for the defaulting rules.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	return cfg.build(ctx)
}

// CosineSimilarity is re-exported for callers implementing custom rankers.
func CosineSimilarity(a, b []float32) float64 {
	return model.CosineSimilarity(a, b)
}
