package store

import (
	"context"
	"errors"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// ErrNotFound is returned when a memory id does not exist.
var ErrNotFound = errors.New("memory not found")

// ErrStorage wraps I/O level failures of a backing store.
var ErrStorage = errors.New("storage fault")

// Update describes a partial mutation. Nil fields are left unchanged.
type Update struct {
	Content   *string
	Embedding []float32
	Metadata  *model.Metadata
}

// IsEmpty reports whether the update carries no fields at all.
func (u Update) IsEmpty() bool {
	return u.Content == nil && u.Embedding == nil && u.Metadata == nil
}

// Store is the contract for long-term memory backends. Ids are monotonic,
// assigned by the store and never reused. ListMemories and SearchByContent
// order by CreatedAt descending with ties broken by id descending.
type Store interface {
	AddMemory(ctx context.Context, content string, embedding []float32, metadata model.Metadata) (model.MemoryRecord, error)
	GetMemory(ctx context.Context, id int64) (model.MemoryRecord, error)
	UpdateMemory(ctx context.Context, id int64, update Update) (model.MemoryRecord, error)
	DeleteMemory(ctx context.Context, id int64) (bool, error)
	ListMemories(ctx context.Context) ([]model.MemoryRecord, error)
	SearchByContent(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error)
	Count(ctx context.Context) (int, error)
}

// SchemaInitializer allows stores to expose optional schema/bootstrap routines.
type SchemaInitializer interface {
	CreateSchema(ctx context.Context, schemaPath string) error
}
