package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// InMemoryStore implements Store for tests and lightweight deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records map[int64]model.MemoryRecord
	clock   func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[int64]model.MemoryRecord), clock: time.Now}
}

// WithClock overrides the timestamp source. Useful for deterministic tests.
func (s *InMemoryStore) WithClock(clock func() time.Time) *InMemoryStore {
	if clock != nil {
		s.clock = clock
	}
	return s
}

func (s *InMemoryStore) AddMemory(_ context.Context, content string, embedding []float32, metadata model.Metadata) (model.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records == nil {
		s.records = make(map[int64]model.MemoryRecord)
	}
	now := s.clock().UTC()
	s.nextID++
	record := model.MemoryRecord{
		ID:        s.nextID,
		Content:   content,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  metadata.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[record.ID] = record
	return record.Clone(), nil
}

func (s *InMemoryStore) GetMemory(_ context.Context, id int64) (model.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return model.MemoryRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) UpdateMemory(_ context.Context, id int64, update Update) (model.MemoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return model.MemoryRecord{}, ErrNotFound
	}
	changed := false
	if update.Content != nil && *update.Content != rec.Content {
		rec.Content = *update.Content
		changed = true
	}
	if update.Embedding != nil && !equalVectors(update.Embedding, rec.Embedding) {
		rec.Embedding = append([]float32(nil), update.Embedding...)
		changed = true
	}
	if update.Metadata != nil && !update.Metadata.Equal(rec.Metadata) {
		rec.Metadata = update.Metadata.Clone()
		changed = true
	}
	// UpdatedAt moves only when a field actually changed.
	if changed {
		rec.UpdatedAt = s.clock().UTC()
	}
	s.records[id] = rec
	return rec.Clone(), nil
}

func (s *InMemoryStore) DeleteMemory(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return false, nil
	}
	delete(s.records, id)
	return true, nil
}

func (s *InMemoryStore) ListMemories(_ context.Context) ([]model.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.MemoryRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemoryStore) SearchByContent(_ context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		return nil, nil
	}
	needle := strings.ToLower(query)
	out := make([]model.MemoryRecord, 0)
	for _, rec := range s.records {
		if strings.Contains(strings.ToLower(rec.Content), needle) {
			out = append(out, rec.Clone())
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func sortNewestFirst(records []model.MemoryRecord) {
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID > records[j].ID
	})
}

func equalVectors(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
