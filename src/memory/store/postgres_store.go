package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// PostgresStore implements Store using Postgres + pgvector.
type PostgresStore struct {
	DB *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and returns a Postgres-backed Store implementation.
func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (ps *PostgresStore) AddMemory(ctx context.Context, content string, embedding []float32, metadata model.Metadata) (model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil {
		return model.MemoryRecord{}, storageFault("add", errors.New("store is not connected"))
	}
	metadataJSON := model.EncodeMetadata(metadata)
	rec := model.MemoryRecord{
		Content:   content,
		Embedding: append([]float32(nil), embedding...),
		Metadata:  metadata.Clone(),
	}
	query := `
                INSERT INTO memories (content, embedding, metadata)
                VALUES ($1, $2::vector, $3::jsonb)
                RETURNING id, created_at, updated_at;
        `
	if err := ps.DB.QueryRow(ctx, query, content, vectorParam(embedding), metadataJSON).
		Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return model.MemoryRecord{}, storageFault("add", err)
	}
	return rec, nil
}

func (ps *PostgresStore) GetMemory(ctx context.Context, id int64) (model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil {
		return model.MemoryRecord{}, storageFault("get", errors.New("store is not connected"))
	}
	row := ps.DB.QueryRow(ctx, `
        SELECT id, content, embedding::text, metadata::text, created_at, updated_at
        FROM memories WHERE id = $1
        `, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MemoryRecord{}, ErrNotFound
	}
	if err != nil {
		return model.MemoryRecord{}, storageFault("get", err)
	}
	return rec, nil
}

func (ps *PostgresStore) UpdateMemory(ctx context.Context, id int64, update Update) (model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil {
		return model.MemoryRecord{}, storageFault("update", errors.New("store is not connected"))
	}
	tx, err := ps.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return model.MemoryRecord{}, storageFault("update", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
        SELECT id, content, embedding::text, metadata::text, created_at, updated_at
        FROM memories WHERE id = $1 FOR UPDATE
        `, id)
	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.MemoryRecord{}, ErrNotFound
	}
	if err != nil {
		return model.MemoryRecord{}, storageFault("update", err)
	}

	sets := make([]string, 0, 3)
	args := []any{id}
	if update.Content != nil && *update.Content != rec.Content {
		rec.Content = *update.Content
		args = append(args, *update.Content)
		sets = append(sets, fmt.Sprintf("content = $%d", len(args)))
	}
	if update.Embedding != nil && !equalVectors(update.Embedding, rec.Embedding) {
		rec.Embedding = append([]float32(nil), update.Embedding...)
		args = append(args, vectorParam(update.Embedding))
		sets = append(sets, fmt.Sprintf("embedding = $%d::vector", len(args)))
	}
	if update.Metadata != nil && !update.Metadata.Equal(rec.Metadata) {
		rec.Metadata = update.Metadata.Clone()
		args = append(args, model.EncodeMetadata(rec.Metadata))
		sets = append(sets, fmt.Sprintf("metadata = $%d::jsonb", len(args)))
	}
	// Nothing changed: leave updated_at untouched.
	if len(sets) == 0 {
		return rec, nil
	}
	sets = append(sets, "updated_at = NOW()")
	query := fmt.Sprintf(`UPDATE memories SET %s WHERE id = $1 RETURNING updated_at`, strings.Join(sets, ", "))
	if err := tx.QueryRow(ctx, query, args...).Scan(&rec.UpdatedAt); err != nil {
		return model.MemoryRecord{}, storageFault("update", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.MemoryRecord{}, storageFault("update", err)
	}
	return rec, nil
}

func (ps *PostgresStore) DeleteMemory(ctx context.Context, id int64) (bool, error) {
	if ps == nil || ps.DB == nil {
		return false, storageFault("delete", errors.New("store is not connected"))
	}
	tag, err := ps.DB.Exec(ctx, `DELETE FROM memories WHERE id = $1`, id)
	if err != nil {
		return false, storageFault("delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (ps *PostgresStore) ListMemories(ctx context.Context) ([]model.MemoryRecord, error) {
	return ps.queryRecords(ctx, `
        SELECT id, content, embedding::text, metadata::text, created_at, updated_at
        FROM memories
        ORDER BY created_at DESC, id DESC
        `)
}

func (ps *PostgresStore) SearchByContent(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	return ps.queryRecords(ctx, `
        SELECT id, content, embedding::text, metadata::text, created_at, updated_at
        FROM memories
        WHERE content ILIKE '%' || $1 || '%'
        ORDER BY created_at DESC, id DESC
        LIMIT $2
        `, query, limit)
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	if ps == nil || ps.DB == nil {
		return 0, storageFault("count", errors.New("store is not connected"))
	}
	var count int
	if err := ps.DB.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count); err != nil {
		return 0, storageFault("count", err)
	}
	return count, nil
}

func (ps *PostgresStore) queryRecords(ctx context.Context, query string, args ...any) ([]model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil {
		return nil, storageFault("query", errors.New("store is not connected"))
	}
	rows, err := ps.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, storageFault("query", err)
	}
	defer rows.Close()
	var records []model.MemoryRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageFault("query", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageFault("query", err)
	}
	return records, nil
}

// CreateSchema ensures the pgvector extension and memories table are available.
func (ps *PostgresStore) CreateSchema(ctx context.Context, schemaPath string) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	schema := defaultPostgresSchema
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("failed to read schema file: %w", err)
		}
		schema = string(data)
	}
	if _, err := ps.DB.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Close releases the underlying Postgres connection pool.
func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.MemoryRecord, error) {
	var rec model.MemoryRecord
	var embeddingText *string
	var metadataText *string
	if err := row.Scan(&rec.ID, &rec.Content, &embeddingText, &metadataText, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return model.MemoryRecord{}, err
	}
	if embeddingText != nil {
		rec.Embedding = parseVector(*embeddingText)
	}
	if metadataText != nil {
		rec.Metadata = model.DecodeMetadata(*metadataText)
	}
	return rec, nil
}

func storageFault(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}

// The embedding dimensionality is fixed per deployment; adjust the schema (or
// pass a custom schema path to CreateSchema) when using a different embedding
// model.
const defaultPostgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memories (
    id BIGSERIAL PRIMARY KEY,
    content TEXT NOT NULL,
    embedding vector(1536),
    metadata JSONB,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS memories_created_at_idx ON memories (created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS memories_embedding_idx ON memories USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`

func vectorParam(embedding []float32) *string {
	if len(embedding) == 0 {
		return nil
	}
	jsonEmbed, _ := json.Marshal(embedding)
	s := fmt.Sprintf("[%s]", strings.Trim(string(jsonEmbed), "[]"))
	return &s
}

func parseVector(text string) []float32 {
	text = strings.Trim(text, "[]")
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := strings.Split(text, ",")
	vec := make([]float32, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			continue
		}
		vec = append(vec, float32(f))
	}
	return vec
}
