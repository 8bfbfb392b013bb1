package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/askdocs/askdocs/internal/models"
)

type VectorStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// VectorStore is the durable pgvector-backed collection. One long-lived
// connection pool is created at startup and shared by all operations.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "documents"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB NOT NULL,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

// Add appends the entries to the collection. Entries keep their own IDs, so
// re-ingesting the same file accumulates duplicates rather than replacing
// anything.
func (vs *VectorStore) Add(ctx context.Context, entries []models.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)`,
		vs.config.TableName)

	for _, entry := range entries {
		metadata, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %v", err)
		}

		_, err = tx.Exec(ctx, stmt,
			entry.ID,
			sanitizeUTF8(entry.Content),
			metadata,
			pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			return fmt.Errorf("failed to insert entry: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search returns the k nearest entries by cosine distance, optionally
// restricted to entries whose metadata contains every key of filter.
func (vs *VectorStore) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]models.Match, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata, embedding, 1 - (embedding <=> $1) AS score
		FROM %s`,
		vs.config.TableName)

	args := []any{pgvector.NewVector(vector), k}
	if len(filter) > 0 {
		filterJSON, err := json.Marshal(filter)
		if err != nil {
			return nil, fmt.Errorf("failed to encode filter: %v", err)
		}
		query += " WHERE metadata @> $3::jsonb"
		args = append(args, string(filterJSON))
	}
	query += " ORDER BY embedding <=> $1 LIMIT $2"

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %v", err)
	}
	defer rows.Close()

	var matches []models.Match
	for rows.Next() {
		var (
			match    models.Match
			metadata []byte
			emb      pgvector.Vector
			score    float64
		)
		if err := rows.Scan(&match.ID, &match.Content, &metadata, &emb, &score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		if err := json.Unmarshal(metadata, &match.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %v", err)
		}
		match.Embedding = emb.Slice()
		match.Score = float32(score)
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return matches, nil
}

// Metadata returns the metadata of every stored entry.
func (vs *VectorStore) Metadata(ctx context.Context) ([]map[string]string, error) {
	query := fmt.Sprintf("SELECT metadata FROM %s", vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query metadata: %v", err)
	}
	defer rows.Close()

	var metadatas []map[string]string
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		var metadata map[string]string
		if err := json.Unmarshal(raw, &metadata); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %v", err)
		}
		metadatas = append(metadatas, metadata)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %v", err)
	}

	return metadatas, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count entries: %v", err)
	}
	return count, nil
}

// Clear irreversibly destroys the collection and recreates it empty, so
// subsequent stores and queries behave as on a fresh collection.
func (vs *VectorStore) Clear(ctx context.Context) error {
	drop := fmt.Sprintf("DROP TABLE IF EXISTS %s", vs.config.TableName)
	if _, err := vs.pool.Exec(ctx, drop); err != nil {
		return fmt.Errorf("failed to drop table: %v", err)
	}
	return vs.initialize(ctx)
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}
