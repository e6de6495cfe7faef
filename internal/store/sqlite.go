package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"gwi.com/web-rag-agent/internal/utils"
)

var (
	ErrCollectionNotFound    = errors.New("collection does not exist")
	ErrInvalidCollectionName = errors.New("invalid collection name")
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,63}$`)

// Embedder turns text into a vector. The store calls it once per upserted
// document and once per query.
type Embedder func(ctx context.Context, text string) ([]float32, error)

type Option func(*SQLiteStore)

// WithEmbedLimiter replaces the default embedding throttle (one call per 40ms).
func WithEmbedLimiter(l *rate.Limiter) Option {
	return func(s *SQLiteStore) { s.limiter = l }
}

// SQLiteStore keeps named collections of embedded documents and answers
// similarity queries against one collection at a time.
type SQLiteStore struct {
	db       *sql.DB
	embedder Embedder
	limiter  *rate.Limiter
	logger   *zap.Logger
}

func NewSQLiteStore(dataSourceName string, embedder Embedder, logger *zap.Logger, opts ...Option) (*SQLiteStore, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases live per connection.
	db.SetMaxOpenConns(1)
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLiteStore{
		db:       db,
		embedder: embedder,
		limiter:  rate.NewLimiter(rate.Every(40*time.Millisecond), 1), // stay under 1500 embeddings/min
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err = s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS collections (
        name TEXT PRIMARY KEY,
        created_at DATETIME NOT NULL
    );

    CREATE TABLE IF NOT EXISTS documents (
        id TEXT PRIMARY KEY, -- UUID
        collection TEXT NOT NULL,
        content TEXT NOT NULL,
        metadata_json TEXT,
        embedding_json TEXT, -- JSON array of float32
        created_at DATETIME NOT NULL,
        FOREIGN KEY (collection) REFERENCES collections (name)
    );

    CREATE INDEX IF NOT EXISTS idx_documents_collection ON documents (collection);
    `
	_, err := s.db.Exec(schema)
	return err
}

// ValidCollectionName reports whether name is acceptable as a collection.
func ValidCollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}

func (s *SQLiteStore) CollectionExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM collections WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up collection: %w", err)
	}
	return n > 0, nil
}

// Upsert embeds every chunk and writes the batch to collection, creating the
// collection if needed. Existing documents with the same ID are replaced.
// The write is all-or-nothing.
func (s *SQLiteStore) Upsert(ctx context.Context, collection string, chunks []DocumentChunk) error {
	if !ValidCollectionName(collection) {
		return fmt.Errorf("%w: %q", ErrInvalidCollectionName, collection)
	}
	if len(chunks) == 0 {
		return nil
	}

	type row struct {
		chunk         DocumentChunk
		metadataJSON  string
		embeddingJSON string
	}
	rows := make([]row, 0, len(chunks))
	for i, chunk := range chunks {
		if chunk.ID == "" || chunk.Content == "" {
			return fmt.Errorf("chunk %d: id and content are required", i)
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("embedding throttle: %w", err)
		}
		embedding, err := s.embedder(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d: %w", i, err)
		}
		embeddingJSON, err := utils.EncodeEmbedding(embedding)
		if err != nil {
			return err
		}
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata for chunk %d: %w", i, err)
		}
		rows = append(rows, row{chunk: chunk, metadataJSON: string(metadataJSON), embeddingJSON: embeddingJSON})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO collections (name, created_at) VALUES (?, ?)", collection, now); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
        INSERT INTO documents (id, collection, content, metadata_json, embedding_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET
            collection = excluded.collection,
            content = excluded.content,
            metadata_json = excluded.metadata_json,
            embedding_json = excluded.embedding_json
    `)
	if err != nil {
		return fmt.Errorf("failed to prepare document upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.chunk.ID, collection, r.chunk.Content, r.metadataJSON, r.embeddingJSON, now); err != nil {
			return fmt.Errorf("failed to execute document upsert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert: %w", err)
	}
	s.logger.Debug("Upserted documents", zap.String("collection", collection), zap.Int("count", len(rows)))
	return nil
}

// Query returns up to k documents of collection ranked by cosine distance to
// text, closest first. An unknown collection yields ErrCollectionNotFound.
func (s *SQLiteStore) Query(ctx context.Context, collection, text string, k int) ([]ScoredDocument, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	exists, err := s.CollectionExists(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", collection, ErrCollectionNotFound)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("embedding throttle: %w", err)
	}
	queryEmbedding, err := s.embedder(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, content, metadata_json, embedding_json, created_at FROM documents WHERE collection = ?", collection)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var scored []ScoredDocument
	for rows.Next() {
		var (
			doc           ScoredDocument
			metadataJSON  sql.NullString
			embeddingJSON sql.NullString
		)
		if err := rows.Scan(&doc.ID, &doc.Content, &metadataJSON, &embeddingJSON, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		embedding, err := utils.DecodeEmbedding(embeddingJSON.String)
		if err != nil || len(embedding) == 0 {
			s.logger.Warn("Skipping document without usable embedding", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		distance, err := utils.CosineDistance(queryEmbedding, embedding)
		if err != nil {
			s.logger.Warn("Skipping document", zap.String("id", doc.ID), zap.Error(err))
			continue
		}
		doc.Distance = distance
		if metadataJSON.Valid && metadataJSON.String != "" {
			if err := json.Unmarshal([]byte(metadataJSON.String), &doc.Metadata); err != nil {
				s.logger.Warn("Ignoring malformed metadata", zap.String("id", doc.ID), zap.Error(err))
			}
		}
		scored = append(scored, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})
	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}
