package vector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/embedding"
	"github.com/hyperjump/cognidocs/internal/models"
)

// DefaultPGVectorTable is the chunk table used when none is configured.
const DefaultPGVectorTable = "cognidocs_chunks"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// PGVectorStore keeps chunk embeddings in a Postgres table with a pgvector column and
// ranks by cosine distance.
type PGVectorStore struct {
	db       *sql.DB
	table    string
	embedder embedding.Embedder
	logger   *zap.Logger
}

// OpenPostgres opens and pings a Postgres connection for dsn.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errors.New("postgres url is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// ValidateTableName reports whether name is safe to interpolate as an unquoted identifier.
func ValidateTableName(name string) error {
	if !tableNamePattern.MatchString(name) {
		return fmt.Errorf("invalid pgvector table name %q", name)
	}
	return nil
}

// NewPGVectorStore creates the vector extension and chunk table if needed. The store owns db.
func NewPGVectorStore(ctx context.Context, db *sql.DB, table string, embedder embedding.Embedder, logger *zap.Logger) (*PGVectorStore, error) {
	if db == nil {
		return nil, errors.New("pgvector store requires a database")
	}
	if embedder == nil {
		return nil, errors.New("pgvector store requires an embedder")
	}
	if table == "" {
		table = DefaultPGVectorTable
	}
	if err := ValidateTableName(table); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PGVectorStore{db: db, table: table, embedder: embedder, logger: logger}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize pgvector schema: %w", err)
	}
	return s, nil
}

func (s *PGVectorStore) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			source_document TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			page_number INTEGER NOT NULL,
			total_chunks INTEGER NOT NULL,
			embedding vector(%d) NOT NULL
		)`, s.table, s.embedder.Dimensions()),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_source_idx ON %s (source_document)`, s.table, s.table),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Type returns the store type identifier.
func (s *PGVectorStore) Type() string {
	return config.ModePGVector
}

// Add embeds chunks and inserts them in a single transaction.
func (s *PGVectorStore) Add(ctx context.Context, chunks []*models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	vectors, err := embedChunks(ctx, s.embedder, chunks)
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (id, content, source_document, chunk_index, page_number, total_chunks, embedding)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx, c.ID, c.Text, c.SourceDocument, c.ChunkIndex, c.PageNumber, c.TotalChunks,
			pgvector.NewVector(vectors[i])); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return tx.Commit()
}

// Retrieve embeds question and returns the k nearest chunks; the score is 1 - cosine distance.
func (s *PGVectorStore) Retrieve(ctx context.Context, question string, k int) ([]*models.ScoredChunk, error) {
	k = clampK(k)
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, content, source_document, chunk_index, page_number, total_chunks, 1 - (embedding <=> $1) AS similarity
		 FROM %s ORDER BY embedding <=> $1, seq LIMIT $2`, s.table),
		pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector search: %w", err)
	}
	defer rows.Close()

	var out []*models.ScoredChunk
	for rows.Next() {
		var c models.Chunk
		var score float64
		if err := rows.Scan(&c.ID, &c.Text, &c.SourceDocument, &c.ChunkIndex, &c.PageNumber, &c.TotalChunks, &score); err != nil {
			return nil, err
		}
		out = append(out, &models.ScoredChunk{Chunk: &c, Score: score})
	}
	return out, rows.Err()
}

// Count returns the number of stored chunks.
func (s *PGVectorStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

// Close closes the database connection.
func (s *PGVectorStore) Close() error {
	return s.db.Close()
}
