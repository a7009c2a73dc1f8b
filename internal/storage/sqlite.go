package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/cognidocs/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		filename TEXT PRIMARY KEY,
		chunks INTEGER NOT NULL DEFAULT 0,
		pages INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		fingerprint TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	return addColumnIfMissing(db, "documents", "fingerprint", "TEXT NOT NULL DEFAULT ''")
}

// addColumnIfMissing upgrades registries created before column was added to the schema.
func addColumnIfMissing(db *sql.DB, table, column, decl string) error {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}

// UpsertDocument inserts rec or replaces the row with the same filename.
func (s *SQLiteStorage) UpsertDocument(ctx context.Context, rec *models.DocumentRecord) error {
	if rec == nil || rec.Filename == "" {
		return fmt.Errorf("document record requires a filename")
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (filename, chunks, pages, status, error, fingerprint, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(filename) DO UPDATE SET
		   chunks = excluded.chunks,
		   pages = excluded.pages,
		   status = excluded.status,
		   error = excluded.error,
		   fingerprint = excluded.fingerprint,
		   updated_at = excluded.updated_at`,
		rec.Filename, rec.Chunks, rec.Pages, string(rec.Status), rec.Error, rec.Fingerprint, rec.UpdatedAt,
	)
	return err
}

// GetDocument returns the record for filename.
func (s *SQLiteStorage) GetDocument(ctx context.Context, filename string) (*models.DocumentRecord, error) {
	var rec models.DocumentRecord
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT filename, chunks, pages, status, error, fingerprint, updated_at
		 FROM documents WHERE filename = ?`, filename,
	).Scan(&rec.Filename, &rec.Chunks, &rec.Pages, &status, &rec.Error, &rec.Fingerprint, &rec.UpdatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %q: %w", filename, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	rec.Status = models.DocumentStatus(status)
	return &rec, nil
}

// ListDocuments returns all records ordered by filename.
func (s *SQLiteStorage) ListDocuments(ctx context.Context) ([]*models.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT filename, chunks, pages, status, error, fingerprint, updated_at
		 FROM documents ORDER BY filename`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []*models.DocumentRecord
	for rows.Next() {
		var rec models.DocumentRecord
		var status string
		if err := rows.Scan(&rec.Filename, &rec.Chunks, &rec.Pages, &status, &rec.Error, &rec.Fingerprint, &rec.UpdatedAt); err != nil {
			return nil, err
		}
		rec.Status = models.DocumentStatus(status)
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CountDocuments returns the number of processed documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE status = ?`, string(models.StatusProcessed),
	).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
