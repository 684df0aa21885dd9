// Package metadata persists per-document metadata (name, category, length)
// to PostgreSQL so built indexes can be inspected and rehydrated without
// re-reading the corpus.
package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/pkg/postgres"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	name       TEXT NOT NULL,
	category   TEXT NOT NULL,
	length     BIGINT NOT NULL,
	indexed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (category, name)
)`

// DocumentMeta is one stored document row.
type DocumentMeta struct {
	Name      string
	Category  string
	Length    uint64
	IndexedAt time.Time
}

// Store reads and writes document metadata rows.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewStore creates a Store over an open Postgres client.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "metadata-store"),
	}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.DB.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}
	return nil
}

// SaveAll upserts metadata for every document in one transaction.
func (s *Store) SaveAll(ctx context.Context, docs []corpus.Document) error {
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (name, category, length, indexed_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (category, name)
			DO UPDATE SET length = EXCLUDED.length, indexed_at = now()`)
		if err != nil {
			return fmt.Errorf("preparing document upsert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range docs {
			if _, err := stmt.ExecContext(ctx, doc.Name, doc.Category, int64(doc.Length)); err != nil {
				return fmt.Errorf("upserting document %s/%s: %w", doc.Category, doc.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("document metadata saved", "documents", len(docs))
	return nil
}

// List returns all stored document rows ordered by category then name.
func (s *Store) List(ctx context.Context) ([]DocumentMeta, error) {
	rows, err := s.db.DB.QueryContext(ctx, `
		SELECT name, category, length, indexed_at
		FROM documents
		ORDER BY category, name`)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var metas []DocumentMeta
	for rows.Next() {
		var m DocumentMeta
		var length int64
		if err := rows.Scan(&m.Name, &m.Category, &length, &m.IndexedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		m.Length = uint64(length)
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return metas, nil
}
