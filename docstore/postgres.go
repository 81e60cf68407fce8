package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// PostgresStore keeps each document as a single JSONB value. The JSONB ||
// operator merges top-level keys only, which matches the dotted-key
// convention: "pages.home.visits" is one literal key, so a merge-write of it
// never clobbers "pages.shop.*" fields.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			doc_id     TEXT NOT NULL,
			doc        JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (collection, doc_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create documents table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc_id = $2`,
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *PostgresStore) Set(ctx context.Context, collection, id string, fields Document, merge bool) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode document fields: %w", err)
	}

	query := `
		INSERT INTO documents (collection, doc_id, doc)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, doc_id)
		DO UPDATE SET doc = EXCLUDED.doc
	`
	if merge {
		query = `
			INSERT INTO documents (collection, doc_id, doc)
			VALUES ($1, $2, $3)
			ON CONFLICT (collection, doc_id)
			DO UPDATE SET doc = documents.doc || EXCLUDED.doc
		`
	}

	if _, err := s.db.ExecContext(ctx, query, collection, id, raw); err != nil {
		return fmt.Errorf("failed to set document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, collection string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, doc FROM documents WHERE collection = $1 ORDER BY created_at, doc_id`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}
	defer rows.Close()

	return s.scanEntries(rows, collection)
}

func (s *PostgresStore) QueryWhere(ctx context.Context, collection, field, value string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc_id, doc FROM documents
		 WHERE collection = $1 AND doc->>$2 = $3
		 ORDER BY created_at, doc_id`,
		collection, field, value,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s by %s: %w", collection, field, err)
	}
	defer rows.Close()

	return s.scanEntries(rows, collection)
}

func (s *PostgresStore) scanEntries(rows *sql.Rows, collection string) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			s.logger.Error("error scanning document row",
				zap.String("collection", collection), zap.Error(err))
			continue
		}
		var doc Document
		if err := json.Unmarshal(raw, &doc); err != nil {
			s.logger.Error("error decoding document",
				zap.String("collection", collection), zap.String("doc_id", id), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{ID: id, Doc: doc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during %s scan: %w", collection, err)
	}
	return entries, nil
}
