package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DocumentStore implements domain.DocumentStore on a single JSONB table keyed
// by (collection, id).
type DocumentStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDocumentStore creates a new PostgreSQL document store.
func NewDocumentStore(db *sql.DB, logger *slog.Logger) *DocumentStore {
	return &DocumentStore{db: db, logger: logger.With("component", "document_store")}
}

func (s *DocumentStore) List(ctx context.Context, collection string, limit int) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 ORDER BY created_at, id LIMIT $2`,
		collection, limit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return docs, nil
}

func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	return getDocument(ctx, s.db, collection, id, false)
}

func (s *DocumentStore) Exists(ctx context.Context, collection, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`,
		collection, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", collection, id, err)
	}
	return exists, nil
}

func (s *DocumentStore) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	return mergeDocument(ctx, s.db, collection, id, fields)
}

func (s *DocumentStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)`,
		collection, id, data)
	if err != nil {
		return "", fmt.Errorf("create in %s: %w", collection, err)
	}
	return id, nil
}

func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DocumentStore) FindOne(ctx context.Context, collection, field, value string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 AND data->>$2 = $3 ORDER BY created_at, id LIMIT 1`,
		collection, field, value)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find %s by %s: %w", collection, field, err)
	}
	return doc, nil
}

// RunInTx runs fn in a read-committed transaction. Rows read through
// GetForUpdate stay locked until commit.
func (s *DocumentStore) RunInTx(ctx context.Context, fn func(tx domain.DocumentTx) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	if err := fn(&documentTx{tx: txn}); err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type documentTx struct {
	tx *sql.Tx
}

func (t *documentTx) GetForUpdate(ctx context.Context, collection, id string) (*domain.Document, error) {
	return getDocument(ctx, t.tx, collection, id, true)
}

func (t *documentTx) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	return mergeDocument(ctx, t.tx, collection, id, fields)
}

func getDocument(ctx context.Context, q queryer, collection, id string, lock bool) (*domain.Document, error) {
	query := `SELECT id, data FROM documents WHERE collection = $1 AND id = $2`
	if lock {
		query += ` FOR UPDATE`
	}
	doc, err := scanDocument(q.QueryRowContext(ctx, query, collection, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// mergeDocument upserts fields with a shallow JSONB merge: top-level keys in
// fields replace the stored ones, all other keys are kept.
func mergeDocument(ctx context.Context, q queryer, collection, id string, fields map[string]any) error {
	data, err := encodeFields(fields)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET
			data = documents.data || EXCLUDED.data,
			updated_at = NOW()`,
		collection, id, data)
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var (
		id  string
		raw []byte
	)
	if err := row.Scan(&id, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	return &domain.Document{ID: id, Fields: fields}, nil
}

// encodeFields returns the JSON text of fields. lib/pq sends []byte as bytea,
// so the value is passed as a string and cast to jsonb in SQL.
func encodeFields(fields map[string]any) (string, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("%w: fields are not JSON encodable: %v", domain.ErrInvalidArgument, err)
	}
	return string(data), nil
}
