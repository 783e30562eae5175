package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

const auditImportTable = "audit_import"

// AuditRepository writes audit entries into their log collections. It implements
// domain.AuditSink.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger.With("component", "audit_repository")}
}

// Append writes a single entry.
func (r *AuditRepository) Append(ctx context.Context, entry domain.AuditEntry) error {
	return r.WriteBatch(ctx, []domain.AuditEntry{entry})
}

// WriteBatch stages the entries with COPY into a temporary table and inserts them
// into documents, skipping ids that already exist so redelivered batches are harmless.
func (r *AuditRepository) WriteBatch(ctx context.Context, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // Rollback is a no-op if Commit() is called

	_, err = txn.ExecContext(ctx, `CREATE TEMP TABLE `+auditImportTable+` (
		collection TEXT, id TEXT, data JSONB, created_at TIMESTAMPTZ
	) ON COMMIT DROP`)
	if err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(auditImportTable, "collection", "id", "data", "created_at"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}

	for _, entry := range entries {
		data, err := json.Marshal(entry.Fields())
		if err != nil {
			_ = stmt.Close()
			return fmt.Errorf("encode audit entry %s: %w", entry.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, entry.LogCollection(), entry.ID, string(data), entry.Timestamp); err != nil {
			// Close the statement to avoid connection issues
			_ = stmt.Close()
			return fmt.Errorf("copy audit entry %s: %w", entry.ID, err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	_, err = txn.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data, created_at, updated_at)
		SELECT collection, id, data, created_at, created_at FROM `+auditImportTable+`
		ON CONFLICT (collection, id) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("insert audit entries: %w", err)
	}

	return txn.Commit()
}
