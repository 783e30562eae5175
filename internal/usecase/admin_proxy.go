package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/V4T54L/vsd-gateway/internal/adapter/pii"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// Proxy operations accepted by POST /.
const (
	OpWrite  = "write"
	OpCreate = "create"
	OpDelete = "delete"
)

var (
	ErrMissingCollection     = errors.New("missing collection")
	ErrMissingOpOrCollection = errors.New("missing op or collection")
	ErrMissingDocID          = errors.New("missing docId")
	ErrUnknownOp             = errors.New("unknown op")
)

// MutationRequest is a write, create or delete issued through the admin proxy.
type MutationRequest struct {
	Op         string
	Collection string
	DocID      string
	Data       map[string]any
}

// TenantCache is implemented by tenant directories that cache lookups.
type TenantCache interface {
	Invalidate()
}

// AdminProxyUseCase brokers admin reads and writes to the document store and
// records one audit entry per successful operation.
type AdminProxyUseCase struct {
	store     domain.DocumentStore
	audit     domain.AuditRecorder
	redactor  *pii.Redactor
	tenants   TenantCache
	readLimit int
	logger    *slog.Logger
}

// NewAdminProxyUseCase creates the proxy use case. tenants may be nil.
func NewAdminProxyUseCase(store domain.DocumentStore, audit domain.AuditRecorder, redactor *pii.Redactor, tenants TenantCache, readLimit int, logger *slog.Logger) *AdminProxyUseCase {
	return &AdminProxyUseCase{
		store:     store,
		audit:     audit,
		redactor:  redactor,
		tenants:   tenants,
		readLimit: readLimit,
		logger:    logger.With("component", "admin_proxy"),
	}
}

// Read returns up to the configured limit of documents from collection.
func (uc *AdminProxyUseCase) Read(ctx context.Context, adminUID, collection string) ([]domain.Document, error) {
	if collection == "" {
		return nil, ErrMissingCollection
	}

	docs, err := uc.store.List(ctx, collection, uc.readLimit)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}

	uc.audit.Record(ctx, domain.AuditEntry{
		Type:       domain.AuditAdminRead,
		Collection: collection,
		AdminUID:   adminUID,
		Message:    fmt.Sprintf("read %d documents", len(docs)),
		Count:      len(docs),
	})
	return docs, nil
}

// Mutate applies req and returns the id of the affected document.
func (uc *AdminProxyUseCase) Mutate(ctx context.Context, adminUID string, req MutationRequest) (string, error) {
	if req.Op == "" || req.Collection == "" {
		return "", ErrMissingOpOrCollection
	}

	var (
		entryType domain.AuditType
		id        = req.DocID
		err       error
	)
	switch req.Op {
	case OpWrite:
		if id == "" {
			return "", ErrMissingDocID
		}
		entryType = domain.AuditAdminWrite
		err = uc.store.Merge(ctx, req.Collection, id, nonNil(req.Data))
	case OpCreate:
		entryType = domain.AuditAdminCreate
		id, err = uc.store.Create(ctx, req.Collection, nonNil(req.Data))
	case OpDelete:
		if id == "" {
			return "", ErrMissingDocID
		}
		entryType = domain.AuditAdminDelete
		err = uc.store.Delete(ctx, req.Collection, id)
	default:
		return "", ErrUnknownOp
	}
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", req.Op, req.Collection, err)
	}

	if req.Collection == domain.CollectionTenants && uc.tenants != nil {
		uc.tenants.Invalidate()
	}

	entry := domain.AuditEntry{
		Type:       entryType,
		Collection: req.Collection,
		AdminUID:   adminUID,
		Message:    fmt.Sprintf("%s %s/%s", req.Op, req.Collection, id),
		Count:      1,
	}
	if req.Op != OpDelete {
		entry.Metadata = uc.redact(req.Data)
	}
	uc.audit.Record(ctx, entry)
	return id, nil
}

func (uc *AdminProxyUseCase) redact(data map[string]any) []byte {
	if uc.redactor == nil {
		return nil
	}
	out, _, err := uc.redactor.Redact(data)
	if err != nil {
		uc.logger.Warn("failed to redact audit metadata, omitting it", "error", err)
		return nil
	}
	return out
}

func nonNil(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
