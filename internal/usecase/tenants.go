package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/adapter/pii"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

const apiKeyPrefix = "vsd_"

// GenerateAPIKey returns "vsd_" followed by 48 hex characters.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

// TenantAdminUseCase registers tenants and manages their keys and status.
type TenantAdminUseCase struct {
	store    domain.DocumentStore
	audit    domain.AuditRecorder
	redactor *pii.Redactor
	cache    TenantCache
	logger   *slog.Logger
}

// NewTenantAdminUseCase creates the use case. cache may be nil.
func NewTenantAdminUseCase(store domain.DocumentStore, audit domain.AuditRecorder, redactor *pii.Redactor, cache TenantCache, logger *slog.Logger) *TenantAdminUseCase {
	return &TenantAdminUseCase{
		store:    store,
		audit:    audit,
		redactor: redactor,
		cache:    cache,
		logger:   logger.With("component", "tenant_admin"),
	}
}

// Register creates an active tenant with a fresh API key.
func (uc *TenantAdminUseCase) Register(ctx context.Context, adminUID, name, domainName string) (*domain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}

	key, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	tenant := domain.Tenant{
		Name:      name,
		Domain:    strings.TrimSpace(domainName),
		APIKey:    key,
		Status:    domain.TenantActive,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}

	tenant.ID, err = uc.store.Create(ctx, domain.CollectionTenants, tenant.Fields())
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	uc.invalidate()

	uc.record(ctx, domain.AuditAdminCreate, adminUID, "registered tenant "+tenant.ID, tenant.Fields())
	uc.logger.Info("tenant registered", "tenant_id", tenant.ID, "admin_uid", adminUID)
	return &tenant, nil
}

// RotateKey replaces the tenant's API key. The previous key stops working immediately.
func (uc *TenantAdminUseCase) RotateKey(ctx context.Context, adminUID, id string) (*domain.Tenant, error) {
	tenant, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}

	key, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}
	update := map[string]any{"apiKey": key}
	if err := uc.store.Merge(ctx, domain.CollectionTenants, id, update); err != nil {
		return nil, fmt.Errorf("rotate key of %s: %w", id, err)
	}
	uc.invalidate()
	tenant.APIKey = key

	uc.record(ctx, domain.AuditAdminWrite, adminUID, "rotated key of tenant "+id, update)
	return tenant, nil
}

// SetStatus activates or deactivates a tenant.
func (uc *TenantAdminUseCase) SetStatus(ctx context.Context, adminUID, id string, status domain.TenantStatus) (*domain.Tenant, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: status must be Active or Inactive", domain.ErrInvalidArgument)
	}
	tenant, err := uc.get(ctx, id)
	if err != nil {
		return nil, err
	}

	update := map[string]any{"status": string(status)}
	if err := uc.store.Merge(ctx, domain.CollectionTenants, id, update); err != nil {
		return nil, fmt.Errorf("set status of %s: %w", id, err)
	}
	uc.invalidate()
	tenant.Status = status

	uc.record(ctx, domain.AuditAdminWrite, adminUID, fmt.Sprintf("set tenant %s status to %s", id, status), update)
	return tenant, nil
}

func (uc *TenantAdminUseCase) get(ctx context.Context, id string) (*domain.Tenant, error) {
	doc, err := uc.store.Get(ctx, domain.CollectionTenants, id)
	if err != nil {
		return nil, fmt.Errorf("tenant %s: %w", id, err)
	}
	t := domain.TenantFromDocument(*doc)
	return &t, nil
}

func (uc *TenantAdminUseCase) invalidate() {
	if uc.cache != nil {
		uc.cache.Invalidate()
	}
}

func (uc *TenantAdminUseCase) record(ctx context.Context, t domain.AuditType, adminUID, msg string, data map[string]any) {
	entry := domain.AuditEntry{
		Type:       t,
		Collection: domain.CollectionTenants,
		AdminUID:   adminUID,
		Message:    msg,
		Count:      1,
	}
	if uc.redactor != nil {
		if meta, _, err := uc.redactor.Redact(data); err == nil {
			entry.Metadata = meta
		}
	}
	uc.audit.Record(ctx, entry)
}
