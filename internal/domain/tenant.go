package domain

import (
	"context"
	"time"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive   TenantStatus = "Active"
	TenantInactive TenantStatus = "Inactive"
)

// Valid reports whether s is a known status.
func (s TenantStatus) Valid() bool {
	return s == TenantActive || s == TenantInactive
}

// Tenant is a third-party project allowed to call the public API with a static key.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Domain    string       `json:"domain"`
	APIKey    string       `json:"apiKey"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// IsActive treats a missing status as active; tenants written through the
// generic proxy do not always carry one.
func (t Tenant) IsActive() bool {
	return t.Status == "" || t.Status == TenantActive
}

// Fields returns the document representation of the tenant.
func (t Tenant) Fields() map[string]any {
	return map[string]any{
		"name":      t.Name,
		"domain":    t.Domain,
		"apiKey":    t.APIKey,
		"status":    string(t.Status),
		"createdAt": t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// TenantFromDocument maps a tenants document onto a Tenant.
func TenantFromDocument(doc Document) Tenant {
	t := Tenant{
		ID:     doc.ID,
		Name:   doc.String("name"),
		Domain: doc.String("domain"),
		APIKey: doc.String("apiKey"),
		Status: TenantStatus(doc.String("status")),
	}
	if ts, err := time.Parse(time.RFC3339, doc.String("createdAt")); err == nil {
		t.CreatedAt = ts
	}
	return t
}

// TenantDirectory resolves API keys to tenants.
type TenantDirectory interface {
	// FindByAPIKey returns the tenant owning key, or nil when no tenant matches.
	FindByAPIKey(ctx context.Context, key string) (*Tenant, error)
}
