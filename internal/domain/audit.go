package domain

import (
	"context"
	"encoding/json"
	"time"
)

// AuditType discriminates audit log entries.
type AuditType string

const (
	AuditAdminRead   AuditType = "admin_read"
	AuditAdminWrite  AuditType = "admin_write"
	AuditAdminCreate AuditType = "admin_create"
	AuditAdminDelete AuditType = "admin_delete"
	AuditSuccess     AuditType = "Success"
	AuditFailure     AuditType = "Failure"
)

// AuditEntry is an append-only record of an authenticated or rejected call.
type AuditEntry struct {
	ID         string          `json:"id"`
	Type       AuditType       `json:"type"`
	Collection string          `json:"collection,omitempty"`
	Endpoint   string          `json:"endpoint,omitempty"`
	AdminUID   string          `json:"adminUid,omitempty"`
	TenantID   string          `json:"tenantId,omitempty"`
	TenantName string          `json:"tenantName,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Message    string          `json:"message,omitempty"`
	Count      int             `json:"count"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`

	// StreamMessageID is the buffer position of the entry, set only on entries
	// read back from the audit stream.
	StreamMessageID string `json:"-"`
}

// IsAdmin reports whether the entry was produced by the admin proxy.
func (e AuditEntry) IsAdmin() bool {
	switch e.Type {
	case AuditAdminRead, AuditAdminWrite, AuditAdminCreate, AuditAdminDelete:
		return true
	}
	return false
}

// LogCollection is the collection the entry is persisted to.
func (e AuditEntry) LogCollection() string {
	if e.IsAdmin() {
		return CollectionAdminLogs
	}
	return CollectionTenantLogs
}

// Fields returns the document representation of the entry, without its id.
func (e AuditEntry) Fields() map[string]any {
	fields := map[string]any{
		"type":      string(e.Type),
		"timestamp": e.Timestamp.UTC().Format(time.RFC3339Nano),
		"count":     e.Count,
	}
	set := func(k, v string) {
		if v != "" {
			fields[k] = v
		}
	}
	set("collection", e.Collection)
	set("endpoint", e.Endpoint)
	set("adminUid", e.AdminUID)
	set("tenantId", e.TenantID)
	set("tenantName", e.TenantName)
	set("message", e.Message)
	if len(e.Metadata) > 0 {
		var meta any
		if err := json.Unmarshal(e.Metadata, &meta); err == nil {
			fields["metadata"] = meta
		}
	}
	return fields
}

// AuditRecorder accepts entries on the request path. Record never blocks and
// never fails; delivery is at most once.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}
