package domain

import (
	"context"
	"encoding/json"
)

// Collection names used by the gateway.
const (
	CollectionTenants        = "tenants"
	CollectionAdmins         = "admins"
	CollectionAccounts       = "accounts"
	CollectionTransactions   = "transactions"
	CollectionAdvertisements = "advertisements"
	CollectionApplications   = "advertiserApplications"
	CollectionAdminLogs      = "api_logs"
	CollectionTenantLogs     = "vsd_api_logs"
)

// Document is a JSON record stored under an id inside a named collection.
type Document struct {
	ID     string
	Fields map[string]any
}

// MarshalJSON flattens the document into {"id": ..., ...fields}.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Fields)+1)
	for k, v := range d.Fields {
		out[k] = v
	}
	out["id"] = d.ID
	return json.Marshal(out)
}

// String returns the string value of a field, or "" when absent or not a string.
func (d Document) String(field string) string {
	s, _ := d.Fields[field].(string)
	return s
}

// Strings returns a string slice field, skipping non-string elements.
func (d Document) Strings(field string) []string {
	switch v := d.Fields[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// DocumentStore is the persistence boundary for all collections.
type DocumentStore interface {
	// List returns up to limit documents of a collection, oldest first.
	List(ctx context.Context, collection string, limit int) ([]Document, error)

	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, collection, id string) (*Document, error)

	// Exists reports whether a document is present.
	Exists(ctx context.Context, collection, id string) (bool, error)

	// Merge sets the given fields on a document, creating it when absent.
	// Fields not present in the update are preserved.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error

	// Create stores a new document under a server-generated id.
	Create(ctx context.Context, collection string, fields map[string]any) (string, error)

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// FindOne returns the first document whose string field equals value,
	// or nil when there is no match.
	FindOne(ctx context.Context, collection, field, value string) (*Document, error)

	// RunInTx executes fn inside a single store transaction.
	RunInTx(ctx context.Context, fn func(tx DocumentTx) error) error
}

// DocumentTx is the subset of store operations available inside a transaction.
type DocumentTx interface {
	// GetForUpdate reads a document and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, collection, id string) (*Document, error)
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
}
