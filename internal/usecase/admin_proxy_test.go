package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/V4T54L/vsd-gateway/internal/adapter/pii"
	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/domain/mocks"
)

type countingCache struct{ n int }

func (c *countingCache) Invalidate() { c.n++ }

func newProxy(store domain.DocumentStore, rec domain.AuditRecorder, cache TenantCache, limit int) *AdminProxyUseCase {
	redactor := pii.NewRedactor([]string{"apiKey", "password"}, testLogger())
	return NewAdminProxyUseCase(store, rec, redactor, cache, limit, testLogger())
}

func TestAdminProxy_Read(t *testing.T) {
	store := mocks.NewDocumentStore()
	for i := 0; i < 5; i++ {
		store.Seed("accounts", fmt.Sprintf("a%d", i), map[string]any{"n": i})
	}

	t.Run("respects read limit and records count", func(t *testing.T) {
		rec := &mocks.MockAuditRecorder{}
		uc := newProxy(store, rec, nil, 3)

		docs, err := uc.Read(context.Background(), "admin1", "accounts")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("expected 3 docs, got %d", len(docs))
		}
		reads := rec.OfType(domain.AuditAdminRead)
		if len(reads) != 1 || reads[0].Count != 3 || reads[0].AdminUID != "admin1" || reads[0].Collection != "accounts" {
			t.Errorf("unexpected audit entries: %+v", rec.Entries())
		}
	})

	t.Run("empty collection still audited", func(t *testing.T) {
		rec := &mocks.MockAuditRecorder{}
		uc := newProxy(store, rec, nil, 1000)

		docs, err := uc.Read(context.Background(), "admin1", "advertisements")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(docs) != 0 {
			t.Errorf("expected no docs, got %d", len(docs))
		}
		if reads := rec.OfType(domain.AuditAdminRead); len(reads) != 1 || reads[0].Count != 0 {
			t.Errorf("expected one admin_read with count 0, got %+v", reads)
		}
	})

	t.Run("missing collection", func(t *testing.T) {
		rec := &mocks.MockAuditRecorder{}
		_, err := newProxy(store, rec, nil, 1000).Read(context.Background(), "admin1", "")
		if !errors.Is(err, ErrMissingCollection) {
			t.Errorf("expected ErrMissingCollection, got %v", err)
		}
		if len(rec.Entries()) != 0 {
			t.Error("expected no audit entry")
		}
	})
}

func TestAdminProxy_Mutate(t *testing.T) {
	ctx := context.Background()

	t.Run("write merges and redacts metadata", func(t *testing.T) {
		store := mocks.NewDocumentStore()
		store.Seed("tenants", "t1", map[string]any{"name": "Acme", "domain": "acme.io"})
		rec := &mocks.MockAuditRecorder{}
		cache := &countingCache{}
		uc := newProxy(store, rec, cache, 1000)

		id, err := uc.Mutate(ctx, "admin1", MutationRequest{Op: OpWrite, Collection: "tenants", DocID: "t1", Data: map[string]any{"apiKey": "vsd_secret"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != "t1" {
			t.Errorf("expected id t1, got %s", id)
		}

		doc, _ := store.Get(ctx, "tenants", "t1")
		if doc.String("name") != "Acme" || doc.String("apiKey") != "vsd_secret" {
			t.Errorf("expected merged document, got %+v", doc.Fields)
		}
		if cache.n != 1 {
			t.Errorf("expected tenant cache invalidation, got %d", cache.n)
		}

		writes := rec.OfType(domain.AuditAdminWrite)
		if len(writes) != 1 {
			t.Fatalf("expected one admin_write, got %d", len(writes))
		}
		var meta map[string]any
		if err := json.Unmarshal(writes[0].Metadata, &meta); err != nil {
			t.Fatalf("bad metadata: %v", err)
		}
		if meta["apiKey"] != pii.RedactedPlaceholder {
			t.Errorf("expected apiKey to be redacted, got %v", meta["apiKey"])
		}
	})

	t.Run("create returns server id", func(t *testing.T) {
		store := mocks.NewDocumentStore()
		rec := &mocks.MockAuditRecorder{}
		uc := newProxy(store, rec, nil, 1000)

		id, err := uc.Mutate(ctx, "admin1", MutationRequest{Op: OpCreate, Collection: "advertisements", Data: map[string]any{"title": "x"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id == "" {
			t.Fatal("expected generated id")
		}
		if ok, _ := store.Exists(ctx, "advertisements", id); !ok {
			t.Error("expected document to exist")
		}
		if len(rec.OfType(domain.AuditAdminCreate)) != 1 {
			t.Errorf("expected one admin_create, got %+v", rec.Entries())
		}
	})

	t.Run("delete", func(t *testing.T) {
		store := mocks.NewDocumentStore()
		store.Seed("advertisements", "ad1", map[string]any{"title": "x"})
		rec := &mocks.MockAuditRecorder{}
		uc := newProxy(store, rec, nil, 1000)

		if _, err := uc.Mutate(ctx, "admin1", MutationRequest{Op: OpDelete, Collection: "advertisements", DocID: "ad1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok, _ := store.Exists(ctx, "advertisements", "ad1"); ok {
			t.Error("expected document to be deleted")
		}
		deletes := rec.OfType(domain.AuditAdminDelete)
		if len(deletes) != 1 || deletes[0].Metadata != nil {
			t.Errorf("expected one admin_delete without metadata, got %+v", deletes)
		}
	})

	tests := []struct {
		name string
		req  MutationRequest
		want error
	}{
		{"missing op", MutationRequest{Collection: "accounts"}, ErrMissingOpOrCollection},
		{"missing collection", MutationRequest{Op: OpCreate}, ErrMissingOpOrCollection},
		{"write without docId", MutationRequest{Op: OpWrite, Collection: "accounts"}, ErrMissingDocID},
		{"delete without docId", MutationRequest{Op: OpDelete, Collection: "accounts"}, ErrMissingDocID},
		{"unknown op", MutationRequest{Op: "upsert", Collection: "accounts"}, ErrUnknownOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mocks.MockAuditRecorder{}
			_, err := newProxy(mocks.NewDocumentStore(), rec, nil, 1000).Mutate(ctx, "admin1", tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if len(rec.Entries()) != 0 {
				t.Errorf("expected no audit entries, got %+v", rec.Entries())
			}
		})
	}

	t.Run("store error is not audited", func(t *testing.T) {
		store := mocks.NewDocumentStore()
		store.Err = errors.New("db down")
		rec := &mocks.MockAuditRecorder{}

		_, err := newProxy(store, rec, nil, 1000).Mutate(ctx, "admin1", MutationRequest{Op: OpCreate, Collection: "accounts"})
		if err == nil {
			t.Fatal("expected an error")
		}
		if len(rec.Entries()) != 0 {
			t.Error("expected no audit entries")
		}
	})
}
