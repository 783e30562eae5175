package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/domain/mocks"
)

func TestAdminPolicy(t *testing.T) {
	store := mocks.NewDocumentStore()
	store.Seed(domain.CollectionAdmins, "store-admin", map[string]any{"email": "a@example.com"})
	chain := NewAdminPolicy([]string{"listed", " "}, store)

	tests := []struct {
		name string
		id   *Identity
		want Decision
	}{
		{"super admin claim", &Identity{UID: "anyone", SuperAdmin: true}, Allow},
		{"allow-listed uid", &Identity{UID: "listed"}, Allow},
		{"admins collection member", &Identity{UID: "store-admin"}, Allow},
		{"nobody", &Identity{UID: "stranger"}, Deny},
		{"blank uid is not allow-listed", &Identity{UID: ""}, Deny},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chain.Evaluate(context.Background(), tt.id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAdminPolicy_StoreError(t *testing.T) {
	store := mocks.NewDocumentStore()
	store.Err = errors.New("db down")
	chain := NewAdminPolicy(nil, store)

	_, err := chain.Evaluate(context.Background(), &Identity{UID: "u1"})
	assert.Error(t, err)

	// Earlier policies short-circuit before the store is consulted.
	got, err := chain.Evaluate(context.Background(), &Identity{UID: "u1", SuperAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, Allow, got)
}

func TestPolicyChain_ExplicitDeny(t *testing.T) {
	chain := PolicyChain{denyAll{}, ClaimPolicy{}}
	got, err := chain.Evaluate(context.Background(), &Identity{UID: "u", SuperAdmin: true})
	require.NoError(t, err)
	assert.Equal(t, Deny, got)
}

type denyAll struct{}

func (denyAll) Evaluate(context.Context, *Identity) (Decision, error) { return Deny, nil }
