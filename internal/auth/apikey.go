package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// TenantAuthenticator resolves tenant API keys through the tenant directory.
type TenantAuthenticator struct {
	directory domain.TenantDirectory
}

func NewTenantAuthenticator(directory domain.TenantDirectory) *TenantAuthenticator {
	return &TenantAuthenticator{directory: directory}
}

// Authenticate resolves an Authorization header value. A header that is not a
// non-empty Bearer credential, an unknown key or an inactive tenant all yield
// ErrInvalidAPIKey. Directory errors are returned wrapped.
func (a *TenantAuthenticator) Authenticate(ctx context.Context, header string) (*TenantIdentity, error) {
	key, ok := BearerToken(header)
	if !ok {
		return nil, ErrInvalidAPIKey
	}

	tenant, err := a.directory.FindByAPIKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("tenant lookup: %w", err)
	}
	if tenant == nil || !tenant.IsActive() {
		return nil, ErrInvalidAPIKey
	}
	return &TenantIdentity{TenantID: tenant.ID, TenantName: tenant.Name}, nil
}

// BearerToken extracts the credential of a "Bearer <token>" header value.
func BearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
