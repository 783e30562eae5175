package auth

import "context"

type identityKey struct{}

type tenantKey struct{}

// WithIdentity stores the admin identity in the context.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the admin identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// WithTenant stores the tenant identity in the context.
func WithTenant(ctx context.Context, t *TenantIdentity) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// TenantFromContext returns the tenant identity, or nil for untenanted calls.
func TenantFromContext(ctx context.Context) *TenantIdentity {
	if v, ok := ctx.Value(tenantKey{}).(*TenantIdentity); ok {
		return v
	}
	return nil
}
