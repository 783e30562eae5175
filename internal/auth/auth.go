// Package auth authenticates the two kinds of callers the gateway serves:
// admins presenting an identity token and tenants presenting an API key.
package auth

import (
	"errors"
	"time"
)

// Sentinel errors.
var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid or expired token")
	ErrTokenRevoked  = errors.New("token has been revoked")
	ErrForbidden     = errors.New("forbidden")
	ErrInvalidAPIKey = errors.New("invalid API key")
)

// Identity is a verified admin-path caller.
type Identity struct {
	// UID is the token subject.
	UID string

	// SuperAdmin mirrors the boolean "superAdmin" claim.
	SuperAdmin bool

	IssuedAt time.Time

	// Claims holds every claim of the verified token.
	Claims map[string]any
}

// TenantIdentity is a caller authenticated with a tenant API key.
type TenantIdentity struct {
	TenantID   string
	TenantName string
}
