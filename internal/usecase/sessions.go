package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// SessionUseCase revokes identity tokens.
type SessionUseCase struct {
	revocations domain.RevocationStore
	audit       domain.AuditRecorder
	now         func() time.Time
}

func NewSessionUseCase(revocations domain.RevocationStore, audit domain.AuditRecorder) *SessionUseCase {
	return &SessionUseCase{revocations: revocations, audit: audit, now: time.Now}
}

// RevokeTokens invalidates every token of uid issued up to now.
func (uc *SessionUseCase) RevokeTokens(ctx context.Context, adminUID, uid string) (time.Time, error) {
	if uid == "" {
		return time.Time{}, fmt.Errorf("%w: uid is required", domain.ErrInvalidArgument)
	}
	// Tokens carry second precision; revoke everything issued in the current second too.
	at := uc.now().UTC().Truncate(time.Second).Add(time.Second)
	if err := uc.revocations.Revoke(ctx, uid, at); err != nil {
		return time.Time{}, err
	}

	uc.audit.Record(ctx, domain.AuditEntry{
		Type:       domain.AuditAdminWrite,
		Collection: domain.CollectionAdmins,
		AdminUID:   adminUID,
		Message:    "revoked tokens of " + uid,
		Count:      1,
	})
	return at, nil
}
