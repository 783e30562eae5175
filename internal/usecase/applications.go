package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// ApplicationUseCase reviews advertiser applications.
type ApplicationUseCase struct {
	store  domain.DocumentStore
	audit  domain.AuditRecorder
	logger *slog.Logger
}

func NewApplicationUseCase(store domain.DocumentStore, audit domain.AuditRecorder, logger *slog.Logger) *ApplicationUseCase {
	return &ApplicationUseCase{store: store, audit: audit, logger: logger.With("component", "applications")}
}

// Approve marks a pending application approved and grants the advertiser role
// to the applicant's account in the same transaction.
func (uc *ApplicationUseCase) Approve(ctx context.Context, adminUID, id string) (*domain.Document, error) {
	return uc.review(ctx, adminUID, id, domain.ApplicationApproved)
}

// Reject marks a pending application rejected. The account is left untouched.
func (uc *ApplicationUseCase) Reject(ctx context.Context, adminUID, id string) (*domain.Document, error) {
	return uc.review(ctx, adminUID, id, domain.ApplicationRejected)
}

func (uc *ApplicationUseCase) review(ctx context.Context, adminUID, id string, status domain.ApplicationStatus) (*domain.Document, error) {
	var app *domain.Document
	update := map[string]any{
		"status":     string(status),
		"reviewedBy": adminUID,
		"reviewedAt": time.Now().UTC().Format(time.RFC3339),
	}

	err := uc.store.RunInTx(ctx, func(tx domain.DocumentTx) error {
		var err error
		app, err = tx.GetForUpdate(ctx, domain.CollectionApplications, id)
		if err != nil {
			return fmt.Errorf("application %s: %w", id, err)
		}
		if current := domain.ApplicationStatus(app.String("status")); current != domain.ApplicationPending {
			return fmt.Errorf("application %s is %s: %w", id, current, domain.ErrConflict)
		}

		if status == domain.ApplicationApproved {
			uid := app.String("uid")
			account, err := tx.GetForUpdate(ctx, domain.CollectionAccounts, uid)
			if err != nil {
				return fmt.Errorf("account %q of application %s: %w", uid, id, err)
			}
			roles := domain.AddRole(account.Strings("roles"), domain.RoleAdvertiser)
			if err := tx.Merge(ctx, domain.CollectionAccounts, uid, map[string]any{"roles": roles}); err != nil {
				return err
			}
		}
		return tx.Merge(ctx, domain.CollectionApplications, id, update)
	})
	if err != nil {
		return nil, err
	}

	for k, v := range update {
		app.Fields[k] = v
	}
	uc.audit.Record(ctx, domain.AuditEntry{
		Type:       domain.AuditAdminWrite,
		Collection: domain.CollectionApplications,
		AdminUID:   adminUID,
		Message:    fmt.Sprintf("%s application %s", status, id),
		Count:      1,
	})
	uc.logger.Info("application reviewed", "application_id", id, "status", status, "admin_uid", adminUID)
	return app, nil
}
