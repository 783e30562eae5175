package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/vsd-gateway/internal/auth"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// TransactionUseCase simulates transfers for the public API. Nothing is
// written to a ledger.
type TransactionUseCase struct {
	audit domain.AuditRecorder
	now   func() time.Time
}

func NewTransactionUseCase(audit domain.AuditRecorder) *TransactionUseCase {
	return &TransactionUseCase{audit: audit, now: time.Now}
}

// Create validates req and fabricates a completed transaction. A Success entry
// is recorded when the call is attributed to a tenant.
func (uc *TransactionUseCase) Create(ctx context.Context, endpoint string, req domain.TransactionRequest) (*domain.Transaction, error) {
	if !req.Valid() {
		return nil, fmt.Errorf("%w: fromAddress, toAddress, amount", domain.ErrInvalidArgument)
	}

	txn := &domain.Transaction{
		TransactionID: "txn_" + uuid.NewString(),
		Status:        domain.TransactionStatusCompleted,
		Timestamp:     uc.now().UTC(),
		FromAddress:   req.FromAddress,
		ToAddress:     req.ToAddress,
		Amount:        req.Amount,
		Currency:      domain.Currency,
		Description:   req.Description,
	}

	if tenant := auth.TenantFromContext(ctx); tenant != nil {
		uc.audit.Record(ctx, domain.AuditEntry{
			Type:       domain.AuditSuccess,
			Endpoint:   endpoint,
			TenantID:   tenant.TenantID,
			TenantName: tenant.TenantName,
			Message:    "created transaction " + txn.TransactionID,
			Count:      1,
		})
	}
	return txn, nil
}
