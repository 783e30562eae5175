package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// AuditPipelineUseCase exposes the audit stream to operators.
type AuditPipelineUseCase struct {
	inspector domain.AuditStreamInspector
}

func NewAuditPipelineUseCase(inspector domain.AuditStreamInspector) *AuditPipelineUseCase {
	return &AuditPipelineUseCase{inspector: inspector}
}

func (uc *AuditPipelineUseCase) Stats(ctx context.Context) (*domain.AuditStreamStats, error) {
	return uc.inspector.Stats(ctx)
}

// Trim caps the stream at maxLen entries and returns how many were removed.
func (uc *AuditPipelineUseCase) Trim(ctx context.Context, maxLen int64) (int64, error) {
	if maxLen < 0 {
		return 0, fmt.Errorf("%w: maxlen must not be negative", domain.ErrInvalidArgument)
	}
	return uc.inspector.Trim(ctx, maxLen)
}

// Pending lists unacknowledged entries of group. count defaults to 100.
func (uc *AuditPipelineUseCase) Pending(ctx context.Context, group string, count int64) ([]domain.PendingEntry, error) {
	if group == "" {
		return nil, fmt.Errorf("%w: group is required", domain.ErrInvalidArgument)
	}
	if count <= 0 {
		count = 100
	}
	return uc.inspector.Pending(ctx, group, count)
}

// Claim hands pending entries idle for at least minIdle to consumer.
func (uc *AuditPipelineUseCase) Claim(ctx context.Context, group, consumer string, minIdle time.Duration, ids []string) ([]string, error) {
	if group == "" || consumer == "" || len(ids) == 0 {
		return nil, fmt.Errorf("%w: group, consumer and ids are required", domain.ErrInvalidArgument)
	}
	if minIdle < 0 {
		return nil, fmt.Errorf("%w: minIdleMs must not be negative", domain.ErrInvalidArgument)
	}
	return uc.inspector.Claim(ctx, group, consumer, minIdle, ids)
}
