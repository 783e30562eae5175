package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// ProcessAuditUseCase drains the audit buffer into the sink. Batches that
// still fail after the retries are parked in the DLQ. Entries left
// unacknowledged for claimMinIdle are claimed back before new ones are read.
type ProcessAuditUseCase struct {
	buffer       domain.AuditBuffer
	sink         domain.AuditSink
	logger       *slog.Logger
	group        string
	consumer     string
	batchSize    int
	retryCount   int
	retryBackoff time.Duration
	claimMinIdle time.Duration
}

// NewProcessAuditUseCase creates a new use case for draining audit entries.
func NewProcessAuditUseCase(buffer domain.AuditBuffer, sink domain.AuditSink, logger *slog.Logger, group, consumer string, batchSize, retryCount int, retryBackoff, claimMinIdle time.Duration) *ProcessAuditUseCase {
	if retryCount <= 0 {
		retryCount = 1
	}
	return &ProcessAuditUseCase{
		buffer:       buffer,
		sink:         sink,
		logger:       logger,
		group:        group,
		consumer:     consumer,
		batchSize:    batchSize,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
		claimMinIdle: claimMinIdle,
	}
}

// ProcessBatch reads one batch, writes it to the sink and acknowledges it.
// It returns the number of entries written to the sink.
func (uc *ProcessAuditUseCase) ProcessBatch(ctx context.Context) (int, error) {
	entries, err := uc.nextBatch(ctx)
	if err != nil {
		uc.logger.Error("failed to read audit batch from buffer", "error", err)
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of audit entries from buffer", "count", len(entries))

	writeErr := uc.writeWithRetry(ctx, entries)
	if writeErr != nil {
		uc.logger.Error("failed to write audit batch to sink after retries, moving to DLQ", "error", writeErr, "count", len(entries))
		if err := uc.buffer.MoveToDLQ(ctx, entries); err != nil {
			// Leave the batch pending so it is redelivered.
			uc.logger.Error("failed to move audit batch to DLQ", "error", err)
			return 0, err
		}
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.StreamMessageID
	}
	if err := uc.buffer.Acknowledge(ctx, uc.group, ids...); err != nil {
		// Redelivered entries are deduplicated by the sink on entry id.
		uc.logger.Error("failed to acknowledge audit entries in buffer", "error", err)
		return 0, err
	}

	if writeErr != nil {
		return 0, writeErr
	}
	uc.logger.Info("successfully sinked audit batch", "count", len(entries))
	return len(entries), nil
}

func (uc *ProcessAuditUseCase) nextBatch(ctx context.Context) ([]domain.AuditEntry, error) {
	if uc.claimMinIdle > 0 {
		stale, err := uc.buffer.ClaimStale(ctx, uc.group, uc.consumer, uc.claimMinIdle, uc.batchSize)
		if err != nil {
			uc.logger.Warn("failed to claim stale audit entries", "error", err)
		} else if len(stale) > 0 {
			uc.logger.Info("reprocessing stale audit entries", "count", len(stale))
			return stale, nil
		}
	}
	return uc.buffer.ReadBatch(ctx, uc.group, uc.consumer, uc.batchSize)
}

func (uc *ProcessAuditUseCase) writeWithRetry(ctx context.Context, entries []domain.AuditEntry) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.WriteBatch(ctx, entries)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write audit batch to sink, retrying...", "attempt", i+1, "error", err)
		if i == uc.retryCount-1 {
			break
		}
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
