package domain

import (
	"context"
	"time"
)

// AuditAppender accepts single audit entries from the request path.
type AuditAppender interface {
	Append(ctx context.Context, entry AuditEntry) error
}

// AuditSink writes batches of audit entries to their final collection.
// Writes must be idempotent on entry id.
type AuditSink interface {
	AuditAppender
	WriteBatch(ctx context.Context, entries []AuditEntry) error
}

// AuditBuffer is a durable queue between the gateway and the audit sink.
type AuditBuffer interface {
	AuditAppender

	// ReadBatch reads up to count entries for a consumer of the given group.
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]AuditEntry, error)

	// Acknowledge marks entries as processed.
	Acknowledge(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ parks entries that could not be written to the sink.
	MoveToDLQ(ctx context.Context, entries []AuditEntry) error

	// ClaimStale hands consumer up to count entries of group that were read
	// but not acknowledged for at least minIdle, whichever consumer read them.
	ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]AuditEntry, error)
}

// WALRepository is the local write-ahead log used while the buffer is unreachable.
type WALRepository interface {
	// Write appends an entry to the current WAL segment.
	Write(ctx context.Context, entry AuditEntry) error

	// ReplayAndTruncate hands every stored entry to handler, oldest first, and
	// removes what was replayed. Entries written concurrently are never dropped.
	ReplayAndTruncate(ctx context.Context, handler func(entry AuditEntry) error) error

	// Size is the number of bytes waiting to be replayed.
	Size() int64
}

// RevocationStore records per-user token revocation.
type RevocationStore interface {
	// ValidAfter returns the instant before which tokens of uid are revoked,
	// or the zero time when nothing was revoked.
	ValidAfter(ctx context.Context, uid string) (time.Time, error)

	// Revoke invalidates every token of uid issued before at.
	Revoke(ctx context.Context, uid string, at time.Time) error
}

// AuditStreamInspector exposes the state of the audit buffer to operators.
type AuditStreamInspector interface {
	Stats(ctx context.Context) (*AuditStreamStats, error)
	Trim(ctx context.Context, maxLen int64) (int64, error)

	// Pending lists up to count entries of group that were delivered but not acknowledged.
	Pending(ctx context.Context, group string, count int64) ([]PendingEntry, error)

	// Claim reassigns the given pending entries to consumer when they have been
	// idle for at least minIdle, and returns the ids actually claimed.
	Claim(ctx context.Context, group, consumer string, minIdle time.Duration, ids []string) ([]string, error)
}
