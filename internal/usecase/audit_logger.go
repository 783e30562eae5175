package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

const sinkWriteTimeout = 5 * time.Second

// AuditPublisher receives every entry after it was handed to the sink.
type AuditPublisher interface {
	Publish(entry domain.AuditEntry)
}

// AuditLogger implements domain.AuditRecorder with a bounded queue drained by
// a single worker. Entries are dropped when the queue is full.
type AuditLogger struct {
	sink      domain.AuditAppender
	publisher AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.GatewayMetrics

	mu     sync.RWMutex
	closed bool
	queue  chan domain.AuditEntry
	done   chan struct{}
}

// NewAuditLogger starts the worker. publisher may be nil.
func NewAuditLogger(sink domain.AuditAppender, publisher AuditPublisher, queueSize int, logger *slog.Logger, m *metrics.GatewayMetrics) *AuditLogger {
	if queueSize <= 0 {
		queueSize = 1
	}
	l := &AuditLogger{
		sink:      sink,
		publisher: publisher,
		logger:    logger.With("component", "audit_logger"),
		metrics:   m,
		queue:     make(chan domain.AuditEntry, queueSize),
		done:      make(chan struct{}),
	}
	go l.run()
	return l
}

// Record enqueues entry, assigning an id and timestamp when missing.
func (l *AuditLogger) Record(_ context.Context, entry domain.AuditEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.drop(entry, "audit logger is closed")
		return
	}

	select {
	case l.queue <- entry:
	default:
		l.drop(entry, "audit queue is full")
	}
}

// Close stops intake and waits until queued entries are written or ctx is done.
func (l *AuditLogger) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.queue)
	}
	l.mu.Unlock()

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *AuditLogger) run() {
	defer close(l.done)
	for entry := range l.queue {
		l.write(entry)
	}
}

func (l *AuditLogger) write(entry domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), sinkWriteTimeout)
	defer cancel()

	if err := l.sink.Append(ctx, entry); err != nil {
		// Swallowed: audit failures never reach the caller.
		l.logger.Error("failed to write audit entry", "entry_id", entry.ID, "type", entry.Type, "error", err)
		l.metrics.AuditEntry("failed")
	} else {
		l.metrics.AuditEntry("written")
	}

	if l.publisher != nil {
		l.publisher.Publish(entry)
	}
}

func (l *AuditLogger) drop(entry domain.AuditEntry, reason string) {
	l.logger.Warn("dropping audit entry", "reason", reason, "entry_id", entry.ID, "type", entry.Type)
	l.metrics.AuditEntry("dropped")
}
