package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// AuditStreamKey is the Redis stream holding buffered audit entries.
const AuditStreamKey = "audit_events"

const payloadField = "payload"

// AuditStream implements domain.AuditBuffer on a Redis stream. When Redis is
// unreachable, appends go to the local WAL and are replayed once it recovers.
type AuditStream struct {
	client       *redis.Client
	logger       *slog.Logger
	wal          domain.WALRepository
	dlqStreamKey string
	metrics      *metrics.GatewayMetrics
	isAvailable  atomic.Bool
}

// NewAuditStream creates a Redis-backed audit buffer. The WAL is optional; the
// sink worker passes nil since it only reads.
func NewAuditStream(client *redis.Client, logger *slog.Logger, group, dlqStreamKey string, wal domain.WALRepository, m *metrics.GatewayMetrics) *AuditStream {
	s := &AuditStream{
		client:       client,
		logger:       logger.With("component", "audit_stream"),
		wal:          wal,
		dlqStreamKey: dlqStreamKey,
		metrics:      m,
	}
	s.isAvailable.Store(true) // Assume available initially

	if err := s.setupConsumerGroup(context.Background(), group); err != nil {
		s.markUnavailable(err)
	}

	return s
}

// StartHealthCheck pings Redis every interval, tracks availability and replays
// the WAL after an outage. It blocks until ctx is done.
func (s *AuditStream) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if s.wal == nil {
		s.logger.Info("WAL is not configured, skipping health check")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping audit stream health check")
			return
		case <-ticker.C:
			s.checkHealth(ctx)
		}
	}
}

func (s *AuditStream) checkHealth(ctx context.Context) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		s.markUnavailable(err)
		return
	}

	recovered := s.isAvailable.CompareAndSwap(false, true)
	if recovered {
		s.logger.Info("redis connection recovered")
	} else if s.wal.Size() == 0 {
		return
	}

	// Entries that reached the WAL while the flag was flipping are picked up
	// on the next tick.
	if err := s.ReplayWAL(ctx); err != nil {
		s.logger.Error("failed to replay WAL after redis recovery", "error", err)
		s.isAvailable.Store(false)
		return
	}
	s.setWALActive(false)
}

// ReplayWAL re-appends WAL entries to the stream, removing them from the WAL
// as they are delivered.
func (s *AuditStream) ReplayWAL(ctx context.Context) error {
	if s.wal == nil {
		return nil
	}
	err := s.wal.ReplayAndTruncate(ctx, func(entry domain.AuditEntry) error {
		return s.appendToStream(ctx, AuditStreamKey, entry, nil)
	})
	if err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}
	return nil
}

// Available reports whether the last interaction with Redis succeeded.
func (s *AuditStream) Available() bool {
	return s.isAvailable.Load()
}

// Append adds an entry to the stream, falling back to the WAL if Redis is unavailable.
func (s *AuditStream) Append(ctx context.Context, entry domain.AuditEntry) error {
	if !s.isAvailable.Load() {
		return s.writeWAL(ctx, entry, nil)
	}

	err := s.appendToStream(ctx, AuditStreamKey, entry, nil)
	if err != nil && isNetworkError(err) {
		s.markUnavailable(err)
		return s.writeWAL(ctx, entry, err)
	}
	return err
}

func (s *AuditStream) writeWAL(ctx context.Context, entry domain.AuditEntry, cause error) error {
	if s.wal == nil {
		if cause != nil {
			return fmt.Errorf("redis is unavailable and WAL is not configured: %w", cause)
		}
		return errors.New("redis is unavailable and WAL is not configured")
	}
	s.setWALActive(true)
	s.logger.Warn("redis is unavailable, writing audit entry to WAL", "entry_id", entry.ID)
	return s.wal.Write(ctx, entry)
}

func (s *AuditStream) appendToStream(ctx context.Context, stream string, entry domain.AuditEntry, extra map[string]any) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry: %w", err)
	}

	values := map[string]any{payloadField: payload}
	for k, v := range extra {
		values[k] = v
	}
	if err := s.client.XAdd(ctx, &redis.XAddArgs{Stream: stream, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to XADD to %s: %w", stream, err)
	}
	return nil
}

// ReadBatch reads up to count new entries for a consumer of group.
func (s *AuditStream) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEntry, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{AuditStreamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}

	if len(streams) == 0 {
		return nil, nil
	}
	return s.decodeBatch(ctx, group, streams[0].Messages), nil
}

// ClaimStale takes over entries of group left unacknowledged for minIdle,
// so a batch whose DLQ move or ack failed is delivered again.
func (s *AuditStream) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AuditEntry, error) {
	messages, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   AuditStreamKey,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(count),
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XAUTOCLAIM from redis: %w", err)
	}
	if len(messages) > 0 {
		s.logger.Info("claimed stale audit messages", "count", len(messages), "consumer", consumer)
	}
	return s.decodeBatch(ctx, group, messages), nil
}

func (s *AuditStream) decodeBatch(ctx context.Context, group string, messages []redis.XMessage) []domain.AuditEntry {
	if len(messages) == 0 {
		return nil
	}
	entries := make([]domain.AuditEntry, 0, len(messages))
	for _, msg := range messages {
		entry, err := decodeMessage(msg)
		if err != nil {
			// Poison messages are acknowledged so they are not redelivered forever.
			s.logger.Warn("invalid audit message in stream, dropping", "message_id", msg.ID, "error", err)
			if ackErr := s.client.XAck(ctx, AuditStreamKey, group, msg.ID).Err(); ackErr != nil {
				s.logger.Error("failed to ack invalid audit message", "message_id", msg.ID, "error", ackErr)
			}
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// Acknowledge marks stream messages as processed by group.
func (s *AuditStream) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, AuditStreamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK audit messages: %w", err)
	}
	return nil
}

// MoveToDLQ copies entries to the dead-letter stream in one pipeline.
func (s *AuditStream) MoveToDLQ(ctx context.Context, entries []domain.AuditEntry) error {
	if len(entries) == 0 {
		return nil
	}

	failedAt := time.Now().UTC().Format(time.RFC3339)
	pipe := s.client.Pipeline()
	for _, entry := range entries {
		payload, err := json.Marshal(entry)
		if err != nil {
			s.logger.Error("failed to marshal audit entry for DLQ", "entry_id", entry.ID, "error", err)
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.dlqStreamKey,
			Values: map[string]any{
				payloadField:      payload,
				"original_stream": AuditStreamKey,
				"original_msg_id": entry.StreamMessageID,
				"failed_at":       failedAt,
			},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	s.logger.Warn("moved audit entries to DLQ", "count", len(entries), "stream", s.dlqStreamKey)
	return nil
}

func (s *AuditStream) setupConsumerGroup(ctx context.Context, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, AuditStreamKey, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

func (s *AuditStream) markUnavailable(err error) {
	if s.isAvailable.CompareAndSwap(true, false) {
		s.logger.Error("redis connection lost", "error", err)
	}
}

func (s *AuditStream) setWALActive(active bool) {
	if s.metrics == nil {
		return
	}
	if active {
		s.metrics.WALActive.Set(1)
	} else {
		s.metrics.WALActive.Set(0)
	}
}

func decodeMessage(msg redis.XMessage) (domain.AuditEntry, error) {
	var entry domain.AuditEntry
	payload, ok := msg.Values[payloadField].(string)
	if !ok {
		return entry, fmt.Errorf("missing %q field", payloadField)
	}
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return entry, err
	}
	entry.StreamMessageID = msg.ID
	return entry, nil
}

func isBusyGroupError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded)
}
