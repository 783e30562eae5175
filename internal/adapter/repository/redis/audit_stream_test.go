package redis

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/adapter/repository/wal"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

func unreachableClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAuditStream_FallsBackToWAL(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w, err := wal.NewWALRepository(t.TempDir(), 1024*1024, 10*1024*1024, logger)
	if err != nil {
		t.Fatalf("failed to create WAL: %v", err)
	}
	m := metrics.NewGatewayMetrics(prometheus.NewRegistry())

	stream := NewAuditStream(unreachableClient(t), logger, "sink", "audit_events_dlq", w, m)
	if stream.Available() {
		t.Fatal("expected stream to be unavailable after failed group setup")
	}

	entry := domain.AuditEntry{ID: "a1", Type: domain.AuditSuccess, TenantID: "t1", Timestamp: time.Now().UTC()}
	if err := stream.Append(context.Background(), entry); err != nil {
		t.Fatalf("expected append to fall back to WAL, got %v", err)
	}
	if got := testutil.ToFloat64(m.WALActive); got != 1 {
		t.Errorf("expected WAL gauge to be 1, got %v", got)
	}

	var replayed []domain.AuditEntry
	err = w.Replay(context.Background(), func(e domain.AuditEntry) error {
		replayed = append(replayed, e)
		return nil
	})
	if err != nil {
		t.Fatalf("replay failed: %v", err)
	}
	if len(replayed) != 1 || replayed[0].ID != "a1" {
		t.Errorf("expected entry a1 in WAL, got %+v", replayed)
	}
}

func TestAuditStream_NoWALReturnsError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	stream := NewAuditStream(unreachableClient(t), logger, "sink", "audit_events_dlq", nil, nil)

	err := stream.Append(context.Background(), domain.AuditEntry{ID: "a1", Type: domain.AuditFailure})
	if err == nil {
		t.Fatal("expected an error without redis and WAL")
	}
}

func TestDecodeMessage(t *testing.T) {
	msg := redis.XMessage{
		ID:     "1-0",
		Values: map[string]any{payloadField: `{"id":"a1","type":"admin_read","collection":"tenants","count":3,"timestamp":"2024-01-01T00:00:00Z"}`},
	}
	entry, err := decodeMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.ID != "a1" || entry.Count != 3 || entry.StreamMessageID != "1-0" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	if _, err := decodeMessage(redis.XMessage{ID: "2-0", Values: map[string]any{}}); err == nil {
		t.Error("expected error for message without payload")
	}
}
