//go:build integration

package redis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/V4T54L/vsd-gateway/internal/adapter/repository/wal"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestAuditStream_RoundTrip(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stream := NewAuditStream(client, logger, "sink", "audit_events_dlq", nil, nil)
	require.True(t, stream.Available())

	entry := domain.AuditEntry{ID: "a1", Type: domain.AuditAdminRead, Collection: "tenants", Count: 2, Timestamp: time.Now().UTC()}
	require.NoError(t, stream.Append(ctx, entry))

	batch, err := stream.ReadBatch(ctx, "sink", "c1", 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, "a1", batch[0].ID)
	assert.NotEmpty(t, batch[0].StreamMessageID)

	inspector := NewStreamInspector(client, "audit_events_dlq")
	stats, err := inspector.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats.Groups, 1)
	assert.EqualValues(t, 1, stats.Groups[0].Pending)

	require.NoError(t, stream.MoveToDLQ(ctx, batch))
	require.NoError(t, stream.Acknowledge(ctx, "sink", batch[0].StreamMessageID))

	stats, err = inspector.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.DLQLength)
	assert.EqualValues(t, 0, stats.Groups[0].Pending)

	removed, err := inspector.Trim(ctx, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestAuditStream_ClaimStaleRedeliversUnackedEntries(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stream := NewAuditStream(client, logger, "sink", "audit_events_dlq", nil, nil)
	for _, id := range []string{"a1", "a2"} {
		require.NoError(t, stream.Append(ctx, domain.AuditEntry{ID: id, Type: domain.AuditSuccess, Timestamp: time.Now().UTC()}))
	}

	// Delivered to c1, which never acknowledges them.
	batch, err := stream.ReadBatch(ctx, "sink", "c1", 10)
	require.NoError(t, err)
	require.Len(t, batch, 2)

	fresh, err := stream.ReadBatch(ctx, "sink", "c1", 10)
	require.NoError(t, err)
	assert.Empty(t, fresh, "new reads do not redeliver pending entries")

	claimed, err := stream.ClaimStale(ctx, "sink", "c2", time.Hour, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed, "entries younger than minIdle stay with their consumer")

	time.Sleep(50 * time.Millisecond)
	claimed, err = stream.ClaimStale(ctx, "sink", "c2", 10*time.Millisecond, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, "a1", claimed[0].ID)
	assert.Equal(t, batch[0].StreamMessageID, claimed[0].StreamMessageID)

	inspector := NewStreamInspector(client, "audit_events_dlq")
	pending, err := inspector.Pending(ctx, "sink", 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "c2", pending[0].Consumer)
	assert.EqualValues(t, 2, pending[0].RetryCount)

	require.NoError(t, stream.Acknowledge(ctx, "sink", claimed[0].StreamMessageID, claimed[1].StreamMessageID))
	pending, err = inspector.Pending(ctx, "sink", 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestStreamInspector_Claim(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	stream := NewAuditStream(client, logger, "sink", "audit_events_dlq", nil, nil)
	require.NoError(t, stream.Append(ctx, domain.AuditEntry{ID: "a1", Type: domain.AuditFailure, Timestamp: time.Now().UTC()}))
	batch, err := stream.ReadBatch(ctx, "sink", "crashed", 10)
	require.NoError(t, err)
	require.Len(t, batch, 1)

	inspector := NewStreamInspector(client, "audit_events_dlq")
	time.Sleep(20 * time.Millisecond)
	ids, err := inspector.Claim(ctx, "sink", "rescuer", 10*time.Millisecond, []string{batch[0].StreamMessageID})
	require.NoError(t, err)
	assert.Equal(t, []string{batch[0].StreamMessageID}, ids)

	pending, err := inspector.Pending(ctx, "sink", 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "rescuer", pending[0].Consumer)
}

func TestAuditStream_ReplaysWALOnRecovery(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	w, err := wal.NewWALRepository(t.TempDir(), 1024*1024, 10*1024*1024, logger)
	require.NoError(t, err)
	t.Cleanup(func() { w.Close() })

	stream := NewAuditStream(unreachableClient(t), logger, "sink", "audit_events_dlq", w, nil)
	require.False(t, stream.Available())

	for _, id := range []string{"w1", "w2", "w3"} {
		require.NoError(t, stream.Append(ctx, domain.AuditEntry{ID: id, Type: domain.AuditSuccess, TenantID: "t1", Timestamp: time.Now().UTC()}))
	}
	require.NotZero(t, w.Size())

	// Redis comes back.
	stream.client = client
	stream.checkHealth(ctx)

	require.True(t, stream.Available())
	length, err := client.XLen(ctx, AuditStreamKey).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 3, length)
	assert.Zero(t, w.Size(), "replayed entries must leave the WAL")

	// An entry that reached the WAL after recovery is replayed on the next check.
	require.NoError(t, w.Write(ctx, domain.AuditEntry{ID: "w4", Type: domain.AuditSuccess, Timestamp: time.Now().UTC()}))
	stream.checkHealth(ctx)
	length, err = client.XLen(ctx, AuditStreamKey).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 4, length)
	assert.Zero(t, w.Size())

	// The sink group was never created while Redis was down; the sink worker creates it.
	sinkSide := NewAuditStream(client, logger, "sink", "audit_events_dlq", nil, nil)
	batch, err := sinkSide.ReadBatch(ctx, "sink", "c1", 10)
	require.NoError(t, err)
	require.Len(t, batch, 4)
	assert.Equal(t, "w1", batch[0].ID)
}

func TestRevocationStore(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := NewRevocationStore(client)

	at, err := store.ValidAfter(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, at.IsZero())

	now := time.Unix(time.Now().Unix(), 0)
	require.NoError(t, store.Revoke(ctx, "u1", now))

	at, err = store.ValidAfter(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, at.Equal(now))
}
