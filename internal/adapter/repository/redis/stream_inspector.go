package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// StreamInspector implements domain.AuditStreamInspector.
type StreamInspector struct {
	client       *redis.Client
	dlqStreamKey string
}

// NewStreamInspector creates an inspector over the audit stream and its DLQ.
func NewStreamInspector(client *redis.Client, dlqStreamKey string) *StreamInspector {
	return &StreamInspector{client: client, dlqStreamKey: dlqStreamKey}
}

// Stats reports stream lengths and the state of every consumer group.
func (i *StreamInspector) Stats(ctx context.Context) (*domain.AuditStreamStats, error) {
	stats := &domain.AuditStreamStats{
		Stream:    AuditStreamKey,
		DLQStream: i.dlqStreamKey,
		Groups:    []domain.ConsumerGroupStats{},
	}

	var err error
	if stats.Length, err = i.client.XLen(ctx, AuditStreamKey).Result(); err != nil {
		return nil, fmt.Errorf("failed to get length of %s: %w", AuditStreamKey, err)
	}
	if stats.DLQLength, err = i.client.XLen(ctx, i.dlqStreamKey).Result(); err != nil {
		return nil, fmt.Errorf("failed to get length of %s: %w", i.dlqStreamKey, err)
	}

	groups, err := i.client.XInfoGroups(ctx, AuditStreamKey).Result()
	if err != nil {
		if isNoSuchKeyError(err) {
			return stats, nil
		}
		return nil, fmt.Errorf("failed to get group info for %s: %w", AuditStreamKey, err)
	}

	for _, g := range groups {
		consumers, err := i.client.XInfoConsumers(ctx, AuditStreamKey, g.Name).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to get consumers of group %s: %w", g.Name, err)
		}
		group := domain.ConsumerGroupStats{
			Name:            g.Name,
			Pending:         g.Pending,
			LastDeliveredID: g.LastDeliveredID,
			Consumers:       make([]domain.ConsumerStats, len(consumers)),
		}
		for j, c := range consumers {
			group.Consumers[j] = domain.ConsumerStats{Name: c.Name, Pending: c.Pending, Idle: c.Idle}
		}
		stats.Groups = append(stats.Groups, group)
	}
	return stats, nil
}

// Trim caps the audit stream at maxLen entries and returns how many were removed.
func (i *StreamInspector) Trim(ctx context.Context, maxLen int64) (int64, error) {
	return i.client.XTrimMaxLen(ctx, AuditStreamKey, maxLen).Result()
}

// Pending lists delivered but unacknowledged entries of group, oldest first.
func (i *StreamInspector) Pending(ctx context.Context, group string, count int64) ([]domain.PendingEntry, error) {
	messages, err := i.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: AuditStreamKey,
		Group:  group,
		Start:  "-",
		End:    "+",
		Count:  count,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending messages of group %s: %w", group, err)
	}

	result := make([]domain.PendingEntry, len(messages))
	for j, m := range messages {
		result[j] = domain.PendingEntry{
			ID:         m.ID,
			Consumer:   m.Consumer,
			Idle:       m.Idle,
			RetryCount: m.RetryCount,
		}
	}
	return result, nil
}

// Claim moves pending entries idle for at least minIdle to consumer.
func (i *StreamInspector) Claim(ctx context.Context, group, consumer string, minIdle time.Duration, ids []string) ([]string, error) {
	claimed, err := i.client.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   AuditStreamKey,
		Group:    group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Messages: ids,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim messages for %s: %w", consumer, err)
	}
	return claimed, nil
}

func isNoSuchKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such key")
}
