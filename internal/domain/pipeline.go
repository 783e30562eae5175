package domain

import "time"

// AuditStreamStats summarizes the audit buffer and its dead-letter stream.
type AuditStreamStats struct {
	Stream    string               `json:"stream"`
	Length    int64                `json:"length"`
	DLQStream string               `json:"dlq_stream"`
	DLQLength int64                `json:"dlq_length"`
	Groups    []ConsumerGroupStats `json:"groups"`
}

// ConsumerGroupStats represents a consumer group reading the audit stream.
type ConsumerGroupStats struct {
	Name            string          `json:"name"`
	Consumers       []ConsumerStats `json:"consumers"`
	Pending         int64           `json:"pending"`
	LastDeliveredID string          `json:"last_delivered_id"`
}

// ConsumerStats represents a single consumer inside a group.
type ConsumerStats struct {
	Name    string        `json:"name"`
	Pending int64         `json:"pending"`
	Idle    time.Duration `json:"idle_ms"`
}

// PendingEntry is an audit stream message delivered to a consumer and not yet acknowledged.
type PendingEntry struct {
	ID         string        `json:"id"`
	Consumer   string        `json:"consumer"`
	Idle       time.Duration `json:"idle_ms"`
	RetryCount int64         `json:"retry_count"`
}
