package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

// MockAuditBuffer is a mock implementation of domain.AuditBuffer for testing.
type MockAuditBuffer struct {
	mu              sync.Mutex
	Appended        []domain.AuditEntry
	AckedMessageIDs []string
	DLQEntries      []domain.AuditEntry
	ReadBatchResult []domain.AuditEntry
	StaleResult     []domain.AuditEntry
	ClaimCalls      int
	ReadCalls       int
	AppendErr       error
	ReadErr         error
	AckErr          error
	DLQErr          error
	ClaimErr        error
}

func (m *MockAuditBuffer) Append(ctx context.Context, entry domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AppendErr != nil {
		return m.AppendErr
	}
	m.Appended = append(m.Appended, entry)
	return nil
}

func (m *MockAuditBuffer) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls++
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

// ClaimStale returns StaleResult once, then nothing.
func (m *MockAuditBuffer) ClaimStale(ctx context.Context, group, consumer string, minIdle time.Duration, count int) ([]domain.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ClaimCalls++
	if m.ClaimErr != nil {
		return nil, m.ClaimErr
	}
	out := m.StaleResult
	m.StaleResult = nil
	return out, nil
}

func (m *MockAuditBuffer) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockAuditBuffer) MoveToDLQ(ctx context.Context, entries []domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEntries = append(m.DLQEntries, entries...)
	return nil
}

// MockAuditSink is a mock implementation of domain.AuditSink for testing.
type MockAuditSink struct {
	mu       sync.Mutex
	Written  []domain.AuditEntry
	Batches  int
	WriteErr error
}

func (m *MockAuditSink) Append(ctx context.Context, entry domain.AuditEntry) error {
	return m.WriteBatch(ctx, []domain.AuditEntry{entry})
}

func (m *MockAuditSink) WriteBatch(ctx context.Context, entries []domain.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.Written = append(m.Written, entries...)
	return nil
}

// Entries returns a copy of the written entries.
func (m *MockAuditSink) Entries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.Written...)
}

// MockTenantDirectory resolves keys from a fixed map.
type MockTenantDirectory struct {
	Tenants map[string]domain.Tenant
	Err     error
	Calls   int
}

func (m *MockTenantDirectory) FindByAPIKey(ctx context.Context, key string) (*domain.Tenant, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	t, ok := m.Tenants[key]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// MockRevocationStore keeps revocations in memory.
type MockRevocationStore struct {
	mu      sync.Mutex
	Revoked map[string]time.Time
	Err     error
}

func (m *MockRevocationStore) ValidAfter(ctx context.Context, uid string) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return time.Time{}, m.Err
	}
	return m.Revoked[uid], nil
}

func (m *MockRevocationStore) Revoke(ctx context.Context, uid string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.Revoked == nil {
		m.Revoked = make(map[string]time.Time)
	}
	m.Revoked[uid] = at
	return nil
}

// MockAuditRecorder captures recorded entries synchronously.
type MockAuditRecorder struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (m *MockAuditRecorder) Record(ctx context.Context, entry domain.AuditEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (m *MockAuditRecorder) Entries() []domain.AuditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.AuditEntry(nil), m.entries...)
}

// OfType returns the recorded entries with the given type.
func (m *MockAuditRecorder) OfType(t domain.AuditType) []domain.AuditEntry {
	var out []domain.AuditEntry
	for _, e := range m.Entries() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
