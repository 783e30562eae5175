package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
	"github.com/V4T54L/vsd-gateway/internal/domain/mocks"
)

type fakeInspector struct {
	trimmedTo    int64
	pendingCount int64
	claimedBy    string
	claimIdle    time.Duration
}

func (f *fakeInspector) Stats(ctx context.Context) (*domain.AuditStreamStats, error) {
	return &domain.AuditStreamStats{Stream: "audit_events", Length: 7}, nil
}

func (f *fakeInspector) Trim(ctx context.Context, maxLen int64) (int64, error) {
	f.trimmedTo = maxLen
	return 3, nil
}

func (f *fakeInspector) Pending(ctx context.Context, group string, count int64) ([]domain.PendingEntry, error) {
	f.pendingCount = count
	return []domain.PendingEntry{{ID: "1-0", Consumer: "sink-a", Idle: time.Minute, RetryCount: 2}}, nil
}

func (f *fakeInspector) Claim(ctx context.Context, group, consumer string, minIdle time.Duration, ids []string) ([]string, error) {
	f.claimedBy = consumer
	f.claimIdle = minIdle
	return ids, nil
}

func TestAuditPipelineUseCase(t *testing.T) {
	insp := &fakeInspector{}
	uc := NewAuditPipelineUseCase(insp)

	stats, err := uc.Stats(context.Background())
	if err != nil || stats.Length != 7 {
		t.Fatalf("unexpected stats %+v, %v", stats, err)
	}

	removed, err := uc.Trim(context.Background(), 100)
	if err != nil || removed != 3 || insp.trimmedTo != 100 {
		t.Errorf("unexpected trim result %d, %v (maxlen %d)", removed, err, insp.trimmedTo)
	}

	if _, err := uc.Trim(context.Background(), -1); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestAuditPipelineUseCase_PendingAndClaim(t *testing.T) {
	insp := &fakeInspector{}
	uc := NewAuditPipelineUseCase(insp)
	ctx := context.Background()

	pending, err := uc.Pending(ctx, "audit-sink", 0)
	if err != nil || len(pending) != 1 || pending[0].Consumer != "sink-a" {
		t.Fatalf("unexpected pending %+v, %v", pending, err)
	}
	if insp.pendingCount != 100 {
		t.Errorf("expected default count 100, got %d", insp.pendingCount)
	}
	if _, err := uc.Pending(ctx, "", 10); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument without group, got %v", err)
	}

	claimed, err := uc.Claim(ctx, "audit-sink", "sink-b", time.Minute, []string{"1-0"})
	if err != nil || len(claimed) != 1 {
		t.Fatalf("unexpected claim result %v, %v", claimed, err)
	}
	if insp.claimedBy != "sink-b" || insp.claimIdle != time.Minute {
		t.Errorf("claim not forwarded: consumer %q idle %s", insp.claimedBy, insp.claimIdle)
	}

	tests := []struct {
		name     string
		group    string
		consumer string
		idle     time.Duration
		ids      []string
	}{
		{name: "no group", consumer: "c", ids: []string{"1-0"}},
		{name: "no consumer", group: "g", ids: []string{"1-0"}},
		{name: "no ids", group: "g", consumer: "c"},
		{name: "negative idle", group: "g", consumer: "c", idle: -time.Second, ids: []string{"1-0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.Claim(ctx, tt.group, tt.consumer, tt.idle, tt.ids); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestSessionUseCase_RevokeTokens(t *testing.T) {
	store := &mocks.MockRevocationStore{}
	rec := &mocks.MockAuditRecorder{}
	uc := NewSessionUseCase(store, rec)
	uc.now = func() time.Time { return time.Unix(1700000000, 500) }

	at, err := uc.RevokeTokens(context.Background(), "admin1", "u9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !at.Equal(time.Unix(1700000001, 0)) {
		t.Errorf("unexpected revocation instant %v", at)
	}
	if !store.Revoked["u9"].Equal(at) {
		t.Errorf("revocation not stored: %v", store.Revoked)
	}
	if len(rec.OfType(domain.AuditAdminWrite)) != 1 {
		t.Errorf("expected one admin_write entry")
	}

	if _, err := uc.RevokeTokens(context.Background(), "admin1", ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
