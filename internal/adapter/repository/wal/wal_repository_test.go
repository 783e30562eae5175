package wal

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

func setupTestWAL(t *testing.T, maxSegmentSize, maxTotalSize int64) *WALRepository {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wal, err := NewWALRepository(t.TempDir(), maxSegmentSize, maxTotalSize, logger)
	if err != nil {
		t.Fatalf("failed to create WALRepository: %v", err)
	}
	t.Cleanup(func() { wal.Close() })
	return wal
}

func testEntry(msg string) domain.AuditEntry {
	return domain.AuditEntry{ID: uuid.NewString(), Type: domain.AuditFailure, Endpoint: "/api/transactions", Message: msg}
}

func TestWAL_WriteAndReplay(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)

	entries := []domain.AuditEntry{testEntry("entry 1"), testEntry("entry 2"), testEntry("entry 3")}
	for _, entry := range entries {
		if err := wal.Write(context.Background(), entry); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}
	wal.Close() // Close to ensure data is flushed

	// Re-open the WAL to simulate a restart
	reopened, err := NewWALRepository(wal.dir, 1024, 10*1024, wal.logger)
	if err != nil {
		t.Fatalf("failed to re-open WAL: %v", err)
	}
	defer reopened.Close()

	if reopened.Size() == 0 {
		t.Error("expected re-opened WAL to account for existing bytes")
	}

	var replayed []domain.AuditEntry
	err = reopened.Replay(context.Background(), func(entry domain.AuditEntry) error {
		replayed = append(replayed, entry)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to replay entries: %v", err)
	}

	if len(replayed) != len(entries) {
		t.Fatalf("expected %d replayed entries, got %d", len(entries), len(replayed))
	}
	for i, entry := range entries {
		if replayed[i].ID != entry.ID || replayed[i].Message != entry.Message {
			t.Errorf("replayed entry mismatch at index %d: got %+v, want %+v", i, replayed[i], entry)
		}
	}
}

func TestWAL_ReplayStopsOnHandlerError(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	for i := 0; i < 3; i++ {
		if err := wal.Write(context.Background(), testEntry("x")); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}

	calls := 0
	boom := errors.New("stream down")
	err := wal.Replay(context.Background(), func(entry domain.AuditEntry) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected replay to stop after first failure, got %d calls", calls)
	}

	segments, _ := wal.getSortedSegments()
	if len(segments) == 0 {
		t.Error("segments must be kept after a failed replay")
	}
}

func TestWAL_SegmentRotation(t *testing.T) {
	// Set a very small segment size to force rotation
	wal := setupTestWAL(t, 100, 10*1024)

	entry := testEntry("a message long enough to cause rotation")
	entryBytes, _ := json.Marshal(entry)

	numWrites := (100 / len(entryBytes)) + 2
	for i := 0; i < numWrites; i++ {
		if err := wal.Write(context.Background(), entry); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}

	segments, err := wal.getSortedSegments()
	if err != nil {
		t.Fatalf("failed to get segments: %v", err)
	}
	if len(segments) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segments))
	}
}

func collect(t *testing.T, wal *WALRepository) []string {
	t.Helper()
	var msgs []string
	err := wal.Replay(context.Background(), func(entry domain.AuditEntry) error {
		msgs = append(msgs, entry.Message)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to replay entries: %v", err)
	}
	return msgs
}

func TestWAL_ReplayAndTruncate(t *testing.T) {
	wal := setupTestWAL(t, 1024, 4096)

	if err := wal.Write(context.Background(), testEntry("some data")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	var replayed []string
	err := wal.ReplayAndTruncate(context.Background(), func(entry domain.AuditEntry) error {
		replayed = append(replayed, entry.Message)
		return nil
	})
	if err != nil {
		t.Fatalf("failed to replay and truncate WAL: %v", err)
	}
	if len(replayed) != 1 || replayed[0] != "some data" {
		t.Fatalf("unexpected replayed entries: %v", replayed)
	}

	segments, _ := wal.getSortedSegments()
	if len(segments) != 1 { // a fresh empty segment is opened
		t.Fatalf("expected 1 segment after truncate, got %d", len(segments))
	}
	info, _ := os.Stat(segments[0])
	if info.Size() != 0 {
		t.Errorf("expected new segment to be empty, size is %d", info.Size())
	}
	if wal.Size() != 0 {
		t.Errorf("expected size 0 after truncate, got %d", wal.Size())
	}
}

func TestWAL_WriteAfterReplayIsKept(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	ctx := context.Background()

	if err := wal.Write(ctx, testEntry("old")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}
	if err := wal.ReplayAndTruncate(ctx, func(domain.AuditEntry) error { return nil }); err != nil {
		t.Fatalf("failed to replay and truncate WAL: %v", err)
	}
	if err := wal.Write(ctx, testEntry("late")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	if got := collect(t, wal); len(got) != 1 || got[0] != "late" {
		t.Errorf("expected only the late entry to remain, got %v", got)
	}
}

func TestWAL_WriteDuringReplayIsKept(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	ctx := context.Background()

	if err := wal.Write(ctx, testEntry("old")); err != nil {
		t.Fatalf("failed to write entry: %v", err)
	}

	writeDone := make(chan error, 1)
	var replayed []string
	err := wal.ReplayAndTruncate(ctx, func(entry domain.AuditEntry) error {
		replayed = append(replayed, entry.Message)
		// A producer racing with the replay; it must wait for the replay to finish.
		go func() { writeDone <- wal.Write(ctx, testEntry("late")) }()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to replay and truncate WAL: %v", err)
	}
	if err := <-writeDone; err != nil {
		t.Fatalf("concurrent write failed: %v", err)
	}

	if len(replayed) != 1 || replayed[0] != "old" {
		t.Errorf("unexpected replayed entries: %v", replayed)
	}
	if got := collect(t, wal); len(got) != 1 || got[0] != "late" {
		t.Errorf("expected the concurrent entry to survive the truncate, got %v", got)
	}
}

func TestWAL_ReplayAndTruncateKeepsUnreplayedSegments(t *testing.T) {
	// Small segments so each entry lands in its own segment.
	wal := setupTestWAL(t, 50, 10*1024)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if err := wal.Write(ctx, testEntry(msg)); err != nil {
			t.Fatalf("failed to write entry: %v", err)
		}
	}

	boom := errors.New("stream down")
	err := wal.ReplayAndTruncate(ctx, func(entry domain.AuditEntry) error {
		if entry.Message == "second" {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected handler error, got %v", err)
	}

	if got := collect(t, wal); len(got) != 2 || got[0] != "second" || got[1] != "third" {
		t.Errorf("expected the failed and later entries to remain, got %v", got)
	}
	if wal.Size() == 0 {
		t.Error("expected remaining segments to be accounted for")
	}
}

func TestWAL_MaxTotalSize(t *testing.T) {
	wal := setupTestWAL(t, 100, 150) // Max total size is very small

	var err error
	for i := 0; i < 5; i++ { // Write until we expect an error
		if err = wal.Write(context.Background(), testEntry("some data that will fill up the WAL")); err != nil {
			break
		}
	}

	if !errors.Is(err, ErrWALFull) {
		t.Fatalf("expected ErrWALFull when writing beyond max total size, got %v", err)
	}
}
