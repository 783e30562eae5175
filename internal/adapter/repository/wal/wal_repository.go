package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

const (
	segmentPrefix = "audit-"
	segmentSuffix = ".wal"
	filePerm      = 0o644

	// maxLineSize bounds a single encoded audit entry during replay.
	maxLineSize = 4 << 20
)

// ErrWALFull is returned when a write would exceed the configured disk budget.
var ErrWALFull = errors.New("audit WAL disk budget exceeded")

// WALRepository is a segmented, newline-delimited JSON log of audit entries kept
// on local disk while the audit stream is unreachable.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *slog.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	// closedSize is the total size of every segment except the current one.
	closedSize int64
}

// NewWALRepository opens (or creates) the WAL in dir.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *slog.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With("component", "audit_wal"),
	}

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}

	return w, nil
}

// Write appends an entry to the current segment, rotating when it grows past
// the segment size.
func (w *WALRepository) Write(ctx context.Context, entry domain.AuditEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entry for WAL: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentSegment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if w.closedSize+w.currentSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("%w (limit %d bytes)", ErrWALFull, w.maxTotalSize)
	}

	n, err := w.currentSegment.Write(data)
	w.currentSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}

	if w.currentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("failed to rotate WAL segment", "error", err)
		}
	}

	return nil
}

// Replay hands every entry to handler in write order. Undecodable lines are
// skipped. Replay stops at the first handler error and leaves the segments in place.
func (w *WALRepository) Replay(ctx context.Context, handler func(entry domain.AuditEntry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.closeCurrent(); err != nil {
		w.logger.Warn("failed to close WAL segment before replay", "error", err)
	}

	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}

	if len(segments) == 0 {
		w.logger.Debug("WAL is empty, nothing to replay")
		return nil
	}
	w.logger.Info("starting WAL replay", "segment_count", len(segments))

	replayed := 0
	for _, segmentPath := range segments {
		n, err := replaySegment(ctx, segmentPath, handler, w.logger)
		replayed += n
		if err != nil {
			return err
		}
	}

	w.logger.Info("WAL replay completed", "entries", replayed)
	return nil
}

func replaySegment(ctx context.Context, path string, handler func(domain.AuditEntry) error, logger *slog.Logger) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	replayed := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		var entry domain.AuditEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			logger.Warn("failed to unmarshal audit entry from WAL, skipping", "error", err, "segment", path)
			continue
		}
		if err := handler(entry); err != nil {
			return replayed, fmt.Errorf("replay handler failed: %w", err)
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return replayed, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return replayed, nil
}

// ReplayAndTruncate replays segments oldest first and removes each one once all
// of its entries were handled. Writes are held until it returns, so an entry
// is either replayed or kept for the next call. On a handler error the failed
// segment and every later one stay on disk.
func (w *WALRepository) ReplayAndTruncate(ctx context.Context, handler func(entry domain.AuditEntry) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.closeCurrent(); err != nil {
		w.logger.Warn("failed to close WAL segment before replay", "error", err)
	}

	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}

	replayed, removed := 0, 0
	for _, segmentPath := range segments {
		n, err := replaySegment(ctx, segmentPath, handler, w.logger)
		replayed += n
		if err != nil {
			w.logger.Warn("WAL replay interrupted", "entries", replayed, "segments_removed", removed, "error", err)
			if rotateErr := w.rotate(); rotateErr != nil {
				return errors.Join(err, rotateErr)
			}
			return err
		}

		stat, statErr := os.Stat(segmentPath)
		if err := os.Remove(segmentPath); err != nil {
			return fmt.Errorf("failed to remove replayed WAL segment %s: %w", segmentPath, err)
		}
		if statErr == nil {
			w.closedSize -= stat.Size()
		}
		removed++
	}

	if w.closedSize < 0 {
		w.closedSize = 0
	}
	if removed > 0 {
		w.logger.Info("WAL replayed and truncated", "entries", replayed, "segments", removed)
	}
	return w.rotate()
}

// Size returns the number of bytes currently held by the WAL.
func (w *WALRepository) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closedSize + w.currentSize
}

// Close ensures the current segment is closed gracefully.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeCurrent()
}

func (w *WALRepository) closeCurrent() error {
	if w.currentSegment == nil {
		return nil
	}
	syncErr := w.currentSegment.Sync()
	closeErr := w.currentSegment.Close()
	w.currentSegment = nil
	w.closedSize += w.currentSize
	w.currentSize = 0
	return errors.Join(syncErr, closeErr)
}

func (w *WALRepository) rotate() error {
	if err := w.closeCurrent(); err != nil {
		w.logger.Error("failed to close WAL segment before rotating", "error", err)
	}

	segmentName := fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix)
	path := filepath.Join(w.dir, segmentName)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}

	w.currentSegment = f
	w.currentSize = 0
	w.logger.Debug("rotated to new WAL segment", "path", path)
	return nil
}

func (w *WALRepository) openLatestSegment() error {
	segments, err := w.getSortedSegments()
	if err != nil {
		return err
	}

	w.closedSize = 0
	for _, segmentPath := range segments {
		stat, err := os.Stat(segmentPath)
		if err != nil {
			return fmt.Errorf("failed to stat segment %s: %w", segmentPath, err)
		}
		w.closedSize += stat.Size()
	}

	if len(segments) == 0 {
		return w.rotate()
	}

	latestSegmentPath := segments[len(segments)-1]
	stat, err := os.Stat(latestSegmentPath)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latestSegmentPath, err)
	}
	if stat.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	f, err := os.OpenFile(latestSegmentPath, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latestSegmentPath, err)
	}

	// The latest segment is now the open one; its bytes move from closed to current.
	w.closedSize -= stat.Size()
	w.currentSegment = f
	w.currentSize = stat.Size()
	w.logger.Info("opened existing WAL segment", "path", latestSegmentPath, "size", w.currentSize)
	return nil
}

func (w *WALRepository) getSortedSegments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, filepath.Join(w.dir, name))
		}
	}
	sort.Strings(segments)
	return segments, nil
}
