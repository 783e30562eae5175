package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/domain"
)

const sseKeepAliveInterval = 15 * time.Second

// AuditBroker fans recorded audit entries out to connected SSE clients.
type AuditBroker struct {
	logger  *slog.Logger
	clients map[chan []byte]struct{}
	mu      sync.RWMutex
	entries chan domain.AuditEntry
}

// NewAuditBroker creates a new AuditBroker and starts its processing loop.
func NewAuditBroker(ctx context.Context, logger *slog.Logger) *AuditBroker {
	broker := &AuditBroker{
		logger:  logger.With("component", "audit_broker"),
		clients: make(map[chan []byte]struct{}),
		entries: make(chan domain.AuditEntry, 1000),
	}
	go broker.run(ctx)
	return broker
}

// ServeHTTP handles GET /audit/stream.
func (b *AuditBroker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		RespondError(w, b.logger, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messageChan := make(chan []byte, 16)
	b.addClient(messageChan)
	defer b.removeClient(messageChan)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messageChan:
			if !ok {
				return // Channel was closed
			}
			if msg == nil {
				fmt.Fprint(w, ": keep-alive\n\n")
			} else {
				fmt.Fprintf(w, "event: audit\ndata: %s\n\n", msg)
			}
			flusher.Flush()
		}
	}
}

// Publish queues an entry for broadcast. It never blocks the audit worker.
func (b *AuditBroker) Publish(entry domain.AuditEntry) {
	select {
	case b.entries <- entry:
	default:
		b.logger.Warn("audit broker channel is full, dropping entry", "entry_id", entry.ID)
	}
}

// Clients returns the number of connected clients.
func (b *AuditBroker) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

func (b *AuditBroker) addClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.clients[client] = struct{}{}
	b.logger.Info("SSE client connected")
}

func (b *AuditBroker) removeClient(client chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[client]; ok {
		delete(b.clients, client)
		close(client)
		b.logger.Info("SSE client disconnected")
	}
}

func (b *AuditBroker) broadcast(msg []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for client := range b.clients {
		select {
		case client <- msg:
		default:
			// Slow client; skip rather than block the others.
		}
	}
}

func (b *AuditBroker) run(ctx context.Context) {
	ticker := time.NewTicker(sseKeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry := <-b.entries:
			data, err := json.Marshal(entry)
			if err != nil {
				b.logger.Error("failed to marshal audit entry for SSE", "error", err)
				continue
			}
			b.broadcast(data)
		case <-ticker.C:
			b.broadcast(nil)
		}
	}
}
