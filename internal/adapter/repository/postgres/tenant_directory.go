package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/V4T54L/vsd-gateway/internal/adapter/metrics"
	"github.com/V4T54L/vsd-gateway/internal/domain"
)

type cacheEntry struct {
	tenant    *domain.Tenant // nil records a known miss
	expiresAt time.Time
}

// TenantDirectory implements domain.TenantDirectory over the tenants collection,
// with an optional in-memory, time-based cache. A zero TTL disables caching.
type TenantDirectory struct {
	db       *sql.DB
	logger   *slog.Logger
	cache    map[string]cacheEntry
	mu       sync.RWMutex
	cacheTTL time.Duration
	metrics  *metrics.GatewayMetrics
}

// NewTenantDirectory creates a new PostgreSQL tenant directory.
func NewTenantDirectory(db *sql.DB, logger *slog.Logger, cacheTTL time.Duration, m *metrics.GatewayMetrics) *TenantDirectory {
	return &TenantDirectory{
		db:       db,
		logger:   logger.With("component", "tenant_directory"),
		cache:    make(map[string]cacheEntry),
		cacheTTL: cacheTTL,
		metrics:  m,
	}
}

// FindByAPIKey resolves an API key with an exact-match query capped at one row.
// It returns nil, nil when no tenant owns the key.
func (d *TenantDirectory) FindByAPIKey(ctx context.Context, key string) (*domain.Tenant, error) {
	if d.cacheTTL <= 0 {
		return d.lookup(ctx, key)
	}

	// 1. Check cache with a read lock
	d.mu.RLock()
	entry, found := d.cache[key]
	d.mu.RUnlock()

	if found && time.Now().Before(entry.expiresAt) {
		if d.metrics != nil {
			d.metrics.TenantCacheHits.Inc()
		}
		return copyTenant(entry.tenant), nil
	}

	// 2. Cache miss or expired, query DB and update cache with a write lock
	if d.metrics != nil {
		d.metrics.TenantCacheMisses.Inc()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another goroutine may have populated the entry while we waited for the lock.
	entry, found = d.cache[key]
	if found && time.Now().Before(entry.expiresAt) {
		return copyTenant(entry.tenant), nil
	}

	tenant, err := d.lookup(ctx, key)
	if err != nil {
		// Errors are not cached; the next request goes back to the database.
		return nil, err
	}

	d.cache[key] = cacheEntry{
		tenant:    copyTenant(tenant),
		expiresAt: time.Now().Add(d.cacheTTL),
	}
	return tenant, nil
}

// Invalidate drops every cached entry. Called after key rotation or status changes.
func (d *TenantDirectory) Invalidate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	clear(d.cache)
}

func (d *TenantDirectory) lookup(ctx context.Context, key string) (*domain.Tenant, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT id, data FROM documents WHERE collection = $1 AND data->>'apiKey' = $2 LIMIT 1`,
		domain.CollectionTenants, key)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		d.logger.Error("failed to look up tenant by API key", "error", err)
		return nil, err
	}
	tenant := domain.TenantFromDocument(*doc)
	return &tenant, nil
}

func copyTenant(t *domain.Tenant) *domain.Tenant {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
