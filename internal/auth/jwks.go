package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

var errUnknownKID = errors.New("signing key not published by the identity provider")

// keySnapshot is an immutable view of the provider's RSA signing keys.
type keySnapshot struct {
	keys      map[string]*rsa.PublicKey
	fetchedAt time.Time
}

// signingKeys serves RSA public keys by kid from a JWKS endpoint. Reads use the
// current snapshot without locking. Refreshes are serialized and happen at most
// once per minRefresh, so tokens with unknown kids cannot drive upstream fetches.
type signingKeys struct {
	url        string
	client     *http.Client
	ttl        time.Duration
	minRefresh time.Duration
	logger     *slog.Logger

	current atomic.Pointer[keySnapshot]

	refreshMu   sync.Mutex
	lastAttempt time.Time
}

func newSigningKeys(url string, ttl, minRefresh time.Duration, client *http.Client, logger *slog.Logger) *signingKeys {
	return &signingKeys{
		url:        url,
		client:     client,
		ttl:        ttl,
		minRefresh: minRefresh,
		logger:     logger,
	}
}

func (s *signingKeys) lookup(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if k, fresh := s.fromSnapshot(kid); k != nil && fresh {
		return k, nil
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	// A concurrent caller may have refreshed while we waited.
	k, fresh := s.fromSnapshot(kid)
	if k != nil && fresh {
		return k, nil
	}

	if !s.lastAttempt.IsZero() && time.Since(s.lastAttempt) < s.minRefresh {
		if k != nil {
			return k, nil
		}
		return nil, fmt.Errorf("%w: kid %q", errUnknownKID, kid)
	}
	s.lastAttempt = time.Now()

	snap, err := s.fetch(ctx)
	if err != nil {
		if k != nil {
			s.logger.Warn("JWKS refresh failed, serving cached key", "kid", kid, "error", err)
			return k, nil
		}
		return nil, err
	}
	s.current.Store(snap)

	if k, ok := snap.keys[kid]; ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: kid %q", errUnknownKID, kid)
}

// fromSnapshot returns the cached key for kid, if any, and whether the
// snapshot holding it is still within its TTL.
func (s *signingKeys) fromSnapshot(kid string) (*rsa.PublicKey, bool) {
	snap := s.current.Load()
	if snap == nil {
		return nil, false
	}
	return snap.keys[kid], time.Since(snap.fetchedAt) < s.ttl
}

func (s *signingKeys) fetch(ctx context.Context) (*keySnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build JWKS request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch JWKS from %s: %w", s.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch JWKS from %s: unexpected status %d", s.url, resp.StatusCode)
	}

	var set struct {
		Keys []publishedKey `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&set); err != nil {
		return nil, fmt.Errorf("decode JWKS: %w", err)
	}

	snap := &keySnapshot{keys: make(map[string]*rsa.PublicKey, len(set.Keys)), fetchedAt: time.Now()}
	for _, pk := range set.Keys {
		if pk.Kty != "RSA" || (pk.Use != "" && pk.Use != "sig") {
			continue
		}
		key, err := pk.rsaKey()
		if err != nil {
			s.logger.Warn("ignoring malformed JWKS entry", "kid", pk.Kid, "error", err)
			continue
		}
		snap.keys[pk.Kid] = key
	}
	s.logger.Debug("loaded identity provider signing keys", "count", len(snap.keys))
	return snap, nil
}

// publishedKey is one entry of a JWKS document.
type publishedKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (pk publishedKey) rsaKey() (*rsa.PublicKey, error) {
	n, err := base64.RawURLEncoding.DecodeString(pk.N)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	e, err := base64.RawURLEncoding.DecodeString(pk.E)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}
	exp := new(big.Int).SetBytes(e)
	if !exp.IsInt64() || exp.Int64() > 1<<31-1 {
		return nil, errors.New("exponent out of range")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(n), E: int(exp.Int64())}, nil
}
