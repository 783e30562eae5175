package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "auth:revoked:"

// RevocationStore implements domain.RevocationStore with one key per user
// holding the unix time before which that user's tokens are rejected.
type RevocationStore struct {
	client *redis.Client
}

// NewRevocationStore creates a Redis-backed revocation store.
func NewRevocationStore(client *redis.Client) *RevocationStore {
	return &RevocationStore{client: client}
}

func (s *RevocationStore) ValidAfter(ctx context.Context, uid string) (time.Time, error) {
	secs, err := s.client.Get(ctx, revokedKeyPrefix+uid).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read revocation for %s: %w", uid, err)
	}
	return time.Unix(secs, 0), nil
}

func (s *RevocationStore) Revoke(ctx context.Context, uid string, at time.Time) error {
	if err := s.client.Set(ctx, revokedKeyPrefix+uid, at.Unix(), 0).Err(); err != nil {
		return fmt.Errorf("revoke tokens of %s: %w", uid, err)
	}
	return nil
}
