package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dperkosan/iam-service/internal/obs"
)

var (
	// ErrTokenRevoked indicates the registry no longer holds the given
	// token identifier: it was consumed, superseded by a reissue, or
	// expired by TTL. Indistinguishable by design.
	ErrTokenRevoked = errors.New("token: revoked or superseded")
	// ErrRegistryUnavailable wraps any underlying store failure. Losing
	// the registry breaks the revocation guarantee, so these are never
	// swallowed.
	ErrRegistryUnavailable = errors.New("token: registry unavailable")
)

// Registry tracks, per (account, purpose), the identifier of the single
// currently-authoritative token. Writing a new entry silently supersedes the
// previous one; this is the single-use enforcement mechanism for non-AUTH
// purposes.
type Registry struct {
	rdb redis.UniversalClient
}

// NewRegistry wraps an established Redis client.
func NewRegistry(rdb redis.UniversalClient) *Registry {
	return &Registry{rdb: rdb}
}

// Key returns the registry key for an (account, purpose) pair.
func Key(accountID string, purpose Purpose) string {
	return string(purpose) + "-user-" + accountID
}

// Insert stores tokenID as the authoritative identifier for the pair,
// overwriting any prior entry. The entry expires after ttl.
func (r *Registry) Insert(ctx context.Context, accountID string, purpose Purpose, tokenID string, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, Key(accountID, purpose), tokenID, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	return nil
}

// Validate checks that tokenID is still the authoritative identifier for the
// pair. A missing entry and a mismatching one are both reported as revoked.
func (r *Registry) Validate(ctx context.Context, accountID string, purpose Purpose, tokenID string) error {
	stored, err := r.rdb.Get(ctx, Key(accountID, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrTokenRevoked
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if stored != tokenID {
		return ErrTokenRevoked
	}
	return nil
}

// Invalidate deletes the entry for the pair. Deleting a key that does not
// exist is logged but not an error, so the operation is idempotent.
func (r *Registry) Invalidate(ctx context.Context, accountID string, purpose Purpose) error {
	key := Key(accountID, purpose)
	deleted, err := r.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	}
	if deleted == 0 {
		obs.LogRequest(map[string]any{
			"level": "warn",
			"msg":   "token not found or already invalidated",
			"key":   key,
		})
	}
	return nil
}
