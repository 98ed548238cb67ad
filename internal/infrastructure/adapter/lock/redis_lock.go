package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// claimKeyPrefix namespaces claim records in the shared Redis instance
const claimKeyPrefix = "invoice-claim:"

// RedisLockProvider implements the LockProvider port on redislock. Each
// named lock maps to one Redis key; the library's token handling guarantees
// an expired lock can never be released over a newer holder.
type RedisLockProvider struct {
	locker *redislock.Client

	mu   sync.Mutex
	held map[string]*redislock.Lock // (key, owner) -> live lock handle
}

// NewRedisLockProvider creates a Redis-backed lock provider
func NewRedisLockProvider(client redis.UniversalClient) *RedisLockProvider {
	return &RedisLockProvider{
		locker: redislock.New(client),
		held:   make(map[string]*redislock.Lock),
	}
}

func heldKey(key, ownerID string) string {
	return key + "|" + ownerID
}

// TryAcquire attempts to take the named lock without blocking
func (p *RedisLockProvider) TryAcquire(ctx context.Context, key, ownerID string, ttl time.Duration) (bool, error) {
	lock, err := p.locker.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: obtaining lock %s: %s", errs.ErrStoreUnavailable, key, err.Error())
	}

	p.mu.Lock()
	p.held[heldKey(key, ownerID)] = lock
	p.mu.Unlock()
	return true, nil
}

// Release releases the lock if this owner still holds it. A lock that
// already expired releases as a no-op; its lease did the job.
func (p *RedisLockProvider) Release(ctx context.Context, key, ownerID string) error {
	p.mu.Lock()
	lock, ok := p.held[heldKey(key, ownerID)]
	delete(p.held, heldKey(key, ownerID))
	p.mu.Unlock()
	if !ok {
		return nil
	}

	err := lock.Release(ctx)
	if err == nil || errors.Is(err, redislock.ErrLockNotHeld) {
		return nil
	}
	return fmt.Errorf("%w: releasing lock %s: %s", errs.ErrStoreUnavailable, key, err.Error())
}

// claimPayload is the JSON form of a claim record in Redis
type claimPayload struct {
	OwnerID   string    `json:"ownerId"`
	ClaimedAt time.Time `json:"claimedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RedisClaimStore implements the ClaimStore port on plain Redis keys with
// native TTL expiry
type RedisClaimStore struct {
	client       redis.UniversalClient
	timeProvider core.TimeProvider
}

// NewRedisClaimStore creates a Redis-backed claim store
func NewRedisClaimStore(client redis.UniversalClient, timeProvider core.TimeProvider) *RedisClaimStore {
	return &RedisClaimStore{client: client, timeProvider: timeProvider}
}

// GetClaim returns the live claim for a candidate ID, or nil
func (s *RedisClaimStore) GetClaim(ctx context.Context, proposedID string) (*persistence.ClaimRecord, error) {
	raw, err := s.client.Get(ctx, claimKeyPrefix+proposedID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: reading claim %s: %s", errs.ErrStoreUnavailable, proposedID, err.Error())
	}

	var payload claimPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("%w: decoding claim %s: %s", errs.ErrStoreUnavailable, proposedID, err.Error())
	}
	return &persistence.ClaimRecord{
		ProposedID: proposedID,
		OwnerID:    payload.OwnerID,
		ClaimedAt:  payload.ClaimedAt,
		ExpiresAt:  payload.ExpiresAt,
	}, nil
}

// SetClaim records a claim with the lease duration. SET NX keeps the
// at-most-one-claim invariant even if two allocators somehow reach this
// point for the same ID.
func (s *RedisClaimStore) SetClaim(ctx context.Context, proposedID, ownerID string, ttl time.Duration) error {
	now := s.timeProvider.Now()
	payload, err := json.Marshal(claimPayload{
		OwnerID:   ownerID,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding claim %s: %s", errs.ErrStoreUnavailable, proposedID, err.Error())
	}

	set, err := s.client.SetNX(ctx, claimKeyPrefix+proposedID, payload, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: writing claim %s: %s", errs.ErrStoreUnavailable, proposedID, err.Error())
	}
	if !set {
		return errs.ErrInvoiceIDTaken
	}
	return nil
}

// SweepExpired is a no-op for Redis: claim keys carry a native TTL and
// expire on their own
func (s *RedisClaimStore) SweepExpired(context.Context) (int, error) {
	return 0, nil
}
