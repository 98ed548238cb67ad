package persistence

import (
	"context"
	"time"
)

// ClaimRecord is a lease-like record asserting temporary ownership of a
// candidate invoice ID. At most one unexpired claim may exist per ID.
type ClaimRecord struct {
	ProposedID string
	OwnerID    string
	ClaimedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the claim's lease has lapsed at the given time
func (c *ClaimRecord) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}

// LockProvider is a named mutual-exclusion lock scoped to a single key.
// Locks carry a TTL so a crashed holder cannot block the key forever.
// Production backs this with an atomic shared store; tests use an in-memory
// mutex map with simulated expiry.
type LockProvider interface {
	// TryAcquire attempts to take the lock for the key. Returns false without
	// error when another owner holds an unexpired lock.
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the lock backend cannot be reached
	TryAcquire(ctx context.Context, key, ownerID string, ttl time.Duration) (bool, error)

	// Release releases the lock if (and only if) ownerID still holds it
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the lock backend cannot be reached
	Release(ctx context.Context, key, ownerID string) error
}

// ClaimStore persists invoice-ID claims in the shared key-value store
type ClaimStore interface {
	// GetClaim returns the claim for a candidate ID, or nil when none exists.
	// Expired claims are treated as absent.
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	GetClaim(ctx context.Context, proposedID string) (*ClaimRecord, error)

	// SetClaim records a claim with the given lease duration
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	SetClaim(ctx context.Context, proposedID, ownerID string, ttl time.Duration) error

	// SweepExpired removes lapsed claim records and returns how many were
	// removed. Called periodically by the pipeline runner.
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	SweepExpired(ctx context.Context) (int, error)
}
