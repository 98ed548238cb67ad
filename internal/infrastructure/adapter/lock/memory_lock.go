package lock

import (
	"context"
	"sync"
	"time"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// MemoryLockProvider implements the LockProvider port with an in-process
// mutex map and simulated TTL expiry. It backs tests, including the
// concurrent-allocation property test, and single-node deployments that run
// without Redis.
type MemoryLockProvider struct {
	mu           sync.Mutex
	locks        map[string]memoryLock
	timeProvider core.TimeProvider
}

type memoryLock struct {
	ownerID   string
	expiresAt time.Time
}

// NewMemoryLockProvider creates an in-memory lock provider
func NewMemoryLockProvider(timeProvider core.TimeProvider) *MemoryLockProvider {
	return &MemoryLockProvider{
		locks:        make(map[string]memoryLock),
		timeProvider: timeProvider,
	}
}

// TryAcquire takes the named lock unless another owner holds it unexpired
func (p *MemoryLockProvider) TryAcquire(_ context.Context, key, ownerID string, ttl time.Duration) (bool, error) {
	now := p.timeProvider.Now()
	p.mu.Lock()
	defer p.mu.Unlock()

	if current, ok := p.locks[key]; ok && current.expiresAt.After(now) && current.ownerID != ownerID {
		return false, nil
	}
	p.locks[key] = memoryLock{ownerID: ownerID, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release frees the lock if this owner still holds it
func (p *MemoryLockProvider) Release(_ context.Context, key, ownerID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.locks[key]; ok && current.ownerID == ownerID {
		delete(p.locks, key)
	}
	return nil
}

// MemoryClaimStore implements the ClaimStore port in process memory
type MemoryClaimStore struct {
	mu           sync.Mutex
	claims       map[string]persistence.ClaimRecord
	timeProvider core.TimeProvider
}

// NewMemoryClaimStore creates an in-memory claim store
func NewMemoryClaimStore(timeProvider core.TimeProvider) *MemoryClaimStore {
	return &MemoryClaimStore{
		claims:       make(map[string]persistence.ClaimRecord),
		timeProvider: timeProvider,
	}
}

// GetClaim returns the live claim for a candidate ID, or nil. Expired
// claims read as absent.
func (s *MemoryClaimStore) GetClaim(_ context.Context, proposedID string) (*persistence.ClaimRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.claims[proposedID]
	if !ok || claim.Expired(s.timeProvider.Now()) {
		return nil, nil
	}
	copied := claim
	return &copied, nil
}

// SetClaim records a claim with the lease duration
func (s *MemoryClaimStore) SetClaim(_ context.Context, proposedID, ownerID string, ttl time.Duration) error {
	now := s.timeProvider.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims[proposedID] = persistence.ClaimRecord{
		ProposedID: proposedID,
		OwnerID:    ownerID,
		ClaimedAt:  now,
		ExpiresAt:  now.Add(ttl),
	}
	return nil
}

// SweepExpired removes lapsed claims and reports how many went
func (s *MemoryClaimStore) SweepExpired(context.Context) (int, error) {
	now := s.timeProvider.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	swept := 0
	for id, claim := range s.claims {
		if claim.Expired(now) {
			delete(s.claims, id)
			swept++
		}
	}
	return swept, nil
}
