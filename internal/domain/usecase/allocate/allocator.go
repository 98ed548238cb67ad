package allocate

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// Config holds allocator limits and lease durations
type Config struct {
	MaxAttempts    int           // Allocation attempts before giving up
	DailyMax       int           // Highest sequence number allowed per tuple per day
	LockTTL        time.Duration // Named lock lease; a crashed holder frees up after this
	ClaimTTL       time.Duration // Claim record lease
	OverallTimeout time.Duration // Wall-clock budget for one transaction's allocation
	ScanWindow     time.Duration // How far back the ledger sequence scan reaches
	ScanCacheTTL   time.Duration // How long one scan result is reused
	Backoff        BackoffConfig
	Reprocessing   bool // Allocate REP-prefixed IDs
}

// DefaultConfig returns the allocator defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    8,
		DailyMax:       99,
		LockTTL:        30 * time.Second,
		ClaimTTL:       24 * time.Hour,
		OverallTimeout: 45 * time.Second,
		ScanWindow:     72 * time.Hour,
		ScanCacheTTL:   15 * time.Second,
		Backoff:        DefaultBackoffConfig(),
	}
}

// lockKeyPrefix namespaces the allocator's named locks in the shared store
const lockKeyPrefix = "invoice-id-lock:"

// Allocator claims unique invoice IDs under concurrent execution. The claim
// dance per candidate is: compute → acquire the candidate's named lock →
// re-verify ledger and claim store → claim with TTL → release. Coordination
// happens entirely through the shared ledger, claim store and locks; two
// overlapping runs never need to know about each other.
type Allocator struct {
	ledger       persistence.LedgerStore
	locks        persistence.LockProvider
	claims       persistence.ClaimStore
	cache        core.Cache
	timeProvider core.TimeProvider
	logger       core.Logger
	cfg          Config
}

// NewAllocator creates an invoice ID allocator
func NewAllocator(
	ledger persistence.LedgerStore,
	locks persistence.LockProvider,
	claims persistence.ClaimStore,
	cache core.Cache,
	timeProvider core.TimeProvider,
	logger core.Logger,
	cfg Config,
) *Allocator {
	return &Allocator{
		ledger:       ledger,
		locks:        locks,
		claims:       claims,
		cache:        cache,
		timeProvider: timeProvider,
		logger:       logger,
		cfg:          cfg,
	}
}

// Allocate claims a unique invoice ID for the transaction's
// (division, form, date) tuple. It gap-fills: the lowest unused sequence
// number wins, not max+1. Retries with increasing backoff on contention and
// stale-candidate races; exhaustion of retries or of the daily sequence cap
// fails this transaction only, never the run.
func (a *Allocator) Allocate(ctx context.Context, tx *entity.EnrichedTransaction) (entity.InvoiceID, error) {
	if tx.Invoiced() {
		return entity.InvoiceID{}, errs.NewAllocationError(tx.TransactionID, tx.InvoiceID, 0, errs.ErrAlreadyInvoiced)
	}

	ctx, cancel := a.timeProvider.WithTimeout(ctx, a.cfg.OverallTimeout)
	defer cancel()

	// ownerID is unique per allocation attempt so two allocations inside one
	// process still exclude each other
	ownerID := uuid.NewString()
	template := entity.NewInvoiceID(tx.ResolvedDivision, tx.FormType, tx.ProcessedOn, 0)
	template.Reprocessed = a.cfg.Reprocessing
	prefix := template.Prefix()

	// Numbers this allocation has personally seen fail verification. The
	// shared scan is cached and may be stale; this set only ever grows.
	localUsed := make(map[int]bool)
	lastCandidate := ""

	for attempt := 0; attempt < a.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return entity.InvoiceID{}, errs.NewAllocationError(tx.TransactionID, lastCandidate, attempt, errs.ErrAllocationExhausted)
		}

		candidate, sequence, err := a.computeCandidate(ctx, template, prefix, localUsed)
		if err != nil {
			// Sequence exhaustion and store failures are not retryable
			return entity.InvoiceID{}, errs.NewAllocationError(tx.TransactionID, lastCandidate, attempt+1, err)
		}
		lastCandidate = candidate.String()

		claimed, err := a.tryClaim(ctx, candidate, ownerID)
		if err != nil {
			if !errs.IsRetryable(err) {
				return entity.InvoiceID{}, errs.NewAllocationError(tx.TransactionID, lastCandidate, attempt+1, err)
			}
			if errors.Is(err, errs.ErrInvoiceIDTaken) {
				localUsed[sequence] = true
			}
			a.logger.Debug("Allocation attempt lost race, backing off", map[string]any{
				"transaction_id": tx.TransactionID,
				"candidate":      lastCandidate,
				"attempt":        attempt + 1,
				"error":          err.Error(),
			})
			a.timeProvider.Sleep(a.cfg.Backoff.Delay(attempt, a.timeProvider.Now()))
			continue
		}
		if claimed {
			a.logger.Info("Invoice ID allocated", map[string]any{
				"transaction_id": tx.TransactionID,
				"invoice_id":     lastCandidate,
				"attempts":       attempt + 1,
			})
			return candidate, nil
		}
	}

	return entity.InvoiceID{}, errs.NewAllocationError(tx.TransactionID, lastCandidate, a.cfg.MaxAttempts, errs.ErrAllocationExhausted)
}

// computeCandidate scans the used sequence numbers for the tuple and picks
// the first gap. The scan reads a bounded recent window of the ledger and is
// cached briefly; staleness is tolerated because tryClaim re-verifies.
func (a *Allocator) computeCandidate(ctx context.Context, template entity.InvoiceID, prefix string, localUsed map[int]bool) (entity.InvoiceID, int, error) {
	used := make(map[int]bool, len(localUsed))
	for sequence := range localUsed {
		used[sequence] = true
	}

	scanned, err := a.scanUsedSequences(ctx, prefix)
	if err != nil {
		return entity.InvoiceID{}, 0, err
	}
	MergeSequences(used, scanned)

	sequence, err := NextSequence(used, a.cfg.DailyMax)
	if err != nil {
		return entity.InvoiceID{}, 0, err
	}

	candidate := template
	candidate.Sequence = sequence
	return candidate, sequence, nil
}

// scanUsedSequences returns the sequence numbers recorded in the ledger for
// a tuple prefix, reusing a recent scan when one is cached
func (a *Allocator) scanUsedSequences(ctx context.Context, prefix string) ([]int, error) {
	cacheKey := "seq-scan:" + prefix
	if cached, ok := a.cache.Get(cacheKey); ok {
		if scanned, ok := cached.([]int); ok {
			return scanned, nil
		}
	}

	since := a.timeProvider.Now().Add(-a.cfg.ScanWindow)
	scanned, err := a.ledger.ScanInvoiceSequences(ctx, prefix, since)
	if err != nil {
		return nil, err
	}
	a.cache.Set(cacheKey, scanned, a.cfg.ScanCacheTTL)
	return scanned, nil
}

// tryClaim runs the locked section for one candidate: acquire the
// candidate's named lock, re-verify that neither the ledger nor the claim
// store knows the ID, then record the claim and release the lock.
//
// Returns (false, ErrLockContention) when another allocation holds the lock
// and (false, ErrInvoiceIDTaken) when verification fails; both are
// retryable. The lock is always released on the way out.
func (a *Allocator) tryClaim(ctx context.Context, candidate entity.InvoiceID, ownerID string) (bool, error) {
	id := candidate.String()
	lockKey := lockKeyPrefix + id

	acquired, err := a.locks.TryAcquire(ctx, lockKey, ownerID, a.cfg.LockTTL)
	if err != nil {
		return false, err
	}
	if !acquired {
		return false, errs.ErrLockContention
	}
	defer func() {
		if releaseErr := a.locks.Release(ctx, lockKey, ownerID); releaseErr != nil {
			a.logger.Warn("Failed to release allocation lock, lease will expire", map[string]any{
				"lock_key": lockKey,
				"error":    releaseErr.Error(),
			})
		}
	}()

	// Re-verify under the lock: the cached scan may predate a competing
	// allocation that already finished
	exists, err := a.ledger.ExistsInvoiceID(ctx, id)
	if err != nil {
		return false, err
	}
	if exists {
		return false, errs.ErrInvoiceIDTaken
	}

	claim, err := a.claims.GetClaim(ctx, id)
	if err != nil {
		return false, err
	}
	if claim != nil && !claim.Expired(a.timeProvider.Now()) {
		return false, errs.ErrInvoiceIDTaken
	}

	if err := a.claims.SetClaim(ctx, id, ownerID, a.cfg.ClaimTTL); err != nil {
		return false, err
	}

	// The cached scan for this prefix is now known stale
	a.cache.Delete("seq-scan:" + candidate.Prefix())
	return true, nil
}
