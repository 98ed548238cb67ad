package route

import (
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
)

// Batch is one physical invoice document's worth of transactions. A group
// whose combined line items exceed the per-batch cap splits into several
// batches; a group that should not batch at all emits one Batch per member.
type Batch struct {
	Key     entity.GroupKey
	Members []*entity.EnrichedTransaction
}

// LineItemCount returns the combined line items across batch members
func (b *Batch) LineItemCount() int {
	count := 0
	for _, member := range b.Members {
		count += len(member.LineItems)
	}
	return count
}

// Batcher splits groups into physical batches bounded by a maximum number
// of line items per invoice document
type Batcher struct {
	maxItemsPerBatch int
	logger           core.Logger
}

// NewBatcher creates a batcher with the given per-batch line-item cap
func NewBatcher(maxItemsPerBatch int, logger core.Logger) *Batcher {
	return &Batcher{maxItemsPerBatch: maxItemsPerBatch, logger: logger}
}

// Split partitions a group into batches. Transactions stay whole: a
// transaction moves to the next batch rather than having its items split
// across two documents. The one exception is a transaction that alone
// exceeds the cap, which keeps its own oversized batch rather than lose
// items. Original member order is preserved throughout.
func (b *Batcher) Split(group *entity.Group) []*Batch {
	if !group.IsBatch() {
		// One batch per member; each renders as its own single invoice
		batches := make([]*Batch, 0, len(group.Members))
		for _, member := range group.Members {
			batches = append(batches, &Batch{Key: group.Key, Members: []*entity.EnrichedTransaction{member}})
		}
		return batches
	}

	var batches []*Batch
	current := &Batch{Key: group.Key}
	for _, member := range group.Members {
		memberItems := len(member.LineItems)
		if len(current.Members) > 0 && current.LineItemCount()+memberItems > b.maxItemsPerBatch {
			batches = append(batches, current)
			current = &Batch{Key: group.Key}
		}
		current.Members = append(current.Members, member)

		if memberItems > b.maxItemsPerBatch {
			b.logger.Warn("Transaction alone exceeds batch cap, keeping oversized batch", map[string]any{
				"transaction_id": member.TransactionID,
				"line_items":     memberItems,
				"cap":            b.maxItemsPerBatch,
			})
		}
	}
	if len(current.Members) > 0 {
		batches = append(batches, current)
	}
	return batches
}
