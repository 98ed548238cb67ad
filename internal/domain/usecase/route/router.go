package route

import (
	"sort"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
)

// Router classifies enriched transactions as batchable or single and groups
// the batchable ones by (order, division, form type). Routing never fails:
// anything it cannot place confidently routes to single.
type Router struct {
	logger core.Logger
}

// NewRouter creates a router
func NewRouter(logger core.Logger) *Router {
	return &Router{logger: logger}
}

// Route partitions transactions by invoicing mode. Batchable form types go
// to Batchable; everything else, including transactions without an order ID
// to group under, goes to Single.
func (r *Router) Route(transactions []*entity.EnrichedTransaction) usecase.RouteResult {
	result := usecase.RouteResult{}
	for _, tx := range transactions {
		if tx.FormType.IsBatchable() && tx.OrderID != "" {
			result.Batchable = append(result.Batchable, tx)
			continue
		}
		result.Single = append(result.Single, tx)
	}

	r.logger.Debug("Routed transactions", map[string]any{
		"batchable": len(result.Batchable),
		"single":    len(result.Single),
	})
	return result
}

// Group collects batchable transactions into (orderID, division, formType)
// groups, preserving input order within each group
func (r *Router) Group(batchable []*entity.EnrichedTransaction) map[entity.GroupKey]*entity.Group {
	groups := make(map[entity.GroupKey]*entity.Group)
	for _, tx := range batchable {
		key := entity.KeyFor(tx)
		group, ok := groups[key]
		if !ok {
			group = &entity.Group{Key: key}
			groups[key] = group
		}
		group.Members = append(group.Members, tx)
	}
	return groups
}

// SortedGroups returns groups in a deterministic order for processing
func SortedGroups(groups map[entity.GroupKey]*entity.Group) []*entity.Group {
	ordered := make([]*entity.Group, 0, len(groups))
	for _, group := range groups {
		ordered = append(ordered, group)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Key.String() < ordered[j].Key.String()
	})
	return ordered
}
