package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
)

// Config holds enrichment limits and cache settings
type Config struct {
	MaxLineItems         int             // Line items kept per transaction; extras drop with a warning
	MaxDescriptionLength int             // Descriptions truncate to this many characters
	MaxAmount            decimal.Decimal // Upper bound of the accepted amount range
	FallbackWindow       time.Duration   // Identity+time fallback match window
	OrderTotalTTL        time.Duration   // Cache TTL for cross-division order totals
}

// DefaultConfig returns the enrichment defaults
func DefaultConfig() Config {
	return Config{
		MaxLineItems:         entity.MaxItemSlots,
		MaxDescriptionLength: 250,
		MaxAmount:            decimal.NewFromInt(25000),
		FallbackWindow:       24 * time.Hour,
		OrderTotalTTL:        5 * time.Minute,
	}
}

// Engine orchestrates form lookup, parsing, name resolution and validation
// for one transaction at a time. Enrichment has no side effects beyond cache
// population and is safe to repeat for the same input.
type Engine struct {
	forms     persistence.FormStore
	ledger    persistence.LedgerStore
	directory persistence.DirectoryStore
	cache     core.Cache
	registry  *ParserRegistry
	logger    core.Logger
	cfg       Config
}

// NewEngine creates an enrichment engine
func NewEngine(
	forms persistence.FormStore,
	ledger persistence.LedgerStore,
	directory persistence.DirectoryStore,
	cache core.Cache,
	logger core.Logger,
	cfg Config,
) *Engine {
	return &Engine{
		forms:     forms,
		ledger:    ledger,
		directory: directory,
		cache:     cache,
		registry:  NewParserRegistry(),
		logger:    logger,
		cfg:       cfg,
	}
}

// Enrich turns a ledger transaction into an EnrichedTransaction. Data
// problems degrade to warnings and defaults; only an unreachable backing
// store surfaces as an error.
func (e *Engine) Enrich(ctx context.Context, tx *entity.Transaction) (*entity.EnrichedTransaction, error) {
	enriched := &entity.EnrichedTransaction{
		Transaction:      *tx,
		ResolvedDivision: tx.Division(),
		AdditionalInfo:   map[string]string{},
	}

	// A ledger row without a recognizable form type still invoices, as a
	// single-item "other"
	formType, known := entity.NormalizeFormType(string(tx.FormType))
	if !known {
		enriched.Warn(fmt.Sprintf("unknown form type %q, treating as other", tx.FormType))
	}
	enriched.FormType = formType

	if err := e.parseLineItems(ctx, tx, formType, enriched); err != nil {
		return nil, err
	}

	if err := e.resolveNames(ctx, enriched); err != nil {
		return nil, err
	}

	if tx.OrderID != "" {
		total, err := e.crossDivisionTotal(ctx, tx.OrderID)
		if err != nil {
			return nil, err
		}
		enriched.CrossDivisionTotal = total
	}

	e.validate(enriched)
	return enriched, nil
}

// parseLineItems locates the form row and dispatches to the form parser,
// substituting the default line item when either step comes up empty
func (e *Engine) parseLineItems(ctx context.Context, tx *entity.Transaction, formType entity.FormType, enriched *entity.EnrichedTransaction) error {
	parser, hasParser := e.registry.Lookup(formType)
	if !hasParser {
		e.substituteDefault(enriched, fmt.Sprintf("no parser for form type %q", formType))
		return nil
	}

	row, err := e.locateFormRow(ctx, tx)
	if err != nil {
		if errs.IsFatalForRun(err) {
			return err
		}
		e.substituteDefault(enriched, fmt.Sprintf("form row lookup failed: %v", err))
		return nil
	}

	outcome, parseErr := parser.Parse(tx, row)
	if parseErr != nil || len(outcome.LineItems) == 0 {
		reason := "form row has no parseable items"
		if parseErr != nil {
			reason = parseErr.Error()
		}
		e.substituteDefault(enriched, reason)
		return nil
	}

	enriched.LineItems = outcome.LineItems
	enriched.IsEnriched = true
	for key, value := range outcome.AdditionalInfo {
		if value != "" {
			enriched.AdditionalInfo[key] = value
		}
	}
	enriched.Warnings = append(enriched.Warnings, outcome.Warnings...)
	return nil
}

// locateFormRow resolves the originating form submission: first through the
// intake queue by transaction ID, then by requestor identity and timestamp
// proximity. The fallback is ambiguous by nature, so it logs what it matched.
func (e *Engine) locateFormRow(ctx context.Context, tx *entity.Transaction) (*persistence.FormRow, error) {
	entry, err := e.forms.FindQueueEntryByTransactionID(ctx, tx.TransactionID)
	if err == nil {
		return e.forms.FindFormRowByResponseRef(ctx, entry.ResponseRef)
	}
	if !errors.Is(err, errs.ErrQueueEntryNotFound) {
		return nil, err
	}

	row, err := e.forms.FindFormRowByIdentityAndTime(ctx, tx.Requestor, tx.ProcessedOn, e.cfg.FallbackWindow)
	if err != nil {
		return nil, err
	}
	e.logger.Warn("Matched form row by identity and time proximity", map[string]any{
		"transaction_id": tx.TransactionID,
		"requestor":      tx.Requestor,
		"response_ref":   row.ResponseRef,
	})
	return row, nil
}

// substituteDefault installs the single synthetic line item and records why
func (e *Engine) substituteDefault(enriched *entity.EnrichedTransaction, reason string) {
	enriched.LineItems = []entity.LineItem{entity.DefaultLineItem(&enriched.Transaction)}
	enriched.IsEnriched = false
	enriched.Warn(reason)
	e.logger.Warn("Substituted default line item", map[string]any{
		"transaction_id": enriched.TransactionID,
		"reason":         reason,
	})
}

// resolveNames fills requestor/approver display names from the directory,
// falling back to the identity-string heuristic on a miss
func (e *Engine) resolveNames(ctx context.Context, enriched *entity.EnrichedTransaction) error {
	var err error
	if enriched.RequestorName, err = e.displayName(ctx, enriched.Requestor); err != nil {
		return err
	}
	if enriched.ApproverName, err = e.displayName(ctx, enriched.Approver); err != nil {
		return err
	}
	return nil
}

func (e *Engine) displayName(ctx context.Context, identity string) (string, error) {
	if identity == "" {
		return "", nil
	}

	cacheKey := "directory:" + identity
	if cached, ok := e.cache.Get(cacheKey); ok {
		if name, ok := cached.(string); ok {
			return name, nil
		}
	}

	name, err := e.directory.LookupDisplayName(ctx, identity)
	if err != nil {
		return "", err
	}

	var resolved string
	if name != nil {
		resolved = name.FirstName + " " + name.LastName
	} else {
		resolved = HeuristicDisplayName(identity)
	}
	e.cache.Set(cacheKey, resolved, e.cfg.OrderTotalTTL)
	return resolved, nil
}

// crossDivisionTotal sums ledger amounts sharing the order ID, cached
// briefly since batch mates hit the same order within one pass
func (e *Engine) crossDivisionTotal(ctx context.Context, orderID string) (decimal.Decimal, error) {
	cacheKey := "order-total:" + orderID
	if cached, ok := e.cache.Get(cacheKey); ok {
		if total, ok := cached.(decimal.Decimal); ok {
			return total, nil
		}
	}

	siblings, err := e.ledger.FindByOrderID(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, sibling := range siblings {
		total = total.Add(sibling.Amount)
	}
	e.cache.Set(cacheKey, total, e.cfg.OrderTotalTTL)
	return total, nil
}

// validate applies the enrichment limits: amount range, description length
// and the line-item cap. Violations degrade with warnings; nothing here
// rejects a transaction.
func (e *Engine) validate(enriched *entity.EnrichedTransaction) {
	if enriched.Amount.IsNegative() || enriched.Amount.GreaterThan(e.cfg.MaxAmount) {
		enriched.Warn(fmt.Sprintf("amount %s outside accepted range (0..%s)",
			entity.FormatMoney(enriched.Amount), entity.FormatMoney(e.cfg.MaxAmount)))
	}

	// Truncate on rune boundaries; descriptions carry accented names
	if runes := []rune(enriched.Description); len(runes) > e.cfg.MaxDescriptionLength {
		enriched.Description = string(runes[:e.cfg.MaxDescriptionLength])
		enriched.Warn("description truncated")
	}

	if len(enriched.LineItems) > e.cfg.MaxLineItems {
		dropped := len(enriched.LineItems) - e.cfg.MaxLineItems
		enriched.LineItems = enriched.LineItems[:e.cfg.MaxLineItems]
		enriched.Warn(fmt.Sprintf("%d line items beyond cap dropped", dropped))
		e.logger.Warn("Dropped line items beyond cap", map[string]any{
			"transaction_id": enriched.TransactionID,
			"dropped":        dropped,
			"cap":            e.cfg.MaxLineItems,
		})
	}
}
