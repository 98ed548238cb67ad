package assemble

import (
	"context"
	"fmt"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/entity"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/persistence"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/route"
)

// templates by form type; the batch template only applies to multi-member
// batches of a batchable form
var singleTemplates = map[entity.FormType]string{
	entity.FormAmazon:     "vendor-single",
	entity.FormWarehouse:  "vendor-single",
	entity.FormAdmin:      "admin",
	entity.FormFieldTrip:  "field-trip",
	entity.FormCurriculum: "curriculum",
	entity.FormOther:      "generic",
}

const batchTemplate = "vendor-batch"

// Assembler turns an allocated batch into the render-ready invoice
// structure, hands it to the external renderer, and files the resulting URL
// back onto each member's ledger row. Rendering and storage stay behind the
// Renderer port; this package never sees the document format.
type Assembler struct {
	ledger       persistence.LedgerStore
	renderer     usecase.Renderer
	timeProvider core.TimeProvider
	logger       core.Logger
}

// NewAssembler creates an invoice assembler
func NewAssembler(
	ledger persistence.LedgerStore,
	renderer usecase.Renderer,
	timeProvider core.TimeProvider,
	logger core.Logger,
) *Assembler {
	return &Assembler{
		ledger:       ledger,
		renderer:     renderer,
		timeProvider: timeProvider,
		logger:       logger,
	}
}

// Build constructs the render-ready invoice for a batch and its allocated
// ID. Line items concatenate in member order with source slot numbers
// intact, so the document reads in the same order the forms were filled in.
func (a *Assembler) Build(batch *route.Batch, invoiceID entity.InvoiceID) *usecase.Invoice {
	first := batch.Members[0]

	invoice := &usecase.Invoice{
		InvoiceID:     invoiceID.String(),
		Template:      a.templateFor(batch),
		Division:      batch.Key.Division,
		FormType:      batch.Key.FormType,
		IssuedOn:      a.timeProvider.Now(),
		RequestorName: first.RequestorName,
		ApproverName:  first.ApproverName,
		Metadata:      map[string]string{},
	}

	for _, member := range batch.Members {
		invoice.Transactions = append(invoice.Transactions, member.TransactionID)
		invoice.LineItems = append(invoice.LineItems, member.LineItems...)
		for key, value := range member.AdditionalInfo {
			invoice.Metadata[key] = value
		}
	}
	if batch.Key.OrderID != "" {
		invoice.Metadata["orderId"] = batch.Key.OrderID
		invoice.Metadata["crossDivisionTotal"] = entity.FormatMoney(first.CrossDivisionTotal)
	}

	invoice.TotalAmount = entity.FormatMoney(entity.SumLineItems(invoice.LineItems))
	return invoice
}

// Finalize renders the invoice and marks every member transaction invoiced.
// Members that already carry an invoice marker are skipped, keeping the
// at-most-once invoicing invariant even if a previous run died between
// rendering and write-back.
func (a *Assembler) Finalize(ctx context.Context, batch *route.Batch, invoice *usecase.Invoice) (string, error) {
	url, err := a.renderer.Render(ctx, invoice)
	if err != nil {
		return "", fmt.Errorf("rendering invoice %s: %w", invoice.InvoiceID, err)
	}

	for _, member := range batch.Members {
		if member.Invoiced() {
			a.logger.Warn("Skipping write-back for already invoiced transaction", map[string]any{
				"transaction_id": member.TransactionID,
				"invoice_id":     member.InvoiceID,
			})
			continue
		}
		if err := a.ledger.MarkInvoiced(ctx, member.TransactionID, invoice.InvoiceID, url); err != nil {
			return url, fmt.Errorf("marking transaction %s invoiced: %w", member.TransactionID, err)
		}
		member.InvoiceGenerated = a.timeProvider.Now().Format("2006-01-02 15:04:05")
		member.InvoiceID = invoice.InvoiceID
		member.InvoiceURL = url
	}

	a.logger.Info("Invoice assembled and filed", map[string]any{
		"invoice_id":   invoice.InvoiceID,
		"template":     invoice.Template,
		"transactions": len(batch.Members),
		"total":        invoice.TotalAmount,
	})
	return url, nil
}

// templateFor picks the render template for a batch
func (a *Assembler) templateFor(batch *route.Batch) string {
	if len(batch.Members) > 1 && batch.Key.FormType.IsBatchable() {
		return batchTemplate
	}
	if template, ok := singleTemplates[batch.Key.FormType]; ok {
		return template
	}
	return singleTemplates[entity.FormOther]
}
