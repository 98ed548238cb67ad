package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/pipeline"
)

const (
	summarySheet  = "Summary"
	invoicesSheet = "Invoices"
	failuresSheet = "Failures"
)

// ReportExporter writes a run report workbook for the business office.
// One file per run, named by run ID.
type ReportExporter struct {
	directory string
	logger    core.Logger
}

// NewReportExporter creates a report exporter writing into the directory
func NewReportExporter(directory string, logger core.Logger) *ReportExporter {
	return &ReportExporter{directory: directory, logger: logger}
}

// Export writes the workbook and returns its path
func (e *ReportExporter) Export(report *pipeline.RunReport) (string, error) {
	if err := os.MkdirAll(e.directory, 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := e.writeSummary(f, report); err != nil {
		return "", err
	}
	if err := e.writeInvoices(f, report); err != nil {
		return "", err
	}
	if err := e.writeFailures(f, report); err != nil {
		return "", err
	}

	// The default sheet became Summary; make it the visible one
	index, err := f.GetSheetIndex(summarySheet)
	if err == nil && index >= 0 {
		f.SetActiveSheet(index)
	}

	path := filepath.Join(e.directory, fmt.Sprintf("run-%s.xlsx", report.RunID))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("saving report workbook: %w", err)
	}

	e.logger.Info("Run report exported", map[string]any{
		"run_id": report.RunID,
		"path":   path,
	})
	return path, nil
}

func (e *ReportExporter) writeSummary(f *excelize.File, report *pipeline.RunReport) error {
	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("renaming summary sheet: %w", err)
	}

	outcome := "completed"
	if report.Aborted {
		outcome = "aborted"
	}
	rows := [][]any{
		{"Run ID", report.RunID},
		{"Started", report.StartedAt.Format("2006-01-02 15:04:05")},
		{"Finished", report.FinishedAt.Format("2006-01-02 15:04:05")},
		{"Outcome", outcome},
		{"Transactions read", report.TransactionsRead},
		{"Invoices generated", len(report.Invoices)},
		{"Transactions failed", len(report.Failures)},
		{"Expired claims swept", report.SweptClaims},
	}
	if report.Aborted {
		rows = append(rows, []any{"Abort reason", report.AbortError})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing summary row: %w", err)
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("writing summary row: %w", err)
		}
	}
	return nil
}

func (e *ReportExporter) writeInvoices(f *excelize.File, report *pipeline.RunReport) error {
	if _, err := f.NewSheet(invoicesSheet); err != nil {
		return fmt.Errorf("creating invoices sheet: %w", err)
	}

	header := []any{"Invoice ID", "Template", "Total", "Transactions", "Document URL"}
	if err := f.SetSheetRow(invoicesSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing invoices header: %w", err)
	}
	for i, invoice := range report.Invoices {
		row := []any{
			invoice.InvoiceID,
			invoice.Template,
			invoice.TotalAmount,
			strings.Join(invoice.Transactions, ", "),
			invoice.URL,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing invoice row: %w", err)
		}
		if err := f.SetSheetRow(invoicesSheet, cell, &row); err != nil {
			return fmt.Errorf("writing invoice row: %w", err)
		}
	}
	return nil
}

func (e *ReportExporter) writeFailures(f *excelize.File, report *pipeline.RunReport) error {
	if _, err := f.NewSheet(failuresSheet); err != nil {
		return fmt.Errorf("creating failures sheet: %w", err)
	}

	header := []any{"Transaction ID", "Error"}
	if err := f.SetSheetRow(failuresSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing failures header: %w", err)
	}
	for i, failure := range report.Failures {
		row := []any{failure.TransactionID, failure.Err.Error()}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing failure row: %w", err)
		}
		if err := f.SetSheetRow(failuresSheet, cell, &row); err != nil {
			return fmt.Errorf("writing failure row: %w", err)
		}
	}
	return nil
}
