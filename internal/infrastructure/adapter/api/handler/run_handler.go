package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/usecase/pipeline"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/infrastructure/adapter/api/dto"
)

// ReportExporter writes a run report artifact and returns its path
type ReportExporter interface {
	Export(report *pipeline.RunReport) (string, error)
}

// RunHandler exposes the pipeline over HTTP. One run at a time per
// instance; concurrency safety across instances lives in the allocator, not
// here.
type RunHandler struct {
	runner   *pipeline.Runner
	exporter ReportExporter
	logger   core.Logger

	mu         sync.Mutex
	running    bool
	latest     *pipeline.RunReport
	latestPath string
}

// NewRunHandler creates a run handler
func NewRunHandler(runner *pipeline.Runner, exporter ReportExporter, logger core.Logger) *RunHandler {
	return &RunHandler{
		runner:   runner,
		exporter: exporter,
		logger:   logger,
	}
}

// TriggerRun handles POST /api/v1/runs. The run executes in the background;
// poll the latest-report endpoint for the outcome.
func (h *RunHandler) TriggerRun(c *gin.Context) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		c.JSON(http.StatusConflict, dto.ErrorResponse{
			Code:    errs.ErrorCode(errs.ErrLockContention),
			Message: "A pipeline run is already in progress",
		})
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.execute()

	c.JSON(http.StatusAccepted, dto.RunAcceptedResponse{Status: "started"})
}

// LatestReport handles GET /api/v1/runs/latest
func (h *RunHandler) LatestReport(c *gin.Context) {
	h.mu.Lock()
	report := h.latest
	path := h.latestPath
	h.mu.Unlock()

	if report == nil {
		c.JSON(http.StatusNotFound, dto.ErrorResponse{
			Code:    errs.ErrorCode(errs.ErrNotFound),
			Message: "No pipeline run has completed yet",
		})
		return
	}
	c.JSON(http.StatusOK, toReportResponse(report, path))
}

// execute runs the pipeline off the request goroutine and records the
// outcome for LatestReport
func (h *RunHandler) execute() {
	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	report, err := h.runner.Run(context.Background())
	if err != nil {
		h.logger.Error("Pipeline run failed", map[string]any{"error": err.Error()})
	}
	if report == nil {
		return
	}

	path := ""
	if h.exporter != nil {
		exported, exportErr := h.exporter.Export(report)
		if exportErr != nil {
			h.logger.Error("Run report export failed", map[string]any{
				"run_id": report.RunID,
				"error":  exportErr.Error(),
			})
		} else {
			path = exported
		}
	}

	h.mu.Lock()
	h.latest = report
	h.latestPath = path
	h.mu.Unlock()
}

func toReportResponse(report *pipeline.RunReport, path string) dto.RunReportResponse {
	invoices := make([]dto.InvoiceSummary, 0, len(report.Invoices))
	for _, invoice := range report.Invoices {
		invoices = append(invoices, dto.InvoiceSummary{
			InvoiceID:    invoice.InvoiceID,
			URL:          invoice.URL,
			Template:     invoice.Template,
			Transactions: invoice.Transactions,
			TotalAmount:  invoice.TotalAmount,
		})
	}
	failures := make([]dto.FailureSummary, 0, len(report.Failures))
	for _, failure := range report.Failures {
		failures = append(failures, dto.FailureSummary{
			TransactionID: failure.TransactionID,
			Error:         failure.Err.Error(),
		})
	}
	return dto.RunReportResponse{
		RunID:            report.RunID,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
		TransactionsRead: report.TransactionsRead,
		Invoices:         invoices,
		Failures:         failures,
		SweptClaims:      report.SweptClaims,
		Aborted:          report.Aborted,
		AbortError:       report.AbortError,
		ReportPath:       path,
	}
}
