package dto

import "time"

// RunAcceptedResponse acknowledges a triggered pipeline run
type RunAcceptedResponse struct {
	Status string `json:"status"`
}

// InvoiceSummary is one invoice in a run report response
type InvoiceSummary struct {
	InvoiceID    string   `json:"invoiceId"`
	URL          string   `json:"url"`
	Template     string   `json:"template"`
	Transactions []string `json:"transactions"`
	TotalAmount  string   `json:"totalAmount"`
}

// FailureSummary is one failed transaction in a run report response
type FailureSummary struct {
	TransactionID string `json:"transactionId"`
	Error         string `json:"error"`
}

// RunReportResponse is the API shape of a pipeline run report
type RunReportResponse struct {
	RunID            string           `json:"runId"`
	StartedAt        time.Time        `json:"startedAt"`
	FinishedAt       time.Time        `json:"finishedAt"`
	TransactionsRead int              `json:"transactionsRead"`
	Invoices         []InvoiceSummary `json:"invoices"`
	Failures         []FailureSummary `json:"failures"`
	SweptClaims      int              `json:"sweptClaims"`
	Aborted          bool             `json:"aborted"`
	AbortError       string           `json:"abortError,omitempty"`
	ReportPath       string           `json:"reportPath,omitempty"`
}
