package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	errs "github.com/meadowbrook-ops/invoice-pipeline/internal/domain/error"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/core"
	"github.com/meadowbrook-ops/invoice-pipeline/internal/domain/port/usecase"
)

// HTTPRenderer implements the Renderer port against the document render
// service. The service fills the named template, stores the document, and
// answers with its storage URL.
type HTTPRenderer struct {
	baseURL string
	client  *http.Client
	logger  core.Logger
}

// NewHTTPRenderer creates a renderer client
func NewHTTPRenderer(baseURL string, timeout time.Duration, logger core.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type renderRequest struct {
	Template string           `json:"template"`
	Invoice  *usecase.Invoice `json:"invoice"`
}

type renderResponse struct {
	URL string `json:"url"`
}

// Render submits the invoice for document generation and returns the
// storage URL of the rendered document.
func (r *HTTPRenderer) Render(ctx context.Context, invoice *usecase.Invoice) (string, error) {
	payload, err := json.Marshal(renderRequest{
		Template: invoice.Template,
		Invoice:  invoice,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding render request for %s: %s", errs.ErrInternal, invoice.InvoiceID, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: building render request: %s", errs.ErrInternal, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: calling render service: %s", errs.ErrStoreUnavailable, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading render response: %s", errs.ErrStoreUnavailable, err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		r.logger.Error("Render service rejected invoice", map[string]any{
			"invoice_id": invoice.InvoiceID,
			"status":     resp.StatusCode,
			"body":       string(body),
		})
		return "", fmt.Errorf("%w: render service returned %d", errs.ErrStoreUnavailable, resp.StatusCode)
	}

	var decoded renderResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("%w: decoding render response: %s", errs.ErrStoreUnavailable, err.Error())
	}
	if decoded.URL == "" {
		return "", fmt.Errorf("%w: render service returned no document URL", errs.ErrStoreUnavailable)
	}
	return decoded.URL, nil
}
