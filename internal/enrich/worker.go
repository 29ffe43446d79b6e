package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Request is the invocation payload sent to the enrichment worker.
type Request struct {
	RecordID      string `json:"record_id"`
	TicketNumber  string `json:"ticket_number"`
	DocumentLink  string `json:"document_link"`
	VideoLink     string `json:"video_link"`
	ViolationDate string `json:"violation_date"`
	HealingMode   bool   `json:"healing_mode"`
}

// Result is the worker's structured outcome. Exactly one of HasOCRData,
// Skipped, or a non-empty Error is expected.
type Result struct {
	HasOCRData bool   `json:"hasOCRData"`
	Skipped    bool   `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// Worker invokes text extraction for one case record.
type Worker interface {
	Enrich(ctx context.Context, req Request) (*Result, error)
}

// HTTPWorker calls the external OCR worker over HTTP.
type HTTPWorker struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPWorker builds a worker client for the given base URL.
func NewHTTPWorker(baseURL string, timeout time.Duration) *HTTPWorker {
	return &HTTPWorker{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (w *HTTPWorker) Enrich(ctx context.Context, r Request) (*Result, error) {
	if w.Client == nil {
		w.Client = &http.Client{Timeout: 60 * time.Second}
	}

	body, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: marshal worker request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.BaseURL+"/enrich", bytes.NewBuffer(body))
	if err != nil {
		return nil, eris.Wrap(err, "enrich: build worker request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: call worker for %s", r.TicketNumber)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("enrich: worker returned %d for %s: %s",
			resp.StatusCode, r.TicketNumber, string(snippet))
	}

	var res Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, eris.Wrapf(err, "enrich: decode worker response for %s", r.TicketNumber)
	}
	return &res, nil
}
