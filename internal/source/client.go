// Package source fetches violation case records from the external
// authoritative dataset: a paginated, filterable tabular HTTP API queried
// once per client name variant.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Record is one violation case row as published by the source dataset.
// Monetary amounts arrive as strings and are normalized downstream.
type Record struct {
	TicketNumber        string `json:"ticket_number"`
	RespondentFirstName string `json:"respondent_first_name"`
	RespondentLastName  string `json:"respondent_last_name"`
	Status              string `json:"status"`
	HearingDate         string `json:"hearing_date"`
	HearingTime         string `json:"hearing_time"`
	HearingResult       string `json:"hearing_result"`
	Violation           string `json:"charge_description"`
	ViolationDate       string `json:"violation_date"`
	ViolationLocation   string `json:"violation_location"`
	LicensePlate        string `json:"license_plate"`
	BaseFine            string `json:"base_fine_amount"`
	AmountDue           string `json:"amount_due"`
	AmountPaid          string `json:"paid_amount"`
	PenaltyImposed      string `json:"penalty_imposed"`
	DocumentLink        string `json:"document_link"`
	VideoLink           string `json:"video_link"`
}

// RespondentName joins the split name columns the way the source truncates
// business names: first-name remnant ahead of the last-name column.
func (r Record) RespondentName() string {
	return strings.TrimSpace(strings.TrimSpace(r.RespondentFirstName) + " " + strings.TrimSpace(r.RespondentLastName))
}

// ClientOptions configures the source API client.
type ClientOptions struct {
	BaseURL    string
	AppToken   string
	PageLimit  int
	Timeout    time.Duration
	MaxRetries int
	// RatePerSec bounds request rate against the source host.
	RatePerSec float64
}

// Client queries the source dataset over HTTP with retry and rate limiting.
type Client struct {
	http    *http.Client
	opts    ClientOptions
	limiter *rate.Limiter
}

// NewClient creates a source API client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.PageLimit == 0 {
		opts.PageLimit = 1000
	}
	if opts.RatePerSec == 0 {
		opts.RatePerSec = 5
	}
	return &Client{
		http:    &http.Client{Timeout: opts.Timeout},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSec), int(math.Max(1, opts.RatePerSec))),
	}
}

// QueryByName fetches records whose respondent name contains term, matched
// case-insensitively with a LIKE filter across both name columns.
func (c *Client) QueryByName(ctx context.Context, term string) ([]Record, error) {
	term = escapeTerm(term)
	where := fmt.Sprintf(
		"upper(respondent_last_name) like '%%%s%%' OR upper(respondent_first_name) like '%%%s%%'",
		term, term,
	)

	q := url.Values{}
	q.Set("$limit", fmt.Sprintf("%d", c.opts.PageLimit))
	q.Set("$where", where)

	return c.query(ctx, q)
}

// QueryRecent fetches the most recent records for a violation type without a
// name filter, ordered by violation date descending.
func (c *Client) QueryRecent(ctx context.Context, violationType string) ([]Record, error) {
	q := url.Values{}
	q.Set("$limit", fmt.Sprintf("%d", c.opts.PageLimit))
	q.Set("$order", "violation_date DESC")
	if violationType != "" {
		q.Set("$q", violationType)
	}

	return c.query(ctx, q)
}

func (c *Client) query(ctx context.Context, q url.Values) ([]Record, error) {
	reqURL := c.opts.BaseURL + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "source: create request")
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.AppToken != "" {
		req.Header.Set("X-App-Token", c.opts.AppToken)
	}

	resp, err := c.doWithRetry(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "source: query")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("source: unexpected status %d", resp.StatusCode)
	}

	var records []Record
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, eris.Wrap(err, "source: decode response")
	}
	return records, nil
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := range c.opts.MaxRetries {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			zap.L().Warn("source request failed, retrying",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, req.URL.String())
			zap.L().Warn("source server error, retrying",
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := time.Second
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > 15*time.Second {
		d = 15 * time.Second
	}
	d += time.Duration(rand.Int64N(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// escapeTerm uppercases a search term and doubles embedded single quotes so
// it is safe inside the LIKE literal.
func escapeTerm(term string) string {
	term = strings.ToUpper(strings.TrimSpace(term))
	return strings.ReplaceAll(term, "'", "''")
}
