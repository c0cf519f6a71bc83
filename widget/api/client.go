// Package api submits bug reports to the BugSpot backend, falling back to
// the local store when the server is unreachable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"

	"bugspot/widget/report"
	"bugspot/widget/store"
)

// SubmitPath is the backend submission endpoint.
const SubmitPath = "/api/bug-reports/submit"

// DefaultTimeout bounds one network submission attempt.
const DefaultTimeout = 10 * time.Second

// Client implements report.Repository against the HTTP API. On transient
// failures it writes the report into the local fallback store instead of
// losing it; client errors (bad input, bad key) are surfaced as failures
// and deliberately never fall back, so an invalid submission is not
// silently "saved" as if it succeeded.
type Client struct {
	apiURL   string
	apiKey   string
	http     *http.Client
	fallback *store.Store
	timeout  time.Duration
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout overrides the per-attempt bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithClock overrides the time source used for local ids and stamps.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient builds a submission client. fallback may be nil, in which case
// transient failures surface as failures instead of pending records.
func NewClient(apiURL, apiKey string, fallback *store.Store, opts ...Option) *Client {
	c := &Client{
		apiURL:   strings.TrimRight(apiURL, "/"),
		apiKey:   apiKey,
		http:     &http.Client{},
		fallback: fallback,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitResponse struct {
	ID any `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Submit records the report, favoring the server but tolerating its
// unavailability. The outcome is exclusive per attempt: a server id, a
// local pending record, or an explicit failure - never more than one.
func (c *Client) Submit(ctx context.Context, r *report.BugReport) report.SubmitResult {
	if strings.TrimSpace(r.Title) == "" {
		return report.Failure("Title is required")
	}
	if strings.TrimSpace(r.Description) == "" {
		return report.Failure("Description is required")
	}
	if c.apiKey == "" {
		return report.Failure("API key is required")
	}

	result, transientErr := c.post(ctx, r)
	if transientErr == nil {
		return result
	}

	log.Warnf("API submission failed, falling back to local store: %v", transientErr)
	return c.saveLocally(r)
}

// post performs the single network attempt. A non-nil error means the
// failure is transient (connectivity, timeout, server-side) and the caller
// should fall back; definitive outcomes come back as a result.
func (c *Client) post(ctx context.Context, r *report.BugReport) (report.SubmitResult, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return report.Failure("failed to encode report: %v", err), nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+SubmitPath, bytes.NewReader(body))
	if err != nil {
		return report.Failure("failed to build request: %v", err), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return report.SubmitResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var sr submitResponse
		if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil || sr.ID == nil {
			// The server accepted the report; a local fallback now would
			// duplicate it. Surface the bad body instead.
			return report.Failure("server accepted the report but returned an unreadable response"), nil
		}
		return report.Accepted(formatID(sr.ID)), nil
	}

	message := fmt.Sprintf("API error: %d", resp.StatusCode)
	var er errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
		message = er.Error
	}

	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		// The request itself is bad; retrying elsewhere would hide a real
		// problem from the user.
		return report.Failure("%s", message), nil
	}
	return report.SubmitResult{}, fmt.Errorf("%s", message)
}

func (c *Client) saveLocally(r *report.BugReport) report.SubmitResult {
	if c.fallback == nil {
		return report.Failure("server unreachable and no local store configured")
	}

	now := c.now()
	rec := store.FallbackReport{
		BugReport: *r,
		Timestamp: now.UTC().Format(time.RFC3339),
		Status:    store.StatusPending,
	}
	rec.ID = fmt.Sprintf("local_%d", now.UnixMilli())

	if err := c.fallback.Append(rec); err != nil {
		log.Errorf("Local fallback write failed: %v", err)
		return report.Failure("Failed to save report locally")
	}
	return report.Accepted(rec.ID)
}

// formatID renders the server-issued identifier, which may arrive as a
// string or a number depending on the backing database.
func formatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%d", int64(v))
	default:
		return fmt.Sprintf("%v", v)
	}
}
