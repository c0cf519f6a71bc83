package report

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Severity classifies how badly a bug affects the reporting user.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// DefaultSeverity is assumed when the caller does not pick one.
const DefaultSeverity = SeverityMedium

// ParseSeverity returns the severity for s, defaulting to medium for an
// empty string and rejecting anything outside the known set.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultSeverity, nil
	case SeverityLow:
		return SeverityLow, nil
	case SeverityMedium:
		return SeverityMedium, nil
	case SeverityHigh:
		return SeverityHigh, nil
	case SeverityCritical:
		return SeverityCritical, nil
	}
	return "", fmt.Errorf("unknown severity %q", s)
}

// Environment is a snapshot of the page environment captured once at
// submission time. It is never updated after the report is created.
type Environment struct {
	UserAgent string `json:"userAgent"`
	URL       string `json:"url"`
	Referrer  string `json:"referrer"`
	Viewport  string `json:"viewport"`
	Screen    string `json:"screen"`
	Timestamp string `json:"timestamp"`
	Language  string `json:"language"`
	Platform  string `json:"platform"`
}

// BugReport is a single user-submitted bug description with metadata.
// ID is empty at creation time; the server assigns one on a successful
// submission, the fallback store synthesizes a local one otherwise.
type BugReport struct {
	ID          string      `json:"id,omitempty"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Severity    Severity    `json:"severity"`
	Screenshot  string      `json:"screenshot,omitempty"`
	Environment Environment `json:"environment"`
	UserEmail   string      `json:"userEmail,omitempty"`
	UserAgent   string      `json:"userAgent"`
	URL         string      `json:"url"`
	Steps       []string    `json:"steps"`
	Tags        []string    `json:"tags"`
	CreatedAt   time.Time   `json:"createdAt,omitempty"`
}

// SubmitResult is the definite outcome of one submit attempt. The pipeline
// never lets an error escape past it; callers translate Success=false into
// a user-visible message.
type SubmitResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Failure builds a failed result with the given message.
func Failure(format string, args ...any) SubmitResult {
	return SubmitResult{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Accepted builds a successful result carrying the assigned id.
func Accepted(id string) SubmitResult {
	return SubmitResult{Success: true, ID: id}
}

// Repository durably records a bug report. Implementations are chosen at
// construction time: the API-backed client for production, the in-memory
// double for tests.
type Repository interface {
	Submit(ctx context.Context, r *BugReport) SubmitResult
}
