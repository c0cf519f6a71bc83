package db

import (
	"encoding/json"
	"time"
)

// ErrNotFound is returned when a lookup matches nothing the caller owns.
var ErrNotFound = notFoundError("not found")

type notFoundError string

func (e notFoundError) Error() string { return string(e) }

// Report status vocabulary maintained by the server. Fallback records the
// widget writes locally use their own single "pending" status; the two sets
// are deliberately never merged.
var ValidStatuses = []string{"open", "in-progress", "resolved", "closed"}

// ValidStatus reports whether s belongs to the server vocabulary.
func ValidStatus(s string) bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	APIKey       string    `json:"apiKey"`
	Plan         string    `json:"plan"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Project struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Domain    string    `json:"domain,omitempty"`
	APIKey    string    `json:"api_key"`
	Settings  string    `json:"settings,omitempty"` // JSON object
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is the stored heuristic analysis of one report.
type Analysis struct {
	Area           string  `json:"area"`
	Category       string  `json:"category"`
	EstimatedHours int     `json:"estimatedHours"`
	Confidence     float64 `json:"confidence"`
	Summary        string  `json:"summary"`
}

type BugReport struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	ProjectName string          `json:"project_name,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    string          `json:"severity"`
	Status      string          `json:"status"`
	Screenshot  string          `json:"screenshot,omitempty"`
	Environment json.RawMessage `json:"environment,omitempty"`
	UserEmail   string          `json:"user_email,omitempty"`
	UserAgent   string          `json:"user_agent,omitempty"`
	URL         string          `json:"url,omitempty"`
	Steps       []string        `json:"steps"`
	Tags        []string        `json:"tags"`
	Analysis    *Analysis       `json:"aiAnalysis,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ReportFilter narrows a report listing. Zero values mean "no filter";
// Limit falls back to 50.
type ReportFilter struct {
	ProjectID string
	Status    string
	Severity  string
	Limit     int
	Offset    int
}

// Stats aggregates a user's reports for the dashboard.
type Stats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"byStatus"`
	BySeverity map[string]int `json:"bySeverity"`
}

// DayCount is one point of the reports-over-time series.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AnalyticsEvent is one tracked product event.
type AnalyticsEvent struct {
	ID        string          `json:"id"`
	ProjectID string          `json:"project_id"`
	EventType string          `json:"event_type"`
	EventData json.RawMessage `json:"event_data,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
