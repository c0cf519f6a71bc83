// Package api holds the request and response shapes of the HTTP endpoints.
package api

import (
	"encoding/json"

	"bugspot/backend/db"
)

type RegisterArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string   `json:"token"`
	User  *db.User `json:"user"`
}

type SubmitReportArgs struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    string          `json:"severity"`
	Screenshot  string          `json:"screenshot"`
	Environment json.RawMessage `json:"environment"`
	UserEmail   string          `json:"userEmail"`
	UserAgent   string          `json:"userAgent"`
	URL         string          `json:"url"`
	Steps       []string        `json:"steps"`
	Tags        []string        `json:"tags"`
}

type SubmitReportResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type StatusUpdateArgs struct {
	Status string `json:"status"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// WidgetConfig is the public configuration handed to an embedded widget.
type WidgetConfig struct {
	ProjectID   string         `json:"projectId"`
	ProjectName string         `json:"projectName"`
	Settings    WidgetSettings `json:"settings"`
}

type WidgetSettings struct {
	Position         string `json:"position"`
	PrimaryColor     string `json:"primaryColor"`
	EnableScreenshot bool   `json:"enableScreenshot"`
	ShowPreview      bool   `json:"showPreview"`
}

// DashboardResponse aggregates everything the dashboard landing page shows.
type DashboardResponse struct {
	TotalReports      int            `json:"totalReports"`
	ReportsByStatus   map[string]int `json:"reportsByStatus"`
	ReportsBySeverity map[string]int `json:"reportsBySeverity"`
	ReportsOverTime   []db.DayCount  `json:"reportsOverTime"`
	RecentReports     []db.BugReport `json:"recentReports"`
}
