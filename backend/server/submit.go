package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bugspot/backend/auth"
	"bugspot/backend/db"
	"bugspot/backend/middleware"
	"bugspot/backend/server/api"
)

const (
	maxTitleLen       = 500
	maxDescriptionLen = 10000
	maxScreenshotSize = 1024 * 1024
)

var (
	validSeverities = []string{"low", "medium", "high", "critical"}
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func (h *Handlers) SubmitReport(c *gin.Context) {
	var args api.SubmitReportArgs
	if err := c.BindJSON(&args); err != nil {
		log.Errorf("Failed to get the argument in %s call: %v", EndPointSubmitReport, err)
		return
	}

	if msg := validateSubmission(&args); msg != "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: msg})
		return
	}

	project, err := h.submissionProject(c)
	if err != nil {
		log.Errorf("Failed to resolve project for submission: %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch projects"})
		return
	}

	now := time.Now().UTC()
	report := &db.BugReport{
		ID:          uuid.NewString(),
		ProjectID:   project.ID,
		Title:       strings.TrimSpace(args.Title),
		Description: strings.TrimSpace(args.Description),
		Severity:    args.Severity,
		Status:      "open",
		Screenshot:  args.Screenshot,
		Environment: args.Environment,
		UserEmail:   strings.TrimSpace(args.UserEmail),
		UserAgent:   args.UserAgent,
		URL:         args.URL,
		Steps:       args.Steps,
		Tags:        args.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if report.Severity == "" {
		report.Severity = "medium"
	}

	if err := h.store.SaveReport(c.Request.Context(), report); err != nil {
		log.Errorf("Failed to write report with %v", err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to save the report."})
		return
	}

	// Everything past this point is best effort and must not delay or fail
	// the response.
	h.trackSubmission(report)
	go h.analyzeReport(report)
	h.publishReport(report)
	h.broadcastReport(report, project.Name)
	if report.Severity == "critical" {
		go h.notifyOwner(project, report)
	}

	c.JSON(http.StatusCreated, api.SubmitReportResponse{
		Message: "Bug report submitted successfully",
		ID:      report.ID,
	})
}

// submissionProject returns the project the report belongs to. Widget calls
// carry a project resolved from the API key; dashboard calls carry a user
// token and fall back to the user's first project, creating one if needed.
func (h *Handlers) submissionProject(c *gin.Context) (*db.Project, error) {
	if project := middleware.Project(c); project != nil {
		return project, nil
	}

	userID := middleware.UserID(c)
	ctx := c.Request.Context()

	project, err := h.store.FirstProjectForUser(ctx, userID)
	if err == nil {
		return project, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	log.Infof("No project found for user %s, creating default project", userID)
	project = &db.Project{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      "Default Project",
		APIKey:    auth.NewAPIKey(),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateProject(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func validateSubmission(args *api.SubmitReportArgs) string {
	title := strings.TrimSpace(args.Title)
	if title == "" {
		return "Title is required and must be a non-empty string"
	}
	if len(title) > maxTitleLen {
		return fmt.Sprintf("Title must be less than %d characters", maxTitleLen)
	}

	description := strings.TrimSpace(args.Description)
	if description == "" {
		return "Description is required and must be a non-empty string"
	}
	if len(description) > maxDescriptionLen {
		return fmt.Sprintf("Description must be less than %d characters", maxDescriptionLen)
	}

	if args.Severity != "" && !contains(validSeverities, args.Severity) {
		return "Severity must be one of: " + strings.Join(validSeverities, ", ")
	}

	if email := strings.TrimSpace(args.UserEmail); email != "" && !emailPattern.MatchString(email) {
		return "Invalid email format"
	}

	// Base64 expands by 4/3, so this approximates the decoded size.
	if len(args.Screenshot)*3/4 > maxScreenshotSize {
		return "Screenshot size exceeds 1MB limit"
	}

	return ""
}

func (h *Handlers) trackSubmission(report *db.BugReport) {
	data, _ := json.Marshal(map[string]any{
		"severity":      report.Severity,
		"hasScreenshot": report.Screenshot != "",
	})
	err := h.store.TrackEvent(context.Background(), &db.AnalyticsEvent{
		ID:        uuid.NewString(),
		ProjectID: report.ProjectID,
		EventType: "bug_report_submitted",
		EventData: data,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		log.Warnf("Analytics tracking failed (non-critical): %v", err)
	}
}

func (h *Handlers) analyzeReport(report *db.BugReport) {
	if !h.cfg.AnalysisEnabled || h.analyzer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := h.analyzer.Analyze(ctx, report)
	if err != nil {
		log.Errorf("Report analysis error (non-critical): %v", err)
		return
	}
	if result == nil {
		return
	}
	if err := h.store.SaveAnalysis(ctx, report.ID, *result); err != nil {
		log.Errorf("Failed to store analysis for report %s: %v", report.ID, err)
	}
}

func (h *Handlers) publishReport(report *db.BugReport) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.Publish(report); err != nil {
		log.Errorf("Failed to publish report %s: %v", report.ID, err)
	}
}

func (h *Handlers) broadcastReport(report *db.BugReport, projectName string) {
	if h.hub == nil {
		return
	}
	cp := *report
	cp.ProjectName = projectName
	h.hub.BroadcastReport(&cp)
}

func (h *Handlers) notifyOwner(project *db.Project, report *db.BugReport) {
	if h.notifier == nil {
		return
	}
	owner, err := h.store.GetUserByID(context.Background(), project.UserID)
	if err != nil {
		log.Warnf("Cannot resolve owner of project %s for notification: %v", project.ID, err)
		return
	}
	h.notifier.NotifyCriticalReport(owner.Email, report)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
