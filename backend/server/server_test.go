package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugspot/backend/analysis"
	"bugspot/backend/auth"
	"bugspot/backend/config"
	"bugspot/backend/db"
	"bugspot/backend/middleware"
	"bugspot/backend/server/api"
	"bugspot/backend/websocket"
)

type fixture struct {
	router  *gin.Engine
	h       *Handlers
	store   *db.MemoryService
	authSvc *auth.Service
	token   string
	user    *db.User
	project *db.Project
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := db.NewMemoryService()
	authSvc := auth.NewService(store, "test-secret")
	hub := websocket.NewHub()
	go hub.Run()

	cfg := &config.Config{Port: "0", AnalysisEnabled: true}
	h := NewHandlers(cfg, store, authSvc, analysis.NewHeuristic(), hub, nil, nil)

	user, token, err := authSvc.Register(context.Background(), "owner@test.io", "hunter2hunter2")
	require.NoError(t, err)
	project, err := store.FirstProjectForUser(context.Background(), user.ID)
	require.NoError(t, err)

	return &fixture{
		router:  h.NewRouter(),
		h:       h,
		store:   store,
		authSvc: authSvc,
		token:   token,
		user:    user,
		project: project,
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) withToken(req *http.Request) { req.Header.Set("Authorization", "Bearer "+f.token) }
func (f *fixture) withAPIKey(req *http.Request) {
	req.Header.Set(middleware.APIKeyHeader, f.project.APIKey)
}

func submitArgs() api.SubmitReportArgs {
	return api.SubmitReportArgs{
		Title:       "Broken login",
		Description: "The submit button does nothing",
		Severity:    "high",
		UserAgent:   "Mozilla/5.0",
		URL:         "https://app.test/login",
		Steps:       []string{"open login page", "click submit"},
	}
}

func TestSubmitReportWithAPIKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), f.withAPIKey)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp api.SubmitReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Bug report submitted successfully", resp.Message)
	assert.NotEmpty(t, resp.ID)

	report, err := f.store.GetReport(context.Background(), f.user.ID, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "Broken login", report.Title)
	assert.Equal(t, "open", report.Status)
	assert.Equal(t, f.project.ID, report.ProjectID)

	events := f.store.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "bug_report_submitted", events[0].EventType)
}

func TestSubmitReportWithToken(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), f.withToken)
	require.Equal(t, http.StatusCreated, w.Code)

	reports, err := f.store.GetReports(context.Background(), f.user.ID, db.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, f.project.ID, reports[0].ProjectID)
}

func TestSubmitReportRequiresCredential(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), func(req *http.Request) {
		req.Header.Set(middleware.APIKeyHeader, "bs_wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid API key")
}

func TestSubmitReportValidation(t *testing.T) {
	f := newFixture(t)

	testCases := []struct {
		name    string
		mutate  func(*api.SubmitReportArgs)
		message string
	}{
		{
			name:    "missing title",
			mutate:  func(a *api.SubmitReportArgs) { a.Title = "  " },
			message: "Title is required",
		},
		{
			name:    "missing description",
			mutate:  func(a *api.SubmitReportArgs) { a.Description = "" },
			message: "Description is required",
		},
		{
			name:    "title too long",
			mutate:  func(a *api.SubmitReportArgs) { a.Title = strings.Repeat("x", 501) },
			message: "Title must be less than 500 characters",
		},
		{
			name:    "description too long",
			mutate:  func(a *api.SubmitReportArgs) { a.Description = strings.Repeat("x", 10001) },
			message: "Description must be less than 10000 characters",
		},
		{
			name:    "unknown severity",
			mutate:  func(a *api.SubmitReportArgs) { a.Severity = "urgent" },
			message: "Severity must be one of",
		},
		{
			name:    "bad email",
			mutate:  func(a *api.SubmitReportArgs) { a.UserEmail = "not-an-email" },
			message: "Invalid email format",
		},
		{
			name:    "oversized screenshot",
			mutate:  func(a *api.SubmitReportArgs) { a.Screenshot = strings.Repeat("A", 1400*1024) },
			message: "Screenshot size exceeds 1MB limit",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			args := submitArgs()
			tc.mutate(&args)
			w := f.do(t, http.MethodPost, EndPointSubmitReport, args, f.withAPIKey)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tc.message)
		})
	}

	reports, err := f.store.GetReports(context.Background(), f.user.ID, db.ReportFilter{})
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestSubmitReportDefaultsSeverity(t *testing.T) {
	f := newFixture(t)

	args := submitArgs()
	args.Severity = ""
	w := f.do(t, http.MethodPost, EndPointSubmitReport, args, f.withAPIKey)
	require.Equal(t, http.StatusCreated, w.Code)

	reports, err := f.store.GetReports(context.Background(), f.user.ID, db.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "medium", reports[0].Severity)
}

func TestAnalyzeReportStoresResult(t *testing.T) {
	f := newFixture(t)

	report := &db.BugReport{
		ID:          "r-1",
		ProjectID:   f.project.ID,
		Title:       "Cannot login",
		Description: "Password rejected",
		Severity:    "high",
		Status:      "open",
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, f.store.SaveReport(context.Background(), report))

	f.h.analyzeReport(report)

	stored, err := f.store.GetReport(context.Background(), f.user.ID, "r-1")
	require.NoError(t, err)
	require.NotNil(t, stored.Analysis)
	assert.Equal(t, "auth", stored.Analysis.Category)
	assert.Equal(t, 4, stored.Analysis.EstimatedHours)
}

func TestReportLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), f.withAPIKey)
	require.Equal(t, http.StatusCreated, w.Code)
	var created api.SubmitReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// List
	w = f.do(t, http.MethodGet, EndPointReports, nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []db.BugReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Default Project", listed[0].ProjectName)

	// Read
	w = f.do(t, http.MethodGet, "/api/bug-reports/"+created.ID, nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	// Update status
	w = f.do(t, http.MethodPut, "/api/bug-reports/"+created.ID+"/status",
		api.StatusUpdateArgs{Status: "resolved"}, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	report, err := f.store.GetReport(context.Background(), f.user.ID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "resolved", report.Status)

	// Invalid status rejected
	w = f.do(t, http.MethodPut, "/api/bug-reports/"+created.ID+"/status",
		api.StatusUpdateArgs{Status: "nonsense"}, f.withToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid status")

	// Delete
	w = f.do(t, http.MethodDelete, "/api/bug-reports/"+created.ID, nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/bug-reports/"+created.ID, nil, f.withToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportEndpointsRequireToken(t *testing.T) {
	f := newFixture(t)

	for _, route := range []struct{ method, path string }{
		{http.MethodGet, EndPointReports},
		{http.MethodGet, "/api/bug-reports/some-id"},
		{http.MethodPut, "/api/bug-reports/some-id/status"},
		{http.MethodDelete, "/api/bug-reports/some-id"},
		{http.MethodGet, EndPointDashboard},
		{http.MethodGet, EndPointMe},
	} {
		w := f.do(t, route.method, route.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", route.method, route.path)
	}
}

func TestReportsFiltering(t *testing.T) {
	f := newFixture(t)

	for _, severity := range []string{"low", "high", "high"} {
		args := submitArgs()
		args.Severity = severity
		w := f.do(t, http.MethodPost, EndPointSubmitReport, args, f.withAPIKey)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodGet, EndPointReports+"?severity=high", nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []db.BugReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)

	w = f.do(t, http.MethodGet, EndPointReports+"?limit=1", nil, f.withToken)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestReportStats(t *testing.T) {
	f := newFixture(t)

	for _, severity := range []string{"low", "critical"} {
		args := submitArgs()
		args.Severity = severity
		w := f.do(t, http.MethodPost, EndPointSubmitReport, args, f.withAPIKey)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(t, http.MethodGet, EndPointReportStats, nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	var stats db.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.ByStatus["open"])
	assert.Equal(t, 1, stats.BySeverity["critical"])
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), f.withAPIKey)
	require.Equal(t, http.StatusCreated, w.Code)

	w = f.do(t, http.MethodGet, EndPointDashboard, nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	var dash api.DashboardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dash))
	assert.Equal(t, 1, dash.TotalReports)
	assert.Equal(t, 1, dash.ReportsByStatus["open"])
	require.Len(t, dash.RecentReports, 1)
	require.Len(t, dash.ReportsOverTime, 1)
	assert.Equal(t, 1, dash.ReportsOverTime[0].Count)
}

func TestAuthEndpoints(t *testing.T) {
	f := newFixture(t)

	// Register a second account.
	w := f.do(t, http.MethodPost, EndPointRegister,
		api.RegisterArgs{Email: "new@test.io", Password: "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "new@test.io", created.User.Email)

	// Duplicate email conflicts.
	w = f.do(t, http.MethodPost, EndPointRegister,
		api.RegisterArgs{Email: "new@test.io", Password: "hunter2hunter2"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Login returns a usable token.
	w = f.do(t, http.MethodPost, EndPointLogin,
		api.LoginArgs{Email: "new@test.io", Password: "hunter2hunter2"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var logged api.AuthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logged))

	w = f.do(t, http.MethodGet, EndPointMe, nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+logged.Token)
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "new@test.io")

	// Wrong password.
	w = f.do(t, http.MethodPost, EndPointLogin,
		api.LoginArgs{Email: "new@test.io", Password: "wrong-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWidgetConfig(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/widget/config/"+f.project.APIKey, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cfg api.WidgetConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, f.project.ID, cfg.ProjectID)
	assert.Equal(t, "Default Project", cfg.ProjectName)
	assert.Equal(t, "bottom-right", cfg.Settings.Position)
	assert.Equal(t, "#3B82F6", cfg.Settings.PrimaryColor)
	assert.True(t, cfg.Settings.EnableScreenshot)

	w = f.do(t, http.MethodGet, "/api/widget/config/bs_unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWidgetConfigHonorsStoredSettings(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.CreateProject(context.Background(), &db.Project{
		ID:       "p-custom",
		UserID:   f.user.ID,
		Name:     "Custom",
		APIKey:   "bs_custom",
		Settings: `{"position":"top-left","primaryColor":"#FF0000"}`,
	}))

	w := f.do(t, http.MethodGet, "/api/widget/config/bs_custom", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var cfg api.WidgetConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, "top-left", cfg.Settings.Position)
	assert.Equal(t, "#FF0000", cfg.Settings.PrimaryColor)
}

func TestRotateProjectKey(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/projects/"+f.project.ID+"/rotate-key", nil, f.withToken)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, f.project.APIKey, resp.APIKey)

	// Old key no longer authenticates submissions.
	wOld := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), f.withAPIKey)
	assert.Equal(t, http.StatusUnauthorized, wOld.Code)

	wNew := f.do(t, http.MethodPost, EndPointSubmitReport, submitArgs(), func(req *http.Request) {
		req.Header.Set(middleware.APIKeyHeader, resp.APIKey)
	})
	assert.Equal(t, http.StatusCreated, wNew.Code)

	// Foreign project id is not found.
	w = f.do(t, http.MethodPost, "/api/projects/not-mine/rotate-key", nil, f.withToken)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHelp(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, EndPointHelp, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BugSpot API")
}
