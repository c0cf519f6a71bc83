// Package db persists BugSpot accounts, projects and bug reports. Two
// implementations of Service exist: SQLService over a real database (MySQL
// or SQLite) and MemoryService, an in-memory double for tests and demos.
// Callers pick one at construction time.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"bugspot/backend/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Service is everything the HTTP layer needs from persistence.
type Service interface {
	// Users
	CreateUser(ctx context.Context, u *User) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id string) (*User, error)

	// Projects
	CreateProject(ctx context.Context, p *Project) error
	GetProjectByAPIKey(ctx context.Context, apiKey string) (*Project, error)
	FirstProjectForUser(ctx context.Context, userID string) (*Project, error)
	ProjectsForUser(ctx context.Context, userID string) ([]Project, error)
	RotateProjectKey(ctx context.Context, userID, projectID, newKey string) error

	// Bug reports. All read/write operations except SaveReport and
	// SaveAnalysis are scoped to the owning user.
	SaveReport(ctx context.Context, r *BugReport) error
	GetReports(ctx context.Context, userID string, f ReportFilter) ([]BugReport, error)
	GetReport(ctx context.Context, userID, id string) (*BugReport, error)
	UpdateReportStatus(ctx context.Context, userID, id, status string) error
	DeleteReport(ctx context.Context, userID, id string) error
	SaveAnalysis(ctx context.Context, reportID string, a Analysis) error
	GetStats(ctx context.Context, userID, projectID string) (*Stats, error)
	ReportsOverTime(ctx context.Context, userID, projectID string, days int) ([]DayCount, error)

	// Analytics
	TrackEvent(ctx context.Context, e *AnalyticsEvent) error
}

// Connect opens the configured database and waits for it to answer.
func Connect(cfg *config.Config) (*sql.DB, error) {
	var dsn string
	switch cfg.DBDriver {
	case DriverMySQL:
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case DriverSQLite:
		dsn = cfg.DBPath
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.DBDriver)
	}

	dbc, err := sql.Open(cfg.DBDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if cfg.DBDriver == DriverMySQL {
		dbc.SetConnMaxLifetime(3 * time.Minute)
		dbc.SetMaxOpenConns(10)
		dbc.SetMaxIdleConns(10)
	} else {
		// SQLite tolerates a single writer.
		dbc.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := dbc.PingContext(ctx); err != nil {
		dbc.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	log.Infof("Connected to %s database", cfg.DBDriver)
	return dbc, nil
}

// SQLService implements Service on database/sql.
type SQLService struct {
	db *sql.DB
}

func NewSQLService(dbc *sql.DB) *SQLService {
	return &SQLService{db: dbc}
}

func (s *SQLService) CreateUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users(id, email, password_hash, api_key, plan, created_at, updated_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.APIKey, u.Plan, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLService) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, api_key, plan, created_at, updated_at
		FROM users WHERE email = ?`, email))
}

func (s *SQLService) GetUserByID(ctx context.Context, id string) (*User, error) {
	return scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, api_key, plan, created_at, updated_at
		FROM users WHERE id = ?`, id))
}

func scanUser(row *sql.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.APIKey, &u.Plan, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (s *SQLService) CreateProject(ctx context.Context, p *Project) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO projects(id, user_id, name, domain, api_key, settings, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, nullString(p.Domain), p.APIKey, nullString(p.Settings), p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (s *SQLService) GetProjectByAPIKey(ctx context.Context, apiKey string) (*Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, domain, api_key, settings, created_at
		FROM projects WHERE api_key = ?`, apiKey))
}

func (s *SQLService) FirstProjectForUser(ctx context.Context, userID string) (*Project, error) {
	return scanProject(s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, domain, api_key, settings, created_at
		FROM projects WHERE user_id = ? ORDER BY created_at LIMIT 1`, userID))
}

func (s *SQLService) ProjectsForUser(ctx context.Context, userID string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, domain, api_key, settings, created_at
		FROM projects WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		var domain, settings sql.NullString
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &domain, &p.APIKey, &settings, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.Domain = domain.String
		p.Settings = settings.String
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (s *SQLService) RotateProjectKey(ctx context.Context, userID, projectID, newKey string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET api_key = ? WHERE id = ? AND user_id = ?`,
		newKey, projectID, userID)
	if err != nil {
		return fmt.Errorf("rotate project key: %w", err)
	}
	return requireRow(res)
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var domain, settings sql.NullString
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &domain, &p.APIKey, &settings, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan project: %w", err)
	}
	p.Domain = domain.String
	p.Settings = settings.String
	return &p, nil
}

const reportColumns = `br.id, br.project_id, br.title, br.description, br.severity, br.status,
		br.screenshot, br.environment, br.user_email, br.user_agent, br.url, br.steps, br.tags,
		br.ai_area, br.ai_category, br.ai_hours, br.ai_confidence, br.ai_summary,
		br.created_at, br.updated_at`

func (s *SQLService) SaveReport(ctx context.Context, r *BugReport) error {
	steps, err := json.Marshal(emptyIfNil(r.Steps))
	if err != nil {
		return fmt.Errorf("encode steps: %w", err)
	}
	tags, err := json.Marshal(emptyIfNil(r.Tags))
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bug_reports(
			id, project_id, title, description, severity, status,
			screenshot, environment, user_email, user_agent, url, steps, tags,
			created_at, updated_at
		) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProjectID, r.Title, r.Description, r.Severity, r.Status,
		nullString(r.Screenshot), nullString(string(r.Environment)),
		nullString(r.UserEmail), nullString(r.UserAgent), nullString(r.URL),
		string(steps), string(tags), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert bug report: %w", err)
	}
	return nil
}

func (s *SQLService) GetReports(ctx context.Context, userID string, f ReportFilter) ([]BugReport, error) {
	query := `SELECT ` + reportColumns + `, p.name
		FROM bug_reports br
		JOIN projects p ON br.project_id = p.id
		WHERE p.user_id = ?`
	args := []any{userID}

	if f.ProjectID != "" {
		query += " AND br.project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		query += " AND br.status = ?"
		args = append(args, f.Status)
	}
	if f.Severity != "" {
		query += " AND br.severity = ?"
		args = append(args, f.Severity)
	}

	query += " ORDER BY br.created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query += " LIMIT ?"
	args = append(args, limit)
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bug reports: %w", err)
	}
	defer rows.Close()

	var reports []BugReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

func (s *SQLService) GetReport(ctx context.Context, userID, id string) (*BugReport, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+`, p.name
		FROM bug_reports br
		JOIN projects p ON br.project_id = p.id
		WHERE br.id = ? AND p.user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("query bug report: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanReport(rows)
}

func (s *SQLService) UpdateReportStatus(ctx context.Context, userID, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bug_reports SET status = ?, updated_at = ?
		WHERE id = ? AND project_id IN (SELECT id FROM projects WHERE user_id = ?)`,
		status, time.Now().UTC(), id, userID)
	if err != nil {
		return fmt.Errorf("update report status: %w", err)
	}
	return requireRow(res)
}

func (s *SQLService) DeleteReport(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bug_reports
		WHERE id = ? AND project_id IN (SELECT id FROM projects WHERE user_id = ?)`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	return requireRow(res)
}

func (s *SQLService) SaveAnalysis(ctx context.Context, reportID string, a Analysis) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bug_reports
		SET ai_area = ?, ai_category = ?, ai_hours = ?, ai_confidence = ?, ai_summary = ?, updated_at = ?
		WHERE id = ?`,
		a.Area, a.Category, a.EstimatedHours, a.Confidence, a.Summary, time.Now().UTC(), reportID)
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireRow(res)
}

func (s *SQLService) GetStats(ctx context.Context, userID, projectID string) (*Stats, error) {
	stats := &Stats{ByStatus: map[string]int{}, BySeverity: map[string]int{}}

	for _, dim := range []struct {
		column string
		dest   map[string]int
	}{
		{"status", stats.ByStatus},
		{"severity", stats.BySeverity},
	} {
		query := `SELECT br.` + dim.column + `, COUNT(*)
			FROM bug_reports br
			JOIN projects p ON br.project_id = p.id
			WHERE p.user_id = ?`
		args := []any{userID}
		if projectID != "" {
			query += " AND br.project_id = ?"
			args = append(args, projectID)
		}
		query += " GROUP BY br." + dim.column

		if err := s.countBy(ctx, query, args, dim.dest); err != nil {
			return nil, fmt.Errorf("query %s stats: %w", dim.column, err)
		}
	}

	for _, count := range stats.ByStatus {
		stats.Total += count
	}
	return stats, nil
}

func (s *SQLService) countBy(ctx context.Context, query string, args []any, dest map[string]int) error {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}

func (s *SQLService) ReportsOverTime(ctx context.Context, userID, projectID string, days int) ([]DayCount, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	query := `SELECT DATE(br.created_at), COUNT(*)
		FROM bug_reports br
		JOIN projects p ON br.project_id = p.id
		WHERE p.user_id = ? AND br.created_at >= ?`
	args := []any{userID, cutoff}
	if projectID != "" {
		query += " AND br.project_id = ?"
		args = append(args, projectID)
	}
	query += " GROUP BY DATE(br.created_at) ORDER BY DATE(br.created_at)"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reports over time: %w", err)
	}
	defer rows.Close()

	var series []DayCount
	for rows.Next() {
		var dc DayCount
		if err := rows.Scan(&dc.Date, &dc.Count); err != nil {
			return nil, fmt.Errorf("scan reports over time: %w", err)
		}
		series = append(series, dc)
	}
	return series, rows.Err()
}

func (s *SQLService) TrackEvent(ctx context.Context, e *AnalyticsEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analytics(id, project_id, event_type, event_data, created_at)
		VALUES(?, ?, ?, ?, ?)`,
		e.ID, e.ProjectID, e.EventType, nullString(string(e.EventData)), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*BugReport, error) {
	var r BugReport
	var screenshot, environment, userEmail, userAgent, url, steps, tags sql.NullString
	var aiArea, aiCategory, aiSummary sql.NullString
	var aiHours sql.NullInt64
	var aiConfidence sql.NullFloat64

	err := row.Scan(
		&r.ID, &r.ProjectID, &r.Title, &r.Description, &r.Severity, &r.Status,
		&screenshot, &environment, &userEmail, &userAgent, &url, &steps, &tags,
		&aiArea, &aiCategory, &aiHours, &aiConfidence, &aiSummary,
		&r.CreatedAt, &r.UpdatedAt, &r.ProjectName)
	if err != nil {
		return nil, fmt.Errorf("scan bug report: %w", err)
	}

	r.Screenshot = screenshot.String
	if environment.Valid {
		r.Environment = json.RawMessage(environment.String)
	}
	r.UserEmail = userEmail.String
	r.UserAgent = userAgent.String
	r.URL = url.String
	r.Steps = decodeStringList(steps.String)
	r.Tags = decodeStringList(tags.String)

	if aiArea.Valid {
		r.Analysis = &Analysis{
			Area:           aiArea.String,
			Category:       aiCategory.String,
			EstimatedHours: int(aiHours.Int64),
			Confidence:     aiConfidence.Float64,
			Summary:        aiSummary.String,
		}
	}
	return &r, nil
}

func decodeStringList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		log.Warnf("Undecodable string list in db row: %v", err)
		return []string{}
	}
	return list
}

func emptyIfNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
