package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryService keeps everything in maps. It backs handler tests and the
// demo mode where no database is configured.
type MemoryService struct {
	mu       sync.RWMutex
	users    map[string]*User
	projects map[string]*Project
	reports  map[string]*BugReport
	events   []AnalyticsEvent
}

func NewMemoryService() *MemoryService {
	return &MemoryService{
		users:    map[string]*User{},
		projects: map[string]*Project{},
		reports:  map[string]*BugReport{},
	}
}

func (m *MemoryService) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryService) GetUserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryService) GetUserByID(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryService) CreateProject(_ context.Context, p *Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.projects[p.ID] = &cp
	return nil
}

func (m *MemoryService) GetProjectByAPIKey(_ context.Context, apiKey string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.projects {
		if p.APIKey == apiKey {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryService) FirstProjectForUser(_ context.Context, userID string) (*Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var first *Project
	for _, p := range m.projects {
		if p.UserID != userID {
			continue
		}
		if first == nil || p.CreatedAt.Before(first.CreatedAt) {
			first = p
		}
	}
	if first == nil {
		return nil, ErrNotFound
	}
	cp := *first
	return &cp, nil
}

func (m *MemoryService) ProjectsForUser(_ context.Context, userID string) ([]Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var projects []Project
	for _, p := range m.projects {
		if p.UserID == userID {
			projects = append(projects, *p)
		}
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (m *MemoryService) RotateProjectKey(_ context.Context, userID, projectID, newKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	p.APIKey = newKey
	return nil
}

func (m *MemoryService) SaveReport(_ context.Context, r *BugReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	if cp.Steps == nil {
		cp.Steps = []string{}
	}
	if cp.Tags == nil {
		cp.Tags = []string{}
	}
	m.reports[r.ID] = &cp
	return nil
}

func (m *MemoryService) GetReports(_ context.Context, userID string, f ReportFilter) ([]BugReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []BugReport
	for _, r := range m.reports {
		p, ok := m.projects[r.ProjectID]
		if !ok || p.UserID != userID {
			continue
		}
		if f.ProjectID != "" && r.ProjectID != f.ProjectID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.Severity != "" && r.Severity != f.Severity {
			continue
		}
		cp := *r
		cp.ProjectName = p.Name
		matched = append(matched, cp)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MemoryService) GetReport(_ context.Context, userID, id string) (*BugReport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, p := m.ownedLocked(userID, id)
	if r == nil {
		return nil, ErrNotFound
	}
	cp := *r
	cp.ProjectName = p.Name
	return &cp, nil
}

func (m *MemoryService) UpdateReportStatus(_ context.Context, userID, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, _ := m.ownedLocked(userID, id)
	if r == nil {
		return ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryService) DeleteReport(_ context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, _ := m.ownedLocked(userID, id)
	if r == nil {
		return ErrNotFound
	}
	delete(m.reports, id)
	return nil
}

func (m *MemoryService) SaveAnalysis(_ context.Context, reportID string, a Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reports[reportID]
	if !ok {
		return ErrNotFound
	}
	cp := a
	r.Analysis = &cp
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryService) GetStats(_ context.Context, userID, projectID string) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &Stats{ByStatus: map[string]int{}, BySeverity: map[string]int{}}
	for _, r := range m.reports {
		p, ok := m.projects[r.ProjectID]
		if !ok || p.UserID != userID {
			continue
		}
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		stats.Total++
		stats.ByStatus[r.Status]++
		stats.BySeverity[r.Severity]++
	}
	return stats, nil
}

func (m *MemoryService) ReportsOverTime(_ context.Context, userID, projectID string, days int) ([]DayCount, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	m.mu.RLock()
	defer m.mu.RUnlock()

	byDay := map[string]int{}
	for _, r := range m.reports {
		p, ok := m.projects[r.ProjectID]
		if !ok || p.UserID != userID {
			continue
		}
		if projectID != "" && r.ProjectID != projectID {
			continue
		}
		if r.CreatedAt.Before(cutoff) {
			continue
		}
		byDay[r.CreatedAt.UTC().Format("2006-01-02")]++
	}

	var series []DayCount
	for day, count := range byDay {
		series = append(series, DayCount{Date: day, Count: count})
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

func (m *MemoryService) TrackEvent(_ context.Context, e *AnalyticsEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

// Events returns a copy of every tracked event, oldest first.
func (m *MemoryService) Events() []AnalyticsEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AnalyticsEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MemoryService) ownedLocked(userID, id string) (*BugReport, *Project) {
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	p, ok := m.projects[r.ProjectID]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return r, p
}
