package report

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository keeps submitted reports in memory. It stands in for the
// API-backed repository in tests and demos.
type MemoryRepository struct {
	mu      sync.Mutex
	nextID  int
	Reports []*BugReport
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

func (m *MemoryRepository) Submit(_ context.Context, r *BugReport) SubmitResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *r
	stored.ID = fmt.Sprintf("%d", m.nextID)
	m.nextID++
	m.Reports = append(m.Reports, &stored)
	return Accepted(stored.ID)
}
