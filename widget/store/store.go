// Package store persists fallback bug reports on the local machine when the
// API cannot be reached. It is the widget's stand-in for browser local
// storage: one fixed key holding a JSON-encoded array of pending records.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"bugspot/widget/report"
)

// FileName is the fixed storage key.
const FileName = "bugspot_reports.json"

// StatusPending marks a record waiting for manual export or resubmission.
// Nothing in the system reconciles pending records back to the server; they
// stay local until the user acts on them.
const StatusPending = "pending"

// FallbackReport is a report persisted locally, stamped with its local id,
// a creation timestamp and the pending status.
type FallbackReport struct {
	report.BugReport
	Timestamp string `json:"timestamp"`
	Status    string `json:"status"`
}

// Store reads and writes the fallback list. A single process is assumed to
// be the sole writer; the list is read, appended to and written back whole.
type Store struct {
	path string
}

// New creates a store rooted at dir, creating dir if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{path: filepath.Join(dir, FileName)}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

// Append adds one fallback record to the list.
func (s *Store) Append(rec FallbackReport) error {
	list, err := s.List()
	if err != nil {
		return err
	}
	list = append(list, rec)

	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode fallback reports: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write fallback reports: %w", err)
	}
	return nil
}

// List returns all stored fallback records. A missing file is an empty
// list.
func (s *Store) List() ([]FallbackReport, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read fallback reports: %w", err)
	}

	var list []FallbackReport
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode fallback reports: %w", err)
	}
	return list, nil
}

// Len reports how many fallback records are stored.
func (s *Store) Len() (int, error) {
	list, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(list), nil
}
