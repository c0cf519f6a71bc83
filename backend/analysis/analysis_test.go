package analysis

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bugspot/backend/db"
)

func TestHeuristicClassification(t *testing.T) {
	testCases := []struct {
		name   string
		report db.BugReport

		expectArea       string
		expectCategory   string
		expectHours      int
		expectConfidence float64
	}{
		{
			name: "login failure",
			report: db.BugReport{
				Title:       "Cannot login",
				Description: "Password form rejects valid credentials",
				Severity:    "high",
			},
			expectArea:       "frontend",
			expectCategory:   "auth",
			expectHours:      4,
			expectConfidence: 0.75,
		},
		{
			name: "server error",
			report: db.BugReport{
				Title:       "Checkout returns 500",
				Description: "Internal server error when placing an order",
				Severity:    "critical",
			},
			expectArea:       "backend",
			expectCategory:   "other",
			expectHours:      8,
			expectConfidence: 0.6,
		},
		{
			name: "network issue spans the stack",
			report: db.BugReport{
				Title:       "Profile picture missing",
				Description: "The fetch to the avatar API fails silently",
				Severity:    "low",
			},
			expectArea:       "fullstack",
			expectCategory:   "api",
			expectHours:      1,
			expectConfidence: 0.7,
		},
		{
			name: "layout bug",
			report: db.BugReport{
				Title:       "Broken css on mobile",
				Description: "Responsive layout overlaps the footer",
				Severity:    "medium",
			},
			expectArea:       "frontend",
			expectCategory:   "ui",
			expectHours:      2,
			expectConfidence: 0.75,
		},
		{
			name: "keywords in steps and tags count too",
			report: db.BugReport{
				Title:       "Page feels broken",
				Description: "Nothing obvious",
				Severity:    "medium",
				Steps:       []string{"open the page", "wait for the timeout"},
				Tags:        []string{"slow"},
			},
			expectArea:       "frontend",
			expectCategory:   "performance",
			expectHours:      2,
			expectConfidence: 0.75,
		},
		{
			name: "unknown severity falls back to medium",
			report: db.BugReport{
				Title:       "Weird behavior",
				Description: "Hard to say",
				Severity:    "urgent",
			},
			expectArea:       "frontend",
			expectCategory:   "other",
			expectHours:      2,
			expectConfidence: 0.6,
		},
	}

	analyzer := NewHeuristic()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := analyzer.Analyze(context.Background(), &tc.report)
			require.NoError(t, err)
			assert.Equal(t, tc.expectArea, a.Area)
			assert.Equal(t, tc.expectCategory, a.Category)
			assert.Equal(t, tc.expectHours, a.EstimatedHours)
			assert.InDelta(t, tc.expectConfidence, a.Confidence, 0.001)
			assert.NotEmpty(t, a.Summary)
		})
	}
}

func TestHeuristicSummaryUsesEnvironment(t *testing.T) {
	analyzer := NewHeuristic()
	a, err := analyzer.Analyze(context.Background(), &db.BugReport{
		Title:       "Broken login",
		Description: "x",
		Severity:    "high",
		Environment: json.RawMessage(`{"browser":"Firefox 128","os":"Linux"}`),
	})
	require.NoError(t, err)
	assert.Contains(t, a.Summary, "HIGH issue likely in frontend")
	assert.Contains(t, a.Summary, "category: auth")
	assert.Contains(t, a.Summary, "env: Firefox 128 on Linux")
}

func TestHeuristicFallsBackToUserAgent(t *testing.T) {
	analyzer := NewHeuristic()
	a, err := analyzer.Analyze(context.Background(), &db.BugReport{
		Title:       "x",
		Description: "y",
		Severity:    "low",
		UserAgent:   "Mozilla/5.0",
	})
	require.NoError(t, err)
	assert.Contains(t, a.Summary, "env: Mozilla/5.0 on unknown")
}
