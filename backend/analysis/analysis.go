// Package analysis classifies incoming bug reports. The current analyzer is
// a keyword heuristic; Analyzer keeps the call sites stable so an LLM-backed
// implementation can slot in later.
package analysis

import (
	"context"
	"encoding/json"
	"strings"

	"bugspot/backend/db"
)

type Analyzer interface {
	Analyze(ctx context.Context, r *db.BugReport) (*db.Analysis, error)
}

// Heuristic implements Analyzer on keyword matching.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

func (h *Heuristic) Analyze(_ context.Context, r *db.BugReport) (*db.Analysis, error) {
	text := strings.ToLower(strings.Join([]string{
		r.Title,
		r.Description,
		strings.Join(r.Steps, "\n"),
		strings.Join(r.Tags, " "),
	}, "\n"))

	contains := func(needle string) bool { return strings.Contains(text, needle) }
	anyOf := func(needles ...string) bool {
		for _, n := range needles {
			if contains(n) {
				return true
			}
		}
		return false
	}

	category := "other"
	switch {
	case anyOf("auth", "login", "signup", "password"):
		category = "auth"
	case anyOf("api", "request", "fetch", "network", "graphql"):
		category = "api"
	case anyOf("layout", "css", "style", "responsive", "ux"):
		category = "ui"
	case anyOf("slow", "timeout", "performance", "lag"):
		category = "performance"
	}

	area := "frontend"
	switch {
	case anyOf("500", "internal server error", "database", "db"):
		area = "backend"
	case anyOf("api", "network", "server"):
		area = "fullstack"
	}

	severity := strings.ToLower(r.Severity)
	hours := 2
	switch severity {
	case "low":
		hours = 1
	case "medium":
		hours = 2
	case "high":
		hours = 4
	case "critical":
		hours = 8
	default:
		severity = "medium"
	}

	confidence := 0.6
	if category != "other" {
		confidence += 0.15
	}
	if area == "fullstack" {
		confidence -= 0.05
	}
	if confidence > 0.95 {
		confidence = 0.95
	}
	if confidence < 0.5 {
		confidence = 0.5
	}

	browser, os := environmentHints(r.Environment, r.UserAgent)

	summary := strings.Join([]string{
		strings.ToUpper(severity) + " issue likely in " + area,
		"category: " + category,
		"env: " + browser + " on " + os,
	}, " | ")

	return &db.Analysis{
		Area:           area,
		Category:       category,
		EstimatedHours: hours,
		Confidence:     confidence,
		Summary:        summary,
	}, nil
}

func environmentHints(raw json.RawMessage, userAgent string) (browser, os string) {
	browser, os = "unknown", "unknown"
	if userAgent != "" {
		browser = userAgent
	}
	if len(raw) == 0 {
		return browser, os
	}

	var env struct {
		Browser   string `json:"browser"`
		UserAgent string `json:"userAgent"`
		OS        string `json:"os"`
		Platform  string `json:"platform"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return browser, os
	}
	if env.Browser != "" {
		browser = env.Browser
	} else if env.UserAgent != "" {
		browser = env.UserAgent
	}
	if env.OS != "" {
		os = env.OS
	} else if env.Platform != "" {
		os = env.Platform
	}
	return browser, os
}
