package widget

import (
	"context"
	"strings"

	"bugspot/widget/collector"
	"bugspot/widget/report"
)

// CreateInput carries the caller-supplied fields for one bug report.
// Title and Description are required; everything else is optional.
type CreateInput struct {
	Title       string
	Description string
	Severity    report.Severity
	Screenshot  string
	UserEmail   string
	Steps       []string
	Tags        []string
}

// CreateBugReport validates input, enriches it with collected context and
// delegates persistence to the repository. It performs no persistence of
// its own.
type CreateBugReport struct {
	repo      report.Repository
	collector *collector.Collector
}

// NewCreateBugReport wires the use case.
func NewCreateBugReport(repo report.Repository, c *collector.Collector) *CreateBugReport {
	return &CreateBugReport{repo: repo, collector: c}
}

// Execute runs one submission. Validation failures come back as a typed
// result, never a panic or error; valid input is trimmed, stamped with the
// environment snapshot and handed to the repository, whose result is
// returned unchanged.
func (uc *CreateBugReport) Execute(ctx context.Context, in CreateInput) report.SubmitResult {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return report.Failure("Title is required")
	}
	description := strings.TrimSpace(in.Description)
	if description == "" {
		return report.Failure("Description is required")
	}

	severity := in.Severity
	if severity == "" {
		severity = report.DefaultSeverity
	}

	env := uc.collector.CollectEnvironment()

	steps := in.Steps
	if steps == nil {
		steps = []string{}
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	r := &report.BugReport{
		Title:       title,
		Description: description,
		Severity:    severity,
		Screenshot:  in.Screenshot,
		Environment: env,
		UserEmail:   strings.TrimSpace(in.UserEmail),
		UserAgent:   env.UserAgent,
		URL:         env.URL,
		Steps:       steps,
		Tags:        tags,
	}

	return uc.repo.Submit(ctx, r)
}
