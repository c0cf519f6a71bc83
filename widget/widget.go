// Package widget is the embeddable BugSpot client: it captures a screenshot
// and environment context for a user-reported issue and submits the report
// to the backend, degrading to a local pending record when the backend is
// unreachable.
package widget

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bugspot/widget/api"
	"bugspot/widget/collector"
	"bugspot/widget/report"
	"bugspot/widget/screenshot"
	"bugspot/widget/store"
)

// Config mirrors the widget bootstrap configuration served by
// /api/widget/config.
type Config struct {
	APIKey           string `json:"apiKey"`
	APIURL           string `json:"apiUrl"`
	Position         string `json:"position"`
	PrimaryColor     string `json:"primaryColor"`
	EnableScreenshot bool   `json:"enableScreenshot"`
	ShowPreview      bool   `json:"showPreview"`

	// StoreDir holds the fallback file; defaults to the user config dir.
	StoreDir string `json:"-"`
}

// Widget wires the submission pipeline: collector, screenshot service and
// the API repository with local fallback.
type Widget struct {
	cfg       Config
	collector *collector.Collector
	shots     *screenshot.Service
	create    *CreateBugReport
}

// New assembles a widget for one page session. ras may be nil when
// screenshots are disabled or no capture capability exists.
func New(cfg Config, page collector.PageInfo, ras screenshot.Rasterizer, opts ...collector.Option) (*Widget, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api url is required")
	}

	dir := cfg.StoreDir
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve store directory: %w", err)
		}
		dir = filepath.Join(base, "bugspot")
	}
	fallback, err := store.New(dir)
	if err != nil {
		return nil, err
	}

	col := collector.New(page, opts...)
	client := api.NewClient(cfg.APIURL, cfg.APIKey, fallback)

	var shots *screenshot.Service
	if cfg.EnableScreenshot {
		shots = screenshot.NewService(ras, pageURL{page}, screenshot.DefaultOptions())
	}

	return &Widget{
		cfg:       cfg,
		collector: col,
		shots:     shots,
		create:    NewCreateBugReport(client, col),
	}, nil
}

// Collector exposes the session collector so hosts can feed it errors and
// network timings.
func (w *Widget) Collector() *collector.Collector {
	return w.collector
}

// CaptureScreenshot takes a best-effort capture with preview, or empty
// captures when screenshots are disabled.
func (w *Widget) CaptureScreenshot(ctx context.Context) screenshot.Capture {
	if w.shots == nil {
		return screenshot.Capture{}
	}
	return w.shots.CaptureWithPreview(ctx)
}

// Submit validates and submits one report. Capture is sequenced by the
// caller: pass the already-taken screenshot in the input.
func (w *Widget) Submit(ctx context.Context, in CreateInput) report.SubmitResult {
	return w.create.Execute(ctx, in)
}

type pageURL struct {
	page collector.PageInfo
}

func (p pageURL) URL() string {
	if p.page == nil {
		return ""
	}
	return p.page.URL()
}
