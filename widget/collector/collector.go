// Package collector gathers environment facts and recent runtime events for
// inclusion in a bug report. One Collector is meant to live for one page
// session and is passed explicitly to whatever assembles the report.
package collector

import (
	"fmt"
	"sync"
	"time"

	"bugspot/widget/report"
)

// networkLogSize bounds the retained network request log.
const networkLogSize = 10

// ReferrerDirect is substituted when the page has no referrer.
const ReferrerDirect = "Direct"

const unknown = "unknown"

// PageInfo answers questions about the page the widget is embedded in.
// Implementations query live state; StaticPage serves embedders that only
// have a one-off snapshot.
type PageInfo interface {
	UserAgent() string
	URL() string
	Referrer() string
	ViewportSize() (w, h int)
	ScreenSize() (w, h int)
	Language() string
	Platform() string
}

// StaticPage is a fixed PageInfo snapshot.
type StaticPage struct {
	Agent        string
	PageURL      string
	PageReferrer string
	ViewportW    int
	ViewportH    int
	ScreenW      int
	ScreenH      int
	PageLanguage string
	HostPlatform string
}

func (p StaticPage) UserAgent() string        { return p.Agent }
func (p StaticPage) URL() string              { return p.PageURL }
func (p StaticPage) Referrer() string         { return p.PageReferrer }
func (p StaticPage) ViewportSize() (int, int) { return p.ViewportW, p.ViewportH }
func (p StaticPage) ScreenSize() (int, int)   { return p.ScreenW, p.ScreenH }
func (p StaticPage) Language() string         { return p.PageLanguage }
func (p StaticPage) Platform() string         { return p.HostPlatform }

// ErrorInfo is one observed unhandled error.
type ErrorInfo struct {
	Message   string `json:"message"`
	Filename  string `json:"filename,omitempty"`
	Line      int    `json:"lineno,omitempty"`
	Column    int    `json:"colno,omitempty"`
	Stack     string `json:"stack,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NetworkRequest is one observed network resource timing.
type NetworkRequest struct {
	URL       string        `json:"url"`
	Method    string        `json:"method"`
	Status    int           `json:"status,omitempty"`
	Duration  time.Duration `json:"duration,omitempty"`
	Timestamp string        `json:"timestamp"`
}

// DOMState is a snapshot of focus and scroll state at collection time.
type DOMState struct {
	ActiveElement  string `json:"activeElement,omitempty"`
	FocusedElement string `json:"focusedElement,omitempty"`
	ScrollX        int    `json:"scrollX"`
	ScrollY        int    `json:"scrollY"`
}

// MemoryUsage mirrors the JS heap metrics where a host can report them.
type MemoryUsage struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
	Limit uint64 `json:"limit"`
}

// PerformanceMetrics holds a small set of page timing metrics. Sub-metrics
// the host cannot measure stay at their zero value and are omitted from
// serialized output.
type PerformanceMetrics struct {
	LoadTime         time.Duration `json:"loadTime"`
	DOMContentLoaded time.Duration `json:"domContentLoaded,omitempty"`
	FirstPaint       time.Duration `json:"firstPaint,omitempty"`
	Memory           *MemoryUsage  `json:"memoryUsage,omitempty"`
}

// DOMStateProvider and PerformanceProvider are optional capabilities; a
// Collector without them simply omits those parts of the runtime context.
type DOMStateProvider interface {
	DOMState() DOMState
}

type PerformanceProvider interface {
	PerformanceMetrics() PerformanceMetrics
}

// RuntimeContext is the best-effort enrichment attached to a report on top
// of the plain environment snapshot.
type RuntimeContext struct {
	Errors      []ErrorInfo         `json:"errors"`
	DOMState    *DOMState           `json:"domState,omitempty"`
	Performance *PerformanceMetrics `json:"performance,omitempty"`
	Network     []NetworkRequest    `json:"network"`
}

// Collector accumulates runtime events for the lifetime of a page session.
// The error log grows for the whole session; the network log keeps only the
// last ten requests.
type Collector struct {
	page PageInfo
	dom  DOMStateProvider
	perf PerformanceProvider
	now  func() time.Time

	mu       sync.Mutex
	errors   []ErrorInfo
	requests [networkLogSize]NetworkRequest
	reqCount int
}

// Option configures a Collector.
type Option func(*Collector)

// WithDOMState attaches a focus/scroll snapshot source.
func WithDOMState(p DOMStateProvider) Option {
	return func(c *Collector) { c.dom = p }
}

// WithPerformance attaches a page timing source.
func WithPerformance(p PerformanceProvider) Option {
	return func(c *Collector) { c.perf = p }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

// New creates a Collector for one page session. A nil page is tolerated;
// every environment field then falls back to its sentinel.
func New(page PageInfo, opts ...Option) *Collector {
	c := &Collector{page: page, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RecordError appends an observed unhandled error. Hosts call this from
// their error hook; the log is unbounded for the session.
func (c *Collector) RecordError(e ErrorInfo) {
	if e.Timestamp == "" {
		e.Timestamp = c.timestamp()
	}
	c.mu.Lock()
	c.errors = append(c.errors, e)
	c.mu.Unlock()
}

// RecordRequest appends an observed network request, evicting the oldest
// entry once the fixed window is full.
func (c *Collector) RecordRequest(r NetworkRequest) {
	if r.Timestamp == "" {
		r.Timestamp = c.timestamp()
	}
	c.mu.Lock()
	c.requests[c.reqCount%networkLogSize] = r
	c.reqCount++
	c.mu.Unlock()
}

// CollectEnvironment snapshots environment facts. It cannot fail: fields
// the page cannot answer get an empty or unknown sentinel. Two sequential
// calls differ only in the timestamp.
func (c *Collector) CollectEnvironment() report.Environment {
	env := report.Environment{
		UserAgent: unknown,
		Referrer:  ReferrerDirect,
		Viewport:  "0x0",
		Screen:    "0x0",
		Timestamp: c.timestamp(),
		Language:  unknown,
		Platform:  unknown,
	}
	if c.page == nil {
		return env
	}

	if ua := c.page.UserAgent(); ua != "" {
		env.UserAgent = ua
	}
	env.URL = c.page.URL()
	if ref := c.page.Referrer(); ref != "" {
		env.Referrer = ref
	}
	vw, vh := c.page.ViewportSize()
	env.Viewport = fmt.Sprintf("%dx%d", vw, vh)
	sw, sh := c.page.ScreenSize()
	env.Screen = fmt.Sprintf("%dx%d", sw, sh)
	if lang := c.page.Language(); lang != "" {
		env.Language = lang
	}
	if plat := c.page.Platform(); plat != "" {
		env.Platform = plat
	}
	return env
}

// CollectRuntimeContext returns the recorded errors, the last ten network
// requests in observation order, and whatever optional snapshots are
// available. Missing capabilities are omitted, never an error.
func (c *Collector) CollectRuntimeContext() RuntimeContext {
	c.mu.Lock()
	errs := make([]ErrorInfo, len(c.errors))
	copy(errs, c.errors)
	reqs := c.recentRequestsLocked()
	c.mu.Unlock()

	rc := RuntimeContext{Errors: errs, Network: reqs}
	if c.dom != nil {
		state := c.dom.DOMState()
		rc.DOMState = &state
	}
	if c.perf != nil {
		metrics := c.perf.PerformanceMetrics()
		rc.Performance = &metrics
	}
	return rc
}

// Clear drops all recorded events.
func (c *Collector) Clear() {
	c.mu.Lock()
	c.errors = nil
	c.reqCount = 0
	c.mu.Unlock()
}

func (c *Collector) recentRequestsLocked() []NetworkRequest {
	n := c.reqCount
	if n > networkLogSize {
		n = networkLogSize
	}
	out := make([]NetworkRequest, 0, n)
	start := c.reqCount - n
	for i := start; i < c.reqCount; i++ {
		out = append(out, c.requests[i%networkLogSize])
	}
	return out
}

func (c *Collector) timestamp() string {
	return c.now().UTC().Format(time.RFC3339)
}
