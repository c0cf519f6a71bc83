package collector

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage() StaticPage {
	return StaticPage{
		Agent:        "Mozilla/5.0 (X11; Linux x86_64)",
		PageURL:      "https://app.example.com/checkout",
		PageReferrer: "https://app.example.com/cart",
		ViewportW:    1280,
		ViewportH:    720,
		ScreenW:      1920,
		ScreenH:      1080,
		PageLanguage: "en-US",
		HostPlatform: "Linux x86_64",
	}
}

func TestCollectEnvironment(t *testing.T) {
	c := New(testPage())
	env := c.CollectEnvironment()

	assert.Equal(t, "Mozilla/5.0 (X11; Linux x86_64)", env.UserAgent)
	assert.Equal(t, "https://app.example.com/checkout", env.URL)
	assert.Equal(t, "https://app.example.com/cart", env.Referrer)
	assert.Equal(t, "1280x720", env.Viewport)
	assert.Equal(t, "1920x1080", env.Screen)
	assert.Equal(t, "en-US", env.Language)
	assert.Equal(t, "Linux x86_64", env.Platform)

	_, err := time.Parse(time.RFC3339, env.Timestamp)
	require.NoError(t, err)
}

func TestCollectEnvironmentStaticFieldsStable(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := New(testPage(), WithClock(func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}))

	first := c.CollectEnvironment()
	second := c.CollectEnvironment()

	assert.NotEqual(t, first.Timestamp, second.Timestamp)

	// Everything except the timestamp is identical between calls.
	first.Timestamp = ""
	second.Timestamp = ""
	assert.Equal(t, first, second)
}

func TestCollectEnvironmentSentinels(t *testing.T) {
	env := New(nil).CollectEnvironment()

	assert.Equal(t, "unknown", env.UserAgent)
	assert.Equal(t, ReferrerDirect, env.Referrer)
	assert.Equal(t, "0x0", env.Viewport)
	assert.Equal(t, "unknown", env.Language)
	assert.Equal(t, "unknown", env.Platform)
}

func TestCollectEnvironmentEmptyReferrer(t *testing.T) {
	page := testPage()
	page.PageReferrer = ""
	env := New(page).CollectEnvironment()

	assert.Equal(t, ReferrerDirect, env.Referrer)
}

func TestNetworkLogKeepsLastTen(t *testing.T) {
	c := New(testPage())
	for i := 0; i < 25; i++ {
		c.RecordRequest(NetworkRequest{URL: fmt.Sprintf("https://api.example.com/call/%d", i)})
	}

	rc := c.CollectRuntimeContext()
	require.Len(t, rc.Network, 10)
	assert.Equal(t, "https://api.example.com/call/15", rc.Network[0].URL)
	assert.Equal(t, "https://api.example.com/call/24", rc.Network[9].URL)
}

func TestErrorLogAccumulates(t *testing.T) {
	c := New(testPage())
	c.RecordError(ErrorInfo{Message: "TypeError: x is undefined"})
	c.RecordError(ErrorInfo{Message: "Unhandled Promise Rejection: boom"})

	rc := c.CollectRuntimeContext()
	require.Len(t, rc.Errors, 2)
	assert.Equal(t, "TypeError: x is undefined", rc.Errors[0].Message)
	assert.NotEmpty(t, rc.Errors[0].Timestamp)
}

type fixedDOM struct{ state DOMState }

func (f fixedDOM) DOMState() DOMState { return f.state }

type fixedPerf struct{ metrics PerformanceMetrics }

func (f fixedPerf) PerformanceMetrics() PerformanceMetrics { return f.metrics }

func TestRuntimeContextOptionalProviders(t *testing.T) {
	plain := New(testPage()).CollectRuntimeContext()
	assert.Nil(t, plain.DOMState)
	assert.Nil(t, plain.Performance)

	c := New(testPage(),
		WithDOMState(fixedDOM{DOMState{ActiveElement: "#submit", ScrollY: 420}}),
		WithPerformance(fixedPerf{PerformanceMetrics{LoadTime: 1200 * time.Millisecond}}),
	)
	rc := c.CollectRuntimeContext()
	require.NotNil(t, rc.DOMState)
	assert.Equal(t, "#submit", rc.DOMState.ActiveElement)
	require.NotNil(t, rc.Performance)
	assert.Equal(t, 1200*time.Millisecond, rc.Performance.LoadTime)
}

func TestClear(t *testing.T) {
	c := New(testPage())
	c.RecordError(ErrorInfo{Message: "boom"})
	c.RecordRequest(NetworkRequest{URL: "https://api.example.com"})

	c.Clear()
	rc := c.CollectRuntimeContext()
	assert.Empty(t, rc.Errors)
	assert.Empty(t, rc.Network)
}
