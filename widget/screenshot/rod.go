package screenshot

import (
	"bytes"
	"context"
	"fmt"
	"image"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// RodRasterizer captures a live page through a Chrome instance driven by
// go-rod. It is an optional capability: construction fails when no browser
// is reachable and the screenshot service then degrades to the placeholder.
type RodRasterizer struct {
	browser *rod.Browser
	page    URLProvider
}

// NewRodRasterizer connects to the browser at controlURL (a DevTools
// websocket URL). page supplies the URL to open for each capture.
func NewRodRasterizer(ctx context.Context, controlURL string, page URLProvider) (*RodRasterizer, error) {
	if page == nil {
		return nil, fmt.Errorf("rod rasterizer requires a page URL source")
	}
	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	return &RodRasterizer{browser: browser, page: page}, nil
}

// Rasterize opens the current page URL and captures the viewport.
func (r *RodRasterizer) Rasterize(ctx context.Context) (image.Image, error) {
	url := r.page.URL()
	if url == "" {
		return nil, fmt.Errorf("no page URL to capture")
	}

	p, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer p.Close()

	if err := p.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait for page load: %w", err)
	}

	data, err := p.Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// Close disconnects from the browser.
func (r *RodRasterizer) Close() error {
	return r.browser.Close()
}
