// Package screenshot produces a visual capture of the current page for use
// as evidence in a bug report. Rasterization is delegated to an external
// capability; everything that can go wrong degrades to a generated
// placeholder instead of an error.
package screenshot

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"

	"github.com/apex/log"
	xdraw "golang.org/x/image/draw"
)

// Rasterizer turns the current page into a raw image. Implementations wrap
// an external capture capability (headless browser, host callback).
type Rasterizer interface {
	Rasterize(ctx context.Context) (image.Image, error)
}

// URLProvider reports the current page URL for placeholder rendering.
type URLProvider interface {
	URL() string
}

// Options tune the capture output.
type Options struct {
	Quality        float64 // full image JPEG quality, 0..1
	PreviewQuality float64 // preview JPEG quality, 0..1
	MaxWidth       int     // pixel budget is MaxWidth*MaxHeight
	MaxHeight      int
	PreviewSize    int // preview box edge in pixels
}

// DefaultOptions mirror the widget defaults: 1080p budget, jpeg 0.7 for the
// full capture and 0.8 for the small preview.
func DefaultOptions() Options {
	return Options{
		Quality:        0.7,
		PreviewQuality: 0.8,
		MaxWidth:       1920,
		MaxHeight:      1080,
		PreviewSize:    200,
	}
}

// Capture is a full capture with its small preview thumbnail.
type Capture struct {
	DataURL string
	Preview string
}

// Service captures page screenshots. A nil rasterizer is valid and always
// yields the placeholder.
type Service struct {
	ras  Rasterizer
	page URLProvider
	opts Options
}

// NewService builds a screenshot service. page may be nil; the placeholder
// then omits the URL line.
func NewService(ras Rasterizer, page URLProvider, opts Options) *Service {
	if opts.Quality <= 0 || opts.Quality > 1 {
		opts.Quality = 0.7
	}
	if opts.PreviewQuality <= 0 || opts.PreviewQuality > 1 {
		opts.PreviewQuality = 0.8
	}
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 1920
	}
	if opts.MaxHeight <= 0 {
		opts.MaxHeight = 1080
	}
	if opts.PreviewSize <= 0 {
		opts.PreviewSize = 200
	}
	return &Service{ras: ras, page: page, opts: opts}
}

// Capture returns the page as a data URL. It never fails: any capture
// problem yields the placeholder image instead.
func (s *Service) Capture(ctx context.Context) string {
	return s.CaptureWithPreview(ctx).DataURL
}

// CaptureWithPreview returns the compressed full capture together with a
// fixed-size preview, letting callers show feedback without shipping the
// full payload around. One best-effort attempt; the caller retakes
// explicitly if it wants another.
func (s *Service) CaptureWithPreview(ctx context.Context) Capture {
	if s.ras == nil {
		fallback := s.placeholderDataURL()
		return Capture{DataURL: fallback, Preview: fallback}
	}

	img, err := s.ras.Rasterize(ctx)
	if err != nil || img == nil {
		log.Warnf("Screenshot capture failed, using placeholder: %v", err)
		fallback := s.placeholderDataURL()
		return Capture{DataURL: fallback, Preview: fallback}
	}

	scaled := s.scaleToBudget(img)
	full, err := jpegDataURL(scaled, s.opts.Quality)
	if err != nil {
		log.Warnf("Screenshot encoding failed, using placeholder: %v", err)
		fallback := s.placeholderDataURL()
		return Capture{DataURL: fallback, Preview: fallback}
	}

	preview, err := jpegDataURL(s.previewImage(scaled), s.opts.PreviewQuality)
	if err != nil {
		preview = full
	}
	return Capture{DataURL: full, Preview: preview}
}

// scaleToBudget downscales img by one uniform factor so its pixel count
// stays within the MaxWidth*MaxHeight budget. Images inside the budget are
// returned untouched; nothing is ever scaled up.
func (s *Service) scaleToBudget(img image.Image) image.Image {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	budget := s.opts.MaxWidth * s.opts.MaxHeight
	if w*h <= budget {
		return img
	}

	factor := math.Sqrt(float64(budget) / float64(w*h))
	dw := int(math.Round(float64(w) * factor))
	dh := int(math.Round(float64(h) * factor))
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	xdraw.BiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// previewImage letterboxes img into the preview box on a light background.
func (s *Service) previewImage(img image.Image) image.Image {
	size := s.opts.PreviewSize
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	drawW, drawH := size, size
	if w > h {
		drawH = int(math.Round(float64(size) * float64(h) / float64(w)))
	} else if h > w {
		drawW = int(math.Round(float64(size) * float64(w) / float64(h)))
	}
	offX := (size - drawW) / 2
	offY := (size - drawH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	backdrop := image.NewUniform(color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff})
	draw.Draw(dst, dst.Bounds(), backdrop, image.Point{}, draw.Src)
	target := image.Rect(offX, offY, offX+drawW, offY+drawH)
	xdraw.BiLinear.Scale(dst, target, img, bounds, xdraw.Over, nil)
	return dst
}

func (s *Service) placeholderDataURL() string {
	url := ""
	if s.page != nil {
		url = s.page.URL()
	}
	return Placeholder(url)
}

func jpegDataURL(img image.Image, quality float64) (string, error) {
	var buf bytes.Buffer
	q := int(math.Round(quality * 100))
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return "", fmt.Errorf("jpeg encode: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
