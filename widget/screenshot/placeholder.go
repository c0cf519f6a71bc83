package screenshot

import (
	"bytes"
	"encoding/base64"
	"image/color"
	"image/png"
	"time"

	"github.com/fogleman/gg"
)

const (
	placeholderWidth  = 400
	placeholderHeight = 300
)

// Placeholder renders the deterministic substitute image used when real
// capture is unavailable: a fixed-size canvas with an explanatory line, the
// page URL and the current time.
func Placeholder(url string) string {
	return placeholderAt(url, time.Now())
}

func placeholderAt(url string, now time.Time) string {
	dc := gg.NewContext(placeholderWidth, placeholderHeight)

	dc.SetColor(color.RGBA{R: 0xf3, G: 0xf4, B: 0xf6, A: 0xff})
	dc.Clear()

	dc.SetColor(color.RGBA{R: 0x37, G: 0x41, B: 0x51, A: 0xff})
	cx := float64(placeholderWidth) / 2
	dc.DrawStringAnchored("Screenshot captured", cx, 150, 0.5, 0.5)
	if url != "" {
		dc.DrawStringAnchored("URL: "+truncate(url, 52), cx, 180, 0.5, 0.5)
	}
	dc.DrawStringAnchored("Time: "+now.Format("2006-01-02 15:04:05"), cx, 210, 0.5, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		// png.Encode on an in-memory RGBA only fails if the writer does.
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
