package source

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/gogpu/gg"
)

var namedColors = map[string]gg.RGBA{
	"white":       gg.White,
	"black":       gg.Black,
	"red":         gg.Red,
	"green":       gg.Green,
	"blue":        gg.Blue,
	"yellow":      gg.Yellow,
	"cyan":        gg.Cyan,
	"magenta":     gg.Magenta,
	"transparent": gg.Transparent,
}

// Color resolves the color names ffmpeg and the config share, or a hex
// value such as "#1e1e1e" / "0x1e1e1e".
func Color(name string) gg.RGBA {
	name = strings.ToLower(strings.TrimSpace(name))
	if c, ok := namedColors[name]; ok {
		return c
	}
	return gg.Hex(strings.TrimPrefix(name, "0x"))
}

// Letterbox scales img to fit a w x h canvas, keeping its aspect ratio, and
// centers it on background. The result is PNG encoded.
func Letterbox(img image.Image, w, h int, background string) ([]byte, error) {
	dc := gg.NewContext(w, h)
	defer dc.Close()
	dc.ClearWithColor(Color(background))

	r := Fit(img.Bounds().Size(), w, h)
	dc.DrawImageEx(gg.ImageBufFromImage(img), gg.DrawImageOptions{
		X:             float64(r.Min.X),
		Y:             float64(r.Min.Y),
		DstWidth:      float64(r.Dx()),
		DstHeight:     float64(r.Dy()),
		Interpolation: gg.InterpBicubic,
	})

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode letterboxed page: %w", err)
	}
	return buf.Bytes(), nil
}

// Fit returns the largest rectangle with the aspect ratio of size that fits
// centered inside w x h.
func Fit(size image.Point, w, h int) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 {
		return image.Rect(0, 0, w, h)
	}
	dw, dh := w, size.Y*w/size.X
	if dh > h {
		dw, dh = size.X*h/size.Y, h
	}
	x, y := (w-dw)/2, (h-dh)/2
	return image.Rect(x, y, x+dw, y+dh)
}
