// Package snapshot renders an HTML/CSS animation at a given instant into a
// single PNG image.
package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ivlev/clip2video/internal/animation"
	"github.com/ivlev/clip2video/internal/logging"
)

// Contents is the markup and stylesheet of an animation, rendered into a
// viewport of Width x Height pixels.
type Contents struct {
	HTML   string
	CSS    string
	Width  int
	Height int
}

// Snapshotter must return the same image for the same contents and instant.
type Snapshotter interface {
	Snapshot(ctx context.Context, contents Contents, millisecond float64) ([]byte, error)
}

// Chrome takes screenshots with a headless Chromium. The stylesheet is frozen
// at the requested instant before the page is loaded, so the screenshot does
// not depend on how long the browser takes to start.
type Chrome struct {
	Bin    string
	Logger *slog.Logger
}

func NewChrome(bin string, logger *slog.Logger) *Chrome {
	if bin == "" {
		bin = "chromium"
	}
	return &Chrome{Bin: bin, Logger: logging.WithComponent(logger, "snapshot")}
}

func (c *Chrome) logger() *slog.Logger {
	return logging.OrDiscard(c.Logger)
}

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>html, body { margin: 0; padding: 0; overflow: hidden; background: transparent; }</style>
<style>{{.CSS}}</style>
</head>
<body>{{.HTML}}</body>
</html>
`))

func (c *Chrome) Snapshot(ctx context.Context, contents Contents, millisecond float64) ([]byte, error) {
	frozen, err := animation.Freeze(contents.CSS, millisecond)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "clip2video_snap_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		CSS  template.CSS
		HTML template.HTML
	}{template.CSS(frozen), template.HTML(contents.HTML)})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}

	pagePath := filepath.Join(dir, "index.html")
	if err := os.WriteFile(pagePath, buf.Bytes(), 0644); err != nil {
		return nil, err
	}

	shotPath := filepath.Join(dir, "shot.png")
	args := c.buildArgs(contents, pagePath, shotPath)

	cmd := exec.CommandContext(ctx, c.Bin, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("headless screenshot at %.3fms: %v, output: %s", millisecond, err, string(out))
	}
	c.logger().Debug("snapshot taken", "ms", millisecond)

	return os.ReadFile(shotPath)
}

func (c *Chrome) buildArgs(contents Contents, pagePath, shotPath string) []string {
	return []string{
		"--headless=new",
		"--disable-gpu",
		"--hide-scrollbars",
		"--no-sandbox",
		"--force-device-scale-factor=1",
		"--default-background-color=00000000",
		fmt.Sprintf("--window-size=%d,%d", contents.Width, contents.Height),
		"--screenshot=" + shotPath,
		"file://" + pagePath,
	}
}
