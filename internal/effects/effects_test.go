package effects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNone(t *testing.T) {
	got := Filter(Params{Width: 1280, Height: 720, FPS: 30, DurationMs: 3000, Motion: "none"})
	assert.Equal(t, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720:(ow-iw)/2:(oh-ih)/2,setsar=1", got)
}

func TestFilterZoom(t *testing.T) {
	tests := []struct {
		motion string
		x, y   string
	}{
		{"", "iw/2-(iw/zoom/2)", "ih/2-(ih/zoom/2)"},
		{"center", "iw/2-(iw/zoom/2)", "ih/2-(ih/zoom/2)"},
		{"top-left", "0", "0"},
		{"top-right", "iw-(iw/zoom)", "0"},
		{"bottom-left", "0", "ih-(ih/zoom)"},
		{"Bottom-Right", "iw-(iw/zoom)", "ih-(ih/zoom)"},
	}
	for _, tt := range tests {
		t.Run(tt.motion, func(t *testing.T) {
			got := Filter(Params{Width: 640, Height: 360, FPS: 25, DurationMs: 4000, Motion: tt.motion})
			assert.True(t, strings.HasPrefix(got, "scale=1280:720:force_original_aspect_ratio=decrease,pad=1280:720"))
			assert.Contains(t, got, "zoompan=z='")
			assert.Contains(t, got, ":d=100:s=640x360:x='"+tt.x+"':y='"+tt.y+"':fps=25")
			assert.True(t, strings.HasSuffix(got, ",scale=640:360,setsar=1"))
		})
	}
}

func TestFilterRandomIsStable(t *testing.T) {
	p := Params{Width: 640, Height: 360, FPS: 25, DurationMs: 2000, Motion: "random", Seed: 7}
	assert.Equal(t, Filter(p), Filter(p))
	assert.Contains(t, Filter(p), "zoompan")
}

func TestFilterPeakIsCapped(t *testing.T) {
	// slow zoom on a long clip would overshoot 1.5x
	got := Filter(Params{Width: 100, Height: 100, FPS: 30, DurationMs: 600_000, ZoomSpeed: 0.0001})
	assert.Contains(t, got, "1.500000")
}
