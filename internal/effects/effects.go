// Package effects builds the ffmpeg filter that animates a still clip.
package effects

import (
	"fmt"
	"math/rand"
	"strings"
)

// Motion modes for still clips.
const (
	MotionNone        = "none"
	MotionCenter      = "center"
	MotionTopLeft     = "top-left"
	MotionTopRight    = "top-right"
	MotionBottomLeft  = "bottom-left"
	MotionBottomRight = "bottom-right"
	MotionRandom      = "random"
)

var corners = []string{MotionCenter, MotionTopLeft, MotionTopRight, MotionBottomLeft, MotionBottomRight}

type Params struct {
	Width      int
	Height     int
	FPS        int
	DurationMs int64
	Motion     string
	// ZoomSpeed is the zoom added per output frame.
	ZoomSpeed float64
	// OutroMs is spent zooming back to 1:1 before the clip ends.
	OutroMs int64
	// Seed makes "random" pick the same corner for the same clip.
	Seed int64
}

// Filter returns the -vf chain for a still of any size. The input is fitted
// into the canvas first; with a motion other than "none" a zoompan follows.
func Filter(p Params) string {
	mode := strings.ToLower(p.Motion)
	if mode == "" {
		mode = MotionCenter
	}
	if mode == MotionNone {
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			p.Width, p.Height, p.Width, p.Height)
	}
	if mode == MotionRandom {
		mode = corners[rand.New(rand.NewSource(p.Seed)).Intn(len(corners))]
	}

	zoomX, zoomY := anchor(mode)

	fFPS := float64(p.FPS)
	fTotal := float64(p.DurationMs) / 1000 * fFPS
	fOutro := float64(p.OutroMs) / 1000 * fFPS

	zSpeed := p.ZoomSpeed
	if zSpeed <= 0 {
		zSpeed = 0.001
	}

	// zoom in until the peak, hold, then zoom back out during the outro
	onPeak := 0.5 / zSpeed
	if fTotal-fOutro > 0 && onPeak > (fTotal-fOutro)/2 {
		onPeak = (fTotal - fOutro) / 2
	}

	actualPeak := 1.0 + zSpeed*onPeak
	if actualPeak > 1.5 {
		actualPeak = 1.5
		onPeak = 0.5 / zSpeed
	}

	outroStart := fTotal - fOutro
	if outroStart < onPeak {
		outroStart = onPeak
	}

	zFormula := fmt.Sprintf("if(lte(on,%f), 1.0+(%f*on), if(lte(on,%f), %f, if(lte(on,%f), %f-(%f-1.0)*(on-%f)/(%f-%f), 1.0)))",
		onPeak, zSpeed, outroStart, actualPeak, fTotal, actualPeak, actualPeak, outroStart, fTotal, outroStart)

	// zoompan works on a canvas twice the output size to avoid jitter
	aspectFilter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		p.Width*2, p.Height*2, p.Width*2, p.Height*2,
	)
	zoomFilter := fmt.Sprintf(
		"zoompan=z='%s':d=%d:s=%dx%d:x='%s':y='%s':fps=%d",
		zFormula, max(int(fTotal), 1), p.Width, p.Height, zoomX, zoomY, p.FPS,
	)
	return fmt.Sprintf("%s,%s,scale=%d:%d,setsar=1", aspectFilter, zoomFilter, p.Width, p.Height)
}

func anchor(mode string) (x, y string) {
	switch mode {
	case MotionTopLeft:
		return "0", "0"
	case MotionTopRight:
		return "iw-(iw/zoom)", "0"
	case MotionBottomLeft:
		return "0", "ih-(ih/zoom)"
	case MotionBottomRight:
		return "iw-(iw/zoom)", "ih-(ih/zoom)"
	default:
		return "iw/2-(iw/zoom/2)", "ih/2-(ih/zoom/2)"
	}
}
