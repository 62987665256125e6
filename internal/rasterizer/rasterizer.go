// Package rasterizer samples an animation source into a sequence of
// timestamped still frames.
package rasterizer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/clip2video/internal/document"
	"github.com/ivlev/clip2video/internal/logging"
	"github.com/ivlev/clip2video/internal/snapshot"
)

// DefaultStepMs samples animations at 60 frames per second.
const DefaultStepMs = 1000.0 / 60.0

// DefaultWorkers bounds the number of snapshot requests in flight.
const DefaultWorkers = 5

var ErrEmptyWindow = errors.New("empty rasterization window")

// FrameRange is a half-open interval [StartMs, EndMs) relative to the start
// of the rasterized window.
type FrameRange struct {
	StartMs float64
	EndMs   float64
}

// Frame is a PNG image shown during Range.
type Frame struct {
	Range FrameRange
	Image []byte
}

// FrameSequence is ordered by Range.StartMs.
type FrameSequence []Frame

// DurationMs is the span covered by the sequence.
func (s FrameSequence) DurationMs() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Range.EndMs - s[0].Range.StartMs
}

// Validate checks that the frames start at 0 and follow each other without
// gaps or overlaps.
func (s FrameSequence) Validate() error {
	var prev float64
	for i, f := range s {
		if f.Range.StartMs != prev {
			return fmt.Errorf("frame %d starts at %vms, expected %vms", i, f.Range.StartMs, prev)
		}
		if f.Range.EndMs < f.Range.StartMs {
			return fmt.Errorf("frame %d ends at %vms before it starts at %vms", i, f.Range.EndMs, f.Range.StartMs)
		}
		prev = f.Range.EndMs
	}
	return nil
}

type Options struct {
	StepMs  float64
	Workers int
	Width   int
	Height  int
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.StepMs <= 0 {
		o.StepMs = DefaultStepMs
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

// Ranges splits [0, durationMs) into steps of stepMs. Bounds are rounded to
// three decimals and the last range ends exactly at durationMs.
func Ranges(durationMs, stepMs float64) []FrameRange {
	var out []FrameRange
	for i := 0; ; i++ {
		start := float64(i) * stepMs
		if start >= durationMs-1e-6 {
			break
		}
		end := float64(i+1) * stepMs
		if end >= durationMs-1e-6 {
			end = durationMs
		}
		out = append(out, FrameRange{StartMs: round3(start), EndMs: round3(end)})
	}
	return out
}

// Rasterize takes one snapshot per sampling step of window. Any failed
// snapshot fails the whole call.
func Rasterize(ctx context.Context, snap snapshot.Snapshotter, src document.Source, window document.MillisecondRange, opts Options) (FrameSequence, error) {
	if src.Kind != document.KindAnimation {
		return nil, fmt.Errorf("rasterize source %s: not an animation (%s)", src.ID, src.Kind)
	}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	if window.Duration == 0 {
		return nil, fmt.Errorf("rasterize source %s: %w", src.ID, ErrEmptyWindow)
	}
	opts = opts.withDefaults()
	logger := logging.WithComponent(opts.Logger, "rasterizer")

	contents := snapshot.Contents{HTML: src.HTML, CSS: src.CSS, Width: opts.Width, Height: opts.Height}
	ranges := Ranges(float64(window.Duration), opts.StepMs)
	started := time.Now()

	var (
		mu     sync.Mutex
		frames = make(FrameSequence, 0, len(ranges))
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, r := range ranges {
		g.Go(func() error {
			img, err := snap.Snapshot(gctx, contents, float64(window.Start)+r.StartMs)
			if err != nil {
				return fmt.Errorf("snapshot at %vms: %w", r.StartMs, err)
			}
			mu.Lock()
			frames = append(frames, Frame{Range: r, Image: img})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("rasterize source %s: %w", src.ID, err)
	}

	sort.Slice(frames, func(i, j int) bool {
		return frames[i].Range.StartMs < frames[j].Range.StartMs
	})
	logger.Debug("rasterized", "source", src.ID, "frames", len(frames), "elapsed", time.Since(started))
	return frames, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
