// Package compositor turns a frame sequence into a video by overlaying the
// frames onto a blank canvas with ffmpeg filter graphs.
//
// A single graph referencing every frame of a long animation exceeds what
// ffmpeg accepts on a command line, so the sequence is cut into chunks of at
// most ChunkFrames frames, each chunk is drawn in sub-batches of at most
// OverlayBatch frames, and the chunk videos are concatenated at the end.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"strings"

	"github.com/ivlev/clip2video/internal/document"
	"github.com/ivlev/clip2video/internal/logging"
	"github.com/ivlev/clip2video/internal/rasterizer"
	"github.com/ivlev/clip2video/internal/timecode"
	"github.com/ivlev/clip2video/internal/video"
)

const (
	DefaultChunkFrames  = 50
	DefaultOverlayBatch = 20
)

var ErrEmptySequence = errors.New("empty frame sequence")

type Compositor struct {
	Engine       video.Engine
	ChunkFrames  int
	OverlayBatch int
	// Background is the ffmpeg color of the blank canvas.
	Background string
	// FastPreset is used to join the chunk videos.
	FastPreset string
	Logger     *slog.Logger
}

func New(eng video.Engine, logger *slog.Logger) *Compositor {
	return &Compositor{
		Engine:       eng,
		ChunkFrames:  DefaultChunkFrames,
		OverlayBatch: DefaultOverlayBatch,
		Background:   "white",
		FastPreset:   "ultrafast",
		Logger:       logging.WithComponent(logger, "compositor"),
	}
}

func (c *Compositor) logger() *slog.Logger {
	return logging.OrDiscard(c.Logger)
}

// Composite renders seq at dims and fps. Chunks holding a single frame are
// skipped, so a sequence needs at least two frames to produce a video.
// Temporary files are removed whether or not the call succeeds.
func (c *Compositor) Composite(ctx context.Context, seq rasterizer.FrameSequence, dims document.Dimensions, fps int) (video.Media, error) {
	if len(seq) == 0 {
		return video.Media{}, ErrEmptySequence
	}

	s := video.NewScratch(c.Engine)
	defer s.Release()

	var chunks []video.Media
	for i, chunk := range Chunks(seq, max(c.ChunkFrames, 1)) {
		if len(chunk) < 2 {
			c.logger().Debug("skipping single frame chunk", "chunk", i)
			continue
		}
		name, err := c.compositeChunk(ctx, chunk, dims, fps)
		if err != nil {
			return video.Media{}, fmt.Errorf("chunk %d: %w", i, err)
		}
		s.Track(name)
		chunks = append(chunks, video.Media{FileName: name})
	}
	if len(chunks) == 0 {
		return video.Media{}, fmt.Errorf("%w: no chunk has more than one frame", ErrEmptySequence)
	}

	out, err := video.Concat(ctx, c.Engine, chunks, c.FastPreset)
	if err != nil {
		return video.Media{}, err
	}
	c.logger().Debug("composited", "frames", len(seq), "chunks", len(chunks), "file", out.FileName)
	return out, nil
}

// compositeChunk draws frames onto a blank video of their combined duration
// and returns the name of the result in the engine.
func (c *Compositor) compositeChunk(ctx context.Context, frames rasterizer.FrameSequence, dims document.Dimensions, fps int) (string, error) {
	s := video.NewScratch(c.Engine)
	defer s.Release()

	start := frames[0].Range.StartMs
	duration := frames[len(frames)-1].Range.EndMs - start

	ns, err := s.Dir(ctx)
	if err != nil {
		return "", fmt.Errorf("create frame dir: %w", err)
	}

	layers := make([]layer, 0, len(frames))
	for _, f := range frames {
		data, err := Fit(f.Image, dims)
		if err != nil {
			return "", err
		}
		name, err := s.Write(ctx, ns, ".png", data)
		if err != nil {
			return "", fmt.Errorf("write frame: %w", err)
		}
		layers = append(layers, layer{
			file: name,
			rng: rasterizer.FrameRange{
				StartMs: round3(f.Range.StartMs - start),
				EndMs:   round3(f.Range.EndMs - start),
			},
		})
	}

	base := s.Name("", ".mp4")
	if err := c.Engine.Exec(ctx, BlankArgs(c.Background, dims, duration, fps, base)); err != nil {
		return "", fmt.Errorf("blank base: %w", err)
	}
	c.logger().Debug("base video generated", "file", base, "duration_ms", duration, "size", dims.String())

	out, err := c.fold(ctx, s, base, layers, image.Point{})
	if err != nil {
		return "", err
	}
	s.Keep(out)
	return out, nil
}

type layer struct {
	file string
	rng  rasterizer.FrameRange
}

// fold overlays layers onto prev in batches of OverlayBatch. Every batch
// reads the previous batch's output; consumed inputs are deleted as soon as
// the batch succeeds. The returned file is still tracked by s.
func (c *Compositor) fold(ctx context.Context, s *video.Scratch, prev string, layers []layer, pos image.Point) (string, error) {
	batches := Chunks(layers, max(c.OverlayBatch, 1))
	for i, batch := range batches {
		out := s.Name("", ".mp4")
		if err := c.Engine.Exec(ctx, overlayArgs(prev, batch, pos, out)); err != nil {
			return "", fmt.Errorf("overlay batch %d/%d: %w", i+1, len(batches), err)
		}

		consumed := make([]string, 0, len(batch)+1)
		for _, l := range batch {
			consumed = append(consumed, l.file)
		}
		consumed = append(consumed, prev)
		if err := s.Consume(ctx, consumed...); err != nil {
			return "", err
		}
		prev = out
	}
	return prev, nil
}

// BlankArgs builds the command producing a solid color video.
func BlankArgs(color string, dims document.Dimensions, durationMs float64, fps int, out string) []string {
	size := fmt.Sprintf("%dx%d", dims.Width, dims.Height)
	return []string{
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%s", color, size),
		"-t", timecode.Seconds(durationMs),
		"-s", size,
		"-c:v", "libx264",
		"-vf", fmt.Sprintf("format=yuv420p,fps=%d", fps),
		out,
	}
}

// overlayArgs builds one overlay pass: input 0 is the base video and input
// i is shown only while t is inside layer i's range.
func overlayArgs(base string, layers []layer, pos image.Point, out string) []string {
	args := []string{"-i", base}
	for _, l := range layers {
		args = append(args, "-i", l.file)
	}
	ranges := make([]rasterizer.FrameRange, len(layers))
	for i, l := range layers {
		ranges[i] = l.rng
	}
	return append(args, "-filter_complex", OverlayFilter(ranges, pos), out)
}

// OverlayFilter chains one overlay per range:
//
//	[0][1]overlay=enable='between(t,0,0.017)':x=0:y=0[v1];[v1][2]overlay=...
func OverlayFilter(ranges []rasterizer.FrameRange, pos image.Point) string {
	var b strings.Builder
	prev := "[0]"
	for i, r := range ranges {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%s[%d]overlay=enable='between(t,%s,%s)':x=%d:y=%d",
			prev, i+1, timecode.Seconds(r.StartMs), timecode.Seconds(r.EndMs), pos.X, pos.Y)
		if i < len(ranges)-1 {
			prev = fmt.Sprintf("[v%d]", i+1)
			b.WriteString(prev)
		}
	}
	return b.String()
}

// Chunks splits items into consecutive slices of at most size elements.
func Chunks[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		out = append(out, items[i:min(i+size, len(items))])
	}
	return out
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
