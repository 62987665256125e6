// Package engine renders a whole video document: every clip is turned into
// a video file and the files are concatenated in timeline order.
package engine

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/clip2video/internal/compositor"
	"github.com/ivlev/clip2video/internal/config"
	"github.com/ivlev/clip2video/internal/document"
	"github.com/ivlev/clip2video/internal/effects"
	"github.com/ivlev/clip2video/internal/logging"
	"github.com/ivlev/clip2video/internal/rasterizer"
	"github.com/ivlev/clip2video/internal/snapshot"
	"github.com/ivlev/clip2video/internal/source"
	"github.com/ivlev/clip2video/internal/video"
)

var ErrEmptyTimeline = errors.New("timeline has no clips")

// EngineFactory opens the encoding engine used for one render.
type EngineFactory func() (video.Engine, error)

// FFmpegFactory opens a local ffmpeg engine as configured.
func FFmpegFactory(cfg *config.Config, logger *slog.Logger) EngineFactory {
	return func() (video.Engine, error) {
		return video.NewFFmpeg(cfg.FFmpegPath, cfg.WorkDir, logger)
	}
}

// Events are advisory notifications; they never change the render.
type Events struct {
	OnRasterizeStart func(clip document.Clip, src document.Source)
	OnRasterizeEnd   func(clip document.Clip, src document.Source, frames int)
	OnClipReady      func(index, total int)
}

type Project struct {
	Config      *config.Config
	NewEngine   EngineFactory
	Snapshotter snapshot.Snapshotter
	Events      Events
	Logger      *slog.Logger
	// BenchmarkLog receives one line per render when Config.ShowStats is set.
	BenchmarkLog string

	// one render at a time holds the engine
	mu sync.Mutex
}

func NewProject(cfg *config.Config, newEngine EngineFactory, snap snapshot.Snapshotter, logger *slog.Logger) *Project {
	return &Project{
		Config:       cfg,
		NewEngine:    newEngine,
		Snapshotter:  snap,
		Logger:       logging.WithComponent(logger, "engine"),
		BenchmarkLog: "benchmark.log",
	}
}

func (p *Project) logger() *slog.Logger {
	return logging.OrDiscard(p.Logger)
}

func (p *Project) encoding() video.Encoding {
	return video.Encoding{Encoder: p.Config.VideoEncoder, Quality: p.Config.Quality, Preset: p.Config.Preset}
}

// Render produces the exported video of doc. The engine is opened once for
// the whole render and closed before Render returns; the result is held in
// memory. Any failing clip fails the render.
func (p *Project) Render(ctx context.Context, doc document.VideoDocument, lib document.Library) (video.Media, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := doc.Validate(lib); err != nil {
		return video.Media{}, err
	}
	if len(doc.Timeline) == 0 {
		return video.Media{}, ErrEmptyTimeline
	}

	stats := Stats{Clips: len(doc.Timeline)}
	started := time.Now()

	eng, err := p.NewEngine()
	if err != nil {
		return video.Media{}, fmt.Errorf("open encoding engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			p.logger().Warn("close encoding engine", "error", err)
		}
	}()

	parts := make([]video.Media, 0, len(doc.Timeline))
	for i, clip := range doc.Timeline {
		src, err := lib.Get(clip.Source)
		if err != nil {
			return video.Media{}, err
		}
		m, err := p.renderClip(ctx, eng, doc, clip, src, &stats)
		if err != nil {
			return video.Media{}, fmt.Errorf("clip %d (%s, %s): %w", i, clip.ID, src.Kind, err)
		}
		parts = append(parts, m)
		if p.Events.OnClipReady != nil {
			p.Events.OnClipReady(i+1, len(doc.Timeline))
		}
	}

	concatStart := time.Now()
	out, err := video.Concat(ctx, eng, parts, p.Config.Preset)
	if err != nil {
		return video.Media{}, fmt.Errorf("concat clips: %w", err)
	}
	stats.Concat = time.Since(concatStart)
	stats.Total = time.Since(started)
	// the engine namespace goes away with the engine
	out.URL = ""

	p.logger().Info("document rendered", "clips", stats.Clips, "frames", stats.Frames, "bytes", len(out.Data), "elapsed", stats.Total)
	if p.Config.ShowStats {
		p.report(stats)
	}
	return out, nil
}

func (p *Project) renderClip(ctx context.Context, eng video.Engine, doc document.VideoDocument, clip document.Clip, src document.Source, stats *Stats) (video.Media, error) {
	switch src.Kind {
	case document.KindVideo:
		t := time.Now()
		defer func() { stats.Encode += time.Since(t) }()
		return p.videoClip(ctx, eng, clip, src)

	case document.KindAnimation:
		return p.animationClip(ctx, eng, doc, clip, src, stats)

	case document.KindStill:
		t := time.Now()
		defer func() { stats.Encode += time.Since(t) }()
		return p.stillClip(ctx, eng, doc, clip, src)

	default:
		return video.Media{}, fmt.Errorf("unknown source kind %q", src.Kind)
	}
}

// videoClip passes the source file through when the clip plays all of it and
// re-encodes the window otherwise.
func (p *Project) videoClip(ctx context.Context, eng video.Engine, clip document.Clip, src document.Source) (video.Media, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return video.Media{}, fmt.Errorf("read video source: %w", err)
	}
	in := video.Media{FileName: uuid.NewString() + filepath.Ext(src.Path), Data: data}

	w := clip.SourceWindow
	if w.Start == 0 && (src.DurationMs == 0 || w.Duration >= src.DurationMs) {
		return in, nil
	}

	return video.Trim(ctx, eng, in, w.Start, w.Duration, p.encoding())
}

func (p *Project) animationClip(ctx context.Context, eng video.Engine, doc document.VideoDocument, clip document.Clip, src document.Source, stats *Stats) (video.Media, error) {
	if p.Events.OnRasterizeStart != nil {
		p.Events.OnRasterizeStart(clip, src)
	}
	p.logger().Debug("rasterize started", "clip", clip.ID, "source", src.ID, "window_ms", clip.SourceWindow.Duration)

	t := time.Now()
	seq, err := rasterizer.Rasterize(ctx, p.Snapshotter, src, clip.SourceWindow, rasterizer.Options{
		StepMs:  p.Config.SampleStepMs,
		Workers: p.Config.SnapshotWorkers,
		Width:   doc.Dimensions.Width,
		Height:  doc.Dimensions.Height,
		Logger:  p.Logger,
	})
	stats.Rasterize += time.Since(t)
	if err != nil {
		return video.Media{}, err
	}
	stats.Frames += len(seq)

	if p.Events.OnRasterizeEnd != nil {
		p.Events.OnRasterizeEnd(clip, src, len(seq))
	}
	p.logger().Debug("rasterize finished", "clip", clip.ID, "frames", len(seq))

	t = time.Now()
	c := &compositor.Compositor{
		Engine:       eng,
		ChunkFrames:  p.Config.ChunkFrames,
		OverlayBatch: p.Config.OverlayBatch,
		Background:   p.Config.Background,
		FastPreset:   p.Config.FastPreset,
		Logger:       logging.WithComponent(p.Logger, "compositor"),
	}
	out, err := c.Composite(ctx, seq, doc.Dimensions, doc.FrameRate)
	stats.Composite += time.Since(t)
	return out, err
}

func (p *Project) stillClip(ctx context.Context, eng video.Engine, doc document.VideoDocument, clip document.Clip, src document.Source) (video.Media, error) {
	img, err := source.Page(src.Path, src.Page)
	if err != nil {
		return video.Media{}, err
	}
	w, h := doc.Dimensions.Width, doc.Dimensions.Height
	png, err := source.Letterbox(img, w, h, p.Config.Background)
	if err != nil {
		return video.Media{}, err
	}

	filter := effects.Filter(effects.Params{
		Width:      w,
		Height:     h,
		FPS:        doc.FrameRate,
		DurationMs: clip.Duration(),
		Motion:     src.Motion,
		OutroMs:    min(1000, clip.Duration()/4),
		Seed:       seed(clip.ID),
	})
	return video.EncodeStill(ctx, eng, png, filter, clip.Duration(), doc.FrameRate, p.encoding())
}

func seed(id string) int64 {
	h := fnv.New64a()
	h.Write([]byte(id))
	return int64(h.Sum64())
}
