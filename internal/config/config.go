package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Overlap policies for clips that start before an insertion point and end inside it.
const (
	FrontOverlapDrop     = "drop"
	FrontOverlapTruncate = "truncate"
)

type Config struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
	FPS    int `toml:"fps"`

	// Rasterization
	SampleStepMs    float64 `toml:"sample_step_ms"`
	SnapshotWorkers int     `toml:"snapshot_workers"`
	BrowserPath     string  `toml:"browser_path"`

	// Compositing. ChunkFrames and OverlayBatch bound the size of a single
	// ffmpeg filter graph.
	ChunkFrames  int    `toml:"chunk_frames"`
	OverlayBatch int    `toml:"overlay_batch"`
	Background   string `toml:"background"`

	// Encoding
	FFmpegPath   string `toml:"ffmpeg_path"`
	FFprobePath  string `toml:"ffprobe_path"`
	Preset       string `toml:"preset"`
	FastPreset   string `toml:"fast_preset"`
	VideoEncoder string `toml:"video_encoder"`
	Quality      int    `toml:"quality"`
	WorkDir      string `toml:"work_dir"`

	// Editing
	FrontOverlap string `toml:"front_overlap"`

	LogLevel     string `toml:"log_level"`
	LogFormat    string `toml:"log_format"`
	ShowStats    bool   `toml:"show_stats"`
	BuildVersion string `toml:"-"`
}

func Default() *Config {
	return &Config{
		Width:           1280,
		Height:          720,
		FPS:             30,
		SampleStepMs:    1000.0 / 60.0,
		SnapshotWorkers: 5,
		BrowserPath:     "chromium",
		ChunkFrames:     50,
		OverlayBatch:    20,
		Background:      "white",
		FFmpegPath:      "ffmpeg",
		FFprobePath:     "ffprobe",
		Preset:          "medium",
		FastPreset:      "ultrafast",
		VideoEncoder:    "libx264",
		Quality:         23,
		FrontOverlap:    FrontOverlapDrop,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads a TOML file over the defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch {
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("invalid resolution: %dx%d", c.Width, c.Height)
	case c.FPS <= 0:
		return fmt.Errorf("invalid fps: %d", c.FPS)
	case c.SampleStepMs <= 0:
		return fmt.Errorf("invalid sample step: %f", c.SampleStepMs)
	case c.SnapshotWorkers <= 0:
		return fmt.Errorf("invalid snapshot workers: %d", c.SnapshotWorkers)
	case c.ChunkFrames <= 0 || c.OverlayBatch <= 0:
		return fmt.Errorf("invalid chunking: chunk_frames=%d overlay_batch=%d", c.ChunkFrames, c.OverlayBatch)
	}

	switch c.FrontOverlap {
	case FrontOverlapDrop, FrontOverlapTruncate:
	default:
		return fmt.Errorf("unknown front_overlap policy: %q", c.FrontOverlap)
	}
	return nil
}
