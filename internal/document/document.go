package document

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnknownSource = errors.New("unknown source")
	ErrNegativeRange = errors.New("negative millisecond range")
)

// MillisecondRange is a window of Duration milliseconds starting at Start.
type MillisecondRange struct {
	Start    int64 `yaml:"start_ms"`
	Duration int64 `yaml:"duration_ms"`
}

func (r MillisecondRange) End() int64 {
	return r.Start + r.Duration
}

func (r MillisecondRange) Validate() error {
	if r.Start < 0 || r.Duration < 0 {
		return fmt.Errorf("%w: start=%d duration=%d", ErrNegativeRange, r.Start, r.Duration)
	}
	return nil
}

type Dimensions struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// Clip places a window of a source on the timeline.
type Clip struct {
	ID     string `yaml:"id"`
	Source string `yaml:"source"`
	// SourceWindow is the part of the source's own media this clip plays.
	SourceWindow MillisecondRange `yaml:"source_window"`
	// Placement is the clip's position on the master timeline.
	Placement MillisecondRange `yaml:"placement"`
}

// NewClip creates a clip with a fresh id playing window of source.
func NewClip(source string, window MillisecondRange) Clip {
	return Clip{
		ID:           uuid.NewString(),
		Source:       source,
		SourceWindow: window,
		Placement:    MillisecondRange{Duration: window.Duration},
	}
}

func (c Clip) Duration() int64 {
	return c.SourceWindow.Duration
}

type VideoDocument struct {
	Dimensions Dimensions `yaml:"dimensions"`
	FrameRate  int        `yaml:"frame_rate"`
	Timeline   []Clip     `yaml:"timeline"`
	DurationMs int64      `yaml:"duration_ms"`
}

func New(dims Dimensions, frameRate int) VideoDocument {
	return VideoDocument{
		Dimensions: dims,
		FrameRate:  frameRate,
		Timeline:   []Clip{},
	}
}

// Validate checks every clip against lib and the range invariants.
func (d VideoDocument) Validate(lib Library) error {
	if d.Dimensions.Width <= 0 || d.Dimensions.Height <= 0 {
		return fmt.Errorf("invalid dimensions %s", d.Dimensions)
	}
	if d.FrameRate <= 0 {
		return fmt.Errorf("invalid frame rate %d", d.FrameRate)
	}
	for i, clip := range d.Timeline {
		if _, ok := lib[clip.Source]; !ok {
			return fmt.Errorf("clip %d (%s): %w %q", i, clip.ID, ErrUnknownSource, clip.Source)
		}
		if err := clip.SourceWindow.Validate(); err != nil {
			return fmt.Errorf("clip %d (%s) source window: %w", i, clip.ID, err)
		}
		if err := clip.Placement.Validate(); err != nil {
			return fmt.Errorf("clip %d (%s) placement: %w", i, clip.ID, err)
		}
	}
	return nil
}

// Sequence returns the timeline laid out for playback: each clip starts where
// the previous one ended, regardless of gaps in Placement.
func Sequence(d VideoDocument) []Clip {
	out := make([]Clip, len(d.Timeline))
	var offset int64
	for i, clip := range d.Timeline {
		clip.Placement = MillisecondRange{Start: offset, Duration: clip.Duration()}
		out[i] = clip
		offset += clip.Duration()
	}
	return out
}

func timelineDuration(timeline []Clip) int64 {
	var max int64
	for _, clip := range timeline {
		if end := clip.Placement.End(); end > max {
			max = end
		}
	}
	return max
}
