package video

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNoInputs = errors.New("no input files")

// Engine is a command driven media tool working on files in its own
// namespace. All compositing and concatenation is expressed as argv
// sequences passed to Exec.
type Engine interface {
	WriteFile(ctx context.Context, name string, data []byte) error
	ReadFile(ctx context.Context, name string) ([]byte, error)
	Exec(ctx context.Context, args []string) error
	CreateDir(ctx context.Context, name string) error
	DeleteFile(ctx context.Context, name string) error
	Close() error
}

// Media is an encoded artifact: a video or an image.
type Media struct {
	FileName string
	Data     []byte
	URL      string
}

// ExecError carries the tail of the engine's output for a failed command.
type ExecError struct {
	Args   []string
	Output string
	Err    error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("ffmpeg %s: %v, output: %s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// ReadMedia reads name back from the engine as a Media handle.
func ReadMedia(ctx context.Context, eng Engine, name string) (Media, error) {
	data, err := eng.ReadFile(ctx, name)
	if err != nil {
		return Media{}, fmt.Errorf("read %s: %w", name, err)
	}
	m := Media{FileName: name, Data: data}
	if u, ok := eng.(interface{ URL(string) string }); ok {
		m.URL = u.URL(name)
	}
	return m, nil
}

// QualityArgs returns the rate control flags for an encoder.
func QualityArgs(encoder string, quality int, preset string) []string {
	switch encoder {
	case "h264_videotoolbox":
		// VideoToolbox ignores -crf, use a bitrate instead
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", preset}
	}
}
