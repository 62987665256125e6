package video

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ivlev/clip2video/internal/timecode"
)

// Encoding selects the encoder used whenever a step re-encodes.
type Encoding struct {
	Encoder string
	Quality int
	Preset  string
}

func (e Encoding) args() []string {
	encoder := e.Encoder
	if encoder == "" {
		encoder = "libx264"
	}
	args := []string{"-c:v", encoder, "-pix_fmt", "yuv420p"}
	return append(args, QualityArgs(encoder, e.Quality, e.Preset)...)
}

// Put makes m available under m.FileName. Media without data is assumed to
// already live in the engine.
func Put(ctx context.Context, eng Engine, m Media) error {
	if m.Data == nil {
		return nil
	}
	if err := eng.WriteFile(ctx, m.FileName, m.Data); err != nil {
		return fmt.Errorf("write %s: %w", m.FileName, err)
	}
	return nil
}

// Concat joins already encoded files with the concat demuxer, stream copying
// every input. Inputs must share codec parameters. The manifest and the
// inputs are removed from the engine afterwards; the output stays.
func Concat(ctx context.Context, eng Engine, files []Media, preset string) (Media, error) {
	if len(files) == 0 {
		return Media{}, ErrNoInputs
	}

	s := NewScratch(eng)
	defer s.Release()

	var manifest strings.Builder
	for _, f := range files {
		if err := Put(ctx, eng, f); err != nil {
			return Media{}, err
		}
		s.Track(f.FileName)
		fmt.Fprintf(&manifest, "file '%s'\n", f.FileName)
	}

	list, err := s.Write(ctx, "", ".txt", []byte(manifest.String()))
	if err != nil {
		return Media{}, fmt.Errorf("write concat list: %w", err)
	}

	out := uuid.NewString() + ".mp4"
	err = eng.Exec(ctx, []string{
		"-f", "concat",
		"-safe", "0",
		"-i", list,
		"-async", "1",
		"-c", "copy",
		"-fflags", "+genpts",
		"-preset", preset,
		out,
	})
	if err != nil {
		s.Track(out)
		return Media{}, fmt.Errorf("concat %d files: %w", len(files), err)
	}
	return ReadMedia(ctx, eng, out)
}

// Trim re-encodes the part of in covered by [startMs, startMs+durationMs).
// Like Concat it deletes its input and leaves only the output in the engine.
func Trim(ctx context.Context, eng Engine, in Media, startMs, durationMs int64, enc Encoding) (Media, error) {
	s := NewScratch(eng)
	defer s.Release()

	s.Track(in.FileName)
	if err := Put(ctx, eng, in); err != nil {
		return Media{}, err
	}
	out := s.Name("", ".mp4")
	args := []string{
		"-ss", timecode.FromMilliseconds(startMs),
		"-i", in.FileName,
		"-t", timecode.FromMilliseconds(durationMs),
	}
	args = append(args, enc.args()...)
	args = append(args, out)
	if err := eng.Exec(ctx, args); err != nil {
		return Media{}, fmt.Errorf("trim %s: %w", in.FileName, err)
	}
	m, err := ReadMedia(ctx, eng, out)
	if err != nil {
		return Media{}, err
	}
	s.Keep(out)
	return m, nil
}

// EncodeStill loops one image for durationMs through filter.
func EncodeStill(ctx context.Context, eng Engine, png []byte, filter string, durationMs int64, fps int, enc Encoding) (Media, error) {
	s := NewScratch(eng)
	defer s.Release()

	in, err := s.Write(ctx, "", ".png", png)
	if err != nil {
		return Media{}, fmt.Errorf("write still: %w", err)
	}

	out := uuid.NewString() + ".mp4"
	args := []string{"-loop", "1", "-i", in}
	if filter != "" {
		args = append(args, "-vf", filter)
	}
	args = append(args,
		"-t", timecode.Seconds(float64(durationMs)),
		"-r", fmt.Sprintf("%d", fps),
	)
	args = append(args, enc.args()...)
	args = append(args, out)

	if err := eng.Exec(ctx, args); err != nil {
		s.Track(out)
		return Media{}, fmt.Errorf("encode still: %w", err)
	}
	return ReadMedia(ctx, eng, out)
}

// ExportFrame extracts the frame shown at ms as a PNG image.
func ExportFrame(ctx context.Context, eng Engine, src Media, ms int64) (Media, error) {
	if err := Put(ctx, eng, src); err != nil {
		return Media{}, err
	}
	s := NewScratch(eng)
	defer s.Release()

	out := s.Name("", ".png")
	err := eng.Exec(ctx, []string{
		"-ss", timecode.FromMilliseconds(ms),
		"-i", src.FileName,
		"-vframes", "1",
		out,
	})
	if err != nil {
		return Media{}, fmt.Errorf("export frame at %dms: %w", ms, err)
	}
	m, err := ReadMedia(ctx, eng, out)
	if err != nil {
		return Media{}, err
	}
	// data is in memory now
	m.URL = ""
	return m, nil
}
