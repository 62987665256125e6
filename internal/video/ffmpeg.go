package video

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ivlev/clip2video/internal/logging"
)

const maxOutputBytes = 4 * 1024

// FFmpeg runs the local ffmpeg binary inside a private working directory.
// File names passed to it are relative to that directory. Exec calls are
// serialized: one FFmpeg value is one encoder instance.
type FFmpeg struct {
	bin    string
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewFFmpeg creates the working directory under parent (os.TempDir() when
// empty). Close removes it.
func NewFFmpeg(bin, parent string, logger *slog.Logger) (*FFmpeg, error) {
	if bin == "" {
		bin = "ffmpeg"
	}
	dir, err := os.MkdirTemp(parent, "clip2video_")
	if err != nil {
		return nil, err
	}
	return &FFmpeg{bin: bin, dir: dir, logger: logging.WithComponent(logger, "ffmpeg")}, nil
}

func (f *FFmpeg) Dir() string {
	return f.dir
}

func (f *FFmpeg) URL(name string) string {
	return "file://" + f.path(name)
}

func (f *FFmpeg) path(name string) string {
	return filepath.Join(f.dir, filepath.FromSlash(name))
}

func (f *FFmpeg) WriteFile(_ context.Context, name string, data []byte) error {
	return os.WriteFile(f.path(name), data, 0644)
}

func (f *FFmpeg) ReadFile(_ context.Context, name string) ([]byte, error) {
	return os.ReadFile(f.path(name))
}

func (f *FFmpeg) CreateDir(_ context.Context, name string) error {
	return os.MkdirAll(f.path(name), 0755)
}

// DeleteFile removes name. Deleting a file that is already gone succeeds.
func (f *FFmpeg) DeleteFile(_ context.Context, name string) error {
	err := os.Remove(f.path(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FFmpeg) Exec(ctx context.Context, args []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	full := append([]string{"-hide_banner", "-loglevel", "error", "-y"}, args...)
	f.logger.Debug("exec", "command", f.bin+" "+strings.Join(full, " "))

	cmd := exec.CommandContext(ctx, f.bin, full...)
	cmd.Dir = f.dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return &ExecError{Args: args, Output: tail(out, maxOutputBytes), Err: err}
	}
	return nil
}

func (f *FFmpeg) Close() error {
	if f.dir == "" {
		return nil
	}
	err := os.RemoveAll(f.dir)
	if err != nil {
		return fmt.Errorf("remove workdir %s: %w", f.dir, err)
	}
	f.dir = ""
	return nil
}

func tail(out []byte, n int) string {
	if len(out) > n {
		out = out[len(out)-n:]
	}
	return strings.TrimSpace(string(out))
}
