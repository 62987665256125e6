package system

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ivlev/clip2video/internal/logging"
)

// InitResourceLimits raises the open file limit. Each overlay batch keeps a
// few dozen frame files open in ffmpeg.
func InitResourceLimits(logger *slog.Logger) uint64 {
	logger = logging.OrDiscard(logger)
	var rLimit syscall.Rlimit
	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("cannot read open file limit", "error", err)
		return 0
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		logger.Warn("cannot raise open file limit", "error", err)
		return 0
	}
	logger.Debug("open file limit raised", "limit", rLimit.Cur)
	return uint64(rLimit.Cur)
}

var (
	VideoExtensions = []string{".mp4", ".mov", ".mkv", ".webm"}
	StillExtensions = []string{".pdf", ".png", ".jpg", ".jpeg"}
)

// FindLatest returns the most recently modified file in dir with one of exts.
func FindLatest(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if f.IsDir() {
			continue
		}
		if !slices.Contains(exts, strings.ToLower(filepath.Ext(f.Name()))) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no %s files in %s", strings.Join(exts, "/"), dir)
	}
	return latestFile, nil
}

// ProbeDuration asks ffprobe for the container duration of path, in
// milliseconds.
func ProbeDuration(ctx context.Context, ffprobe, path string) (int64, error) {
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	cmd := exec.CommandContext(ctx, ffprobe, "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %v, output: %s", path, err, strings.TrimSpace(string(out)))
	}
	return parseDuration(string(out))
}

func parseDuration(out string) (int64, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", strings.TrimSpace(out), err)
	}
	return int64(math.Round(seconds * 1000)), nil
}

// BestH264Encoder picks a hardware encoder when ffmpeg was built with one.
// Preference: VideoToolbox (macOS), NVENC (NVIDIA), then libx264.
func BestH264Encoder(ctx context.Context, ffmpeg string) string {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	out, err := exec.CommandContext(ctx, ffmpeg, "-hide_banner", "-encoders").CombinedOutput()
	if err != nil {
		return "libx264"
	}
	return pickEncoder(string(out))
}

func pickEncoder(listing string) string {
	for _, name := range []string{"h264_videotoolbox", "h264_nvenc"} {
		if strings.Contains(listing, name) {
			return name
		}
	}
	return "libx264"
}
