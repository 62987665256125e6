package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/clip2video/internal/animation"
	"github.com/ivlev/clip2video/internal/config"
	"github.com/ivlev/clip2video/internal/document"
	"github.com/ivlev/clip2video/internal/engine"
	"github.com/ivlev/clip2video/internal/snapshot"
	"github.com/ivlev/clip2video/internal/system"
	"github.com/ivlev/clip2video/internal/timecode"
	"github.com/ivlev/clip2video/internal/video"
)

// defaultStillMs is how long a still clip plays when no duration is given.
const defaultStillMs = 3000

func runNew(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	project := fs.String("project", "project.yaml", "Project file to create")
	width := fs.Int("width", 0, "Width (default from config)")
	height := fs.Int("height", 0, "Height (default from config)")
	fps := fs.Int("fps", 0, "Frame rate (default from config)")
	force := fs.Bool("force", false, "Overwrite an existing project")
	fs.Parse(args)

	cfg, _, err := cf.load()
	if err != nil {
		return err
	}
	if _, err := os.Stat(*project); err == nil && !*force {
		return fmt.Errorf("%s already exists, use -force to overwrite", *project)
	}

	dims := document.Dimensions{Width: orDefault(*width, cfg.Width), Height: orDefault(*height, cfg.Height)}
	doc := document.New(dims, orDefault(*fps, cfg.FPS))
	if err := document.Write(*project, doc, document.Library{}); err != nil {
		return err
	}
	fmt.Printf("[+++] Project created: %s (%s @ %d FPS)\n", *project, dims, doc.FrameRate)
	return nil
}

func runImport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	project := fs.String("project", "project.yaml", "Project file")
	id := fs.String("id", "", "Source id (generated when empty)")
	kind := fs.String("kind", "", "video, animation or still")
	path := fs.String("path", "", "Media file; for animations the HTML markup file (default: latest file in input/)")
	cssPath := fs.String("css", "", "Animation stylesheet file")
	title := fs.String("title", "", "Title")
	page := fs.Int("page", 0, "PDF page index of a still")
	motion := fs.String("motion", "center", "Still motion: none, center, top-left, top-right, bottom-left, bottom-right, random")
	durationMs := fs.Int64("duration", 0, "Duration in ms (probed or derived when 0)")
	fs.Parse(args)

	cfg, _, err := cf.load()
	if err != nil {
		return err
	}
	doc, lib, err := document.Read(*project)
	if err != nil {
		return err
	}

	src := document.Source{
		ID:         *id,
		Kind:       document.SourceKind(*kind),
		Title:      *title,
		DurationMs: *durationMs,
	}
	if src.ID == "" {
		src.ID = uuid.NewString()
	}

	switch src.Kind {
	case document.KindVideo:
		if src.Path, err = inputPath(*path, filepath.Join("input", "video"), system.VideoExtensions); err != nil {
			return err
		}
		if src.DurationMs == 0 {
			if src.DurationMs, err = system.ProbeDuration(ctx, cfg.FFprobePath, src.Path); err != nil {
				return err
			}
		}

	case document.KindAnimation:
		html, err := os.ReadFile(*path)
		if err != nil {
			return fmt.Errorf("read markup: %w", err)
		}
		src.HTML = string(html)
		if *cssPath != "" {
			css, err := os.ReadFile(*cssPath)
			if err != nil {
				return fmt.Errorf("read stylesheet: %w", err)
			}
			src.CSS = string(css)
		}
		if src.DurationMs == 0 {
			if src.DurationMs, err = animation.PlayableDuration(src.CSS); err != nil {
				return err
			}
			if src.DurationMs == 0 {
				return errors.New("stylesheet declares no finite animation, pass -duration")
			}
		}

	case document.KindStill:
		if src.Path, err = inputPath(*path, filepath.Join("input", "still"), system.StillExtensions); err != nil {
			return err
		}
		src.Page = *page
		src.Motion = *motion
		if src.DurationMs == 0 {
			src.DurationMs = defaultStillMs
		}

	default:
		return fmt.Errorf("unknown source kind %q", *kind)
	}

	if err := lib.Add(src); err != nil {
		return err
	}
	if err := document.Write(*project, doc, lib); err != nil {
		return err
	}
	fmt.Printf("[+++] Imported %s source %s (%s)\n", src.Kind, src.ID, timecode.FromMilliseconds(src.DurationMs))
	return nil
}

func runInsert(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	project := fs.String("project", "project.yaml", "Project file")
	sourceID := fs.String("source", "", "Source id")
	at := fs.Int64("at", -1, "Timeline position in ms (default: end of timeline)")
	from := fs.Int64("from", 0, "Offset into the source in ms")
	duration := fs.Int64("duration", 0, "Clip length in ms (default: rest of the source)")
	overlap := fs.String("front-overlap", "", "drop or truncate (default from config)")
	fs.Parse(args)

	cfg, _, err := cf.load()
	if err != nil {
		return err
	}
	doc, lib, err := document.Read(*project)
	if err != nil {
		return err
	}
	src, err := lib.Get(*sourceID)
	if err != nil {
		return err
	}

	policy, err := frontOverlap(*overlap, cfg)
	if err != nil {
		return err
	}

	window := document.MillisecondRange{Start: *from, Duration: *duration}
	if window.Duration == 0 {
		window.Duration = src.DurationMs - *from
	}
	if err := window.Validate(); err != nil {
		return err
	}
	position := *at
	if position < 0 {
		position = doc.DurationMs
	}

	clip := document.NewClip(src.ID, window)
	doc = document.InsertClip(doc, clip, position, document.WithFrontOverlap(policy))
	if err := document.Write(*project, doc, lib); err != nil {
		return err
	}

	fmt.Printf("[+++] Inserted clip %s at %s\n", clip.ID, timecode.FromMilliseconds(position))
	for i, c := range doc.Timeline {
		fmt.Printf("    %2d. %-10s %s +%s\n", i+1, c.Source, timecode.FromMilliseconds(c.Placement.Start), timecode.FromMilliseconds(c.Duration()))
	}
	fmt.Printf("[*] Duration: %s\n", timecode.FromMilliseconds(doc.DurationMs))
	return nil
}

func runRender(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	project := fs.String("project", "project.yaml", "Project file")
	output := fs.String("output", "", "Output video (default: output/<project>_<timestamp>.mp4)")
	stats := fs.Bool("stats", false, "Print a performance report and append it to benchmark.log")
	encoder := fs.String("encoder", "", "libx264, h264_nvenc, h264_videotoolbox or auto (default from config)")
	fs.Parse(args)

	cfg, logger, err := cf.load()
	if err != nil {
		return err
	}
	if *stats {
		cfg.ShowStats = true
	}
	if *encoder != "" {
		cfg.VideoEncoder = *encoder
	}
	if cfg.VideoEncoder == "auto" {
		cfg.VideoEncoder = system.BestH264Encoder(ctx, cfg.FFmpegPath)
		if cfg.VideoEncoder != "libx264" {
			fmt.Printf("[*] Hardware encoder detected: %s\n", cfg.VideoEncoder)
		}
	}

	doc, lib, err := document.Read(*project)
	if err != nil {
		return err
	}

	finalOutput := *output
	if finalOutput == "" {
		name := strings.TrimSuffix(filepath.Base(*project), filepath.Ext(*project))
		timestamp := time.Now().Format("2006-01-02_15-04-05")
		finalOutput = filepath.Join("output", fmt.Sprintf("%s_%s.mp4", strings.ReplaceAll(name, " ", "_"), timestamp))
	}
	if err := os.MkdirAll(filepath.Dir(finalOutput), 0755); err != nil {
		return err
	}

	fmt.Println("--- [CLIP2VIDEO RENDER] ---")
	fmt.Printf("[*] Project: %s | Clips: %d | Duration: %s\n", *project, len(doc.Timeline), timecode.FromMilliseconds(doc.DurationMs))
	fmt.Printf("[*] Resolution: %s @ %d FPS | Encoder: %s\n", doc.Dimensions, doc.FrameRate, cfg.VideoEncoder)
	fmt.Println("---------------------------")

	p := engine.NewProject(cfg, engine.FFmpegFactory(cfg, logger), snapshot.NewChrome(cfg.BrowserPath, logger), logger)
	p.Events = engine.Events{
		OnRasterizeStart: func(c document.Clip, s document.Source) {
			fmt.Printf("[*] Rasterizing %s (%s)...\n", s.ID, timecode.FromMilliseconds(c.Duration()))
		},
		OnRasterizeEnd: func(c document.Clip, s document.Source, frames int) {
			fmt.Printf("[*] Compositing %d frames of %s...\n", frames, s.ID)
		},
		OnClipReady: func(i, n int) {
			fmt.Printf("[>] Ready: %d/%d\n", i, n)
		},
	}

	out, err := p.Render(ctx, doc, lib)
	if err != nil {
		return err
	}
	if err := os.WriteFile(finalOutput, out.Data, 0644); err != nil {
		return err
	}
	fmt.Printf("[+++] Done! Result: %s\n", finalOutput)
	return nil
}

func runProbe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("probe", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	fs.Parse(args)
	if fs.NArg() != 1 {
		return errors.New("usage: clip2video probe FILE")
	}

	cfg, _, err := cf.load()
	if err != nil {
		return err
	}
	ms, err := system.ProbeDuration(ctx, cfg.FFprobePath, fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%d ms\t%s\n", fs.Arg(0), ms, timecode.FromMilliseconds(ms))
	return nil
}

func runFrame(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("frame", flag.ExitOnError)
	var cf configFlags
	cf.register(fs)
	input := fs.String("input", "", "Video file")
	at := fs.Int64("at", 0, "Position in ms")
	output := fs.String("output", "frame.png", "PNG file to write")
	fs.Parse(args)

	cfg, logger, err := cf.load()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(*input)
	if err != nil {
		return err
	}

	eng, err := engine.FFmpegFactory(cfg, logger)()
	if err != nil {
		return err
	}
	defer eng.Close()

	src := video.Media{FileName: "input" + filepath.Ext(*input), Data: data}
	frame, err := video.ExportFrame(ctx, eng, src, *at)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*output, frame.Data, 0644); err != nil {
		return err
	}
	fmt.Printf("[+++] Frame at %s written to %s\n", timecode.FromMilliseconds(*at), *output)
	return nil
}

// inputPath falls back to the newest matching file in dir, the way files
// dropped into input/ are picked up.
func inputPath(path, dir string, exts []string) (string, error) {
	if path == "" {
		latest, err := system.FindLatest(dir, exts)
		if err != nil {
			return "", fmt.Errorf("%v: pass -path or put a file into %s", err, dir)
		}
		fmt.Printf("[*] Selected file: %s\n", latest)
		path = latest
	}
	return filepath.Abs(path)
}

func frontOverlap(flagValue string, cfg *config.Config) (document.FrontOverlap, error) {
	v := flagValue
	if v == "" {
		v = cfg.FrontOverlap
	}
	switch v {
	case config.FrontOverlapDrop:
		return document.FrontOverlapDrop, nil
	case config.FrontOverlapTruncate:
		return document.FrontOverlapTruncate, nil
	default:
		return 0, fmt.Errorf("unknown front overlap policy %q", v)
	}
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
