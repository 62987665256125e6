package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ivlev/clip2video/internal/config"
	"github.com/ivlev/clip2video/internal/logging"
	"github.com/ivlev/clip2video/internal/system"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const usage = `clip2video: timeline editing and rendering

Usage:
  clip2video new    -project p.yaml [-width 1280 -height 720 -fps 30]
  clip2video import -project p.yaml -id ID -kind video|animation|still -path FILE [-css FILE] [-page N] [-motion MODE]
  clip2video insert -project p.yaml -source ID -at MS [-from MS] [-duration MS] [-front-overlap drop|truncate]
  clip2video render -project p.yaml [-output out.mp4] [-stats]
  clip2video probe  FILE
  clip2video frame  -input video.mp4 -at MS [-output frame.png]

Every command accepts -config FILE (TOML).
`

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"new":    runNew,
	"import": runImport,
	"insert": runInsert,
	"render": runRender,
	"probe":  runProbe,
	"frame":  runFrame,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, os.Args[2:]); err != nil {
		log.Fatalf("[-] %s: %v", os.Args[1], err)
	}
}

// configFlags registers -config plus the overrides shared by all commands.
type configFlags struct {
	path     string
	logLevel string
}

func (f *configFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.path, "config", "clip2video.toml", "TOML config file (optional)")
	fs.StringVar(&f.logLevel, "log-level", "", "debug, info, warn, error")
}

func (f *configFlags) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(f.path)
	if err != nil {
		return nil, nil, err
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	cfg.BuildVersion = version
	logger := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	system.InitResourceLimits(logger)
	return cfg, logger, nil
}
