package engine

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ivlev/clip2video/internal/system"
)

// Stats is the wall time spent in each phase of one render.
type Stats struct {
	Clips     int
	Frames    int
	Total     time.Duration
	Rasterize time.Duration
	Composite time.Duration
	Encode    time.Duration
	Concat    time.Duration
}

// report prints the performance report and appends a line to BenchmarkLog.
func (p *Project) report(s Stats) {
	host := system.CollectHostStats()
	writeReport(os.Stdout, p.Config.BuildVersion, s, host)

	if p.BenchmarkLog == "" {
		return
	}
	f, err := os.OpenFile(p.BenchmarkLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("[!] Cannot write %s: %v\n", p.BenchmarkLog, err)
		return
	}
	defer f.Close()
	fmt.Fprint(f, benchmarkLine(time.Now(), p.Config.BuildVersion, s, host))
}

func writeReport(w io.Writer, build string, s Stats, host system.HostStats) {
	fmt.Fprintf(w,
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Clips: %d | Frames: %d\n"+
			"Total Time: %.2fs\n"+
			"Rasterizing: %.2fs\n"+
			"Compositing: %.2fs\n"+
			"Encoding: %.2fs\n"+
			"Concatenation: %.2fs\n"+
			"Host: %s\n"+
			"----------------------------\n",
		build, s.Clips, s.Frames, s.Total.Seconds(), s.Rasterize.Seconds(), s.Composite.Seconds(),
		s.Encode.Seconds(), s.Concat.Seconds(), host,
	)
}

func benchmarkLine(at time.Time, build string, s Stats, host system.HostStats) string {
	return fmt.Sprintf("[%s] Build: %s | Clips: %d | Frames: %d | Total: %.2fs | Rasterize: %.2fs | Composite: %.2fs | Encode: %.2fs | %s\n",
		at.Format("2006-01-02 15:04:05"),
		build,
		s.Clips,
		s.Frames,
		s.Total.Seconds(),
		s.Rasterize.Seconds(),
		s.Composite.Seconds(),
		s.Encode.Seconds(),
		host,
	)
}
