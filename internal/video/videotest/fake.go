// Package videotest provides an in-memory video.Engine for tests.
//
// The fake does not encode anything. Every file it produces holds a tiny
// text record "dur=<ms>" so that tests can check how long the media built by
// a pipeline would be: a lavfi source lasts for its -t, an overlay keeps the
// duration of its first input, a concat sums its manifest and a trim or still
// encode lasts for its -t.
package videotest

import (
	"context"
	"fmt"
	"math"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type Engine struct {
	mu      sync.Mutex
	files   map[string][]byte
	dirs    map[string]bool
	execs   [][]string
	deleted []string
	closed  bool

	// FailExec, when set, is consulted before every command. It may call
	// back into the engine.
	FailExec func(args []string) error
}

func New() *Engine {
	return &Engine{files: map[string][]byte{}, dirs: map[string]bool{}}
}

// Media returns the contents of a media file lasting ms.
func Media(ms int64) []byte {
	return []byte(fmt.Sprintf("dur=%d", ms))
}

// Duration reads back a record written by Media.
func Duration(data []byte) (int64, error) {
	s, ok := strings.CutPrefix(string(data), "dur=")
	if !ok {
		return 0, fmt.Errorf("not a media record: %q", data)
	}
	return strconv.ParseInt(s, 10, 64)
}

func (e *Engine) WriteFile(_ context.Context, name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if dir := path.Dir(name); dir != "." && !e.dirs[dir] {
		return fmt.Errorf("write %s: %w", name, os.ErrNotExist)
	}
	e.files[name] = append([]byte(nil), data...)
	return nil
}

func (e *Engine) ReadFile(_ context.Context, name string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	data, ok := e.files[name]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", name, os.ErrNotExist)
	}
	return append([]byte(nil), data...), nil
}

func (e *Engine) CreateDir(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirs[name] = true
	return nil
}

func (e *Engine) DeleteFile(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirs[name] {
		delete(e.dirs, name)
	} else {
		delete(e.files, name)
	}
	e.deleted = append(e.deleted, name)
	return nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func (e *Engine) Exec(_ context.Context, args []string) error {
	e.mu.Lock()
	e.execs = append(e.execs, append([]string(nil), args...))
	e.mu.Unlock()
	if e.FailExec != nil {
		if err := e.FailExec(args); err != nil {
			return err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	inputs := flagValues(args, "-i")
	for _, in := range inputs {
		if strings.HasPrefix(in, "color=") {
			continue
		}
		if _, ok := e.files[in]; !ok {
			return fmt.Errorf("input %s: %w", in, os.ErrNotExist)
		}
	}

	out := args[len(args)-1]
	var ms int64
	switch {
	case has(args, "concat"):
		for _, line := range strings.Split(string(e.files[inputs[0]]), "\n") {
			name, ok := strings.CutPrefix(line, "file '")
			if !ok {
				continue
			}
			d, err := Duration(e.files[strings.TrimSuffix(name, "'")])
			if err != nil {
				return err
			}
			ms += d
		}
	case has(args, "-filter_complex"):
		d, err := Duration(e.files[inputs[0]])
		if err != nil {
			return err
		}
		ms = d
	case has(args, "-vframes"):
		e.files[out] = []byte("PNG")
		return nil
	default:
		t := flagValues(args, "-t")
		if len(t) == 0 {
			return fmt.Errorf("fake engine: no duration in %v", args)
		}
		d, err := parseTime(t[0])
		if err != nil {
			return err
		}
		ms = d
	}
	e.files[out] = Media(ms)
	return nil
}

// Execs returns every command run so far.
func (e *Engine) Execs() [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]string(nil), e.execs...)
}

// Files lists the names currently stored.
func (e *Engine) Files() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	names := make([]string, 0, len(e.files))
	for name := range e.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) Dirs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var names []string
	for name := range e.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) Deleted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.deleted...)
}

func (e *Engine) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func flagValues(args []string, flag string) []string {
	var out []string
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			out = append(out, args[i+1])
		}
	}
	return out
}

func has(args []string, v string) bool {
	for _, a := range args {
		if a == v {
			return true
		}
	}
	return false
}

// parseTime accepts both "HH:MM:SS[.mmm]" and plain seconds.
func parseTime(s string) (int64, error) {
	if !strings.Contains(s, ":") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return int64(math.Round(f * 1000)), nil
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad timestamp %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	sec, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}
	return int64(h)*3_600_000 + int64(m)*60_000 + int64(math.Round(sec*1000)), nil
}
