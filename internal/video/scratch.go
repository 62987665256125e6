package video

import (
	"context"
	"errors"
	"path"

	"github.com/google/uuid"
)

// Scratch tracks temporary engine files owned by one pipeline step. Files are
// deleted as soon as they are consumed; whatever is left is deleted by
// Release, which callers defer so that error paths clean up too.
type Scratch struct {
	eng   Engine
	files map[string]struct{}
	dirs  []string
}

func NewScratch(eng Engine) *Scratch {
	return &Scratch{eng: eng, files: map[string]struct{}{}}
}

// Name returns a fresh file name with the given extension, optionally inside
// dir, and tracks it.
func (s *Scratch) Name(dir, ext string) string {
	name := uuid.NewString() + ext
	if dir != "" {
		name = path.Join(dir, name)
	}
	s.Track(name)
	return name
}

func (s *Scratch) Track(name string) {
	s.files[name] = struct{}{}
}

// Dir creates a namespace directory that lives as long as the scratch.
func (s *Scratch) Dir(ctx context.Context) (string, error) {
	dir := uuid.NewString()
	if err := s.eng.CreateDir(ctx, dir); err != nil {
		return "", err
	}
	s.dirs = append(s.dirs, dir)
	return dir, nil
}

// Write stores data under a fresh tracked name.
func (s *Scratch) Write(ctx context.Context, dir, ext string, data []byte) (string, error) {
	name := s.Name(dir, ext)
	if err := s.eng.WriteFile(ctx, name, data); err != nil {
		return "", err
	}
	return name, nil
}

// Consume deletes files that a finished step no longer needs.
func (s *Scratch) Consume(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := s.eng.DeleteFile(ctx, name); err != nil {
			return err
		}
		delete(s.files, name)
	}
	return nil
}

// Keep stops tracking name so that Release leaves it in place.
func (s *Scratch) Keep(name string) {
	delete(s.files, name)
}

// Release deletes every file still tracked, then the scratch directories.
// It uses a fresh context so that cleanup still runs after cancellation.
func (s *Scratch) Release() error {
	ctx := context.WithoutCancel(context.Background())
	var errs []error
	for name := range s.files {
		if err := s.eng.DeleteFile(ctx, name); err != nil {
			errs = append(errs, err)
		}
		delete(s.files, name)
	}
	for i := len(s.dirs) - 1; i >= 0; i-- {
		if err := s.eng.DeleteFile(ctx, s.dirs[i]); err != nil {
			errs = append(errs, err)
		}
	}
	s.dirs = nil
	return errors.Join(errs...)
}

// Pending lists tracked files, mostly for tests.
func (s *Scratch) Pending() []string {
	out := make([]string, 0, len(s.files))
	for name := range s.files {
		out = append(out, name)
	}
	return out
}
