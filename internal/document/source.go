package document

import "fmt"

type SourceKind string

const (
	KindVideo     SourceKind = "video"
	KindAnimation SourceKind = "animation"
	KindStill     SourceKind = "still"
)

// Source is media available to clips. Only the fields of its Kind are used.
type Source struct {
	ID         string     `yaml:"id"`
	Kind       SourceKind `yaml:"kind"`
	Title      string     `yaml:"title,omitempty"`
	DurationMs int64      `yaml:"duration_ms"`

	// video and still
	Path string `yaml:"path,omitempty"`

	// animation
	HTML string `yaml:"html,omitempty"`
	CSS  string `yaml:"css,omitempty"`

	// still: PDF page index and zoom motion (center, top-left, ..., random, none)
	Page   int    `yaml:"page,omitempty"`
	Motion string `yaml:"motion,omitempty"`
}

func (s Source) Validate() error {
	switch s.Kind {
	case KindVideo, KindStill:
		if s.Path == "" {
			return fmt.Errorf("source %s: %s source requires a path", s.ID, s.Kind)
		}
	case KindAnimation:
		if s.HTML == "" {
			return fmt.Errorf("source %s: animation source requires html", s.ID)
		}
	default:
		return fmt.Errorf("source %s: unknown kind %q", s.ID, s.Kind)
	}
	if s.DurationMs < 0 {
		return fmt.Errorf("source %s: %w", s.ID, ErrNegativeRange)
	}
	return nil
}

// Library resolves source ids referenced by clips.
type Library map[string]Source

func (l Library) Add(s Source) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, exists := l[s.ID]; exists {
		return fmt.Errorf("source %s already exists", s.ID)
	}
	l[s.ID] = s
	return nil
}

func (l Library) Get(id string) (Source, error) {
	s, ok := l[id]
	if !ok {
		return Source{}, fmt.Errorf("%w %q", ErrUnknownSource, id)
	}
	return s, nil
}
