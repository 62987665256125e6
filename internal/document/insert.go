package document

import "github.com/google/uuid"

// FrontOverlap decides what happens to a clip that starts before the
// insertion point and ends inside the inserted span.
type FrontOverlap int

const (
	// FrontOverlapDrop removes the clip entirely. Only tail overlaps are split.
	FrontOverlapDrop FrontOverlap = iota
	// FrontOverlapTruncate keeps the part of the clip before the insertion point.
	FrontOverlapTruncate
)

type insertOptions struct {
	frontOverlap FrontOverlap
}

// InsertOption configures InsertClip.
type InsertOption func(*insertOptions)

// WithFrontOverlap sets the front overlap policy. The default is FrontOverlapDrop.
func WithFrontOverlap(p FrontOverlap) InsertOption {
	return func(o *insertOptions) {
		o.frontOverlap = p
	}
}

// InsertClip overwrites the span [at, at+clip.Duration()) of the timeline with
// clip. Material already occupying that span is replaced, never shifted. The
// returned document owns a new timeline slice; doc is left untouched.
func InsertClip(doc VideoDocument, clip Clip, at int64, opts ...InsertOption) VideoDocument {
	o := insertOptions{frontOverlap: FrontOverlapDrop}
	for _, opt := range opts {
		opt(&o)
	}

	clipStart := at
	clipEnd := clipStart + clip.Duration()

	placed := clip
	if placed.ID == "" {
		placed.ID = uuid.NewString()
	}
	placed.Placement = MillisecondRange{Start: clipStart, Duration: clip.Duration()}

	timeline := make([]Clip, 0, len(doc.Timeline)+2)
	inserted := false

	for _, existing := range doc.Timeline {
		existingStart := existing.Placement.Start
		existingEnd := existing.Placement.End()

		if existingEnd <= clipStart {
			timeline = append(timeline, existing)
			continue
		}

		if !inserted && existingStart >= clipStart {
			timeline = append(timeline, placed)
			inserted = true
		}

		headKept := false
		if o.frontOverlap == FrontOverlapTruncate && existingStart < clipStart {
			timeline = append(timeline, head(existing, clipStart))
			headKept = true
			if !inserted {
				timeline = append(timeline, placed)
				inserted = true
			}
		}

		if existingStart < clipEnd {
			if existingEnd > clipEnd {
				rest := tail(existing, clipEnd)
				if headKept {
					rest.ID = uuid.NewString()
				}
				timeline = append(timeline, rest)
			}
		} else {
			timeline = append(timeline, existing)
		}
	}

	if !inserted {
		timeline = append(timeline, placed)
	}

	out := doc
	out.Timeline = timeline
	out.DurationMs = timelineDuration(timeline)
	return out
}

// head keeps the part of c placed before until.
func head(c Clip, until int64) Clip {
	d := until - c.Placement.Start
	c.Placement.Duration = d
	c.SourceWindow.Duration = d
	return c
}

// tail keeps the part of c placed from from onwards, advancing its source
// window by the amount cut off.
func tail(c Clip, from int64) Clip {
	cut := from - c.Placement.Start
	d := c.Placement.End() - from
	c.SourceWindow = MillisecondRange{Start: c.SourceWindow.Start + cut, Duration: d}
	c.Placement = MillisecondRange{Start: from, Duration: d}
	return c
}
