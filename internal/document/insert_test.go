package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clipAt(id string, start, duration int64) Clip {
	return Clip{
		ID:           id,
		Source:       "src-" + id,
		SourceWindow: MillisecondRange{Start: 0, Duration: duration},
		Placement:    MillisecondRange{Start: start, Duration: duration},
	}
}

func docWith(clips ...Clip) VideoDocument {
	doc := New(Dimensions{Width: 1600, Height: 900}, 30)
	doc.Timeline = clips
	doc.DurationMs = timelineDuration(clips)
	return doc
}

func ids(doc VideoDocument) []string {
	var out []string
	for _, c := range doc.Timeline {
		out = append(out, c.ID)
	}
	return out
}

func TestInsertClipEmptyTimeline(t *testing.T) {
	doc := InsertClip(docWith(), clipAt("new", 0, 1000), 0)

	require.Len(t, doc.Timeline, 1)
	assert.Equal(t, int64(1000), doc.DurationMs)
	assert.Equal(t, MillisecondRange{Start: 0, Duration: 1000}, doc.Timeline[0].Placement)
	assert.Equal(t, MillisecondRange{Start: 0, Duration: 1000}, doc.Timeline[0].SourceWindow)
}

func TestInsertClipPastEnd(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000), clipAt("b", 1000, 500))

	doc := InsertClip(base, clipAt("new", 0, 700), 3000)

	assert.Equal(t, []string{"a", "b", "new"}, ids(doc))
	assert.Equal(t, int64(3700), doc.DurationMs)
	assert.Equal(t, int64(3000), doc.Timeline[2].Placement.Start)
}

func TestInsertClipExactReplace(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000), clipAt("b", 1000, 1000), clipAt("c", 2000, 1000))

	doc := InsertClip(base, clipAt("new", 0, 1000), 1000)

	assert.Equal(t, []string{"a", "new", "c"}, ids(doc))
	assert.Equal(t, int64(3000), doc.DurationMs)
}

func TestInsertClipShorterAtStartKeepsTail(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000))

	doc := InsertClip(base, clipAt("new", 0, 500), 0)

	require.Equal(t, []string{"new", "a"}, ids(doc))
	tail := doc.Timeline[1]
	assert.Equal(t, MillisecondRange{Start: 500, Duration: 500}, tail.Placement)
	assert.Equal(t, MillisecondRange{Start: 500, Duration: 500}, tail.SourceWindow)
	assert.Equal(t, "src-a", tail.Source)
	assert.Equal(t, int64(1000), doc.DurationMs)
}

func TestInsertClipConsumesShorterClips(t *testing.T) {
	base := docWith(clipAt("a", 0, 400), clipAt("b", 400, 400))

	doc := InsertClip(base, clipAt("new", 0, 1000), 0)

	assert.Equal(t, []string{"new"}, ids(doc))
	assert.Equal(t, int64(1000), doc.DurationMs)
}

func TestInsertClipTailAdvancesSourceWindow(t *testing.T) {
	a := clipAt("a", 1000, 2000)
	a.SourceWindow = MillisecondRange{Start: 300, Duration: 2000}
	base := docWith(clipAt("x", 0, 1000), a)

	doc := InsertClip(base, clipAt("new", 0, 500), 1000)

	require.Equal(t, []string{"x", "new", "a"}, ids(doc))
	assert.Equal(t, MillisecondRange{Start: 1500, Duration: 1500}, doc.Timeline[2].Placement)
	assert.Equal(t, MillisecondRange{Start: 800, Duration: 1500}, doc.Timeline[2].SourceWindow)
}

func TestInsertClipFrontOverlapDrop(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000), clipAt("b", 1000, 1000))

	doc := InsertClip(base, clipAt("new", 0, 1000), 500)

	// a starts before the insertion point and ends inside the new span: dropped.
	require.Equal(t, []string{"new", "b"}, ids(doc))
	assert.Equal(t, MillisecondRange{Start: 500, Duration: 1000}, doc.Timeline[0].Placement)
	assert.Equal(t, MillisecondRange{Start: 1500, Duration: 500}, doc.Timeline[1].Placement)
	assert.Equal(t, int64(2000), doc.DurationMs)
}

func TestInsertClipFrontOverlapTruncate(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000), clipAt("b", 1000, 1000))

	doc := InsertClip(base, clipAt("new", 0, 1000), 500, WithFrontOverlap(FrontOverlapTruncate))

	require.Equal(t, []string{"a", "new", "b"}, ids(doc))
	assert.Equal(t, MillisecondRange{Start: 0, Duration: 500}, doc.Timeline[0].Placement)
	assert.Equal(t, MillisecondRange{Start: 0, Duration: 500}, doc.Timeline[0].SourceWindow)
	assert.Equal(t, MillisecondRange{Start: 500, Duration: 1000}, doc.Timeline[1].Placement)
	assert.Equal(t, MillisecondRange{Start: 1500, Duration: 500}, doc.Timeline[2].Placement)
}

func TestInsertClipTruncateSplitsEnclosingClip(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000))

	doc := InsertClip(base, clipAt("new", 0, 200), 400, WithFrontOverlap(FrontOverlapTruncate))

	require.Len(t, doc.Timeline, 3)
	assert.Equal(t, "a", doc.Timeline[0].ID)
	assert.Equal(t, "new", doc.Timeline[1].ID)
	assert.NotEqual(t, "a", doc.Timeline[2].ID)
	assert.Equal(t, "src-a", doc.Timeline[2].Source)
	assert.Equal(t, MillisecondRange{Start: 600, Duration: 400}, doc.Timeline[2].Placement)
	assert.Equal(t, MillisecondRange{Start: 600, Duration: 400}, doc.Timeline[2].SourceWindow)
	assert.Equal(t, int64(1000), doc.DurationMs)
}

func TestInsertClipDoesNotAliasInput(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000))
	before := append([]Clip(nil), base.Timeline...)

	doc := InsertClip(base, clipAt("new", 0, 500), 0)
	doc.Timeline[0].ID = "mutated"

	assert.Equal(t, before, base.Timeline)
}

func TestInsertClipReapplySameShape(t *testing.T) {
	base := docWith(clipAt("a", 0, 1000), clipAt("b", 1000, 1000))
	clip := clipAt("new", 0, 700)

	once := InsertClip(base, clip, 300)
	twice := InsertClip(once, clip, 300)

	require.Len(t, twice.Timeline, len(once.Timeline))
	for i := range once.Timeline {
		assert.Equal(t, once.Timeline[i].Placement, twice.Timeline[i].Placement)
	}
	assert.Equal(t, once.DurationMs, twice.DurationMs)
}

func TestInsertClipAssignsID(t *testing.T) {
	clip := clipAt("", 0, 100)
	doc := InsertClip(docWith(), clip, 0)
	assert.NotEmpty(t, doc.Timeline[0].ID)
}

func TestDurationMatchesMaxEnd(t *testing.T) {
	tests := []struct {
		name string
		base VideoDocument
		clip Clip
		at   int64
	}{
		{"empty", docWith(), clipAt("n", 0, 250), 0},
		{"gap", docWith(clipAt("a", 0, 100)), clipAt("n", 0, 250), 1000},
		{"inside", docWith(clipAt("a", 0, 5000)), clipAt("n", 0, 250), 1000},
		{"overhang", docWith(clipAt("a", 0, 500)), clipAt("n", 0, 900), 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := InsertClip(tt.base, tt.clip, tt.at)
			var max int64
			for _, c := range doc.Timeline {
				if c.Placement.End() > max {
					max = c.Placement.End()
				}
			}
			assert.Equal(t, max, doc.DurationMs)
		})
	}
}
