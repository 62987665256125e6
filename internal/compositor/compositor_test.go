package compositor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/clip2video/internal/document"
	"github.com/ivlev/clip2video/internal/rasterizer"
	"github.com/ivlev/clip2video/internal/video"
	"github.com/ivlev/clip2video/internal/video/videotest"
)

var dims = document.Dimensions{Width: 8, Height: 6}

func pngOf(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// frames builds n frames of stepMs each.
func frames(t *testing.T, n int, stepMs float64) rasterizer.FrameSequence {
	img := pngOf(t, dims.Width, dims.Height)
	seq := make(rasterizer.FrameSequence, n)
	for i := range seq {
		seq[i] = rasterizer.Frame{
			Range: rasterizer.FrameRange{StartMs: float64(i) * stepMs, EndMs: float64(i+1) * stepMs},
			Image: img,
		}
	}
	return seq
}

func overlays(execs [][]string) [][]string {
	var out [][]string
	for _, args := range execs {
		if slices.Contains(args, "-filter_complex") {
			out = append(out, args)
		}
	}
	return out
}

func filterOf(args []string) string {
	return args[slices.Index(args, "-filter_complex")+1]
}

func TestComposite(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	c := New(eng, nil)

	seq := frames(t, 120, 40)
	out, err := c.Composite(ctx, seq, dims, 30)
	require.NoError(t, err)

	d, err := videotest.Duration(out.Data)
	require.NoError(t, err)
	assert.Equal(t, int64(4800), d)

	execs := eng.Execs()
	// chunks of 50, 50 and 20 frames: a blank base and ceil(n/20) overlays each, then one concat
	require.Len(t, execs, (1+3)+(1+3)+(1+1)+1)

	last := execs[len(execs)-1]
	assert.Equal(t, []string{"-f", "concat"}, last[:2])
	assert.Contains(t, last, "ultrafast")

	// every temporary file is gone, only the result is left
	assert.Equal(t, []string{out.FileName}, eng.Files())
	assert.Empty(t, eng.Dirs())
}

func TestCompositeFoldsBatches(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	c := New(eng, nil)

	_, err := c.Composite(ctx, frames(t, 60, 40), dims, 25)
	require.NoError(t, err)

	execs := eng.Execs()
	blank := execs[0]
	assert.Equal(t, []string{
		"-f", "lavfi",
		"-i", "color=c=white:s=8x6",
		"-t", "2",
		"-s", "8x6",
		"-c:v", "libx264",
		"-vf", "format=yuv420p,fps=25",
	}, blank[:len(blank)-1])

	ov := overlays(execs)
	require.Len(t, ov, 3+1)

	// the first batch draws on the blank base, later ones on the previous output
	assert.Equal(t, blank[len(blank)-1], ov[0][1])
	assert.Equal(t, ov[0][len(ov[0])-1], ov[1][1])
	assert.Equal(t, ov[1][len(ov[1])-1], ov[2][1])

	// 20 frame inputs in a full batch, 10 in the last one of the first chunk
	assert.Equal(t, 1+20, strings.Count(strings.Join(ov[0], " "), "-i "))
	assert.Equal(t, 1+10, strings.Count(strings.Join(ov[2], " "), "-i "))

	assert.True(t, strings.HasPrefix(filterOf(ov[0]),
		"[0][1]overlay=enable='between(t,0,0.04)':x=0:y=0[v1];[v1][2]overlay=enable='between(t,0.04,0.08)':x=0:y=0[v2];"))
	assert.True(t, strings.HasPrefix(filterOf(ov[1]), "[0][1]overlay=enable='between(t,0.8,0.84)'"))

	// the second chunk is rebased to its own start
	assert.True(t, strings.HasPrefix(filterOf(ov[3]), "[0][1]overlay=enable='between(t,0,0.04)'"))
	assert.Contains(t, execs[4], "0.4")
}

func TestCompositeSkipsSingleFrameChunks(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	c := New(eng, nil)

	out, err := c.Composite(ctx, frames(t, 51, 40), dims, 30)
	require.NoError(t, err)

	d, err := videotest.Duration(out.Data)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), d)
	assert.Len(t, eng.Execs(), 1+3+1)

	_, err = c.Composite(ctx, frames(t, 1, 40), dims, 30)
	assert.ErrorIs(t, err, ErrEmptySequence)

	_, err = c.Composite(ctx, nil, dims, 30)
	assert.ErrorIs(t, err, ErrEmptySequence)
}

func TestCompositeTunables(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	c := New(eng, nil)
	c.ChunkFrames = 10
	c.OverlayBatch = 5
	c.Background = "black"

	_, err := c.Composite(ctx, frames(t, 30, 40), dims, 30)
	require.NoError(t, err)

	// three chunks, each a blank base and two overlays, then the concat
	execs := eng.Execs()
	require.Len(t, execs, 3*(1+2)+1)
	assert.Contains(t, execs[0], "color=c=black:s=8x6")
}

func TestCompositeCleansUpOnFailure(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	calls := 0
	eng.FailExec = func(args []string) error {
		calls++
		if calls == 3 {
			return errors.New("Cannot allocate memory")
		}
		return nil
	}
	c := New(eng, nil)

	_, err := c.Composite(ctx, frames(t, 60, 40), dims, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlay batch 2/3")

	assert.Empty(t, eng.Files())
	assert.Empty(t, eng.Dirs())
}

func TestCompositeScalesFrames(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	var sizes []image.Point
	eng.FailExec = func(args []string) error {
		if !slices.Contains(args, "-filter_complex") {
			return nil
		}
		data, err := eng.ReadFile(ctx, args[3])
		if err != nil {
			return err
		}
		cfg, err := png.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return err
		}
		sizes = append(sizes, image.Pt(cfg.Width, cfg.Height))
		return nil
	}

	small := pngOf(t, 4, 3)
	seq := rasterizer.FrameSequence{
		{Range: rasterizer.FrameRange{StartMs: 0, EndMs: 40}, Image: small},
		{Range: rasterizer.FrameRange{StartMs: 40, EndMs: 80}, Image: small},
	}
	_, err := New(eng, nil).Composite(ctx, seq, dims, 30)
	require.NoError(t, err)
	assert.Equal(t, []image.Point{image.Pt(8, 6)}, sizes)
}

func TestFit(t *testing.T) {
	same := pngOf(t, 8, 6)
	out, err := Fit(same, dims)
	require.NoError(t, err)
	assert.Equal(t, same, out)

	out, err = Fit(pngOf(t, 16, 12), dims)
	require.NoError(t, err)
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Width)
	assert.Equal(t, 6, cfg.Height)

	_, err = Fit([]byte("not a png"), dims)
	assert.Error(t, err)
}

func TestCanvasPool(t *testing.T) {
	var p canvasPool
	img := p.get(4, 2)
	assert.Equal(t, image.Pt(4, 2), img.Rect.Size())

	img.Pix[0] = 255
	p.put(img)

	again := p.get(4, 2)
	assert.Equal(t, uint8(0), again.Pix[0], "recycled canvases are cleared")
	p.put(again)

	assert.NotPanics(t, func() { p.put(image.NewRGBA(image.Rect(0, 0, 9, 9))) })
	assert.NotPanics(t, func() { p.put(nil) })
}

func TestFitReusesEncoder(t *testing.T) {
	for range 3 {
		out, err := Fit(pngOf(t, 16, 12), dims)
		require.NoError(t, err)
		cfg, err := png.DecodeConfig(bytes.NewReader(out))
		require.NoError(t, err)
		assert.Equal(t, 8, cfg.Width)
	}
}

func TestOverlayFilter(t *testing.T) {
	got := OverlayFilter([]rasterizer.FrameRange{{StartMs: 0, EndMs: 40}, {StartMs: 40, EndMs: 80}, {StartMs: 80, EndMs: 100}}, image.Pt(3, 4))
	assert.Equal(t,
		"[0][1]overlay=enable='between(t,0,0.04)':x=3:y=4[v1];"+
			"[v1][2]overlay=enable='between(t,0.04,0.08)':x=3:y=4[v2];"+
			"[v2][3]overlay=enable='between(t,0.08,0.1)':x=3:y=4",
		got)

	assert.Equal(t, "[0][1]overlay=enable='between(t,0.5,1.25)':x=0:y=0",
		OverlayFilter([]rasterizer.FrameRange{{StartMs: 500, EndMs: 1250}}, image.Point{}))
}

func TestChunks(t *testing.T) {
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunks([]int{1, 2, 3, 4, 5}, 2))
	assert.Nil(t, Chunks([]int{}, 3))
}

func TestOverlaySequence(t *testing.T) {
	ctx := context.Background()
	eng := videotest.New()
	c := New(eng, nil)

	base := video.Media{FileName: "base.mp4", Data: videotest.Media(3000)}
	out, err := c.OverlaySequence(ctx, base, frames(t, 3, 100), image.Pt(10, 20))
	require.NoError(t, err)

	d, err := videotest.Duration(out.Data)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), d)

	ov := overlays(eng.Execs())
	require.Len(t, ov, 1)
	assert.Contains(t, filterOf(ov[0]), "between(t,0.1,0.2)':x=10:y=20")

	assert.ElementsMatch(t, []string{"base.mp4", out.FileName}, eng.Files())
}
