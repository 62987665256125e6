package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/clip2video/internal/config"
	"github.com/ivlev/clip2video/internal/document"
)

func TestEditProject(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "p.yaml")
	conf := filepath.Join(dir, "none.toml")
	ctx := context.Background()

	markup := filepath.Join(dir, "a.html")
	style := filepath.Join(dir, "a.css")
	still := filepath.Join(dir, "page.png")
	require.NoError(t, os.WriteFile(markup, []byte(`<div class="box"></div>`), 0644))
	require.NoError(t, os.WriteFile(style, []byte(`.box { animation: spin 2s 500ms 3; }`), 0644))
	require.NoError(t, os.WriteFile(still, []byte("png"), 0644))

	require.NoError(t, runNew(ctx, []string{"-config", conf, "-project", project, "-width", "640", "-height", "360"}))
	assert.Error(t, runNew(ctx, []string{"-config", conf, "-project", project}), "existing project needs -force")

	require.NoError(t, runImport(ctx, []string{"-config", conf, "-project", project,
		"-id", "intro", "-kind", "animation", "-path", markup, "-css", style}))
	require.NoError(t, runImport(ctx, []string{"-config", conf, "-project", project,
		"-id", "slide", "-kind", "still", "-path", still, "-duration", "2000"}))

	require.NoError(t, runInsert(ctx, []string{"-config", conf, "-project", project, "-source", "intro"}))
	require.NoError(t, runInsert(ctx, []string{"-config", conf, "-project", project, "-source", "slide"}))
	// overwrites the middle of the animation
	require.NoError(t, runInsert(ctx, []string{"-config", conf, "-project", project,
		"-source", "slide", "-at", "1000", "-duration", "1000", "-front-overlap", "truncate"}))

	doc, lib, err := document.Read(project)
	require.NoError(t, err)
	assert.Equal(t, document.Dimensions{Width: 640, Height: 360}, doc.Dimensions)
	assert.EqualValues(t, 6500, lib["intro"].DurationMs)
	assert.Equal(t, "center", lib["slide"].Motion)

	require.Len(t, doc.Timeline, 4)
	var placements []document.MillisecondRange
	for _, c := range doc.Timeline {
		placements = append(placements, c.Placement)
	}
	assert.Equal(t, []document.MillisecondRange{
		{Start: 0, Duration: 1000},
		{Start: 1000, Duration: 1000},
		{Start: 2000, Duration: 4500},
		{Start: 6500, Duration: 2000},
	}, placements)
	assert.EqualValues(t, 8500, doc.DurationMs)
}

func TestImportRejects(t *testing.T) {
	dir := t.TempDir()
	project := filepath.Join(dir, "p.yaml")
	conf := filepath.Join(dir, "none.toml")
	ctx := context.Background()
	require.NoError(t, runNew(ctx, []string{"-config", conf, "-project", project}))

	err := runImport(ctx, []string{"-config", conf, "-project", project, "-kind", "audio", "-path", "x"})
	assert.ErrorContains(t, err, "unknown source kind")

	style := filepath.Join(dir, "still.css")
	markup := filepath.Join(dir, "still.html")
	require.NoError(t, os.WriteFile(style, []byte(`.box { color: red; }`), 0644))
	require.NoError(t, os.WriteFile(markup, []byte(`<p></p>`), 0644))
	err = runImport(ctx, []string{"-config", conf, "-project", project, "-kind", "animation", "-path", markup, "-css", style})
	assert.ErrorContains(t, err, "no finite animation")
}

func TestFrontOverlap(t *testing.T) {
	cfg := config.Default()

	p, err := frontOverlap("", cfg)
	require.NoError(t, err)
	assert.Equal(t, document.FrontOverlapDrop, p)

	p, err = frontOverlap("truncate", cfg)
	require.NoError(t, err)
	assert.Equal(t, document.FrontOverlapTruncate, p)

	_, err = frontOverlap("ripple", cfg)
	assert.Error(t, err)
}
