package compositor

import (
	"context"
	"fmt"
	"image"

	"github.com/ivlev/clip2video/internal/rasterizer"
	"github.com/ivlev/clip2video/internal/video"
)

// OverlaySequence draws seq at pos on top of an existing video, keeping the
// frames at their own size. The base file itself is left in place.
func (c *Compositor) OverlaySequence(ctx context.Context, base video.Media, seq rasterizer.FrameSequence, pos image.Point) (video.Media, error) {
	if len(seq) == 0 {
		return video.Media{}, ErrEmptySequence
	}
	if err := video.Put(ctx, c.Engine, base); err != nil {
		return video.Media{}, err
	}

	s := video.NewScratch(c.Engine)
	defer s.Release()

	// a copy, so that folding may delete it like any other stage
	prev, err := c.copyBase(ctx, s, base.FileName)
	if err != nil {
		return video.Media{}, err
	}

	layers := make([]layer, 0, len(seq))
	for _, f := range seq {
		name, err := s.Write(ctx, "", ".png", f.Image)
		if err != nil {
			return video.Media{}, fmt.Errorf("write frame: %w", err)
		}
		layers = append(layers, layer{file: name, rng: f.Range})
	}

	out, err := c.fold(ctx, s, prev, layers, pos)
	if err != nil {
		return video.Media{}, err
	}
	s.Keep(out)
	return video.ReadMedia(ctx, c.Engine, out)
}

func (c *Compositor) copyBase(ctx context.Context, s *video.Scratch, name string) (string, error) {
	data, err := c.Engine.ReadFile(ctx, name)
	if err != nil {
		return "", fmt.Errorf("read base %s: %w", name, err)
	}
	return s.Write(ctx, "", ".mp4", data)
}
