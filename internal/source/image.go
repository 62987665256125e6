package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Image is a single image file, a still with one page.
type Image struct {
	path string
}

func NewImage(path string) (*Image, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	return &Image{path: path}, nil
}

func (s *Image) PageCount() int {
	return 1
}

func (s *Image) RenderPage(index int, dpi int) (image.Image, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	return img, nil
}

func (s *Image) Close() error {
	return nil
}
