// Package source loads the pages shown by still clips: PDF pages rendered
// with MuPDF, or plain image files.
package source

import (
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Still is a paged document of still images.
type Still interface {
	PageCount() int
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// DefaultDPI renders a letter sized page at roughly 1700 pixels wide.
const DefaultDPI = 200

// Open picks the loader from the file extension.
func Open(path string) (Still, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return NewPDF(path)
	case ".png", ".jpg", ".jpeg":
		return NewImage(path)
	default:
		return nil, fmt.Errorf("unsupported still source %s", path)
	}
}

// Page renders one page of the still at path.
func Page(path string, index int) (image.Image, error) {
	s, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	if index < 0 || index >= s.PageCount() {
		return nil, fmt.Errorf("%s: page %d out of range (%d pages)", path, index, s.PageCount())
	}
	return s.RenderPage(index, DefaultDPI)
}

type PDF struct {
	doc  *fitz.Document
	path string
}

func NewPDF(path string) (*PDF, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &PDF{doc: doc, path: path}, nil
}

func (p *PDF) PageCount() int {
	return p.doc.NumPage()
}

func (p *PDF) RenderPage(index int, dpi int) (image.Image, error) {
	img, err := p.doc.ImageDPI(index, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("render %s page %d: %w", p.path, index, err)
	}
	return img, nil
}

func (p *PDF) Close() error {
	return p.doc.Close()
}
