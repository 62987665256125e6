package compositor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sync"

	"golang.org/x/image/draw"

	"github.com/ivlev/clip2video/internal/document"
)

// Fit scales a PNG frame to exactly dims. Frames that already have the
// canvas size are returned untouched.
func Fit(data []byte, dims document.Dimensions) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	if src.Bounds().Size() == image.Pt(dims.Width, dims.Height) {
		return data, nil
	}

	dst := canvases.get(dims.Width, dims.Height)
	defer canvases.put(dst)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := frameEncoder.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// A render scales every frame of a clip to the same canvas, so scaled
// canvases and PNG encoder state are recycled across frames and chunks.
var (
	canvases     canvasPool
	frameEncoder = png.Encoder{CompressionLevel: png.BestSpeed, BufferPool: &encoderBuffers{}}
)

// canvasPool holds one sync.Pool of RGBA canvases per size.
type canvasPool struct {
	sizes sync.Map // image.Point -> *sync.Pool
}

// get returns a transparent w x h canvas.
func (p *canvasPool) get(w, h int) *image.RGBA {
	size := image.Pt(w, h)
	v, ok := p.sizes.Load(size)
	if !ok {
		v, _ = p.sizes.LoadOrStore(size, &sync.Pool{
			New: func() any { return image.NewRGBA(image.Rectangle{Max: size}) },
		})
	}
	img := v.(*sync.Pool).Get().(*image.RGBA)
	clear(img.Pix)
	return img
}

// put drops canvases of a size get never handed out.
func (p *canvasPool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	if v, ok := p.sizes.Load(img.Rect.Size()); ok {
		v.(*sync.Pool).Put(img)
	}
}

type encoderBuffers struct {
	pool sync.Pool
}

func (b *encoderBuffers) Get() *png.EncoderBuffer {
	buf, _ := b.pool.Get().(*png.EncoderBuffer)
	return buf
}

func (b *encoderBuffers) Put(buf *png.EncoderBuffer) {
	b.pool.Put(buf)
}
