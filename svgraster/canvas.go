package svgraster

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"strings"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"
)

// intrinsic resolution of documents, in dots per millimeter (96 DPI)
const defaultDPMM = 96 / 25.4

// CanvasRenderer rasterizes with github.com/tdewolff/canvas.
// The document is scaled uniformly to fit the requested size and
// aligned on the top left corner (xMinYMin meet).
type CanvasRenderer struct{}

func NewCanvasRenderer() *CanvasRenderer { return &CanvasRenderer{} }

// Rasterize implements Rasterizer.
func (CanvasRenderer) Rasterize(source string, size SizeFunc) (*Raster, error) {
	c, err := canvas.ParseSVG(strings.NewReader(source))
	if err != nil {
		return nil, err
	}
	if c.W <= 0 || c.H <= 0 {
		return nil, fmt.Errorf("%w: empty canvas", ErrNoImage)
	}
	w, h, err := negotiate(size, c.W*defaultDPMM, c.H*defaultDPMM)
	if err != nil {
		return nil, err
	}
	dpmm := math.Min(float64(w)/c.W, float64(h)/c.H)

	rendition := rasterizer.Draw(c, canvas.DPMM(dpmm), canvas.DefaultColorSpace)

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), rendition, rendition.Bounds().Min, draw.Src)
	return FromImage(img), nil
}
