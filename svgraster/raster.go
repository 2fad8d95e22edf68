// Implements raster backends to render SVG documents,
// by wrapping rasterx (through oksvg) or tdewolff/canvas.
package svgraster

import (
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// ErrNoImage is returned when a document parses but
// yields no pixels (empty or missing size).
var ErrNoImage = errors.New("svg rendition produced no image")

// maxPixels bounds the area of a rendition.
const maxPixels = 1 << 26

// SizeFunc is queried by the rasterizers once the document is parsed,
// to decide the output size. Returning a non positive dimension,
// or using a nil SizeFunc, keeps the intrinsic document size.
type SizeFunc func() (width, height int)

// Rasterizer renders an SVG source to a packed RGBA raster.
type Rasterizer interface {
	Rasterize(source string, size SizeFunc) (*Raster, error)
}

var (
	_ Rasterizer = (*Renderer)(nil) // assert interface conformance
	_ Rasterizer = (*CanvasRenderer)(nil)
)

// New returns the rasterizer registered under `backend`:
// "oksvg" (or the empty string) and "canvas" are supported.
func New(backend string) (Rasterizer, error) {
	switch strings.ToLower(backend) {
	case "", "oksvg":
		return NewRenderer(oksvg.IgnoreErrorMode), nil
	case "canvas":
		return NewCanvasRenderer(), nil
	default:
		return nil, fmt.Errorf("unknown rasterizer backend %q", backend)
	}
}

// ParseErrorMode maps "ignore", "warn" and "strict" to oksvg error modes.
func ParseErrorMode(s string) (oksvg.ErrorMode, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return oksvg.IgnoreErrorMode, nil
	case "warn":
		return oksvg.WarnErrorMode, nil
	case "strict":
		return oksvg.StrictErrorMode, nil
	default:
		return oksvg.IgnoreErrorMode, fmt.Errorf("invalid svg error mode %q", s)
	}
}

// Renderer rasterizes with oksvg and rasterx, and draws
// <text> elements in a second pass.
type Renderer struct {
	// ErrorMode decides what happens with unsupported elements.
	ErrorMode oksvg.ErrorMode
	// SkipText disables the text pass.
	SkipText bool
}

// NewRenderer returns a renderer using the given error mode.
func NewRenderer(mode oksvg.ErrorMode) *Renderer {
	return &Renderer{ErrorMode: mode}
}

// negotiate resolves the output size against the intrinsic one.
func negotiate(size SizeFunc, intrinsicW, intrinsicH float64) (int, int, error) {
	w, h := int(intrinsicW+0.5), int(intrinsicH+0.5)
	if size != nil {
		if sw, sh := size(); sw > 0 && sh > 0 {
			w, h = sw, sh
		}
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("%w: size %dx%d", ErrNoImage, w, h)
	}
	if int64(w)*int64(h) > maxPixels {
		return 0, 0, fmt.Errorf("%w: size %dx%d is too large", ErrNoImage, w, h)
	}
	return w, h, nil
}

// RasterToImage parses `source`, negotiates the size with `size`
// and draws the document into a new image.
func (rd *Renderer) RasterToImage(source io.Reader, size SizeFunc) (*image.RGBA, error) {
	var doc strings.Builder
	if _, err := io.Copy(&doc, source); err != nil {
		return nil, err
	}
	src := doc.String()

	// text elements are handled by the text pass, not by oksvg
	layer, err := readTextLayer(strings.NewReader(src))
	if err != nil {
		return nil, err
	}
	if rd.SkipText {
		layer.runs = nil
	}

	icon, err := oksvg.ReadIconStream(strings.NewReader(layer.strip(src)), rd.ErrorMode)
	if err != nil {
		return nil, err
	}
	w, h, err := negotiate(size, icon.ViewBox.W, icon.ViewBox.H)
	if err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, img, img.Bounds())
	dasher := rasterx.NewDasher(w, h, scanner)
	icon.Draw(dasher, 1.0)

	vb := icon.ViewBox
	tr := viewTransform{x0: vb.X, y0: vb.Y, sx: 1, sy: 1}
	if vb.W > 0 && vb.H > 0 {
		tr.sx, tr.sy = float64(w)/vb.W, float64(h)/vb.H
	}
	if err := drawTextRuns(img, layer.runs, tr); err != nil {
		return nil, err
	}
	return img, nil
}

// Rasterize implements Rasterizer.
func (rd *Renderer) Rasterize(source string, size SizeFunc) (*Raster, error) {
	img, err := rd.RasterToImage(strings.NewReader(source), size)
	if err != nil {
		return nil, err
	}
	return FromImage(img), nil
}
