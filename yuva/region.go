// Provides the planar luma/chroma/alpha subpicture regions,
// and the compositor filling them from rasterized SVG images.
package yuva

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
)

// Format is a FourCC pixel format tag.
type Format uint32

// FourCC packs four bytes into a Format, first byte lowest.
func FourCC(a, b, c, d byte) Format {
	return Format(uint32(a) | uint32(b)<<8 | uint32(c)<<16 | uint32(d)<<24)
}

// FormatYUVA is planar 4:2:0 with a full resolution alpha plane.
var FormatYUVA = FourCC('Y', 'U', 'V', 'A')

func (f Format) String() string {
	return string([]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)})
}

// plane indexes
const (
	YPlane = iota
	UPlane
	VPlane
	APlane
	planeCount
)

var (
	ErrUnsupportedFormat = errors.New("unsupported region format")
	ErrAllocation        = errors.New("region allocation failed")
)

// maxPlaneBytes bounds a single plane allocation.
const maxPlaneBytes = 1 << 30

// Plane is one pixel plane of a region.
type Plane struct {
	Pix        []byte
	Stride     int // bytes per line, >= Width*PixelPitch
	PixelPitch int // bytes per sample
	Width      int // visible samples per line
	Lines      int
}

// Offset returns the index in Pix of the sample (x, y),
// expressed in the plane own coordinates.
func (p Plane) Offset(x, y int) int { return y*p.Stride + x*p.PixelPitch }

// fill sets every byte of the plane, padding included.
// The padding of the last line may be missing.
func (p Plane) fill(v byte) {
	pix := p.Pix
	if n := p.Stride * p.Lines; len(pix) > n {
		pix = pix[:n]
	}
	if len(pix) == 0 {
		return
	}
	pix[0] = v
	for n := 1; n < len(pix); n *= 2 {
		copy(pix[n:], pix[:n])
	}
}

// Region is a rectangle of subpicture pixels, positioned
// relatively to the video frame.
type Region struct {
	Format        Format
	Width, Height int
	X, Y          int
	Planes        [planeCount]Plane
}

// NewRegion allocates a YUVA region of the given size, with
// tightly packed lines.
func NewRegion(format Format, width, height int) (*Region, error) {
	return NewRegionAligned(format, width, height, 1)
}

// NewRegionAligned is like NewRegion, but rounds each plane stride
// up to a multiple of `align`.
func NewRegionAligned(format Format, width, height, align int) (*Region, error) {
	if format != FormatYUVA {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrAllocation, width, height)
	}
	if align < 1 {
		align = 1
	}
	cw, ch := (width+1)/2, (height+1)/2
	r := &Region{Format: format, Width: width, Height: height}
	for i := range r.Planes {
		w, h := width, height
		if i == UPlane || i == VPlane {
			w, h = cw, ch
		}
		stride := (w + align - 1) / align * align
		if stride > math.MaxInt32 || int64(stride)*int64(h) > maxPlaneBytes {
			return nil, fmt.Errorf("%w: plane of %dx%d too large", ErrAllocation, w, h)
		}
		r.Planes[i] = Plane{
			Pix:        make([]byte, stride*h),
			Stride:     stride,
			PixelPitch: 1,
			Width:      w,
			Lines:      h,
		}
	}
	return r, nil
}

// Bounds returns the region rectangle, in frame coordinates.
func (r *Region) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Image returns a view of the region as a standard library image,
// sharing its pixels. It returns nil if the plane layout can't be
// expressed as an image.NYCbCrA (packed samples and equal chroma strides).
func (r *Region) Image() *image.NYCbCrA {
	for _, p := range r.Planes {
		if p.PixelPitch != 1 {
			return nil
		}
	}
	if r.Planes[UPlane].Stride != r.Planes[VPlane].Stride {
		return nil
	}
	return &image.NYCbCrA{
		YCbCr: image.YCbCr{
			Y:              r.Planes[YPlane].Pix,
			Cb:             r.Planes[UPlane].Pix,
			Cr:             r.Planes[VPlane].Pix,
			YStride:        r.Planes[YPlane].Stride,
			CStride:        r.Planes[UPlane].Stride,
			SubsampleRatio: image.YCbCrSubsampleRatio420,
			Rect:           image.Rect(0, 0, r.Width, r.Height),
		},
		A:       r.Planes[APlane].Pix,
		AStride: r.Planes[APlane].Stride,
	}
}

// WriteRaw writes the visible samples of the Y, U, V and A planes,
// in this order, without line padding.
func (r *Region) WriteRaw(w io.Writer) error {
	for _, p := range r.Planes {
		line := make([]byte, p.Width)
		for y := 0; y < p.Lines; y++ {
			for x := range line {
				line[x] = p.Pix[p.Offset(x, y)]
			}
			if _, err := w.Write(line); err != nil {
				return err
			}
		}
	}
	return nil
}
