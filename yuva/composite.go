package yuva

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benoitkugler/svgoverlay/svgraster"
)

var (
	ErrSizeMismatch = errors.New("region and raster sizes differ")
	ErrChannels     = errors.New("unsupported raster channel count")
	ErrShortBuffer  = errors.New("raster buffer too short")
)

// Compositor converts RGB(A) rasters to YUVA regions.
// The zero value is ready to use and works on the calling goroutine.
type Compositor struct {
	// Workers is the number of goroutines sharing the rows.
	// Values <= 1 disable concurrency.
	Workers int
}

// Composite fills `dst` from `src`, which must have the same size.
//
// Luma and alpha are written for every pixel; chroma is sampled at the
// top left pixel of each 2x2 block. A raster without alpha channel
// gives a fully opaque region.
func (c Compositor) Composite(dst *Region, src *svgraster.Raster) error {
	if err := checkSource(dst, src); err != nil {
		return err
	}

	dst.Planes[YPlane].fill(0x00)
	dst.Planes[UPlane].fill(0x80)
	dst.Planes[VPlane].fill(0x80)
	if !src.HasAlpha {
		dst.Planes[APlane].fill(0xff)
	}

	workers := c.Workers
	if bands := (src.Height + 1) / 2; workers > bands {
		workers = bands
	}
	if workers <= 1 {
		convertRows(dst, src, 0, src.Height)
		return nil
	}

	// bands start on even rows so that chroma lines are never shared
	pairs := (src.Height + 1) / 2
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		y0 := 2 * (pairs * i / workers)
		y1 := 2 * (pairs * (i + 1) / workers)
		if y1 > src.Height {
			y1 = src.Height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			convertRows(dst, src, y0, y1)
		}(y0, y1)
	}
	wg.Wait()
	return nil
}

func checkSource(dst *Region, src *svgraster.Raster) error {
	if dst == nil || src == nil {
		return fmt.Errorf("%w: nil region or raster", ErrSizeMismatch)
	}
	if dst.Format != FormatYUVA {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, dst.Format)
	}
	if dst.Width != src.Width || dst.Height != src.Height {
		return fmt.Errorf("%w: region %dx%d, raster %dx%d", ErrSizeMismatch,
			dst.Width, dst.Height, src.Width, src.Height)
	}
	switch {
	case src.Channels == 4:
	case src.Channels == 3 && !src.HasAlpha:
	default:
		return fmt.Errorf("%w: %d (alpha: %t)", ErrChannels, src.Channels, src.HasAlpha)
	}
	if err := checkPlanes(dst); err != nil {
		return err
	}
	if src.Height == 0 {
		return nil
	}
	if src.Stride < src.Width*src.Channels {
		return fmt.Errorf("%w: stride %d for %d pixels", ErrShortBuffer, src.Stride, src.Width)
	}
	if need := (src.Height-1)*src.Stride + src.Width*src.Channels; len(src.Pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrShortBuffer, len(src.Pix), need)
	}
	return nil
}

// checkPlanes verifies that every plane can hold the samples
// of the region, which may come from a custom allocator.
func checkPlanes(dst *Region) error {
	cw, ch := (dst.Width+1)/2, (dst.Height+1)/2
	for i, p := range dst.Planes {
		w, h := dst.Width, dst.Height
		if i == UPlane || i == VPlane {
			w, h = cw, ch
		}
		if p.PixelPitch < 1 || p.Width < w || p.Lines < h || p.Stride < p.Width*p.PixelPitch {
			return fmt.Errorf("%w: plane %d layout %dx%d (stride %d, pitch %d) for %dx%d samples",
				ErrShortBuffer, i, p.Width, p.Lines, p.Stride, p.PixelPitch, w, h)
		}
		if need := (p.Lines-1)*p.Stride + p.Width*p.PixelPitch; len(p.Pix) < need {
			return fmt.Errorf("%w: plane %d has %d bytes, need %d", ErrShortBuffer, i, len(p.Pix), need)
		}
	}
	return nil
}

// convertRows handles the rows [y0, y1[.
func convertRows(dst *Region, src *svgraster.Raster, y0, y1 int) {
	yp, up, vp, ap := dst.Planes[YPlane], dst.Planes[UPlane], dst.Planes[VPlane], dst.Planes[APlane]
	ch := src.Channels
	for y := y0; y < y1; y++ {
		in := src.Pix[y*src.Stride:]
		chromaRow := y&1 == 0
		for x := 0; x < src.Width; x++ {
			p := in[x*ch : x*ch+ch]
			r, g, b := float64(p[0]), float64(p[1]), float64(p[2])

			yp.Pix[yp.Offset(x, y)] = Luma(r, g, b)
			if src.HasAlpha {
				ap.Pix[ap.Offset(x, y)] = p[3]
			}
			if chromaRow && x&1 == 0 {
				u, v := Chroma(r, g, b)
				up.Pix[up.Offset(x>>1, y>>1)] = u
				vp.Pix[vp.Offset(x>>1, y>>1)] = v
			}
		}
	}
}

// Luma returns Y = 0.299 R + 0.587 G + 0.114 B.
func Luma(r, g, b float64) uint8 {
	return quantize(.299*r + .587*g + .114*b)
}

// Chroma returns
//
//	U = -0.1687 R - 0.3313 G + 0.5 B + 128
//	V = 0.5 R - 0.4187 G - 0.0813 B + 128
func Chroma(r, g, b float64) (u, v uint8) {
	u = quantize(-.1687*r - .3313*g + .5*b + 128)
	v = quantize(.5*r - .4187*g - .0813*b + 128)
	return u, v
}

// quantize truncates toward zero and clamps to [0, 255].
// quantizeEpsilon absorbs the float error of exact sums such as
// the luma of white.
func quantize(f float64) uint8 {
	f += quantizeEpsilon
	if f <= 0 {
		return 0
	}
	if f >= 255 {
		return 255
	}
	return uint8(f)
}

const quantizeEpsilon = 1e-6
