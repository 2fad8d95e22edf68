package svgraster

import (
	"image"
	"image/color"
	"sync"
)

// Raster is a packed RGB(A) image, as produced by the rasterizers.
// Color samples are not alpha-premultiplied.
type Raster struct {
	Width, Height int
	Stride        int // bytes per row, may include padding
	Channels      int // 3 or 4
	HasAlpha      bool
	Pix           []byte

	pooled bool
}

var pixPool sync.Pool

func getPix(n int) []byte {
	if b, ok := pixPool.Get().(*[]byte); ok && cap(*b) >= n {
		return (*b)[:n]
	}
	return make([]byte, n)
}

// Release gives the pixel buffer back to the rasterizer.
// The raster must not be used afterwards. Calling Release
// more than once is harmless.
func (r *Raster) Release() {
	if r == nil || r.Pix == nil {
		return
	}
	if r.pooled {
		b := r.Pix[:0]
		pixPool.Put(&b)
	}
	r.Pix = nil
}

// FromImage converts `img` to a 4 channels, non premultiplied Raster,
// whose origin is the top left corner of img bounds.
func FromImage(img image.Image) *Raster {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &Raster{
		Width:    w,
		Height:   h,
		Stride:   4 * w,
		Channels: 4,
		HasAlpha: true,
		Pix:      getPix(4 * w * h),
		pooled:   true,
	}
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			src := rgba.Pix[rgba.PixOffset(b.Min.X, b.Min.Y+y):]
			dst := out.Pix[y*out.Stride:]
			for x := 0; x < 4*w; x += 4 {
				unpremultiply(dst[x:x+4], src[x], src[x+1], src[x+2], src[x+3])
			}
		}
		return out
	}
	for y := 0; y < h; y++ {
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			dst[4*x], dst[4*x+1], dst[4*x+2], dst[4*x+3] = c.R, c.G, c.B, c.A
		}
	}
	return out
}

func unpremultiply(dst []byte, r, g, b, a uint8) {
	switch a {
	case 0xff:
		dst[0], dst[1], dst[2] = r, g, b
	case 0:
		dst[0], dst[1], dst[2] = 0, 0, 0
	default:
		a32 := uint32(a)
		dst[0] = uint8((uint32(r)*0xff + a32/2) / a32)
		dst[1] = uint8((uint32(g)*0xff + a32/2) / a32)
		dst[2] = uint8((uint32(b)*0xff + a32/2) / a32)
	}
	dst[3] = a
}
