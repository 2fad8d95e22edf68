package yuva

import (
	"bytes"
	"errors"
	"image/color"
	"testing"

	"github.com/benoitkugler/svgoverlay/svgraster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// solidRaster returns a w x h raster filled with c, with `pad` extra
// bytes at the end of each row.
func solidRaster(w, h, pad int, c color.NRGBA) *svgraster.Raster {
	stride := 4*w + pad
	pix := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*stride + 4*x
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
		}
	}
	return &svgraster.Raster{Width: w, Height: h, Stride: stride, Channels: 4, HasAlpha: true, Pix: pix}
}

func TestCompositeRedSquare(t *testing.T) {
	src := solidRaster(2, 2, 0, color.NRGBA{R: 255, A: 255})
	dst, err := NewRegion(FormatYUVA, 2, 2)
	require.NoError(t, err)

	require.NoError(t, Compositor{}.Composite(dst, src))

	y, u, v, a := dst.Planes[YPlane], dst.Planes[UPlane], dst.Planes[VPlane], dst.Planes[APlane]
	assert.Equal(t, []byte{76, 76, 76, 76}, y.Pix)
	assert.Equal(t, []byte{255, 255, 255, 255}, a.Pix)
	require.Len(t, u.Pix, 1)
	assert.Equal(t, byte(84), u.Pix[0])
	assert.Equal(t, byte(255), v.Pix[0])
}

func TestQuantization(t *testing.T) {
	for _, tc := range []struct {
		r, g, b float64
		y, u, v uint8
	}{
		{0, 0, 0, 0, 128, 128},
		{255, 0, 0, 76, 84, 255},
		{0, 255, 0, 149, 43, 21},
		{0, 0, 255, 29, 255, 107},
		{128, 128, 128, 128, 128, 128},
		{255, 255, 255, 255, 128, 128},
	} {
		if got := Luma(tc.r, tc.g, tc.b); got != tc.y {
			t.Errorf("Luma(%v, %v, %v) = %d, expected %d", tc.r, tc.g, tc.b, got, tc.y)
		}
		u, v := Chroma(tc.r, tc.g, tc.b)
		if u != tc.u || v != tc.v {
			t.Errorf("Chroma(%v, %v, %v) = (%d, %d), expected (%d, %d)", tc.r, tc.g, tc.b, u, v, tc.u, tc.v)
		}
	}
	if quantize(-3) != 0 || quantize(300) != 255 {
		t.Error("quantize should clamp")
	}
	for f, exp := range map[float64]uint8{84.98: 84, 43.5185: 43, 254.9999999: 255, 0.4: 0, 12: 12} {
		if got := quantize(f); got != exp {
			t.Errorf("quantize(%v) = %d, expected %d", f, got, exp)
		}
	}
}

// chromaRaster gives each pixel a color depending on its position,
// so that sampling the wrong pixel is detected.
func chromaRaster(w, h, pad int) *svgraster.Raster {
	src := solidRaster(w, h, pad, color.NRGBA{})
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*src.Stride + 4*x
			src.Pix[i] = uint8(17 * x)
			src.Pix[i+1] = uint8(29 * y)
			src.Pix[i+2] = uint8(7*x + 11*y)
			src.Pix[i+3] = uint8(x + y)
		}
	}
	return src
}

func checkPlanes(t *testing.T, dst *Region, src *svgraster.Raster) {
	t.Helper()
	for y := 0; y < src.Height; y++ {
		for x := 0; x < src.Width; x++ {
			p := src.Pix[y*src.Stride+4*x:]
			r, g, b := float64(p[0]), float64(p[1]), float64(p[2])
			yp, ap := dst.Planes[YPlane], dst.Planes[APlane]
			if got, exp := yp.Pix[yp.Offset(x, y)], Luma(r, g, b); got != exp {
				t.Fatalf("luma at (%d, %d): got %d, expected %d", x, y, got, exp)
			}
			if got := ap.Pix[ap.Offset(x, y)]; got != p[3] {
				t.Fatalf("alpha at (%d, %d): got %d, expected %d", x, y, got, p[3])
			}
			if x%2 != 0 || y%2 != 0 {
				continue
			}
			u, v := Chroma(r, g, b)
			up, vp := dst.Planes[UPlane], dst.Planes[VPlane]
			if got := up.Pix[up.Offset(x/2, y/2)]; got != u {
				t.Fatalf("U at (%d, %d): got %d, expected %d", x, y, got, u)
			}
			if got := vp.Pix[vp.Offset(x/2, y/2)]; got != v {
				t.Fatalf("V at (%d, %d): got %d, expected %d", x, y, got, v)
			}
		}
	}
}

func TestCompositeSampling(t *testing.T) {
	for _, size := range [][2]int{{1, 1}, {2, 2}, {5, 3}, {16, 9}, {33, 17}} {
		src := chromaRaster(size[0], size[1], 3)
		dst, err := NewRegionAligned(FormatYUVA, size[0], size[1], 16)
		require.NoError(t, err)

		require.NoError(t, Compositor{}.Composite(dst, src))
		checkPlanes(t, dst, src)

		assert.Equal(t, (size[0]+1)/2, dst.Planes[UPlane].Width)
		assert.Equal(t, (size[1]+1)/2, dst.Planes[VPlane].Lines)
	}
}

func TestCompositeWorkers(t *testing.T) {
	src := chromaRaster(37, 23, 0)
	serial, err := NewRegion(FormatYUVA, 37, 23)
	require.NoError(t, err)
	require.NoError(t, Compositor{}.Composite(serial, src))

	for _, workers := range []int{2, 3, 7, 64} {
		parallel, err := NewRegion(FormatYUVA, 37, 23)
		require.NoError(t, err)
		require.NoError(t, Compositor{Workers: workers}.Composite(parallel, src))
		for i := range serial.Planes {
			if !bytes.Equal(serial.Planes[i].Pix, parallel.Planes[i].Pix) {
				t.Fatalf("plane %d differs with %d workers", i, workers)
			}
		}
	}
}

func TestCompositeWithoutAlpha(t *testing.T) {
	const w, h = 3, 2
	pix := make([]byte, 3*w*h)
	for i := range pix {
		pix[i] = 200
	}
	src := &svgraster.Raster{Width: w, Height: h, Stride: 3 * w, Channels: 3, Pix: pix}
	dst, err := NewRegion(FormatYUVA, w, h)
	require.NoError(t, err)

	require.NoError(t, Compositor{}.Composite(dst, src))

	for _, a := range dst.Planes[APlane].Pix {
		if a != 0xff {
			t.Fatalf("expected opaque alpha, got %d", a)
		}
	}
	assert.Equal(t, byte(200), dst.Planes[YPlane].Pix[0])
}

func TestCompositeResetsPlanes(t *testing.T) {
	dst, err := NewRegion(FormatYUVA, 4, 4)
	require.NoError(t, err)
	for _, p := range dst.Planes {
		for i := range p.Pix {
			p.Pix[i] = 0x42
		}
	}
	src := solidRaster(4, 4, 0, color.NRGBA{})
	require.NoError(t, Compositor{}.Composite(dst, src))

	for _, b := range dst.Planes[YPlane].Pix {
		assert.Equal(t, byte(0), b)
	}
	for _, b := range dst.Planes[UPlane].Pix {
		assert.Equal(t, byte(0x80), b)
	}
	for _, b := range dst.Planes[APlane].Pix {
		assert.Equal(t, byte(0), b)
	}
}

func TestCompositeErrors(t *testing.T) {
	dst, err := NewRegion(FormatYUVA, 4, 4)
	require.NoError(t, err)

	err = Compositor{}.Composite(dst, solidRaster(4, 3, 0, color.NRGBA{}))
	assert.True(t, errors.Is(err, ErrSizeMismatch))

	short := solidRaster(4, 4, 0, color.NRGBA{})
	short.Pix = short.Pix[:len(short.Pix)-1]
	assert.True(t, errors.Is(Compositor{}.Composite(dst, short), ErrShortBuffer))

	bad := solidRaster(4, 4, 0, color.NRGBA{})
	bad.Channels = 2
	assert.True(t, errors.Is(Compositor{}.Composite(dst, bad), ErrChannels))

	assert.Error(t, Compositor{}.Composite(nil, bad))
}

func TestCompositeShortPlanes(t *testing.T) {
	src := solidRaster(4, 4, 0, color.NRGBA{R: 255, A: 255})
	for i := range [planeCount]int{} {
		dst, err := NewRegion(FormatYUVA, 4, 4)
		require.NoError(t, err)
		dst.Planes[i].Pix = dst.Planes[i].Pix[:len(dst.Planes[i].Pix)-1]
		err = Compositor{}.Composite(dst, src)
		assert.True(t, errors.Is(err, ErrShortBuffer), "plane %d: got %v", i, err)
	}

	dst, err := NewRegion(FormatYUVA, 4, 4)
	require.NoError(t, err)
	dst.Planes[UPlane].Lines = 1
	assert.True(t, errors.Is(Compositor{}.Composite(dst, src), ErrShortBuffer))

	// a last line without padding is enough
	dst, err = NewRegionAligned(FormatYUVA, 4, 4, 8)
	require.NoError(t, err)
	for i := range dst.Planes {
		p := &dst.Planes[i]
		p.Pix = p.Pix[:(p.Lines-1)*p.Stride+p.Width]
	}
	require.NoError(t, Compositor{}.Composite(dst, src))
	assert.Equal(t, byte(76), dst.Planes[YPlane].Pix[dst.Planes[YPlane].Offset(3, 3)])
}
