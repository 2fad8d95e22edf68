package subfilter

import "github.com/benoitkugler/svgoverlay/yuva"

// Host provides the buffers and lifecycles owned by
// the playback host.
type Host interface {
	// NewRegion allocates a region of the given format and size.
	NewRegion(format yuva.Format, width, height int) (*yuva.Region, error)
	// ReleaseBlock is called once per block given to the filter,
	// when the filter is done with it.
	ReleaseBlock(block *TextBlock)
	// DisposeSubpicture frees a subpicture the filter won't deliver.
	DisposeSubpicture(sp *Subpicture)
}

// DefaultHost allocates regions in memory, with strides aligned
// on Align bytes.
type DefaultHost struct {
	Align int
}

func (h DefaultHost) NewRegion(format yuva.Format, width, height int) (*yuva.Region, error) {
	return yuva.NewRegionAligned(format, width, height, h.Align)
}

func (DefaultHost) ReleaseBlock(block *TextBlock) { block.Payload = nil }

func (DefaultHost) DisposeSubpicture(sp *Subpicture) { sp.Region = nil }
