// Implements the SVG text renderer filter: timed text blocks
// come in, YUVA subpictures come out.
package subfilter

import (
	"errors"
	"time"

	"github.com/benoitkugler/svgoverlay/svgraster"
	"github.com/benoitkugler/svgoverlay/yuva"
)

var (
	// ErrEmptyInput is returned by the request builder for empty payloads.
	// RenderBlock reports it as a nil subpicture without error.
	ErrEmptyInput = errors.New("empty text block")
	// ErrRasterize wraps rasterizer failures, which drop the current block.
	ErrRasterize = errors.New("svg rasterization failed")
	// ErrAllocation is returned when a region can't be allocated.
	ErrAllocation = yuva.ErrAllocation
	// ErrInit is returned when a filter can't be created.
	ErrInit = errors.New("svg filter initialization failed")
)

// TextBlock is a timed payload delivered by the host, either
// SVG markup or plain text.
type TextBlock struct {
	Payload []byte
	Start   time.Duration // presentation timestamp
	Length  time.Duration
}

// Subpicture is a timed overlay, holding one region.
type Subpicture struct {
	Start, Stop time.Duration
	// Ephemeral subpictures are replaced by the next one
	// instead of accumulating.
	Ephemeral bool
	// Absolute is true for screen coordinates, false for
	// coordinates relative to the video.
	Absolute bool
	Region   *yuva.Region
}

// RenderRequest is the input of one rasterization.
type RenderRequest struct {
	Source        string
	Width, Height int
	Format        yuva.Format
}

// Size returns the callback answering the rasterizer size query.
func (r RenderRequest) Size() svgraster.SizeFunc {
	return func() (int, int) { return r.Width, r.Height }
}

// State is the progress of a block through the filter.
type State uint8

const (
	Idle State = iota
	TemplateResolved
	Rasterized
	Composited
	Delivered
	Dropped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case TemplateResolved:
		return "template resolved"
	case Rasterized:
		return "rasterized"
	case Composited:
		return "composited"
	case Delivered:
		return "delivered"
	case Dropped:
		return "dropped"
	default:
		return "<invalid state>"
	}
}
