package subfilter

import (
	"errors"
	"fmt"
	"sync"

	"github.com/benoitkugler/svgoverlay/svgraster"
	"github.com/benoitkugler/svgoverlay/svgtemplate"
	"github.com/benoitkugler/svgoverlay/yuva"
	"github.com/flanksource/commons/logger"
)

// Stats counts the blocks handled by a filter.
type Stats struct {
	Delivered int // subpictures produced
	Empty     int // blocks without payload
	Dropped   int // blocks whose rendition failed
}

// Filter renders text blocks for one stream. Blocks are processed
// one at a time; distinct filters share no mutable state.
type Filter struct {
	mu sync.Mutex

	template      svgtemplate.Template
	width, height int

	rasterizer svgraster.Rasterizer
	compositor yuva.Compositor
	host       Host
	log        logger.Logger

	stats Stats
}

// Option customizes a Filter.
type Option func(*Filter)

// WithHost replaces the DefaultHost.
func WithHost(h Host) Option { return func(f *Filter) { f.host = h } }

// WithRasterizer overrides the rasterizer chosen by the configuration.
func WithRasterizer(r svgraster.Rasterizer) Option {
	return func(f *Filter) { f.rasterizer = r }
}

// WithLogger replaces the "svg" logger.
func WithLogger(l logger.Logger) Option { return func(f *Filter) { f.log = l } }

// WithWorkers sets the number of goroutines used by the compositor.
func WithWorkers(n int) Option { return func(f *Filter) { f.compositor.Workers = n } }

// New creates a filter rendering at the output size of the host,
// using the template stored at `templatePath` (or the default one).
func New(width, height int, templatePath string, opts ...Option) (*Filter, error) {
	return NewFromConfig(Config{TemplateFile: templatePath, Width: width, Height: height}, opts...)
}

// NewFromConfig creates a filter from a full configuration.
// Options take precedence over the configuration.
func NewFromConfig(cfg Config, opts ...Option) (*Filter, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid output size %dx%d", ErrInit, cfg.Width, cfg.Height)
	}
	f := &Filter{
		width:      cfg.Width,
		height:     cfg.Height,
		compositor: yuva.Compositor{Workers: cfg.Workers},
		host:       DefaultHost{},
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.log == nil {
		f.log = logger.GetLogger("svg")
	}
	if f.rasterizer == nil {
		r, err := newRasterizer(cfg)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrInit, err)
		}
		f.rasterizer = r
	}

	if err := svgraster.Init(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInit, err)
	}
	f.template = svgtemplate.Resolve(cfg.TemplateFile, f.log)
	return f, nil
}

func newRasterizer(cfg Config) (svgraster.Rasterizer, error) {
	mode, err := svgraster.ParseErrorMode(cfg.ErrorMode)
	if err != nil {
		return nil, err
	}
	r, err := svgraster.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	if rd, ok := r.(*svgraster.Renderer); ok {
		rd.ErrorMode = mode
	}
	return r, nil
}

// Template returns the template resolved at creation.
func (f *Filter) Template() svgtemplate.Template { return f.template }

// Stats returns the counters of the blocks seen so far.
func (f *Filter) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats
}

// RenderBlock renders `block` into a subpicture displayed during
// the block time window. The block is released in every case.
//
// A nil subpicture is returned, without error, for empty payloads.
// Rasterization and allocation failures drop the block and are returned,
// leaving the filter ready for the next block.
func (f *Filter) RenderBlock(block *TextBlock) (*Subpicture, error) {
	if block == nil {
		return nil, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	defer f.host.ReleaseBlock(block)

	req, err := buildRequest(block, f.template, f.width, f.height)
	if err != nil {
		f.stats.Empty++
		return nil, nil
	}

	sp, state, err := f.render(block, req)
	if err != nil {
		f.stats.Dropped++
		f.log.Errorf("dropping block at %s (%s): %s", block.Start, state, err)
		return nil, err
	}
	f.stats.Delivered++
	return sp, nil
}

// render returns the last state reached on failure.
func (f *Filter) render(block *TextBlock, req RenderRequest) (*Subpicture, State, error) {
	raster, err := f.rasterizer.Rasterize(req.Source, req.Size())
	if err != nil {
		if !errors.Is(err, svgraster.ErrNoImage) {
			err = fmt.Errorf("%w: %w", ErrRasterize, err)
		}
		return nil, TemplateResolved, err
	}
	if raster == nil {
		return nil, TemplateResolved, svgraster.ErrNoImage
	}
	defer raster.Release()

	region, err := f.host.NewRegion(req.Format, raster.Width, raster.Height)
	if err != nil {
		if !errors.Is(err, ErrAllocation) {
			err = fmt.Errorf("%w: %w", ErrAllocation, err)
		}
		return nil, Rasterized, err
	}
	if region == nil {
		return nil, Rasterized, fmt.Errorf("%w: no region", ErrAllocation)
	}
	region.X, region.Y = 0, 0

	sp := &Subpicture{
		Start:     block.Start,
		Stop:      block.Start + block.Length,
		Ephemeral: true,
		Absolute:  false,
		Region:    region,
	}
	if err := f.compositor.Composite(region, raster); err != nil {
		f.host.DisposeSubpicture(sp)
		return nil, Rasterized, err
	}
	f.log.Debugf("rendered %dx%d subpicture [%s, %s]", region.Width, region.Height, sp.Start, sp.Stop)
	return sp, Delivered, nil
}
