package main

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/benoitkugler/svgoverlay/subfilter"
	"github.com/benoitkugler/svgoverlay/yuva"
	"github.com/charmbracelet/lipgloss"
	"github.com/natefinch/atomic"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// encoder serializes a region to a file format.
type encoder struct {
	ext    string
	encode func(*bytes.Buffer, *yuva.Region) error
}

func encoderFor(format string) (encoder, error) {
	switch format {
	case "png":
		return encoder{ext: "png", encode: func(b *bytes.Buffer, r *yuva.Region) error {
			img := r.Image()
			if img == nil {
				return errors.New("region layout can't be encoded as PNG")
			}
			return png.Encode(b, img)
		}}, nil
	case "yuva":
		return encoder{ext: "yuva", encode: func(b *bytes.Buffer, r *yuva.Region) error {
			return r.WriteRaw(b)
		}}, nil
	default:
		return encoder{}, fmt.Errorf("unknown output format %q", format)
	}
}

// IndexEntry describes one written subpicture.
type IndexEntry struct {
	File   string        `yaml:"file"`
	Start  time.Duration `yaml:"start"`
	Stop   time.Duration `yaml:"stop"`
	Width  int           `yaml:"width"`
	Height int           `yaml:"height"`
	Format string        `yaml:"format"`
}

type report struct {
	outDir  string
	entries []IndexEntry
	errors  []error
}

func writeAtomic(path string, content []byte) error {
	return atomic.WriteFile(path, bytes.NewReader(content))
}

// renderSheet renders every cue and writes the subpictures to `outDir`,
// with an index.yaml file. Dropped cues are reported but don't stop
// the rendering.
func renderSheet(filter *subfilter.Filter, sheet CueSheet, outDir string, enc encoder) (report, error) {
	rep := report{outDir: outDir}
	blocks, err := sheet.blocks()
	if err != nil {
		return rep, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return rep, err
	}

	var buf bytes.Buffer
	for i, block := range blocks {
		sp, err := filter.RenderBlock(block)
		if err != nil {
			rep.errors = append(rep.errors, fmt.Errorf("cue %d: %w", i, err))
			continue
		}
		if sp == nil {
			continue
		}
		buf.Reset()
		if err := enc.encode(&buf, sp.Region); err != nil {
			return rep, err
		}
		name := fmt.Sprintf("%04d.%s", i, enc.ext)
		if err := writeAtomic(filepath.Join(outDir, name), buf.Bytes()); err != nil {
			return rep, err
		}
		rep.entries = append(rep.entries, IndexEntry{
			File:   name,
			Start:  sp.Start,
			Stop:   sp.Stop,
			Width:  sp.Region.Width,
			Height: sp.Region.Height,
			Format: sp.Region.Format.String(),
		})
	}

	index, err := yaml.Marshal(rep.entries)
	if err != nil {
		return rep, err
	}
	return rep, writeAtomic(filepath.Join(outDir, "index.yaml"), index)
}

var (
	okStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	warnStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

func (r report) summary(stats subfilter.Stats) string {
	s := okStyle.Render(fmt.Sprintf("%d subpictures", stats.Delivered)) +
		dimStyle.Render(fmt.Sprintf(" written to %s, %d empty", r.outDir, stats.Empty))
	if stats.Dropped > 0 {
		s += ", " + warnStyle.Render(fmt.Sprintf("%d dropped", stats.Dropped))
	}
	lines := lo.Map(r.errors, func(err error, _ int) string { return "\n  " + dimStyle.Render(err.Error()) })
	return s + strings.Join(lines, "")
}
