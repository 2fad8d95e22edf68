package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benoitkugler/svgoverlay/subfilter"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Cue is one entry of a cue sheet. The payload is either
// Text (plain text or inline SVG) or the content of File.
type Cue struct {
	Start    time.Duration `yaml:"start"`
	Duration time.Duration `yaml:"duration"`
	Text     string        `yaml:"text,omitempty"`
	File     string        `yaml:"file,omitempty"`
}

type CueSheet struct {
	Cues []Cue `yaml:"cues"`

	dir string // for relative cue files
}

func loadCueSheet(path string) (CueSheet, error) {
	var sheet CueSheet
	content, err := os.ReadFile(path)
	if err != nil {
		return sheet, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&sheet); err != nil {
		return sheet, fmt.Errorf("invalid cue sheet %s: %w", path, err)
	}
	for i, c := range sheet.Cues {
		if c.Text != "" && c.File != "" {
			return sheet, fmt.Errorf("cue %d: text and file are exclusive", i)
		}
		if c.Duration < 0 {
			return sheet, fmt.Errorf("cue %d: negative duration %s", i, c.Duration)
		}
	}
	sheet.dir = filepath.Dir(path)
	return sheet, nil
}

// blocks converts the cues to text blocks, reading the cue files.
func (s CueSheet) blocks() ([]*subfilter.TextBlock, error) {
	var err error
	blocks := lo.Map(s.Cues, func(c Cue, i int) *subfilter.TextBlock {
		payload := []byte(c.Text)
		if c.File != "" {
			path := c.File
			if !filepath.IsAbs(path) {
				path = filepath.Join(s.dir, path)
			}
			var readErr error
			if payload, readErr = os.ReadFile(path); readErr != nil && err == nil {
				err = fmt.Errorf("cue %d: %w", i, readErr)
			}
		}
		return &subfilter.TextBlock{Payload: payload, Start: c.Start, Length: c.Duration}
	})
	return blocks, err
}
