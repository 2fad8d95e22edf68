package main

import (
	"bytes"
	"os"
	"path/filepath"
	"time"

	svg "github.com/ajstarks/svgo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// demoBanner draws a boxed caption, as an example of SVG cue.
func demoBanner(caption string) []byte {
	var b bytes.Buffer
	doc := svg.New(&b)
	doc.Startview(800, 600, 0, 0, 800, 600)
	doc.Roundrect(20, 470, 760, 110, 16, 16, "fill:black;fill-opacity:0.6")
	doc.Text(400, 540, caption, "fill:yellow;font-size:40px;text-anchor:middle")
	doc.End()
	return b.Bytes()
}

// writeDemo writes a cue sheet mixing plain text and SVG cues in `dir`.
func writeDemo(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := writeAtomic(filepath.Join(dir, "banner.svg"), demoBanner("SVG subtitles")); err != nil {
		return "", err
	}
	sheet := CueSheet{Cues: []Cue{
		{Start: 0, Duration: 2 * time.Second, Text: "Plain text with <tspan fill='yellow'>markup</tspan>"},
		{Start: 2 * time.Second, Duration: 2 * time.Second, File: "banner.svg"},
	}}
	content, err := yaml.Marshal(sheet)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "cues.yaml")
	return path, writeAtomic(path, content)
}

func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo DIR",
		Short: "Write an example cue sheet to DIR",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := writeDemo(args[0])
			if err != nil {
				return err
			}
			cmd.Println(okStyle.Render("wrote " + path))
			return nil
		},
	}
}
