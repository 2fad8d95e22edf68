package subfilter

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// TemplateOption is the name of the template file option.
const TemplateOption = "svg-template-file"

// Config holds the settings of a filter instance.
type Config struct {
	// TemplateFile is the path of the SVG template used for plain
	// text. Empty means the built-in template.
	TemplateFile string `yaml:"svg-template-file"`
	// Output size, usually the one of the video.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	// Backend is the rasterizer name, see svgraster.New
	Backend string `yaml:"backend,omitempty"`
	// ErrorMode is "ignore", "warn" or "strict"
	ErrorMode string `yaml:"error-mode,omitempty"`
	Workers   int    `yaml:"workers,omitempty"`
}

// LoadConfig reads a YAML configuration file.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	content, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return cfg, fmt.Errorf("invalid configuration %s: %w", path, err)
	}
	return cfg, nil
}
