package subfilter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityRegistry(t *testing.T) {
	c, ok := Lookup("svg")
	require.True(t, ok)
	assert.Equal(t, "text renderer", c.Kind)
	assert.Equal(t, 101, c.Priority)
	require.Len(t, c.Options, 1)
	assert.Equal(t, TemplateOption, c.Options[0].Name)

	renderers := Capabilities("text renderer")
	require.NotEmpty(t, renderers)
	assert.Equal(t, "svg", renderers[0].Name)
	assert.Empty(t, Capabilities("video filter"))

	_, ok = Lookup("freetype")
	assert.False(t, ok)

	r, err := c.Open(32, 24, nil)
	require.NoError(t, err)
	sp, err := r.RenderBlock(&TextBlock{Payload: []byte("Hi")})
	require.NoError(t, err)
	assert.Equal(t, 32, sp.Region.Width)

	_, err = c.Open(0, 24, nil)
	assert.Error(t, err)

	assert.Panics(t, func() { Register(Capability{Name: "svg"}) })
}

func TestCapabilityShortcut(t *testing.T) {
	if _, ok := Lookup("svg-test-renderer"); !ok {
		Register(Capability{Name: "svg-test-renderer", Kind: "text renderer", Priority: 1, Shortcuts: []string{"svgtest"}})
	}
	c, ok := Lookup("svgtest")
	require.True(t, ok)
	assert.Equal(t, "svg-test-renderer", c.Name)
	assert.Equal(t, "svg", Capabilities("text renderer")[0].Name)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "svg.yaml")
	content := "svg-template-file: /tmp/t.svg\nwidth: 720\nheight: 576\nbackend: canvas\nworkers: 4\nerror-mode: warn\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		TemplateFile: "/tmp/t.svg", Width: 720, Height: 576,
		Backend: "canvas", ErrorMode: "warn", Workers: 4,
	}, cfg)

	require.NoError(t, os.WriteFile(path, []byte("colour: red\n"), 0o644))
	_, err = LoadConfig(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Config{}, cfg)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
