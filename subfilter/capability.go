package subfilter

import (
	"fmt"
	"sort"
	"sync"
)

// TextRenderer is the capability offered to hosts by this package.
type TextRenderer interface {
	RenderBlock(block *TextBlock) (*Subpicture, error)
}

var _ TextRenderer = (*Filter)(nil)

// OptionSpec documents a configuration option of a capability.
type OptionSpec struct {
	Name     string
	Default  string
	Text     string
	LongText string
	Advanced bool
}

// Capability describes a module discoverable by hosts.
type Capability struct {
	Name      string
	Kind      string
	Priority  int
	Shortcuts []string
	Options   []OptionSpec
	// Open creates an instance. `options` holds the values of Options,
	// by name; missing entries use the defaults.
	Open func(width, height int, options map[string]string) (TextRenderer, error)
}

var registry = struct {
	sync.RWMutex
	byName map[string]Capability
}{byName: map[string]Capability{}}

func init() {
	// called on package initialization
	Register(Capability{
		Name:      "svg",
		Kind:      "text renderer",
		Priority:  101,
		Shortcuts: []string{"svg"},
		Options: []OptionSpec{{
			Name:     TemplateOption,
			Text:     "SVG template file",
			LongText: "Location of a file holding a SVG template for automatic string conversion",
			Advanced: true,
		}},
		Open: func(width, height int, options map[string]string) (TextRenderer, error) {
			f, err := New(width, height, options[TemplateOption])
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	})
}

// Register adds a capability. It panics if the name is already used.
func Register(c Capability) {
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.byName[c.Name]; ok {
		panic(fmt.Sprintf("capability %q registered twice", c.Name))
	}
	registry.byName[c.Name] = c
}

// Lookup returns the capability named `name`, or one of
// its shortcuts.
func Lookup(name string) (Capability, bool) {
	registry.RLock()
	defer registry.RUnlock()
	if c, ok := registry.byName[name]; ok {
		return c, true
	}
	for _, c := range registry.byName {
		for _, s := range c.Shortcuts {
			if s == name {
				return c, true
			}
		}
	}
	return Capability{}, false
}

// Capabilities returns the capabilities of the given kind,
// higher priority first.
func Capabilities(kind string) []Capability {
	registry.RLock()
	defer registry.RUnlock()
	var out []Capability
	for _, c := range registry.byName {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}
