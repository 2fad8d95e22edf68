// Resolves the SVG template used to display plain text,
// either from a configured file or from a built-in default.
package svgtemplate

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/flanksource/commons/logger"
	"golang.org/x/net/html/charset"
)

// Placeholder is replaced by the text in a Template.
const Placeholder = "%s"

// Template is an SVG document with a Placeholder for the text.
type Template string

// Default is used when no template file is configured or readable.
const Default Template = `<?xml version='1.0' encoding='UTF-8' standalone='no'?> ` +
	`<svg xmlns='http://www.w3.org/2000/svg' version='1' preserveAspectRatio='xMinYMin meet' viewBox='0 0 800 600'> ` +
	`<text x='10' y='560' fill='white' font-size='32' font-family='sans-serif'>%s</text></svg>`

// ErrUnreadable wraps failures to read a template file.
var ErrUnreadable = errors.New("svg template file is unreadable")

// Apply substitutes the first Placeholder with `text`. Any other
// placeholder-like sequence is kept verbatim, and a template
// without placeholder is returned unchanged.
func (t Template) Apply(text string) string {
	return strings.Replace(string(t), Placeholder, text, 1)
}

// Load reads the whole file at `path`. Files not encoded in UTF-8
// are converted, using the encoding declared in the XML prolog
// or detected from the content.
func Load(path string) (Template, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrUnreadable, err)
	}
	return Template(ToUTF8(content)), nil
}

// Resolve returns the template stored at `path`, or Default
// if `path` is empty or can't be read.
func Resolve(path string, log logger.Logger) Template {
	if path == "" {
		return Default
	}
	tmpl, err := Load(path)
	if err != nil {
		log.Warnf("SVG template file %s does not exist: %s", path, err)
		return Default
	}
	log.Debugf("Read %d bytes from template %s", len(tmpl), path)
	return tmpl
}

// ToUTF8 returns `content` as UTF-8 text, decoding it when needed.
// The encoding declared by the XML prolog of a decoded document is
// replaced by UTF-8, so that XML parsers don't decode it again.
func ToUTF8(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	enc, _, _ := charset.DetermineEncoding(content, "image/svg+xml")
	if label := prologEncoding(content); label != "" {
		if e, _ := charset.Lookup(label); e != nil {
			enc = e
		}
	}
	out, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return strings.ToValidUTF8(string(content), "\uFFFD")
	}
	if start, end, ok := encodingLabel(out); ok {
		return string(out[:start]) + "UTF-8" + string(out[end:])
	}
	return string(out)
}

// prologEncoding returns the encoding declared by an XML prolog, if any.
func prologEncoding(content []byte) string {
	start, end, ok := encodingLabel(content)
	if !ok {
		return ""
	}
	return string(content[start:end])
}

// encodingLabel locates the value of the encoding pseudo-attribute
// of an XML prolog.
func encodingLabel(content []byte) (start, end int, ok bool) {
	if !bytes.HasPrefix(content, []byte("<?xml")) {
		return 0, 0, false
	}
	n := bytes.Index(content, []byte("?>"))
	if n < 0 {
		return 0, 0, false
	}
	prolog := content[:n]
	i := bytes.Index(prolog, []byte("encoding="))
	if i < 0 || i+len("encoding=")+1 >= len(prolog) {
		return 0, 0, false
	}
	start = i + len("encoding=")
	quote := prolog[start]
	if quote != '"' && quote != '\'' {
		return 0, 0, false
	}
	j := bytes.IndexByte(prolog[start+1:], quote)
	if j < 0 {
		return 0, 0, false
	}
	return start + 1, start + 1 + j, true
}
