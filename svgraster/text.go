package svgraster

import (
	"encoding/xml"
	"fmt"
	"image"
	"image/color"
	"io"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/image/colornames"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	"golang.org/x/net/html/charset"
)

const defaultFontSize = 16

var (
	initOnce    sync.Once
	initErr     error
	regularFont *opentype.Font
)

// Init loads the font used to draw text elements.
// It must be called before rendering, and is safe to call
// several times: the work is only done once.
func Init() error {
	initOnce.Do(func() {
		regularFont, initErr = opentype.Parse(goregular.TTF)
		if initErr != nil {
			initErr = fmt.Errorf("loading text font: %w", initErr)
		}
	})
	return initErr
}

// textStyle is the inherited state relevant to text
type textStyle struct {
	fill     color.NRGBA
	noFill   bool
	opacity  float64
	fontSize float64
	anchor   string
}

var defaultTextStyle = textStyle{
	fill:     color.NRGBA{A: 0xff},
	opacity:  1,
	fontSize: defaultFontSize,
	anchor:   "start",
}

// textRun is a chunk of text sharing one style. A run continuing
// the previous one of the same <text> element starts at the pen
// position reached by it, and X, Y are those of the chunk start.
type textRun struct {
	X, Y     float64
	Style    textStyle
	Text     string
	Group    int // index of the <text> element
	Continue bool
}

// viewTransform maps user units to pixels
type viewTransform struct {
	x0, y0 float64
	sx, sy float64
}

func (t viewTransform) apply(x, y float64) (float64, float64) {
	return (x - t.x0) * t.sx, (y - t.y0) * t.sy
}

// byteSpan is a [start, end[ range in the source document
type byteSpan struct{ start, end int64 }

// textLayer is the text content of a document.
type textLayer struct {
	runs []textRun
	// spans are the positions of the top level <text> elements,
	// only valid when exact is true (the decoder read the source
	// bytes without transcoding).
	spans []byteSpan
	exact bool
}

// strip returns `source` without the <text> elements.
func (l textLayer) strip(source string) string {
	if !l.exact || len(l.spans) == 0 {
		return source
	}
	var b strings.Builder
	last := int64(0)
	for _, sp := range l.spans {
		b.WriteString(source[last:sp.start])
		last = sp.end
	}
	b.WriteString(source[last:])
	return b.String()
}

// collapseSpace replaces whitespace sequences by one space.
func collapseSpace(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" {
			return " "
		}
		return ""
	}
	out := strings.Join(fields, " ")
	if unicode.IsSpace(rune(s[0])) {
		out = " " + out
	}
	if unicode.IsSpace(rune(s[len(s)-1])) {
		out += " "
	}
	return out
}

// readTextLayer collects the <text> content of the document. Nested
// <tspan> with an explicit position start a new chunk; others with
// a different style continue the current one.
func readTextLayer(source io.Reader) (textLayer, error) {
	layer := textLayer{exact: true}
	decoder := xml.NewDecoder(source)
	decoder.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		layer.exact = false
		return charset.NewReaderLabel(label, input)
	}

	var (
		current   *textRun
		depth     int // nesting inside <text>
		group     int
		textStart int   // first run of the current <text>
		spanStart int64 // offset of the current <text>
		stack     = []textStyle{defaultTextStyle}
	)
	flush := func() {
		if current != nil {
			current.Text = collapseSpace(current.Text)
			if current.Text != "" {
				layer.runs = append(layer.runs, *current)
			}
			current = nil
		}
	}
	startRun := func(x, y float64, style textStyle, cont bool) {
		flush()
		current = &textRun{X: x, Y: y, Style: style, Group: group, Continue: cont}
	}
	// endText trims the runs of the element just closed
	endText := func() {
		flush()
		runs := layer.runs[textStart:]
		if len(runs) > 0 {
			runs[0].Text = strings.TrimLeftFunc(runs[0].Text, unicode.IsSpace)
			runs[len(runs)-1].Text = strings.TrimRightFunc(runs[len(runs)-1].Text, unicode.IsSpace)
		}
		kept := layer.runs[:textStart]
		for _, r := range runs {
			if r.Text != "" {
				kept = append(kept, r)
			}
		}
		if len(kept) > textStart {
			kept[textStart].Continue = false
		}
		layer.runs = kept
	}
	for {
		offset := decoder.InputOffset()
		t, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return layer, err
		}
		switch se := t.(type) {
		case xml.StartElement:
			style := pushTextStyle(stack[len(stack)-1], se.Attr)
			stack = append(stack, style)
			switch {
			case se.Name.Local == "text" && depth == 0:
				group++
				textStart = len(layer.runs)
				spanStart = offset
				depth = 1
				startRun(attrCoord(se.Attr, "x"), attrCoord(se.Attr, "y"), style, false)
			case depth == 0:
			case se.Name.Local == "tspan" && (hasAttr(se.Attr, "x") || hasAttr(se.Attr, "y")):
				depth++
				x, y := current.X, current.Y
				if hasAttr(se.Attr, "x") {
					x = attrCoord(se.Attr, "x")
				}
				if hasAttr(se.Attr, "y") {
					y = attrCoord(se.Attr, "y")
				}
				startRun(x, y, style, false)
			default:
				depth++
				if style != current.Style {
					startRun(current.X, current.Y, style, true)
				}
			}
		case xml.EndElement:
			stack = stack[:len(stack)-1]
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				endText()
				layer.spans = append(layer.spans, byteSpan{spanStart, decoder.InputOffset()})
			} else if parent := stack[len(stack)-1]; parent != current.Style {
				startRun(current.X, current.Y, parent, true)
			}
		case xml.CharData:
			if depth > 0 {
				current.Text += string(se)
			}
		}
	}
	return layer, nil
}

func hasAttr(attrs []xml.Attr, name string) bool {
	for _, a := range attrs {
		if a.Name.Local == name {
			return true
		}
	}
	return false
}

// attrCoord returns the first value of a coordinate list attribute.
func attrCoord(attrs []xml.Attr, name string) float64 {
	for _, a := range attrs {
		if a.Name.Local != name {
			continue
		}
		fields := strings.FieldsFunc(a.Value, func(r rune) bool { return r == ',' || r == ' ' })
		if len(fields) == 0 {
			return 0
		}
		f, _ := parseLength(fields[0])
		return f
	}
	return 0
}

// pushTextStyle returns a copy of `parent` updated with the
// presentation attributes and the style attribute of an element.
// Unsupported or invalid values are ignored.
func pushTextStyle(parent textStyle, attrs []xml.Attr) textStyle {
	var pairs []string
	for _, attr := range attrs {
		if strings.ToLower(attr.Name.Local) == "style" {
			pairs = append(pairs, strings.Split(attr.Value, ";")...)
		} else {
			pairs = append(pairs, attr.Name.Local+":"+attr.Value)
		}
	}
	style := parent
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, ":")
		if !ok {
			continue
		}
		k, v = strings.ToLower(strings.TrimSpace(k)), strings.TrimSpace(v)
		switch k {
		case "fill":
			c, none, err := parseColor(v)
			if err == nil {
				style.fill, style.noFill = c, none
			}
		case "fill-opacity", "opacity":
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				style.opacity *= clamp01(f)
			}
		case "font-size":
			if f, err := parseLength(v); err == nil && f > 0 {
				style.fontSize = f
			}
		case "text-anchor":
			style.anchor = v
		}
	}
	return style
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// parseLength parses a number with an optional px or pt unit.
func parseLength(v string) (float64, error) {
	v = strings.TrimSpace(v)
	scale := 1.
	switch {
	case strings.HasSuffix(v, "px"):
		v = strings.TrimSuffix(v, "px")
	case strings.HasSuffix(v, "pt"):
		v = strings.TrimSuffix(v, "pt")
		scale = 4. / 3
	}
	f, err := strconv.ParseFloat(v, 64)
	return f * scale, err
}

// parseColor supports hexadecimal, rgb() and named colors.
// `none` is true for "none" and "transparent".
func parseColor(v string) (c color.NRGBA, none bool, err error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch {
	case v == "none" || v == "transparent":
		return c, true, nil
	case strings.HasPrefix(v, "#"):
		hex := v[1:]
		if len(hex) == 3 {
			hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
		}
		n, err := strconv.ParseUint(hex, 16, 32)
		if err != nil || len(hex) != 6 {
			return c, false, fmt.Errorf("invalid color %q", v)
		}
		return color.NRGBA{R: uint8(n >> 16), G: uint8(n >> 8), B: uint8(n), A: 0xff}, false, nil
	case strings.HasPrefix(v, "rgb(") && strings.HasSuffix(v, ")"):
		parts := strings.Split(v[4:len(v)-1], ",")
		if len(parts) != 3 {
			return c, false, fmt.Errorf("invalid color %q", v)
		}
		var comps [3]uint8
		for i, p := range parts {
			p = strings.TrimSpace(p)
			scale := 1.
			if strings.HasSuffix(p, "%") {
				p, scale = strings.TrimSuffix(p, "%"), 2.55
			}
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return c, false, fmt.Errorf("invalid color %q", v)
			}
			comps[i] = uint8(255 * clamp01(f*scale/255))
		}
		return color.NRGBA{R: comps[0], G: comps[1], B: comps[2], A: 0xff}, false, nil
	}
	named, ok := colornames.Map[v]
	if !ok {
		return c, false, fmt.Errorf("unknown color %q", v)
	}
	return color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}, false, nil
}

// drawTextRuns draws the runs over `dst`, using the regular font.
func drawTextRuns(dst *image.RGBA, runs []textRun, tr viewTransform) error {
	if len(runs) == 0 {
		return nil
	}
	if err := Init(); err != nil {
		return err
	}
	for i := 0; i < len(runs); {
		j := i + 1
		for j < len(runs) && runs[j].Continue && runs[j].Group == runs[i].Group {
			j++
		}
		if err := drawChunk(dst, runs[i:j], tr); err != nil {
			return err
		}
		i = j
	}
	return nil
}

// drawChunk draws runs sharing one anchor, one after the other.
func drawChunk(dst *image.RGBA, chunk []textRun, tr viewTransform) error {
	faces := make([]font.Face, len(chunk))
	defer func() {
		for _, face := range faces {
			if face != nil {
				face.Close()
			}
		}
	}()
	var advance fixed.Int26_6
	for i, run := range chunk {
		size := run.Style.fontSize * tr.sy
		if size <= 0 {
			continue
		}
		face, err := opentype.NewFace(regularFont, &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})
		if err != nil {
			return err
		}
		faces[i] = face
		advance += font.MeasureString(face, run.Text)
	}

	x, y := tr.apply(chunk[0].X, chunk[0].Y)
	switch chunk[0].Style.anchor {
	case "middle":
		x -= float64(advance) / 128
	case "end":
		x -= float64(advance) / 64
	}
	dot := fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(y * 64)}
	for i, run := range chunk {
		if faces[i] == nil {
			continue
		}
		fill := run.Style.fill
		fill.A = uint8(float64(fill.A) * run.Style.opacity)
		d := font.Drawer{Dst: dst, Src: image.NewUniform(fill), Face: faces[i], Dot: dot}
		if run.Style.noFill || fill.A == 0 {
			d.Dot.X += d.MeasureString(run.Text)
		} else {
			d.DrawString(run.Text)
		}
		dot = d.Dot
	}
	return nil
}
