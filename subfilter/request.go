package subfilter

import (
	"bytes"
	"strings"

	"github.com/benoitkugler/svgoverlay/svgtemplate"
	"github.com/benoitkugler/svgoverlay/yuva"
)

// svgMarker identifies payloads already written in SVG.
// This is a heuristic: the document is not validated.
const svgMarker = "<svg"

// buildRequest turns a block into a rasterization request,
// wrapping plain text in `tmpl`. Plain text is substituted as is,
// so it may carry inline markup such as <tspan>.
func buildRequest(block *TextBlock, tmpl svgtemplate.Template, width, height int) (RenderRequest, error) {
	payload := block.Payload
	// host buffers may be NUL terminated
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	if len(payload) == 0 {
		return RenderRequest{}, ErrEmptyInput
	}

	text := svgtemplate.ToUTF8(payload)
	source := text
	if !strings.Contains(text, svgMarker) {
		source = tmpl.Apply(text)
	}
	return RenderRequest{
		Source: source,
		Width:  width,
		Height: height,
		Format: yuva.FormatYUVA,
	}, nil
}
