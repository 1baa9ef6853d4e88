package extraction

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Engine turns one ledongthuc page into an owned model.Page: positioned
// text blocks in reading order plus image and drawing rectangles.
type Engine struct {
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates an extraction engine. A nil logger uses slog.Default().
func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger.With("component", "ExtractEngine")}
}

// ExtractPage extracts the content of a page. index is 0-based. A panic in
// the underlying decoder is returned as an error together with whatever
// part of the page could be recovered.
func (e *Engine) ExtractPage(page pdf.Page, index int) (out model.Page, err error) {
	out.Index = index
	if page.V.IsNull() {
		return out, fmt.Errorf("invalid page %d", index+1)
	}

	box := e.mediaBox(page, index)
	out.Width = box.Width()
	out.Height = box.Height()

	glyphs, gerr := e.pageGlyphs(page, box)
	if gerr != nil {
		err = gerr
	}
	out.Blocks = assembleBlocks(glyphs, e.cfg)
	out.Blocks, out.Columns = orderBlocks(out.Blocks, out.Width, e.cfg)

	g := newGraphicsScanner(box, e.logger)
	if serr := g.scanPage(page); serr != nil {
		e.logger.Debug("graphics scan failed", "page", index+1, "error", serr)
		if err == nil {
			err = serr
		}
	}
	out.Images = g.images
	out.Drawings = g.drawings

	return out, err
}

// pageGlyphs reads the positioned characters of a page.
func (e *Engine) pageGlyphs(page pdf.Page, box PageBox) (glyphs []glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during text extraction: %v", r)
		}
	}()

	for _, t := range page.Content().Text {
		if g, ok := convertGlyph(t, box); ok {
			glyphs = append(glyphs, g)
		}
	}
	return glyphs, nil
}

// mediaBox resolves the page box, climbing the page tree when the page has
// none and falling back to US Letter.
func (e *Engine) mediaBox(page pdf.Page, index int) (box PageBox) {
	box = PageBox{URX: defaultPageWidth, URY: defaultPageHeight}
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("panic during MediaBox extraction", "page", index+1, "panic", r)
			box = PageBox{URX: defaultPageWidth, URY: defaultPageHeight}
		}
	}()

	current := page.V
	for i := 0; i < 10 && !current.IsNull(); i++ {
		if mb := current.Key("MediaBox"); !mb.IsNull() {
			parsed, err := parseMediaBox(mb)
			if err == nil {
				return parsed
			}
			e.logger.Debug("unusable MediaBox", "page", index+1, "error", err)
		}
		current = current.Key("Parent")
	}

	e.logger.Debug("using default page dimensions", "page", index+1)
	return box
}

// parseMediaBox parses a MediaBox array, repairing inverted coordinates.
func parseMediaBox(v pdf.Value) (PageBox, error) {
	if v.Kind() != pdf.Array {
		return PageBox{}, fmt.Errorf("MediaBox is not an array: %v", v.Kind())
	}
	if v.Len() != 4 {
		return PageBox{}, fmt.Errorf("invalid MediaBox array length: %d, expected 4", v.Len())
	}

	var coords [4]float64
	for i := range coords {
		val := v.Index(i)
		switch val.Kind() {
		case pdf.Integer:
			coords[i] = float64(val.Int64())
		case pdf.Real:
			coords[i] = val.Float64()
		default:
			f, err := parseFloatValue(val.RawString())
			if err != nil {
				return PageBox{}, fmt.Errorf("invalid coordinate type at index %d: %v", i, val.Kind())
			}
			coords[i] = f
		}
	}

	llx, lly, urx, ury := coords[0], coords[1], coords[2], coords[3]
	if llx > urx {
		llx, urx = urx, llx
	}
	if lly > ury {
		lly, ury = ury, lly
	}
	if urx-llx <= 0 || ury-lly <= 0 {
		return PageBox{}, fmt.Errorf("invalid MediaBox dimensions: [%.2f %.2f %.2f %.2f]", llx, lly, urx, ury)
	}
	return PageBox{LLX: llx, LLY: lly, URX: urx, URY: ury}, nil
}

// parseFloatValue parses a number written as a string, tolerating a trailing 'f'.
func parseFloatValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	if strings.HasSuffix(s, "f") || strings.HasSuffix(s, "F") {
		if f, err := strconv.ParseFloat(s[:len(s)-1], 64); err == nil {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unable to parse '%s' as float", s)
}
