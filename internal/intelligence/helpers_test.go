package intelligence

import (
	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// spanAt builds a span with the synthetic glyph metrics used by pdftest:
// each rune is half the font size wide and the box is one size tall.
func spanAt(text string, x, y, size float64, bold bool) model.Span {
	w := 0.5 * size * float64(len([]rune(text)))
	return model.Span{
		Text:     text,
		Font:     "Helvetica",
		FontSize: size,
		Bold:     bold,
		BBox:     model.Rect{X0: x, Y0: y, X1: x + w, Y1: y + size},
	}
}

func lineOf(spans ...model.Span) model.Line {
	l := model.Line{Spans: spans}
	for _, s := range spans {
		l.BBox = l.BBox.Union(s.BBox)
	}
	return l
}

// blockAt stacks one single-span line per text at 1.2 line spacing.
func blockAt(x, y, size float64, bold bool, lines ...string) model.Block {
	var b model.Block
	for i, text := range lines {
		b.Lines = append(b.Lines, lineOf(spanAt(text, x, y+float64(i)*size*1.2, size, bold)))
	}
	b.RecomputeBBox()
	return b
}

func letterPage(index int, blocks ...model.Block) model.Page {
	return model.Page{Index: index, Width: 612, Height: 792, Blocks: blocks, Columns: 1}
}

func pageTexts(p model.Page) []string {
	out := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		out = append(out, b.Text())
	}
	return out
}
