package intelligence

import (
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// RenderMarkdown turns pages into markdown: one paragraph per block, bold
// runs wrapped in **, and blank lines between blocks and pages.
func RenderMarkdown(pages []model.Page) string {
	var parts []string
	for _, page := range pages {
		for _, b := range page.Blocks {
			if text := renderBlock(b); text != "" {
				parts = append(parts, text)
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func renderBlock(b model.Block) string {
	lines := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		if text := strings.TrimRight(renderLine(l), " "); strings.TrimSpace(text) != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n")
}

type run struct {
	text string
	bold bool
}

func renderLine(l model.Line) string {
	var runs []run
	for _, s := range l.Spans {
		if s.Text == "" {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1].bold == s.Bold {
			if model.NeedsSpace(runs[n-1].text, s.Text) {
				runs[n-1].text += " "
			}
			runs[n-1].text += s.Text
			continue
		}
		runs = append(runs, run{text: s.Text, bold: s.Bold})
	}

	var b strings.Builder
	prev := ""
	for _, r := range runs {
		if model.NeedsSpace(prev, r.text) {
			b.WriteByte(' ')
		}
		b.WriteString(wrapBold(r))
		prev = r.text
	}
	return b.String()
}

// wrapBold keeps surrounding whitespace outside the markers.
func wrapBold(r run) string {
	if !r.bold {
		return r.text
	}
	inner := strings.TrimSpace(r.text)
	if inner == "" {
		return r.text
	}
	start := strings.Index(r.text, inner)
	return r.text[:start] + "**" + inner + "**" + r.text[start+len(inner):]
}
