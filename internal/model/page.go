package model

import "strings"

// Span is a run of text sharing one font and size on a single line.
type Span struct {
	Text     string  `json:"text"`
	Font     string  `json:"font"`
	FontSize float64 `json:"font_size"`
	Bold     bool    `json:"bold"`
	BBox     Rect    `json:"bbox"`
}

// Line is a row of spans in reading order.
type Line struct {
	Spans []Span `json:"spans"`
	BBox  Rect   `json:"bbox"`
}

// Text joins the line's spans, inserting a space wherever the glyph gap
// extraction recorded none.
func (l Line) Text() string {
	var b strings.Builder
	for i, s := range l.Spans {
		if i > 0 && NeedsSpace(l.Spans[i-1].Text, s.Text) {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Block is a paragraph-level group of lines.
type Block struct {
	Lines []Line `json:"lines"`
	BBox  Rect   `json:"bbox"`
}

// Text returns the block's lines joined by newlines.
func (b Block) Text() string {
	parts := make([]string, 0, len(b.Lines))
	for _, l := range b.Lines {
		parts = append(parts, l.Text())
	}
	return strings.Join(parts, "\n")
}

// FontSize returns the mean span font size of the block.
func (b Block) FontSize() float64 {
	var sum float64
	var n int
	for _, l := range b.Lines {
		for _, s := range l.Spans {
			if s.FontSize > 0 {
				sum += s.FontSize
				n++
			}
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// IsBold reports whether more than half of the block's spans are bold.
func (b Block) IsBold() bool {
	var bold, total int
	for _, l := range b.Lines {
		for _, s := range l.Spans {
			total++
			if s.Bold {
				bold++
			}
		}
	}
	return total > 0 && float64(bold)/float64(total) > 0.5
}

// HasBold reports whether any span of the block is bold.
func (b Block) HasBold() bool {
	for _, l := range b.Lines {
		for _, s := range l.Spans {
			if s.Bold {
				return true
			}
		}
	}
	return false
}

// RecomputeBBox rebuilds line and block boxes from their spans.
func (b *Block) RecomputeBBox() {
	b.BBox = Rect{}
	for i := range b.Lines {
		l := &b.Lines[i]
		l.BBox = Rect{}
		for _, s := range l.Spans {
			l.BBox = l.BBox.Union(s.BBox)
		}
		b.BBox = b.BBox.Union(l.BBox)
	}
}

// Page is an owned buffer of one page's extracted content. Stages that
// change content build a new Page rather than editing one they were given.
type Page struct {
	Index    int     `json:"index"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Blocks   []Block `json:"blocks"`
	Images   []Rect  `json:"images,omitempty"`
	Drawings []Rect  `json:"drawings,omitempty"`
	Columns  int     `json:"columns"`
}

// Bounds returns the full page rectangle.
func (p Page) Bounds() Rect {
	return Rect{X0: 0, Y0: 0, X1: p.Width, Y1: p.Height}
}

// Text returns every block's text separated by blank lines.
func (p Page) Text() string {
	parts := make([]string, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		if t := b.Text(); strings.TrimSpace(t) != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Words returns every whitespace-separated token on the page with the box
// of the span it came from.
func (p Page) Words() []Word {
	var words []Word
	for _, b := range p.Blocks {
		for _, l := range b.Lines {
			for _, s := range l.Spans {
				fields := strings.Fields(s.Text)
				if len(fields) == 0 {
					continue
				}
				if len(fields) == 1 {
					words = append(words, Word{Text: fields[0], BBox: s.BBox})
					continue
				}
				// Word boxes inside a span are approximated from its mean glyph width.
				step := s.BBox.Width() / float64(len([]rune(s.Text)))
				offset := 0
				for _, f := range fields {
					idx := strings.Index(s.Text[offset:], f) + offset
					x0 := s.BBox.X0 + step*float64(len([]rune(s.Text[:idx])))
					x1 := x0 + step*float64(len([]rune(f)))
					words = append(words, Word{Text: f, BBox: Rect{X0: x0, Y0: s.BBox.Y0, X1: x1, Y1: s.BBox.Y1}})
					offset = idx + len(f)
				}
			}
		}
	}
	return words
}

// Word is a single token with its position.
type Word struct {
	Text string
	BBox Rect
}

// NeedsSpace decides whether two adjacent text fragments need a separating space.
func NeedsSpace(left, right string) bool {
	if left == "" || right == "" {
		return false
	}
	last := left[len(left)-1]
	if last == ' ' || last == '\t' || last == '\n' || last == '-' {
		return false
	}
	first := right[0]
	return first != ' ' && first != '\t' && first != '\n'
}
