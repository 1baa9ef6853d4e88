package extraction

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// convertGlyph maps a ledongthuc glyph (bottom-up baseline origin) into
// top-down page space. The box spans from 0.8 of the font size above the
// baseline to 0.2 below it.
func convertGlyph(t pdf.Text, box PageBox) (glyph, bool) {
	text := norm.NFKC.String(t.S)
	if text == "" {
		return glyph{}, false
	}

	size := math.Abs(t.FontSize)
	if size == 0 {
		size = 10
	}
	w := t.W
	if w <= 0 {
		w = 0.5 * size * float64(utf8.RuneCountInString(text))
	}

	baseline := box.URY - t.Y
	y1 := baseline + 0.2*size
	x0 := t.X - box.LLX

	return glyph{
		text:     text,
		font:     t.Font,
		size:     size,
		bold:     IsBoldFont(t.Font),
		space:    strings.TrimSpace(text) == "",
		baseline: baseline,
		box:      model.Rect{X0: x0, Y0: y1 - size, X1: x0 + w, Y1: y1},
	}, true
}

// groupRows buckets glyphs whose baselines lie within tolerance of the first
// glyph of the row, then orders each row left to right.
func groupRows(glyphs []glyph, tolerance float64) [][]glyph {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].baseline < sorted[j].baseline
	})

	var rows [][]glyph
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || sorted[i].baseline-sorted[start].baseline > tolerance {
			row := sorted[start:i]
			sort.SliceStable(row, func(a, b int) bool { return row[a].box.X0 < row[b].box.X0 })
			rows = append(rows, row)
			start = i
		}
	}
	return rows
}

// spanBuilder accumulates glyphs of one font run.
type spanBuilder struct {
	text strings.Builder
	span model.Span
	open bool
}

func (sb *spanBuilder) start(g glyph) {
	sb.text.Reset()
	sb.text.WriteString(g.text)
	sb.span = model.Span{Font: g.font, FontSize: g.size, Bold: g.bold, BBox: g.box}
	sb.open = true
}

func (sb *spanBuilder) add(g glyph, space bool) {
	if space {
		sb.text.WriteByte(' ')
	}
	sb.text.WriteString(g.text)
	sb.span.BBox = sb.span.BBox.Union(g.box)
}

func (sb *spanBuilder) flush() (model.Span, bool) {
	if !sb.open {
		return model.Span{}, false
	}
	sb.open = false
	s := sb.span
	s.Text = sb.text.String()
	return s, true
}

// rowLines splits one row into lines of spans. Spans break on a font or
// size change or a gap wider than the span threshold; a gap wider than the
// line threshold starts a separate line, as between two columns.
func rowLines(row []glyph, cfg Config) []model.Line {
	var lines []model.Line
	var current model.Line
	var sb spanBuilder
	pendingSpace := false
	lastX1 := math.Inf(-1)

	flushSpan := func() {
		if s, ok := sb.flush(); ok {
			current.Spans = append(current.Spans, s)
			current.BBox = current.BBox.Union(s.BBox)
		}
	}
	flushLine := func() {
		flushSpan()
		if len(current.Spans) > 0 {
			lines = append(lines, current)
		}
		current = model.Line{}
	}

	for _, g := range row {
		if g.space {
			pendingSpace = sb.open
			lastX1 = math.Max(lastX1, g.box.X1)
			continue
		}

		gap := g.box.X0 - lastX1
		switch {
		case !sb.open:
			sb.start(g)
		case gap > cfg.LineGapRatio*g.size:
			flushLine()
			sb.start(g)
		case g.font != sb.span.Font || math.Abs(g.size-sb.span.FontSize) > 0.5 || gap > cfg.SpanGapRatio*g.size:
			flushSpan()
			sb.start(g)
		default:
			sb.add(g, pendingSpace || gap > cfg.WordGapRatio*g.size)
		}
		pendingSpace = false
		lastX1 = g.box.X1
	}
	flushLine()
	return lines
}

func lineFontSize(l model.Line) float64 {
	var max float64
	for _, s := range l.Spans {
		if s.FontSize > max {
			max = s.FontSize
		}
	}
	return max
}

// assembleBlocks builds paragraph blocks from glyphs. Lines join the block
// above them when the vertical gap is small, the left edges align (or the
// lines overlap horizontally) and the font size stays comparable.
func assembleBlocks(glyphs []glyph, cfg Config) []model.Block {
	var lines []model.Line
	for _, row := range groupRows(glyphs, cfg.RowTolerance) {
		lines = append(lines, rowLines(row, cfg)...)
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].BBox.Y0 != lines[j].BBox.Y0 {
			return lines[i].BBox.Y0 < lines[j].BBox.Y0
		}
		return lines[i].BBox.X0 < lines[j].BBox.X0
	})

	var blocks []model.Block
	for _, line := range lines {
		size := lineFontSize(line)
		joined := false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := &blocks[i]
			last := b.Lines[len(b.Lines)-1]
			gap := line.BBox.Y0 - last.BBox.Y1
			if gap > cfg.BlockGapRatio*size || gap < -size {
				continue
			}
			aligned := math.Abs(line.BBox.X0-b.BBox.X0) <= cfg.AlignTolerance ||
				line.BBox.HorizontalOverlap(last.BBox) >= 0.5
			if !aligned {
				continue
			}
			ratio := size / math.Max(lineFontSize(last), 0.1)
			if ratio < 0.8 || ratio > 1.25 {
				continue
			}
			b.Lines = append(b.Lines, line)
			b.BBox = b.BBox.Union(line.BBox)
			joined = true
			break
		}
		if !joined {
			blocks = append(blocks, model.Block{Lines: []model.Line{line}, BBox: line.BBox})
		}
	}
	return blocks
}

// orderBlocks arranges blocks in reading order and reports the column
// count. Two columns are assumed when the centers of mid-width blocks form
// two clusters further apart than the configured separation; blocks that
// cross the gutter separate bands that are read column by column.
func orderBlocks(blocks []model.Block, pageWidth float64, cfg Config) ([]model.Block, int) {
	if len(blocks) == 0 {
		return blocks, 0
	}
	out := make([]model.Block, len(blocks))
	copy(out, blocks)
	byPosition := func(bs []model.Block) {
		sort.SliceStable(bs, func(i, j int) bool {
			if bs[i].BBox.Y0 != bs[j].BBox.Y0 {
				return bs[i].BBox.Y0 < bs[j].BBox.Y0
			}
			return bs[i].BBox.X0 < bs[j].BBox.X0
		})
	}
	byPosition(out)

	gutter, ok := detectGutter(out, pageWidth, cfg)
	if !ok {
		return out, 1
	}

	ordered := make([]model.Block, 0, len(out))
	var left, right []model.Block
	flush := func() {
		ordered = append(ordered, left...)
		ordered = append(ordered, right...)
		left, right = left[:0:0], right[:0:0]
	}
	for _, b := range out {
		switch {
		case b.BBox.X1 <= gutter:
			left = append(left, b)
		case b.BBox.X0 >= gutter:
			right = append(right, b)
		default:
			flush()
			ordered = append(ordered, b)
		}
	}
	flush()
	return ordered, 2
}

// detectGutter returns the x position between two text columns.
func detectGutter(blocks []model.Block, pageWidth float64, cfg Config) (float64, bool) {
	var members []model.Block
	for _, b := range blocks {
		w := b.BBox.Width()
		if w > cfg.MinColumnBlockWidth && w < 0.6*pageWidth {
			members = append(members, b)
		}
	}
	if len(members) < 2 {
		return 0, false
	}

	centers := make([]float64, len(members))
	for i, b := range members {
		centers[i] = b.BBox.CenterX()
	}
	sorted := append([]float64(nil), centers...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]

	// Seed two clusters from the median split and refine them a few times.
	assign := make([]bool, len(centers)) // true means right column
	for i, c := range centers {
		assign[i] = c >= median
	}
	var meanL, meanR float64
	for iter := 0; iter < 5; iter++ {
		var sumL, sumR float64
		var nL, nR int
		for i, c := range centers {
			if assign[i] {
				sumR += c
				nR++
			} else {
				sumL += c
				nL++
			}
		}
		if nL == 0 || nR == 0 {
			return 0, false
		}
		meanL, meanR = sumL/float64(nL), sumR/float64(nR)
		for i, c := range centers {
			assign[i] = math.Abs(c-meanR) < math.Abs(c-meanL)
		}
	}
	if meanR-meanL <= cfg.ColumnSeparation {
		return 0, false
	}

	maxLeft, minRight := math.Inf(-1), math.Inf(1)
	for i, b := range members {
		if assign[i] {
			minRight = math.Min(minRight, b.BBox.X0)
		} else {
			maxLeft = math.Max(maxLeft, b.BBox.X1)
		}
	}
	if math.IsInf(maxLeft, 0) || math.IsInf(minRight, 0) || maxLeft > minRight+cfg.AlignTolerance {
		return 0, false
	}
	return (maxLeft + minRight) / 2, true
}
