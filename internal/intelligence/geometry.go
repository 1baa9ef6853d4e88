package intelligence

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

const (
	defaultTopMargin      = 60
	defaultFirstTopMargin = 100
	minimalTopMargin      = 40
)

// GeometryAnalyzer derives per-page header heights, the footer margin and
// the line-number gutter of a document.
type GeometryAnalyzer struct {
	cfg    GeometryConfig
	logger *slog.Logger
}

// NewGeometryAnalyzer creates an analyzer. A nil logger uses slog.Default().
func NewGeometryAnalyzer(cfg GeometryConfig, logger *slog.Logger) *GeometryAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GeometryAnalyzer{cfg: cfg, logger: logger.With("component", "GeometryAnalyzer")}
}

// Analyze measures the margins of every page. It never fails: a page that
// cannot be measured gets the default margin and a warning in ec, which may
// be nil.
func (g *GeometryAnalyzer) Analyze(pages []model.Page, ec *pdferrors.ErrorCollection) model.GeometryInfo {
	info := model.GeometryInfo{
		TopMargins:   make([]float64, len(pages)),
		BottomMargin: g.cfg.FooterMargin,
		ColumnCount:  1,
	}

	for i, page := range pages {
		info.TopMargins[i] = g.topMargin(page, i == 0, ec)
		if page.Columns > info.ColumnCount {
			info.ColumnCount = page.Columns
		}
	}
	info.HasColumns = info.ColumnCount > 1

	if g.cfg.DetectFooter {
		info.BottomMargin = g.footerMargin(pages, ec)
	}
	if g.cfg.DetectLineNumbers {
		info.HasLineNumbers, info.LeftMarginCutoff = g.lineNumbers(pages)
	}

	g.logger.Debug("geometry analyzed",
		"pages", len(pages),
		"bottom_margin", info.BottomMargin,
		"line_numbers", info.HasLineNumbers,
		"columns", info.ColumnCount)
	return info
}

func (g *GeometryAnalyzer) topMargin(page model.Page, first bool, ec *pdferrors.ErrorCollection) float64 {
	var margin float64
	err := pdferrors.Recover("geometry", page.Index+1, func() error {
		margin = g.headerHeight(page, first)
		return nil
	})
	if err != nil {
		margin = defaultTopMargin
		if first {
			margin = defaultFirstTopMargin
		}
		g.logger.Warn("header detection failed", "page", page.Index+1, "error", err)
		if pe, ok := err.(*pdferrors.PDFError); ok {
			ec.Add(pe)
		}
	}
	return margin
}

type verticalExtent struct {
	y0, y1 float64
	text   string
}

func textExtents(page model.Page) []verticalExtent {
	out := make([]verticalExtent, 0, len(page.Blocks))
	for _, b := range page.Blocks {
		text := strings.TrimSpace(b.Text())
		if text == "" {
			continue
		}
		out = append(out, verticalExtent{y0: b.BBox.Y0, y1: b.BBox.Y1, text: text})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].y0 != out[j].y0 {
			return out[i].y0 < out[j].y0
		}
		return out[i].y1 < out[j].y1
	})
	return out
}

// headerHeight returns how much of the page top to crop.
func (g *GeometryAnalyzer) headerHeight(page model.Page, first bool) float64 {
	extents := textExtents(page)
	if len(extents) == 0 {
		if first {
			return defaultFirstTopMargin
		}
		return defaultTopMargin
	}

	if first {
		// A large gap in the top 40% separates the title block from the body.
		threshold := page.Height * 0.4
		largest, gapY := -1.0, 0.0
		for i := 0; i < len(extents)-1; i++ {
			upper := extents[i]
			if upper.y1 >= threshold {
				continue
			}
			gap := extents[i+1].y0 - upper.y1
			if gap > largest || (gap == largest && upper.y1 > gapY) {
				largest, gapY = gap, upper.y1
			}
		}
		if largest > 40 {
			return clamp(gapY+5, 60, 200)
		}
	}

	if y1, ok := runningHeaderBottom(extents, g.cfg.HeaderBand); ok {
		return clamp(y1+5, 30, 80)
	}
	if top := extents[0].y0; top < 50 {
		return math.Min(60, top+30)
	}
	return minimalTopMargin
}

// runningHeaderBottom finds the lowest edge of running-header text within
// the top band.
func runningHeaderBottom(extents []verticalExtent, band float64) (float64, bool) {
	found := false
	bottom := 0.0
	for _, e := range extents {
		if e.y1 > band {
			break
		}
		for _, line := range strings.Split(e.text, "\n") {
			if matchesAny(runningHeaderPatterns, strings.TrimSpace(line)) {
				found = true
				bottom = math.Max(bottom, e.y1)
				break
			}
		}
	}
	return bottom, found
}

// footerMargin samples the first pages for an isolated block of text at
// the bottom and returns the median footer height.
func (g *GeometryAnalyzer) footerMargin(pages []model.Page, ec *pdferrors.ErrorCollection) float64 {
	var candidates []float64
	n := min(g.cfg.FooterSamplePages, len(pages))
	for i := 0; i < n; i++ {
		page := pages[i]
		err := pdferrors.Recover("geometry", page.Index+1, func() error {
			extents := textExtents(page)
			threshold := page.Height * 0.8
			largest, gapY := -1.0, 0.0
			for j := 0; j < len(extents)-1; j++ {
				next := extents[j+1]
				if next.y0 <= threshold {
					continue
				}
				gap := next.y0 - extents[j].y1
				if gap > largest || (gap == largest && extents[j].y1 > gapY) {
					largest, gapY = gap, extents[j].y1
				}
			}
			if largest > 30 {
				candidates = append(candidates, page.Height-gapY)
			}
			return nil
		})
		if pe, ok := err.(*pdferrors.PDFError); ok {
			ec.Add(pe)
		}
	}

	if len(candidates) == 0 {
		return g.cfg.FooterMargin
	}
	sort.Float64s(candidates)
	return clamp(candidates[len(candidates)/2]+5, 30, 80)
}

// lineNumbers looks for short numbers lined up in the left margin.
func (g *GeometryAnalyzer) lineNumbers(pages []model.Page) (bool, float64) {
	var rightEdges []float64
	n := min(g.cfg.LineNumberPages, len(pages))
	for i := 0; i < n; i++ {
		for _, w := range pages[i].Words() {
			if w.BBox.X1 < g.cfg.LineNumberMaxX && isLineNumber(w.Text) {
				rightEdges = append(rightEdges, w.BBox.X1)
			}
		}
	}
	if len(rightEdges) < g.cfg.LineNumberMinCount {
		return false, 0
	}

	cut := 0.0
	for _, x := range rightEdges {
		cut = math.Max(cut, x)
	}
	cut += 5
	g.logger.Info("line numbers detected", "candidates", len(rightEdges), "cutoff", cut)
	return true, cut
}

func isLineNumber(s string) bool {
	if s == "" || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Crop returns new pages restricted to the visible content box of each
// page. Pages too short to crop safely are returned unchanged.
func (g *GeometryAnalyzer) Crop(pages []model.Page, info model.GeometryInfo) []model.Page {
	out := make([]model.Page, len(pages))
	for i, page := range pages {
		top := info.TopMargin(i, defaultTopMargin)
		bottom := info.BottomMargin
		if page.Height < top+bottom+g.cfg.MinVisibleHeight {
			g.logger.Warn("page too short to crop", "page", page.Index+1, "height", page.Height)
			out[i] = page
			continue
		}
		left := 0.0
		if info.HasLineNumbers {
			left = info.LeftMarginCutoff
		}
		out[i] = CropPage(page, model.Rect{X0: left, Y0: top, X1: page.Width, Y1: page.Height - bottom})
	}
	return out
}

// CropPage keeps the spans lying entirely inside box; images and drawings
// are clipped to it.
func CropPage(page model.Page, box model.Rect) model.Page {
	cropped := model.Page{
		Index:   page.Index,
		Width:   page.Width,
		Height:  page.Height,
		Columns: page.Columns,
	}
	for _, b := range page.Blocks {
		var nb model.Block
		for _, l := range b.Lines {
			var nl model.Line
			for _, s := range l.Spans {
				if box.Contains(s.BBox) {
					nl.Spans = append(nl.Spans, s)
				}
			}
			if len(nl.Spans) > 0 {
				nb.Lines = append(nb.Lines, nl)
			}
		}
		if len(nb.Lines) == 0 {
			continue
		}
		nb.RecomputeBBox()
		cropped.Blocks = append(cropped.Blocks, nb)
	}
	cropped.Images = clipRects(page.Images, box)
	cropped.Drawings = clipRects(page.Drawings, box)
	return cropped
}

func clipRects(rects []model.Rect, box model.Rect) []model.Rect {
	var out []model.Rect
	for _, r := range rects {
		// Strokes have zero width or height; only rects pushed fully outside go.
		c := r.Clip(box)
		if c.X0 <= c.X1 && c.Y0 <= c.Y1 {
			out = append(out, c)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
