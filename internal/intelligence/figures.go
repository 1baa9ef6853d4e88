package intelligence

import (
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

// Exclusion margins applied around a paired figure.
var pairedMargins = model.Margins{Top: 10, Bottom: 30, Left: 5, Right: 5}

// RegionStrategy finds the areas of one page that belong to figures.
// captions holds only the captions of that page.
type RegionStrategy interface {
	Name() string
	Regions(page model.Page, captions []model.FigureCaption) []model.FigureRegion
}

// FigureDetector combines the configured region strategies.
type FigureDetector struct {
	strategies []RegionStrategy
	logger     *slog.Logger
}

// NewFigureDetector builds the strategies named in cfg. Unknown names are
// skipped; an empty list selects the paired strategy.
func NewFigureDetector(cfg FigureConfig, logger *slog.Logger) *FigureDetector {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "FigureDetector")

	d := &FigureDetector{logger: logger}
	for _, name := range cfg.Strategies {
		switch strings.ToLower(name) {
		case StrategyPaired:
			d.strategies = append(d.strategies, NewPairedStrategy(cfg))
		case StrategyVerticalDeletion:
			d.strategies = append(d.strategies, NewVerticalDeletionStrategy(cfg))
		default:
			logger.Warn("unknown figure strategy", "strategy", name)
		}
	}
	if len(d.strategies) == 0 {
		d.strategies = []RegionStrategy{NewPairedStrategy(cfg)}
	}
	return d
}

// NewFigureDetectorWithStrategies uses the given strategies as is.
func NewFigureDetectorWithStrategies(logger *slog.Logger, strategies ...RegionStrategy) *FigureDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &FigureDetector{strategies: strategies, logger: logger.With("component", "FigureDetector")}
}

// Detect runs every strategy on every page that has captions. A failing
// strategy contributes nothing for that page.
func (d *FigureDetector) Detect(pages []model.Page, captions []model.FigureCaption, ec *pdferrors.ErrorCollection) []model.FigureRegion {
	byPage := make(map[int][]model.FigureCaption)
	for _, c := range captions {
		byPage[c.Page] = append(byPage[c.Page], c)
	}

	var regions []model.FigureRegion
	for _, page := range pages {
		pageCaptions := byPage[page.Index]
		if len(pageCaptions) == 0 {
			continue
		}
		for _, s := range d.strategies {
			var found []model.FigureRegion
			err := pdferrors.Recover("figures", page.Index+1, func() error {
				found = s.Regions(page, pageCaptions)
				return nil
			})
			if err != nil {
				d.logger.Warn("figure strategy failed", "strategy", s.Name(), "page", page.Index+1, "error", err)
				if pe, ok := err.(*pdferrors.PDFError); ok {
					ec.Add(pe)
				}
				continue
			}
			regions = append(regions, found...)
		}
	}

	actual := 0
	for _, r := range regions {
		if r.HasActualFigure {
			actual++
		}
	}
	d.logger.Debug("figure regions detected", "total", len(regions), "actual", actual, "synthetic", len(regions)-actual)
	return regions
}

// PairedStrategy pairs captions with embedded images and vector drawing
// clusters, and infers a region above captions left without a partner.
type PairedStrategy struct {
	cfg FigureConfig
}

func NewPairedStrategy(cfg FigureConfig) *PairedStrategy {
	return &PairedStrategy{cfg: cfg}
}

func (s *PairedStrategy) Name() string { return StrategyPaired }

func (s *PairedStrategy) Regions(page model.Page, captions []model.FigureCaption) []model.FigureRegion {
	if len(captions) == 0 {
		return nil
	}
	candidates := append(s.imageRegions(page), s.drawingRegions(page)...)
	paired, unpaired := s.pair(page, captions, candidates)
	return append(paired, s.synthesize(page, unpaired)...)
}

func (s *PairedStrategy) largeEnough(r model.Rect) bool {
	return r.Width() >= s.cfg.MinWidth && r.Height() >= s.cfg.MinHeight
}

func (s *PairedStrategy) imageRegions(page model.Page) []model.FigureRegion {
	var out []model.FigureRegion
	for _, img := range page.Images {
		if s.largeEnough(img) && img.Area() >= s.cfg.MinImageArea {
			out = append(out, model.FigureRegion{
				BBox:            img,
				Page:            page.Index,
				Method:          model.MethodImage,
				Confidence:      0.9,
				HasActualFigure: true,
			})
		}
	}
	return out
}

func (s *PairedStrategy) drawingRegions(page model.Page) []model.FigureRegion {
	if len(page.Drawings) < s.cfg.MinDrawingPrimitives {
		return nil
	}

	var out []model.FigureRegion
	for _, cluster := range ClusterRects(page.Drawings, s.cfg.ProximityThreshold) {
		if len(cluster) < s.cfg.MinDrawingPrimitives {
			continue
		}
		var bbox model.Rect
		for _, r := range cluster {
			bbox = bbox.Union(r)
		}
		if !s.largeEnough(bbox) {
			continue
		}
		out = append(out, model.FigureRegion{
			BBox:            bbox,
			Page:            page.Index,
			Method:          model.MethodDrawing,
			Confidence:      0.7,
			HasActualFigure: true,
		})
	}
	return mergeIntersecting(out)
}

// ClusterRects groups rects around seeds: each unclaimed rect starts a
// cluster and takes every unclaimed rect within threshold of the seed.
func ClusterRects(rects []model.Rect, threshold float64) [][]model.Rect {
	used := make([]bool, len(rects))
	var clusters [][]model.Rect
	for i, seed := range rects {
		if used[i] {
			continue
		}
		used[i] = true
		cluster := []model.Rect{seed}
		for j := i + 1; j < len(rects); j++ {
			if used[j] {
				continue
			}
			if seed.EdgeDistance(rects[j]) <= threshold {
				cluster = append(cluster, rects[j])
				used[j] = true
			}
		}
		clusters = append(clusters, cluster)
	}
	return clusters
}

// mergeIntersecting unions drawing regions whose boxes overlap.
func mergeIntersecting(regions []model.FigureRegion) []model.FigureRegion {
	for merged := true; merged; {
		merged = false
		for i := 0; i < len(regions) && !merged; i++ {
			for j := i + 1; j < len(regions); j++ {
				if !regions[i].BBox.Intersects(regions[j].BBox) {
					continue
				}
				regions[i].BBox = regions[i].BBox.Union(regions[j].BBox)
				regions[i].Method = model.MethodCluster
				regions = append(regions[:j], regions[j+1:]...)
				merged = true
				break
			}
		}
	}
	return regions
}

// aligned reports whether a figure sits in the caption's column or spans
// the page.
func (s *PairedStrategy) aligned(caption, figure model.Rect, pageWidth float64) bool {
	if figure.Width() > pageWidth*s.cfg.SpanningRatio {
		return true
	}
	if math.Abs(caption.CenterX()-figure.CenterX()) < s.cfg.AlignTolerance {
		return true
	}
	return math.Abs(caption.X0-figure.X0) < s.cfg.AlignTolerance
}

// pair gives each caption, in order, the nearest unclaimed candidate that is
// close enough and aligned with it. It returns the paired regions and the
// captions left without a figure.
func (s *PairedStrategy) pair(page model.Page, captions []model.FigureCaption, candidates []model.FigureRegion) ([]model.FigureRegion, []model.FigureCaption) {
	claimed := make([]bool, len(candidates))
	var paired []model.FigureRegion
	var unpaired []model.FigureCaption

	for _, caption := range captions {
		best, bestDist := -1, math.Inf(1)
		for i, cand := range candidates {
			if claimed[i] {
				continue
			}
			dist := cand.BBox.VerticalGap(caption.BBox)
			if dist > s.cfg.MaxPairDistance || !s.aligned(caption.BBox, cand.BBox, page.Width) {
				continue
			}
			if dist < bestDist {
				best, bestDist = i, dist
			}
		}
		if best < 0 {
			unpaired = append(unpaired, caption)
			continue
		}
		claimed[best] = true
		cand := candidates[best]
		captionCopy := caption
		paired = append(paired, model.FigureRegion{
			BBox:              cand.BBox.Expand(pairedMargins.Top, pairedMargins.Bottom, pairedMargins.Left, pairedMargins.Right).Clip(page.Bounds()),
			Page:              page.Index,
			Method:            cand.Method,
			Confidence:        cand.Confidence,
			HasActualFigure:   true,
			AssociatedCaption: &captionCopy,
			ExclusionMargin:   pairedMargins,
		})
	}
	return paired, unpaired
}

// synthesize places a caption-sized zone above each orphan caption.
func (s *PairedStrategy) synthesize(page model.Page, captions []model.FigureCaption) []model.FigureRegion {
	var out []model.FigureRegion
	for _, caption := range captions {
		box := model.Rect{
			X0: caption.BBox.X0,
			Y0: caption.BBox.Y0 - s.cfg.SyntheticGap - s.cfg.SyntheticHeight,
			X1: caption.BBox.X1,
			Y1: caption.BBox.Y0 - s.cfg.SyntheticGap,
		}.Clip(page.Bounds())
		if box.IsEmpty() {
			continue
		}
		captionCopy := caption
		out = append(out, model.FigureRegion{
			BBox:              box,
			Page:              page.Index,
			Method:            model.MethodCaptionInferred,
			Confidence:        0.5,
			AssociatedCaption: &captionCopy,
			ExclusionMargin:   pairedMargins,
		})
	}
	return out
}

// VerticalDeletionStrategy removes everything between a caption and the
// nearest prose paragraph above it.
type VerticalDeletionStrategy struct {
	cfg FigureConfig
}

func NewVerticalDeletionStrategy(cfg FigureConfig) *VerticalDeletionStrategy {
	return &VerticalDeletionStrategy{cfg: cfg}
}

func (s *VerticalDeletionStrategy) Name() string { return StrategyVerticalDeletion }

func (s *VerticalDeletionStrategy) Regions(page model.Page, captions []model.FigureCaption) []model.FigureRegion {
	var out []model.FigureRegion
	for _, caption := range captions {
		x0, x1 := caption.BBox.X0-20, caption.BBox.X1+20
		if caption.BBox.Width() > page.Width*s.cfg.SpanningRatio {
			x0, x1 = 0, page.Width
		}
		x0, x1 = math.Max(0, x0), math.Min(page.Width, x1)
		band := model.Rect{X0: x0, Y0: 0, X1: x1, Y1: caption.BBox.Y0}

		top := contentTop(page)
		for _, b := range blocksAbove(page, band) {
			if IsProseParagraph(b) {
				top = b.BBox.Y1
				break
			}
		}

		zone := model.Rect{X0: x0, Y0: top, X1: x1, Y1: caption.BBox.Y0}
		if zone.IsEmpty() {
			continue
		}
		captionCopy := caption
		out = append(out, model.FigureRegion{
			BBox:              zone,
			Page:              page.Index,
			Method:            model.MethodVerticalDeletion,
			Confidence:        0.6,
			HasActualFigure:   containsGraphics(page, zone),
			AssociatedCaption: &captionCopy,
		})
	}
	return out
}

// blocksAbove returns the blocks ending above band.Y1 that overlap the band
// horizontally, nearest first.
func blocksAbove(page model.Page, band model.Rect) []model.Block {
	var out []model.Block
	for _, b := range page.Blocks {
		if b.BBox.Y1 > band.Y1+1 || b.BBox.X1 <= band.X0 || b.BBox.X0 >= band.X1 {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].BBox.Y1 > out[j].BBox.Y1 })
	return out
}

func contentTop(page model.Page) float64 {
	top := page.Height
	for _, b := range page.Blocks {
		top = math.Min(top, b.BBox.Y0)
	}
	for _, r := range page.Images {
		top = math.Min(top, r.Y0)
	}
	for _, r := range page.Drawings {
		top = math.Min(top, r.Y0)
	}
	if top == page.Height {
		return 0
	}
	return top
}

func containsGraphics(page model.Page, zone model.Rect) bool {
	for _, r := range page.Images {
		if zone.Contains(r) {
			return true
		}
	}
	for _, r := range page.Drawings {
		if zone.Contains(r) {
			return true
		}
	}
	return false
}

// IsProseParagraph reports whether a block is running body text rather
// than figure labels or legends.
func IsProseParagraph(b model.Block) bool {
	text := strings.Join(strings.Fields(b.Text()), " ")
	words := len(strings.Fields(text))
	if len(text) <= 80 || words <= 15 {
		return false
	}
	terminators := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	if terminators < 2 && !strings.ContainsAny(text[len(text)-1:], ".!?") {
		return false
	}
	return looksLikeParagraph(text, words, len(b.Lines))
}

func looksLikeParagraph(text string, words, lines int) bool {
	switch {
	case words >= 20:
		return true
	case words < 5:
		return false
	case lines >= 3 && words >= 15:
		return true
	}
	chars, digits := 0, 0
	for _, r := range text {
		if r == ' ' {
			continue
		}
		chars++
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if chars > 0 && float64(digits)/float64(chars) > 0.3 {
		return false
	}
	return words >= 15
}
