package intelligence

import (
	"log/slog"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// TextFilter removes text blocks that lie inside figure regions.
type TextFilter struct {
	cfg    FilterConfig
	logger *slog.Logger
}

// NewTextFilter creates a filter. A nil logger uses slog.Default().
func NewTextFilter(cfg FilterConfig, logger *slog.Logger) *TextFilter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextFilter{cfg: cfg, logger: logger.With("component", "TextFilter")}
}

// Apply returns new pages without the blocks that overlap a figure region
// of their page. Caption blocks are always kept.
func (f *TextFilter) Apply(pages []model.Page, regions []model.FigureRegion, captions []model.FigureCaption) []model.Page {
	regionsByPage := make(map[int][]model.FigureRegion)
	for _, r := range regions {
		regionsByPage[r.Page] = append(regionsByPage[r.Page], r)
	}
	captionsByPage := make(map[int][]model.FigureCaption)
	for _, c := range captions {
		captionsByPage[c.Page] = append(captionsByPage[c.Page], c)
	}

	out := make([]model.Page, len(pages))
	for i, page := range pages {
		pageRegions := regionsByPage[page.Index]
		if len(pageRegions) == 0 {
			out[i] = page
			continue
		}

		filtered := page
		filtered.Blocks = make([]model.Block, 0, len(page.Blocks))
		removed := 0
		for _, b := range page.Blocks {
			if f.shouldRedact(b, pageRegions, captionsByPage[page.Index]) {
				removed++
				continue
			}
			filtered.Blocks = append(filtered.Blocks, b)
		}
		if removed > 0 {
			f.logger.Debug("filtered figure text", "page", page.Index+1, "blocks", removed)
		}
		out[i] = filtered
	}
	return out
}

func (f *TextFilter) shouldRedact(b model.Block, regions []model.FigureRegion, captions []model.FigureCaption) bool {
	if f.isCaptionBlock(b.BBox, b.Text(), captions) {
		return false
	}
	threshold := f.cfg.BlockOverlap
	if b.BBox.Height() < f.cfg.SmallBlockHeight {
		threshold = f.cfg.SmallBlockOverlap
	}
	for _, r := range regions {
		if b.BBox.OverlapRatio(r.BBox) > threshold {
			return true
		}
	}
	return false
}

func (f *TextFilter) isCaptionBlock(bbox model.Rect, text string, captions []model.FigureCaption) bool {
	n := f.cfg.CaptionPrefixChars
	blockText := strings.Join(strings.Fields(text), " ")
	for _, c := range captions {
		if bbox.OverlapRatio(c.BBox) > f.cfg.CaptionOverlap {
			return true
		}
		captionText := strings.Join(strings.Fields(c.Text), " ")
		if runeLen(captionText) < n || runeLen(blockText) < n {
			continue
		}
		if strings.Contains(blockText, prefix(captionText, n)) || strings.Contains(captionText, prefix(blockText, n)) {
			return true
		}
	}
	return false
}

// IsCaptionBlock reports whether a text block is one of the detected
// captions, by box overlap or by a shared 20-character prefix.
func IsCaptionBlock(bbox model.Rect, text string, captions []model.FigureCaption) bool {
	f := TextFilter{cfg: DefaultFilterConfig()}
	return f.isCaptionBlock(bbox, text, captions)
}

func runeLen(s string) int {
	return len([]rune(s))
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
