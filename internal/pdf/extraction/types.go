package extraction

import (
	"fmt"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Default page dimensions (US Letter) used when no MediaBox can be resolved.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0

	// maxFormDepth bounds recursion into nested Form XObjects.
	maxFormDepth = 3
)

// Config tunes glyph grouping. All distances are in points, ratios are
// relative to the glyph font size.
type Config struct {
	// RowTolerance is the baseline distance under which glyphs share a row.
	RowTolerance float64 `mapstructure:"row_tolerance" json:"row_tolerance"`
	// WordGapRatio is the horizontal gap, as a share of font size, that
	// separates two words inside a span.
	WordGapRatio float64 `mapstructure:"word_gap_ratio" json:"word_gap_ratio"`
	// SpanGapRatio is the gap that closes a span even with an unchanged font.
	SpanGapRatio float64 `mapstructure:"span_gap_ratio" json:"span_gap_ratio"`
	// LineGapRatio is the gap that splits one row into separate lines, as
	// happens between columns.
	LineGapRatio float64 `mapstructure:"line_gap_ratio" json:"line_gap_ratio"`
	// BlockGapRatio is the vertical gap between lines of one block.
	BlockGapRatio float64 `mapstructure:"block_gap_ratio" json:"block_gap_ratio"`
	// AlignTolerance is the left-edge drift allowed inside a block.
	AlignTolerance float64 `mapstructure:"align_tolerance" json:"align_tolerance"`
	// MinColumnBlockWidth ignores narrow blocks during column detection.
	MinColumnBlockWidth float64 `mapstructure:"min_column_block_width" json:"min_column_block_width"`
	// ColumnSeparation is the distance two column centers must exceed.
	ColumnSeparation float64 `mapstructure:"column_separation" json:"column_separation"`
}

// DefaultConfig returns the grouping parameters used for typical papers.
func DefaultConfig() Config {
	return Config{
		RowTolerance:        3.0,
		WordGapRatio:        0.15,
		SpanGapRatio:        1.0,
		LineGapRatio:        2.0,
		BlockGapRatio:       0.8,
		AlignTolerance:      15.0,
		MinColumnBlockWidth: 40.0,
		ColumnSeparation:    80.0,
	}
}

// Validate checks that every threshold is usable.
func (c Config) Validate() error {
	checks := map[string]float64{
		"row_tolerance":   c.RowTolerance,
		"word_gap_ratio":  c.WordGapRatio,
		"span_gap_ratio":  c.SpanGapRatio,
		"line_gap_ratio":  c.LineGapRatio,
		"block_gap_ratio": c.BlockGapRatio,
	}
	for name, v := range checks {
		if v <= 0 {
			return fmt.Errorf("extraction %s must be positive, got %v", name, v)
		}
	}
	if c.WordGapRatio >= c.SpanGapRatio {
		return fmt.Errorf("word_gap_ratio (%v) must be below span_gap_ratio (%v)", c.WordGapRatio, c.SpanGapRatio)
	}
	return nil
}

// PageBox is a resolved MediaBox in PDF user space.
type PageBox struct {
	LLX, LLY, URX, URY float64
}

func (b PageBox) Width() float64  { return b.URX - b.LLX }
func (b PageBox) Height() float64 { return b.URY - b.LLY }

// toTopDown converts a rectangle in PDF user space (origin bottom-left)
// into page coordinates with the origin at the top-left.
func (b PageBox) toTopDown(x0, y0, x1, y1 float64) model.Rect {
	return model.NewRect(x0-b.LLX, b.URY-y1, x1-b.LLX, b.URY-y0)
}

// glyph is one shown character converted to top-down coordinates.
type glyph struct {
	text     string
	font     string
	size     float64
	bold     bool
	space    bool
	baseline float64
	box      model.Rect
}

// IsBoldFont reports whether a font name denotes a bold face.
func IsBoldFont(name string) bool {
	lower := strings.ToLower(name)
	if strings.Contains(lower, "bold") || strings.Contains(lower, "heavy") {
		return true
	}
	return strings.HasSuffix(lower, ",bold") || strings.HasSuffix(lower, "-black")
}
