package intelligence

import (
	"fmt"
	"strings"
)

// GeometryConfig controls margin and line-number detection.
type GeometryConfig struct {
	DetectLineNumbers bool `mapstructure:"detect_line_numbers" json:"detect_line_numbers"`
	// DetectFooter enables sampling-based footer detection; when false
	// FooterMargin is used for every page.
	DetectFooter bool    `mapstructure:"detect_footer" json:"detect_footer"`
	FooterMargin float64 `mapstructure:"footer_margin" json:"footer_margin"`
	// HeaderBand is the height of the band searched for running headers.
	HeaderBand float64 `mapstructure:"header_band" json:"header_band"`
	// LineNumberMaxX is the right edge a margin number must stay left of.
	LineNumberMaxX     float64 `mapstructure:"line_number_max_x" json:"line_number_max_x"`
	LineNumberMinCount int     `mapstructure:"line_number_min_count" json:"line_number_min_count"`
	LineNumberPages    int     `mapstructure:"line_number_pages" json:"line_number_pages"`
	FooterSamplePages  int     `mapstructure:"footer_sample_pages" json:"footer_sample_pages"`
	MinVisibleHeight   float64 `mapstructure:"min_visible_height" json:"min_visible_height"`
}

// DefaultGeometryConfig returns the margins used for typical journal layouts.
func DefaultGeometryConfig() GeometryConfig {
	return GeometryConfig{
		DetectLineNumbers:  true,
		DetectFooter:       false,
		FooterMargin:       35,
		HeaderBand:         70,
		LineNumberMaxX:     80,
		LineNumberMinCount: 10,
		LineNumberPages:    3,
		FooterSamplePages:  5,
		MinVisibleHeight:   100,
	}
}

// Validate checks the geometry settings.
func (c GeometryConfig) Validate() error {
	if c.FooterMargin < 0 {
		return fmt.Errorf("geometry.footer_margin must be >= 0, got %v", c.FooterMargin)
	}
	if c.HeaderBand <= 0 {
		return fmt.Errorf("geometry.header_band must be > 0, got %v", c.HeaderBand)
	}
	if c.LineNumberPages < 1 || c.FooterSamplePages < 1 {
		return fmt.Errorf("geometry sample page counts must be >= 1")
	}
	return nil
}

// CaptionConfig tunes caption continuation.
type CaptionConfig struct {
	MaxBlocks int `mapstructure:"max_blocks" json:"max_blocks"`
	// EarlyBlocks continuation blocks may be up to EarlyGap below the
	// caption; later ones only LateGap.
	EarlyBlocks     int     `mapstructure:"early_blocks" json:"early_blocks"`
	EarlyGap        float64 `mapstructure:"early_gap" json:"early_gap"`
	LateGap         float64 `mapstructure:"late_gap" json:"late_gap"`
	MinOverlap      float64 `mapstructure:"min_overlap" json:"min_overlap"`
	MinFontRatio    float64 `mapstructure:"min_font_ratio" json:"min_font_ratio"`
	MaxFontRatio    float64 `mapstructure:"max_font_ratio" json:"max_font_ratio"`
	AuthorLineGap   float64 `mapstructure:"author_line_gap" json:"author_line_gap"`
	ContinuationGap float64 `mapstructure:"continuation_gap" json:"continuation_gap"`
	// VerbWindow is how far past the label an action verb marks an inline reference.
	VerbWindow int `mapstructure:"verb_window" json:"verb_window"`
}

// DefaultCaptionConfig returns the caption thresholds.
func DefaultCaptionConfig() CaptionConfig {
	return CaptionConfig{
		MaxBlocks:       20,
		EarlyBlocks:     3,
		EarlyGap:        40,
		LateGap:         25,
		MinOverlap:      0.4,
		MinFontRatio:    0.7,
		MaxFontRatio:    1.3,
		AuthorLineGap:   20,
		ContinuationGap: 60,
		VerbWindow:      5,
	}
}

// Validate checks the caption settings.
func (c CaptionConfig) Validate() error {
	if c.MaxBlocks < 1 {
		return fmt.Errorf("captions.max_blocks must be >= 1, got %d", c.MaxBlocks)
	}
	if c.MinFontRatio <= 0 || c.MaxFontRatio < c.MinFontRatio {
		return fmt.Errorf("captions font ratio range [%v, %v] is invalid", c.MinFontRatio, c.MaxFontRatio)
	}
	if c.MinOverlap < 0 || c.MinOverlap > 1 {
		return fmt.Errorf("captions.min_overlap must be in [0,1], got %v", c.MinOverlap)
	}
	if c.VerbWindow < 0 {
		return fmt.Errorf("captions.verb_window must be >= 0, got %d", c.VerbWindow)
	}
	return nil
}

// Region strategy names accepted in FigureConfig.Strategies.
const (
	StrategyPaired           = "paired"
	StrategyVerticalDeletion = "vertical_deletion"
)

// FigureConfig selects and tunes the figure region strategies.
type FigureConfig struct {
	Strategies           []string `mapstructure:"strategies" json:"strategies"`
	ProximityThreshold   float64  `mapstructure:"proximity_threshold" json:"proximity_threshold"`
	MinWidth             float64  `mapstructure:"min_width" json:"min_width"`
	MinHeight            float64  `mapstructure:"min_height" json:"min_height"`
	MinImageArea         float64  `mapstructure:"min_image_area" json:"min_image_area"`
	MinDrawingPrimitives int      `mapstructure:"min_drawing_primitives" json:"min_drawing_primitives"`
	MaxPairDistance      float64  `mapstructure:"max_pair_distance" json:"max_pair_distance"`
	AlignTolerance       float64  `mapstructure:"align_tolerance" json:"align_tolerance"`
	SpanningRatio        float64  `mapstructure:"spanning_ratio" json:"spanning_ratio"`
	SyntheticHeight      float64  `mapstructure:"synthetic_height" json:"synthetic_height"`
	SyntheticGap         float64  `mapstructure:"synthetic_gap" json:"synthetic_gap"`
}

// DefaultFigureConfig returns the paired strategy with its usual thresholds.
func DefaultFigureConfig() FigureConfig {
	return FigureConfig{
		Strategies:           []string{StrategyPaired},
		ProximityThreshold:   15,
		MinWidth:             150,
		MinHeight:            100,
		MinImageArea:         20000,
		MinDrawingPrimitives: 5,
		MaxPairDistance:      100,
		AlignTolerance:       50,
		SpanningRatio:        0.7,
		SyntheticHeight:      150,
		SyntheticGap:         10,
	}
}

// Validate checks the strategy names and thresholds.
func (c FigureConfig) Validate() error {
	for _, s := range c.Strategies {
		switch strings.ToLower(s) {
		case StrategyPaired, StrategyVerticalDeletion:
		default:
			return fmt.Errorf("figures.strategies: unknown strategy %q", s)
		}
	}
	if c.ProximityThreshold < 0 || c.MaxPairDistance < 0 {
		return fmt.Errorf("figures distances must be >= 0")
	}
	return nil
}

// FilterConfig holds the redaction thresholds.
type FilterConfig struct {
	SmallBlockHeight   float64 `mapstructure:"small_block_height" json:"small_block_height"`
	SmallBlockOverlap  float64 `mapstructure:"small_block_overlap" json:"small_block_overlap"`
	BlockOverlap       float64 `mapstructure:"block_overlap" json:"block_overlap"`
	CaptionOverlap     float64 `mapstructure:"caption_overlap" json:"caption_overlap"`
	CaptionPrefixChars int     `mapstructure:"caption_prefix_chars" json:"caption_prefix_chars"`
}

// DefaultFilterConfig returns the redaction thresholds.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		SmallBlockHeight:   20,
		SmallBlockOverlap:  0.5,
		BlockOverlap:       0.3,
		CaptionOverlap:     0.8,
		CaptionPrefixChars: 20,
	}
}

// StructureConfig controls typographic structure detection.
type StructureConfig struct {
	DetectBoldText          bool     `mapstructure:"detect_bold_text" json:"detect_bold_text"`
	ExtractTitle            bool     `mapstructure:"extract_title" json:"extract_title"`
	ExtractAbstractFallback bool     `mapstructure:"extract_abstract_fallback" json:"extract_abstract_fallback"`
	TitlePositionThreshold  float64  `mapstructure:"title_position_threshold" json:"title_position_threshold"`
	SectionVocabulary       []string `mapstructure:"section_vocabulary" json:"section_vocabulary"`
}

// DefaultSectionVocabulary lists the section titles recognised in bold text.
func DefaultSectionVocabulary() []string {
	return []string{
		"abstract", "introduction", "background", "related work",
		"methods", "materials and methods", "experimental", "methodology",
		"results", "discussion", "results and discussion",
		"conclusion", "conclusions", "summary",
		"references", "bibliography", "acknowledgments", "acknowledgements",
		"keywords", "author contributions", "funding", "competing interests",
		"data availability",
	}
}

// DefaultStructureConfig returns the structure analyzer configuration.
func DefaultStructureConfig() StructureConfig {
	return StructureConfig{
		DetectBoldText:          true,
		ExtractTitle:            true,
		ExtractAbstractFallback: true,
		TitlePositionThreshold:  0.3,
		SectionVocabulary:       DefaultSectionVocabulary(),
	}
}

// Validate checks the structure settings.
func (c StructureConfig) Validate() error {
	if c.TitlePositionThreshold <= 0 || c.TitlePositionThreshold > 1 {
		return fmt.Errorf("analysis.title_position_threshold must be in (0,1], got %v", c.TitlePositionThreshold)
	}
	return nil
}
