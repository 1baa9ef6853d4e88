package model

import (
	"fmt"
	"sort"
	"strings"
)

// GeometryInfo summarizes the margins detected for a document.
type GeometryInfo struct {
	HasLineNumbers   bool      `json:"has_line_numbers"`
	LeftMarginCutoff float64   `json:"left_margin_cutoff"`
	TopMargins       []float64 `json:"top_margins"`
	BottomMargin     float64   `json:"bottom_margin"`
	HasColumns       bool      `json:"has_columns"`
	ColumnCount      int       `json:"column_count"`
}

// TopMargin returns the header height used for page i, or fallback when unknown.
func (g GeometryInfo) TopMargin(i int, fallback float64) float64 {
	if i >= 0 && i < len(g.TopMargins) {
		return g.TopMargins[i]
	}
	return fallback
}

// BoldSpan is a bold run of text taken from the raw glyph data.
type BoldSpan struct {
	Text      string  `json:"text"`
	Page      int     `json:"page"`
	FontSize  float64 `json:"font_size"`
	BBox      Rect    `json:"bbox"`
	YPosition float64 `json:"y_position"`
}

// SectionHeader is a bold span recognised as a standard section title.
type SectionHeader struct {
	Text           string  `json:"text"`
	NormalizedName string  `json:"normalized_name"`
	Page           int     `json:"page"`
	Confidence     float64 `json:"confidence"`
}

// StructureInfo is the typographic structure found before cropping.
type StructureInfo struct {
	Title          string          `json:"title,omitempty"`
	Abstract       string          `json:"abstract,omitempty"`
	SectionHeaders []SectionHeader `json:"section_headers"`
	BoldSpans      []BoldSpan      `json:"bold_spans"`
}

// HasHeader reports whether a header with the given normalized name was found.
func (s StructureInfo) HasHeader(name string) bool {
	for _, h := range s.SectionHeaders {
		if h.NormalizedName == name {
			return true
		}
	}
	return false
}

// FigureKind is the label word a caption starts with.
type FigureKind string

const (
	KindFigure FigureKind = "Figure"
	KindTable  FigureKind = "Table"
	KindScheme FigureKind = "Scheme"
)

// FigureCaption is a detected caption with its full extent.
type FigureCaption struct {
	Text         string     `json:"text"`
	Kind         FigureKind `json:"kind"`
	Number       int        `json:"number"`
	SubLetter    string     `json:"sub_letter,omitempty"`
	Supplemental bool       `json:"supplemental"`
	Page         int        `json:"page"`
	BBox         Rect       `json:"bbox"`
	IsBold       bool       `json:"is_bold"`
	Standalone   bool       `json:"is_standalone"`
	Confidence   float64    `json:"confidence"`
}

// Label renders the caption identifier, e.g. "Figure S3B".
func (c FigureCaption) Label() string {
	var b strings.Builder
	b.WriteString(string(c.Kind))
	b.WriteByte(' ')
	if c.Supplemental {
		b.WriteByte('S')
	}
	fmt.Fprintf(&b, "%d%s", c.Number, c.SubLetter)
	return b.String()
}

// DetectionMethod names how a figure region was found.
type DetectionMethod string

const (
	MethodImage            DetectionMethod = "image"
	MethodDrawing          DetectionMethod = "drawing"
	MethodCaptionInferred  DetectionMethod = "caption_inferred"
	MethodCluster          DetectionMethod = "cluster"
	MethodVerticalDeletion DetectionMethod = "vertical_deletion"
)

// FigureRegion is a page area excluded from body text.
type FigureRegion struct {
	BBox              Rect            `json:"bbox"`
	Page              int             `json:"page"`
	Method            DetectionMethod `json:"detection_method"`
	Confidence        float64         `json:"confidence"`
	HasActualFigure   bool            `json:"has_actual_figure"`
	AssociatedCaption *FigureCaption  `json:"associated_caption,omitempty"`
	ExclusionMargin   Margins         `json:"exclusion_margin"`
}

// IsSynthetic reports whether the region rests on caption position alone.
func (r FigureRegion) IsSynthetic() bool {
	return !r.HasActualFigure
}

// Sentence is an addressable sentence within a section.
type Sentence struct {
	ID             string `json:"id"`
	Section        string `json:"section"`
	Text           string `json:"text"`
	CharStart      int    `json:"char_start"`
	CharEnd        int    `json:"char_end"`
	ParagraphIndex int    `json:"paragraph_index"`
}

// ParsedSection is a named section of the reconstructed document.
type ParsedSection struct {
	Name      string     `json:"name"`
	Text      string     `json:"text"`
	Sentences []Sentence `json:"sentences"`
	Priority  int        `json:"order_priority"`
}

// CitationRef is an in-text citation located in a sentence.
type CitationRef struct {
	ID           string `json:"id"`
	Section      string `json:"section"`
	SentenceID   string `json:"sentence_id"`
	SentenceText string `json:"sentence_text"`
}

// FigureBlock is a figure surfaced to the caller.
type FigureBlock struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Caption string `json:"caption"`
	Page    int    `json:"page"`
}

// FigureRef is a mention of a figure inside body text.
type FigureRef struct {
	Label        string `json:"label"`
	Section      string `json:"section"`
	SentenceID   string `json:"sentence_id"`
	SentenceText string `json:"sentence_text"`
}

// BibliographyEntry is one reference-list item.
type BibliographyEntry struct {
	ID      string `json:"id"`
	RawText string `json:"raw_text"`
	DOI     string `json:"doi,omitempty"`
}

// ParsedDocument is the final result of one parse. It is built once and
// must be treated as read-only by every consumer.
type ParsedDocument struct {
	ID           string                    `json:"doc_id"`
	Hash         string                    `json:"doc_hash"`
	Filename     string                    `json:"filename"`
	Title        string                    `json:"title"`
	PageCount    int                       `json:"page_count"`
	Sections     map[string]*ParsedSection `json:"sections"`
	Figures      []FigureBlock             `json:"figures"`
	FigureRefs   []FigureRef               `json:"figure_refs"`
	Citations    []CitationRef             `json:"citations"`
	Bibliography []BibliographyEntry       `json:"bibliography"`
	Validation   map[string]bool           `json:"validation"`
	Geometry     GeometryInfo              `json:"geometry"`
	Warnings     []string                  `json:"warnings,omitempty"`
	Markdown     string                    `json:"raw_markdown"`
}

// OrderedSections returns sections sorted by priority, then name.
func OrderedSections(sections map[string]*ParsedSection) []*ParsedSection {
	out := make([]*ParsedSection, 0, len(sections))
	for _, s := range sections {
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// SentenceCount returns the number of indexed sentences across all sections.
func (d *ParsedDocument) SentenceCount() int {
	n := 0
	for _, s := range d.Sections {
		n += len(s.Sentences)
	}
	return n
}
