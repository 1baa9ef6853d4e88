// Package extractors pulls citations, figures, figure mentions and the
// reference list out of an indexed document.
package extractors

import (
	"log/slog"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Config toggles the individual extractors.
type Config struct {
	ExtractCitations    bool `mapstructure:"extract_citations" json:"extract_citations"`
	ExtractFigures      bool `mapstructure:"extract_figures" json:"extract_figures"`
	ExtractBibliography bool `mapstructure:"extract_bibliography" json:"extract_bibliography"`
	ParseDOI            bool `mapstructure:"parse_doi" json:"parse_doi"`
}

// DefaultConfig enables every extractor.
func DefaultConfig() Config {
	return Config{
		ExtractCitations:    true,
		ExtractFigures:      true,
		ExtractBibliography: true,
		ParseDOI:            true,
	}
}

// Input is what the extractors read.
type Input struct {
	Markdown string
	Sections map[string]*model.ParsedSection
	Captions []model.FigureCaption
	Regions  []model.FigureRegion
}

// Result holds the extracted metadata. Disabled extractors leave their
// field nil.
type Result struct {
	Citations    []model.CitationRef
	Figures      []model.FigureBlock
	FigureRefs   []model.FigureRef
	Bibliography []model.BibliographyEntry
}

// Extractor runs the enabled extractors.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an extractor. A nil logger uses slog.Default().
func New(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{cfg: cfg, logger: logger.With("component", "Extractor")}
}

// Extract runs every enabled extractor over in.
func (e *Extractor) Extract(in Input) Result {
	var r Result
	if e.cfg.ExtractCitations {
		r.Citations = Citations(in.Sections)
	}
	if e.cfg.ExtractFigures {
		r.Figures = FigureBlocks(in.Captions, in.Regions, in.Markdown)
		r.FigureRefs = FigureRefs(in.Sections)
	}
	if e.cfg.ExtractBibliography {
		r.Bibliography = Bibliography(in.Sections, e.cfg.ParseDOI)
	}

	e.logger.Debug("metadata extracted",
		"citations", len(r.Citations),
		"figures", len(r.Figures),
		"figure_refs", len(r.FigureRefs),
		"bibliography", len(r.Bibliography))
	return r
}
