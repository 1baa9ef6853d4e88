// Package pipeline runs the parse stages in order and assembles the
// ParsedDocument.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/extractors"
	"github.com/a3tai/mcp-paper-parser/internal/intelligence"
	"github.com/a3tai/mcp-paper-parser/internal/model"
	"github.com/a3tai/mcp-paper-parser/internal/pdf"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
	"github.com/a3tai/mcp-paper-parser/internal/reflow"
	"github.com/a3tai/mcp-paper-parser/internal/sections"
)

// Pipeline parses papers with a fixed configuration. It holds no per-parse
// state, so one Pipeline may serve concurrent Parse calls.
type Pipeline struct {
	cfg       config.PipelineConfig
	logger    *slog.Logger
	observers []Observer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger handed to every stage.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithObserver adds observers notified after each stage.
func WithObserver(obs ...Observer) Option {
	return func(p *Pipeline) {
		p.observers = append(p.observers, obs...)
	}
}

// New creates a pipeline.
func New(cfg config.PipelineConfig, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() config.PipelineConfig {
	return p.cfg
}

// run is the state of one parse.
type run struct {
	p        *Pipeline
	data     []byte
	filename string
	logger   *slog.Logger
	ec       *pdferrors.ErrorCollection

	doc        *pdf.LoadedDocument
	structure  model.StructureInfo
	geometry   model.GeometryInfo
	pages      []model.Page
	captions   []model.FigureCaption
	regions    []model.FigureRegion
	markdown   string
	sections   map[string]*model.ParsedSection
	title      string
	hasAuthors bool
	validation map[string]bool
	meta       extractors.Result
	result     *model.ParsedDocument
}

// Parse runs every stage over data. InvalidInput and UnsupportedDocument
// errors and context cancellation end the parse; every other detector
// failure is recorded in the document warnings.
func (p *Pipeline) Parse(ctx context.Context, data []byte, filename string) (*model.ParsedDocument, error) {
	r := &run{
		p:        p,
		data:     data,
		filename: filename,
		logger:   p.logger.With("file", filename),
		ec:       pdferrors.NewErrorCollection(filename),
	}
	cfg := p.cfg

	steps := []struct {
		stage   Stage
		enabled bool
		fn      func(ctx context.Context) (any, string, error)
	}{
		{StageLoad, true, r.load},
		{StageAnalyzeStructure, true, r.analyzeStructure},
		{StageGeometry, true, r.geometryStage},
		{StageExtract, true, r.extract},
		{StageReflow, cfg.Reflow.EnableReflow, r.reflow},
		{StageCleanup, true, r.cleanup},
		{StageLabelSections, true, r.label},
		{StageSplitSections, true, r.split},
		{StageValidate, true, r.validate},
		{StageIndexSentences, cfg.Indexing.EnableSentenceIndexing, r.index},
		{StageExtractMetadata, cfg.Extraction.ExtractCitations || cfg.Extraction.ExtractFigures || cfg.Extraction.ExtractBibliography, r.extractMetadata},
		{StageAssemble, true, r.assemble},
	}

	start := time.Now()
	for _, s := range steps {
		if err := r.step(ctx, s.stage, s.enabled, s.fn); err != nil {
			return nil, err
		}
	}

	return r.finish(start)
}

// finish logs the outcome of a completed run. A degraded assemble stage
// leaves no result behind, which is reported rather than dereferenced.
func (r *run) finish(start time.Time) (*model.ParsedDocument, error) {
	if r.result == nil {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeDegradedDetection, "document could not be assembled").
			WithStage(StageAssemble.String()).
			WithContext("file", r.filename)
	}

	r.logger.Info("paper parsed",
		"pages", r.result.PageCount,
		"sections", len(r.result.Sections),
		"sentences", r.result.SentenceCount(),
		"figures", len(r.result.Figures),
		"warnings", len(r.result.Warnings),
		"summary", r.ec.Summary(),
		"elapsed", time.Since(start))
	return r.result, nil
}

// step runs one stage and notifies the observers. A panic inside the stage
// degrades it to a warning; an error returned by the stage is fatal.
func (r *run) step(ctx context.Context, stage Stage, enabled bool, fn func(context.Context) (any, string, error)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("parsing %s before %s: %w", r.filename, stage, err)
	}

	ev := StageEvent{Stage: stage}
	start := time.Now()
	if !enabled {
		ev.Skipped = true
		ev.Summary = "skipped"
	} else {
		var stageErr error
		perr := pdferrors.Recover(stage.String(), 0, func() error {
			ev.Output, ev.Summary, stageErr = fn(ctx)
			return nil
		})
		if stageErr != nil {
			return stageErr
		}
		if perr != nil {
			r.logger.Warn("stage degraded", "stage", stage.String(), "error", perr)
			var pe *pdferrors.PDFError
			if errors.As(perr, &pe) {
				r.ec.Add(pe)
			}
			ev.Summary = "degraded: " + perr.Error()
		}
	}
	ev.Duration = time.Since(start)

	r.logger.Debug("stage finished", "stage", stage.String(), "skipped", ev.Skipped, "duration", ev.Duration)
	for _, o := range r.p.observers {
		o.OnStage(ctx, ev)
	}
	return nil
}

func (r *run) load(ctx context.Context) (any, string, error) {
	doc, err := pdf.NewLoader(r.p.cfg.Loader, r.logger).Load(ctx, r.data, r.filename)
	if err != nil {
		return nil, "", err
	}
	r.doc = doc
	r.ec = doc.Errors
	r.pages = doc.Pages
	return doc, fmt.Sprintf("%d pages", doc.PageCount), nil
}

func (r *run) analyzeStructure(context.Context) (any, string, error) {
	a := intelligence.NewStructureAnalyzer(r.p.cfg.Analysis, r.logger)
	r.structure = a.Analyze(r.doc.Pages, r.ec)
	return r.structure, fmt.Sprintf("title=%q headers=%d abstract_fallback=%t",
		r.structure.Title, len(r.structure.SectionHeaders), r.structure.Abstract != ""), nil
}

func (r *run) geometryStage(context.Context) (any, string, error) {
	g := intelligence.NewGeometryAnalyzer(r.p.cfg.Geometry, r.logger)
	r.geometry = g.Analyze(r.doc.Pages, r.ec)
	r.pages = g.Crop(r.doc.Pages, r.geometry)
	return r.geometry, fmt.Sprintf("bottom=%.1f line_numbers=%t columns=%d",
		r.geometry.BottomMargin, r.geometry.HasLineNumbers, r.geometry.ColumnCount), nil
}

func (r *run) extract(context.Context) (any, string, error) {
	cfg := r.p.cfg
	r.captions = intelligence.NewCaptionDetector(cfg.Captions, r.logger).DetectAll(r.pages, r.ec)
	r.regions = intelligence.NewFigureDetector(cfg.Figures, r.logger).Detect(r.pages, r.captions, r.ec)
	filtered := intelligence.NewTextFilter(cfg.Filter, r.logger).Apply(r.pages, r.regions, r.captions)
	r.markdown = intelligence.RenderMarkdown(filtered)
	return r.markdown, fmt.Sprintf("captions=%d regions=%d chars=%d",
		len(r.captions), len(r.regions), len(r.markdown)), nil
}

func (r *run) reflow(context.Context) (any, string, error) {
	r.markdown = reflow.Reflow(r.markdown, r.p.cfg.Reflow)
	return r.markdown, fmt.Sprintf("chars=%d", len(r.markdown)), nil
}

func (r *run) cleanup(context.Context) (any, string, error) {
	r.markdown = reflow.NewCleaner(r.p.cfg.Cleanup, r.logger).Clean(r.markdown)
	return r.markdown, fmt.Sprintf("chars=%d", len(r.markdown)), nil
}

func (r *run) label(context.Context) (any, string, error) {
	r.markdown = reflow.NewLabeler(r.logger).Label(r.markdown, r.structure)
	return r.markdown, fmt.Sprintf("labels=%d", strings.Count(r.markdown, "### **")), nil
}

func (r *run) split(context.Context) (any, string, error) {
	r.sections = sections.NewSplitter(r.p.cfg.Sections, r.logger).Split(r.markdown, r.ec)
	return r.sections, fmt.Sprintf("sections=%d", len(r.sections)), nil
}

func (r *run) validate(context.Context) (any, string, error) {
	r.title = r.resolveTitle()
	r.hasAuthors = r.doc.Metadata.HasAuthors() ||
		(len(r.doc.Pages) > 0 && intelligence.HasAuthorLine(r.doc.Pages[0], r.structure))
	r.validation = sections.NewValidator(r.p.cfg.Sections, r.logger).Validate(r.sections, r.title, r.hasAuthors, r.ec)

	failed := 0
	for _, ok := range r.validation {
		if !ok {
			failed++
		}
	}
	return r.validation, fmt.Sprintf("checks=%d failed=%d", len(r.validation), failed), nil
}

func (r *run) index(context.Context) (any, string, error) {
	r.sections = sections.NewIndexer(r.p.cfg.Indexing, r.logger).Index(r.sections)
	n := 0
	for _, s := range r.sections {
		n += len(s.Sentences)
	}
	return r.sections, fmt.Sprintf("sentences=%d", n), nil
}

func (r *run) extractMetadata(context.Context) (any, string, error) {
	r.meta = extractors.New(r.p.cfg.Extraction, r.logger).Extract(extractors.Input{
		Markdown: r.markdown,
		Sections: r.sections,
		Captions: r.captions,
		Regions:  r.regions,
	})
	return r.meta, fmt.Sprintf("citations=%d figures=%d figure_refs=%d bibliography=%d",
		len(r.meta.Citations), len(r.meta.Figures), len(r.meta.FigureRefs), len(r.meta.Bibliography)), nil
}

func (r *run) assemble(context.Context) (any, string, error) {
	if r.title == "" {
		r.title = r.resolveTitle()
	}
	if r.sections == nil {
		r.sections = map[string]*model.ParsedSection{}
	}
	r.result = &model.ParsedDocument{
		ID:           uuid.NewString(),
		Hash:         r.doc.Hash,
		Filename:     r.filename,
		Title:        r.title,
		PageCount:    r.doc.PageCount,
		Sections:     r.sections,
		Figures:      r.meta.Figures,
		FigureRefs:   r.meta.FigureRefs,
		Citations:    r.meta.Citations,
		Bibliography: r.meta.Bibliography,
		Validation:   r.validation,
		Geometry:     r.geometry,
		Warnings:     r.ec.Messages(),
		Markdown:     r.markdown,
	}
	return r.result, "doc_id=" + r.result.ID, nil
}

// resolveTitle falls back from the detected title to the metadata title to
// the file name without its extension.
func (r *run) resolveTitle() string {
	if t := strings.TrimSpace(r.structure.Title); t != "" {
		return t
	}
	if t := strings.TrimSpace(r.doc.Metadata.Title); t != "" {
		return t
	}
	base := filepath.Base(r.filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
