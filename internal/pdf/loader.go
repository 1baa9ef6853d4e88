package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
	"github.com/a3tai/mcp-paper-parser/internal/pdf/extraction"
)

// LoaderOptions configures document loading.
type LoaderOptions struct {
	// MaxPages is the page count above which a warning is logged.
	MaxPages int `mapstructure:"max_pages" json:"max_pages"`
	// MinFirstPageChars is the number of non-space characters the first
	// page needs before the document counts as text-bearing.
	MinFirstPageChars int `mapstructure:"min_first_page_chars" json:"min_first_page_chars"`
	// OpenTimeout bounds decoding of the document structure; zero disables it.
	OpenTimeout time.Duration `mapstructure:"open_timeout" json:"open_timeout"`
	// StructureCheck cross-checks the file with pdfcpu.
	StructureCheck bool              `mapstructure:"structure_check" json:"structure_check"`
	Extraction     extraction.Config `mapstructure:"extraction" json:"extraction"`
}

// DefaultLoaderOptions returns the loader settings used by the pipeline.
func DefaultLoaderOptions() LoaderOptions {
	return LoaderOptions{
		MaxPages:          1000,
		MinFirstPageChars: 10,
		StructureCheck:    true,
		Extraction:        extraction.DefaultConfig(),
	}
}

// Loader decodes PDF bytes into owned page buffers.
type Loader struct {
	opts   LoaderOptions
	engine *extraction.Engine
	opener *pdferrors.RobustParser
	logger *slog.Logger
}

// NewLoader creates a loader. A nil logger uses slog.Default().
func NewLoader(opts LoaderOptions, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		opts:   opts,
		engine: extraction.NewEngine(opts.Extraction, logger),
		opener: pdferrors.NewRobustParser(logger, opts.OpenTimeout),
		logger: logger.With("component", "Loader"),
	}
}

// Load validates and extracts a document. It returns InvalidInput for an
// unreadable byte stream and UnsupportedDocument for a document without
// pages or without a text layer on its first page; per-page failures are
// recorded as warnings and produce empty pages.
func (l *Loader) Load(ctx context.Context, data []byte, filename string) (*LoadedDocument, error) {
	ec := pdferrors.NewErrorCollection(filename)

	opened, err := l.opener.Open(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", filename, err)
	}
	reader := opened.Reader

	if l.opts.StructureCheck {
		l.checkStructure(data, opened.TotalPages, ec)
	}

	pageCount := opened.TotalPages
	if pageCount == 0 {
		return nil, pdferrors.NewPDFError(pdferrors.ErrorTypeUnsupportedDocument, "document has no pages").
			WithStage("load").WithContext(filename)
	}
	if l.opts.MaxPages > 0 && pageCount > l.opts.MaxPages {
		l.logger.Warn("page count above limit", "pages", pageCount, "limit", l.opts.MaxPages, "file", filename)
	}

	pages := make([]model.Page, pageCount)
	for i := 0; i < pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading %s: %w", filename, err)
		}
		pages[i] = l.extractPage(reader, i, ec)
	}

	if n := nonSpaceChars(pages[0].Text()); n < l.opts.MinFirstPageChars {
		return nil, pdferrors.NewPDFErrorWithContext(pdferrors.ErrorTypeUnsupportedDocument,
			fmt.Sprintf("first page has %d extractable characters; scanned or image-only PDF", n), filename).
			WithStage("load").WithPage(1)
	}

	sum := sha256.Sum256(data)
	doc := &LoadedDocument{
		Filename:  filename,
		Hash:      hex.EncodeToString(sum[:]),
		PageCount: pageCount,
		Pages:     pages,
		Metadata:  readMetadata(reader),
		Errors:    ec,
	}

	l.logger.Debug("document loaded", "file", filename, "pages", pageCount, "open_time", opened.ProcessingTime)
	return doc, nil
}

// extractPage never fails: a page that cannot be decoded becomes an empty
// page and a warning.
func (l *Loader) extractPage(reader *pdf.Reader, index int, ec *pdferrors.ErrorCollection) (page model.Page) {
	err := pdferrors.Recover("load", index+1, func() error {
		var perr error
		page, perr = l.engine.ExtractPage(reader.Page(index+1), index)
		return perr
	})
	if err != nil {
		l.logger.Warn("page extraction degraded", "page", index+1, "error", err)
		var pe *pdferrors.PDFError
		if errors.As(err, &pe) {
			ec.Add(pe)
		}
		if page.Width == 0 || page.Height == 0 {
			page = model.Page{Index: index, Width: 612, Height: 792}
		}
	}
	return page
}

// checkStructure parses the file a second time with pdfcpu. Disagreement
// with the primary reader is only a warning.
func (l *Loader) checkStructure(data []byte, pages int, ec *pdferrors.ErrorCollection) {
	err := pdferrors.Recover("load", 0, func() error {
		conf := pdfmodel.NewDefaultConfiguration()
		conf.ValidationMode = pdfmodel.ValidationRelaxed

		pctx, err := api.ReadContext(bytes.NewReader(data), conf)
		if err != nil {
			return fmt.Errorf("pdfcpu read: %w", err)
		}
		if err := pctx.EnsurePageCount(); err != nil {
			return fmt.Errorf("pdfcpu page count: %w", err)
		}
		if pctx.PageCount != pages {
			return fmt.Errorf("page count mismatch: pdfcpu %d, reader %d", pctx.PageCount, pages)
		}
		return nil
	})
	if err != nil {
		pdferrors.Degrade(ec, l.logger, "load", 0, "structure check: %v", err)
	}
}

func nonSpaceChars(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
