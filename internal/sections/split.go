package sections

import (
	"bytes"
	"log/slog"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

const (
	// PreambleName keys the content found before the first header.
	PreambleName = "preamble"
	// FullTextName keys the whole document when it has no headers.
	FullTextName = "full_text"
)

var (
	headerLineRe  = regexp.MustCompile(`^### \*\*(.*?)\*\*$`)
	headerMultiRe = regexp.MustCompile(`(?m)^### \*\*(.*?)\*\*$`)
)

// header is a "### **Name**" line located by byte offsets.
type header struct {
	start, end int
	name       string
}

// Splitter cuts labeled markdown into sections.
type Splitter struct {
	cfg    Config
	parser goldmark.Markdown
	logger *slog.Logger
}

// NewSplitter creates a splitter. A nil logger uses slog.Default().
func NewSplitter(cfg Config, logger *slog.Logger) *Splitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Splitter{
		cfg:    cfg,
		parser: goldmark.New(),
		logger: logger.With("component", "Splitter"),
	}
}

// Split is shorthand for NewSplitter(cfg, nil).Split(md, nil).
func Split(md string, cfg Config) map[string]*model.ParsedSection {
	return NewSplitter(cfg, nil).Split(md, nil)
}

// Split returns the sections of md keyed by name. Content before the first
// header becomes the preamble; a document without headers becomes a single
// full_text section. A repeated name keeps the last section and files a
// ValidationWarning in ec.
func (s *Splitter) Split(md string, ec *pdferrors.ErrorCollection) map[string]*model.ParsedSection {
	headers := s.scan(md)
	out := make(map[string]*model.ParsedSection, len(headers)+1)

	if len(headers) == 0 {
		out[FullTextName] = &model.ParsedSection{
			Name:     FullTextName,
			Text:     strings.TrimSpace(md),
			Priority: DefaultPriority,
		}
		return out
	}

	if pre := strings.TrimSpace(md[:headers[0].start]); pre != "" {
		out[PreambleName] = &model.ParsedSection{Name: PreambleName, Text: pre}
	}

	for i, h := range headers {
		stop := len(md)
		if i+1 < len(headers) {
			stop = headers[i+1].start
		}
		name := NormalizeName(h.name)

		if _, dup := out[name]; dup {
			s.logger.Warn("duplicate section name, keeping last", "section", name)
			ec.Add(pdferrors.NewPDFError(pdferrors.ErrorTypeValidationWarning, "duplicate section "+name).
				WithStage("split_sections"))
		}
		out[name] = &model.ParsedSection{
			Name:     name,
			Text:     strings.TrimSpace(md[h.end:stop]),
			Priority: s.cfg.Priority(name),
		}
	}

	s.logger.Debug("document split", "sections", len(out))
	return out
}

// scan finds the header lines of md. Level-3 headings made of a single
// strong emphasis are taken from the markdown AST; the line regex is used
// when the AST yields none.
func (s *Splitter) scan(md string) []header {
	src := []byte(md)
	doc := s.parser.Parser().Parse(text.NewReader(src))

	var found []header
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level != 3 || h.ChildCount() != 1 || h.Lines().Len() == 0 {
			continue
		}
		if em, ok := h.FirstChild().(*ast.Emphasis); !ok || em.Level != 2 {
			continue
		}

		seg := h.Lines().At(0)
		start := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
		end := len(src)
		if i := bytes.IndexByte(src[start:], '\n'); i >= 0 {
			end = start + i
		}
		m := headerLineRe.FindSubmatch(src[start:end])
		if m == nil {
			continue
		}
		found = append(found, header{start: start, end: end, name: string(m[1])})
	}
	if len(found) > 0 {
		return found
	}

	for _, loc := range headerMultiRe.FindAllStringSubmatchIndex(md, -1) {
		found = append(found, header{start: loc[0], end: loc[1], name: md[loc[2]:loc[3]]})
	}
	if len(found) > 0 {
		s.logger.Debug("headers found by line scan", "count", len(found))
	}
	return found
}
