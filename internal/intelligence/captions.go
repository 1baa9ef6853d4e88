package intelligence

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

// inlineVerbPattern marks "Figure 2 shows ..." as a reference, not a
// caption. The window is filled in from CaptionConfig.VerbWindow.
const inlineVerbPattern = `(?i)^.{0,%d}?\b(shows|show|demonstrates|illustrates|depicts|presents|displays|reveals|indicates|summarizes|compares|highlights|represents|describes|provides|lists|gives|contains|plots)\b`

var (
	// A caption starting mid-block needs a delimiter after its label.
	midBlockDelimRe = regexp.MustCompile(`^\s*([.:|]|$)`)
)

const continuationPunct = ",;:)]-–"

type captionState int

const (
	stateScanning captionState = iota
	stateInCaption
	stateDone
)

func (s captionState) String() string {
	switch s {
	case stateScanning:
		return "scanning"
	case stateInCaption:
		return "in_caption"
	case stateDone:
		return "done"
	default:
		return "unknown"
	}
}

// captionUnit is a block, or the tail of a block, seen by the state machine.
type captionUnit struct {
	text       string
	firstLine  string
	bbox       model.Rect
	fontSize   float64
	bold       bool
	mostlyBold bool
}

func newCaptionUnit(lines []model.Line) captionUnit {
	b := model.Block{Lines: lines}
	b.RecomputeBBox()
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		if t := strings.TrimSpace(l.Text()); t != "" {
			parts = append(parts, t)
		}
	}
	u := captionUnit{
		text:       strings.Join(parts, " "),
		bbox:       b.BBox,
		fontSize:   b.FontSize(),
		bold:       b.HasBold(),
		mostlyBold: b.IsBold(),
	}
	if len(parts) > 0 {
		u.firstLine = parts[0]
	}
	return u
}

// captionRun is the caption currently being assembled.
type captionRun struct {
	units    []captionUnit
	bbox     model.Rect
	baseSize float64
}

func (r *captionRun) absorb(u captionUnit) {
	r.units = append(r.units, u)
	r.bbox = r.bbox.Union(u.bbox)
}

// gap is the distance from the run's bottom edge to u's top edge. A unit
// starting above the caption is unreachable.
func (r *captionRun) gap(u captionUnit) (float64, bool) {
	if u.bbox.Y0 < r.bbox.Y0 {
		return 0, false
	}
	return max(0, u.bbox.Y0-r.bbox.Y1), true
}

// captionRule is one named transition predicate.
type captionRule struct {
	Name  string
	Match func(r *captionRun, u captionUnit) bool
}

// CaptionDetector finds figure, table and scheme captions with their full
// extent.
type CaptionDetector struct {
	cfg        CaptionConfig
	inlineVerb *regexp.Regexp
	stops      []captionRule
	absorb     []captionRule
	logger     *slog.Logger
}

// NewCaptionDetector creates a detector. A nil logger uses slog.Default().
func NewCaptionDetector(cfg CaptionConfig, logger *slog.Logger) *CaptionDetector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &CaptionDetector{
		cfg:        cfg,
		inlineVerb: regexp.MustCompile(fmt.Sprintf(inlineVerbPattern, max(cfg.VerbWindow, 0))),
		logger:     logger.With("component", "CaptionDetector"),
	}
	d.stops = d.stopRules()
	d.absorb = d.absorbRules()
	return d
}

func (d *CaptionDetector) stopRules() []captionRule {
	return []captionRule{
		{Name: "caption_start", Match: func(_ *captionRun, u captionUnit) bool {
			return IsCaptionStart(u.firstLine)
		}},
		{Name: "footer", Match: func(_ *captionRun, u captionUnit) bool {
			return matchesAny(footerStopPatterns, u.firstLine)
		}},
		{Name: "section_header", Match: func(_ *captionRun, u captionUnit) bool {
			return u.mostlyBold && looksLikeHeader(u.text)
		}},
		{Name: "font_change", Match: func(r *captionRun, u captionUnit) bool {
			if r.baseSize <= 0 || u.fontSize <= 0 {
				return false
			}
			ratio := u.fontSize / r.baseSize
			return ratio < d.cfg.MinFontRatio || ratio > d.cfg.MaxFontRatio
		}},
		{Name: "block_cap", Match: func(r *captionRun, _ captionUnit) bool {
			return len(r.units) >= d.cfg.MaxBlocks
		}},
	}
}

func (d *CaptionDetector) absorbRules() []captionRule {
	return []captionRule{
		{Name: "proximate", Match: func(r *captionRun, u captionUnit) bool {
			gap, ok := r.gap(u)
			if !ok {
				return false
			}
			limit := d.cfg.LateGap
			if len(r.units)-1 < d.cfg.EarlyBlocks {
				limit = d.cfg.EarlyGap
			}
			return gap <= limit && r.bbox.HorizontalOverlap(u.bbox) >= d.cfg.MinOverlap
		}},
		{Name: "author_citation", Match: func(r *captionRun, u captionUnit) bool {
			gap, ok := r.gap(u)
			return ok && gap <= d.cfg.AuthorLineGap && authorCitationRe.MatchString(u.firstLine)
		}},
		{Name: "continuation_line", Match: func(r *captionRun, u captionUnit) bool {
			gap, ok := r.gap(u)
			if !ok || gap > d.cfg.ContinuationGap || r.bbox.HorizontalOverlap(u.bbox) == 0 {
				return false
			}
			first, _ := utf8.DecodeRuneInString(u.firstLine)
			return unicode.IsLower(first) || strings.ContainsRune(continuationPunct, first)
		}},
	}
}

// DetectAll runs Detect on every page.
func (d *CaptionDetector) DetectAll(pages []model.Page, ec *pdferrors.ErrorCollection) []model.FigureCaption {
	var out []model.FigureCaption
	for _, page := range pages {
		out = append(out, d.Detect(page, ec)...)
	}
	return out
}

// Detect returns the captions of one page. A failure yields no captions for
// the page and a warning in ec.
func (d *CaptionDetector) Detect(page model.Page, ec *pdferrors.ErrorCollection) []model.FigureCaption {
	var captions []model.FigureCaption
	err := pdferrors.Recover("captions", page.Index+1, func() error {
		captions = d.scan(page)
		return nil
	})
	if err != nil {
		d.logger.Warn("caption detection failed", "page", page.Index+1, "error", err)
		if pe, ok := err.(*pdferrors.PDFError); ok {
			ec.Add(pe)
		}
		return nil
	}
	return captions
}

func (d *CaptionDetector) scan(page model.Page) []model.FigureCaption {
	var captions []model.FigureCaption
	blocks := page.Blocks
	state := stateScanning
	var run *captionRun
	standalone := false

	for i := 0; i < len(blocks); {
		switch state {
		case stateScanning:
			start := d.captionLine(blocks[i])
			if start < 0 {
				i++
				continue
			}
			unit := newCaptionUnit(blocks[i].Lines[start:])
			run = &captionRun{baseSize: unit.fontSize}
			run.absorb(unit)
			standalone = start == 0
			state = stateInCaption
			i++

		case stateInCaption:
			unit := newCaptionUnit(blocks[i].Lines)
			if rule, stop := firstMatch(d.stops, run, unit); stop {
				d.logger.Debug("caption closed", "page", page.Index+1, "rule", rule)
				state = stateDone
				continue
			}
			if _, ok := firstMatch(d.absorb, run, unit); !ok {
				state = stateDone
				continue
			}
			run.absorb(unit)
			i++

		case stateDone:
			captions = d.appendCaption(captions, page.Index, run, standalone)
			run = nil
			state = stateScanning
		}
	}
	if run != nil {
		captions = d.appendCaption(captions, page.Index, run, standalone)
	}
	return captions
}

func firstMatch(rules []captionRule, r *captionRun, u captionUnit) (string, bool) {
	for _, rule := range rules {
		if rule.Match(r, u) {
			return rule.Name, true
		}
	}
	return "", false
}

// captionLine returns the index of the line of b where a caption begins,
// or -1.
func (d *CaptionDetector) captionLine(b model.Block) int {
	for k, line := range b.Lines {
		text := strings.TrimSpace(line.Text())
		loc := captionStartRe.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]
		if d.inlineVerb.MatchString(rest) {
			continue
		}
		if k > 0 && !midBlockDelimRe.MatchString(rest) {
			continue
		}
		return k
	}
	return -1
}

func (d *CaptionDetector) appendCaption(captions []model.FigureCaption, page int, run *captionRun, standalone bool) []model.FigureCaption {
	parts := make([]string, 0, len(run.units))
	bold := false
	for _, u := range run.units {
		parts = append(parts, u.text)
		bold = bold || u.bold
	}
	text := strings.Join(parts, " ")

	m := captionStartRe.FindStringSubmatchIndex(text)
	if m == nil {
		return captions
	}
	if loc := footerTailRe.FindStringIndex(text[m[1]:]); loc != nil {
		text = strings.TrimSpace(text[:m[1]+loc[0]])
	}

	number, err := strconv.Atoi(text[m[6]:m[7]])
	if err != nil {
		return captions
	}
	c := model.FigureCaption{
		Text:         text,
		Kind:         captionKind(text[m[2]:m[3]]),
		Number:       number,
		Supplemental: m[4] >= 0,
		Page:         page,
		BBox:         run.bbox,
		IsBold:       bold,
		Standalone:   standalone,
		Confidence:   0.8,
	}
	if m[8] >= 0 {
		c.SubLetter = text[m[8]:m[9]]
	}
	if bold {
		c.Confidence = 1.0
	}
	return append(captions, c)
}

func captionKind(word string) model.FigureKind {
	switch strings.ToLower(strings.TrimSuffix(word, ".")) {
	case "table":
		return model.KindTable
	case "scheme":
		return model.KindScheme
	default:
		return model.KindFigure
	}
}

// looksLikeHeader reports whether short text reads like a section title.
func looksLikeHeader(text string) bool {
	if len(text) > 100 {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return false
	}
	capitalized := 0
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if unicode.IsUpper(r) {
			capitalized++
		}
	}
	return float64(capitalized)/float64(len(words)) > 0.6
}
