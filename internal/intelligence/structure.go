package intelligence

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

var (
	titleSkipPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)biorxiv|preprint|doi:|copyright|license|peer review|manuscript|accepted|published`),
		regexp.MustCompile(`@`),
		regexp.MustCompile(`(?i)university|department|institute|college|school`),
		regexp.MustCompile(`^\d{4}$`),
		regexp.MustCompile(`(?i)journal|research article`),
	}

	headerNumberingRe = regexp.MustCompile(`^(?:\d+(?:\.\d+)*\.?|[IVXLC]+\.)\s*`)

	paragraphSplitRe  = regexp.MustCompile(`\n\s*\n`)
	leadingLineNumRe  = regexp.MustCompile(`(?m)^\d+\s+`)
	abstractLineRe    = regexp.MustCompile(`(?mi)^\s*Abstract\s*$`)
	abstractFooterRe  = regexp.MustCompile(`(?is)(biorxiv|preprint|doi:|copyright|license|peer review|author manuscript|manuscript|accepted|published).*$`)
	abstractSkipStart = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^Authors?\s+(and\s+)?Affiliations?`),
		regexp.MustCompile(`(?i)^Corresponding author`),
		regexp.MustCompile(`^\w+@`),
		regexp.MustCompile(`(?i)^Department of`),
		regexp.MustCompile(`(?i)^University of`),
		regexp.MustCompile(`^\d{4}$`),
	}
)

// StructureAnalyzer reads title, section headers and a fallback abstract
// from the typography of the uncropped pages.
type StructureAnalyzer struct {
	cfg        StructureConfig
	vocabulary []string
	logger     *slog.Logger
}

// NewStructureAnalyzer creates an analyzer. A nil logger uses slog.Default().
func NewStructureAnalyzer(cfg StructureConfig, logger *slog.Logger) *StructureAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	vocab := make([]string, 0, len(cfg.SectionVocabulary))
	for _, v := range cfg.SectionVocabulary {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			vocab = append(vocab, v)
		}
	}
	if len(vocab) == 0 {
		vocab = DefaultSectionVocabulary()
	}
	// Longer names first so "materials and methods" wins over "methods".
	sort.SliceStable(vocab, func(i, j int) bool { return len(vocab[i]) > len(vocab[j]) })

	return &StructureAnalyzer{cfg: cfg, vocabulary: vocab, logger: logger.With("component", "StructureAnalyzer")}
}

// Analyze never fails; parts that cannot be determined are left empty and
// reported in ec.
func (a *StructureAnalyzer) Analyze(pages []model.Page, ec *pdferrors.ErrorCollection) model.StructureInfo {
	var info model.StructureInfo

	err := pdferrors.Recover("structure", 0, func() error {
		if a.cfg.DetectBoldText {
			info.BoldSpans = ExtractBoldSpans(pages)
			if a.cfg.ExtractTitle && len(pages) > 0 {
				info.Title = a.detectTitle(info.BoldSpans, pages[0].Height)
				if info.Title == "" {
					pdferrors.Degrade(ec, a.logger, "structure", 1, "no title candidate on first page")
				}
			}
			info.SectionHeaders = a.DetectSectionHeaders(info.BoldSpans)
		}
		if a.cfg.ExtractAbstractFallback && !info.HasHeader("abstract") && len(pages) > 0 {
			info.Abstract = AbstractFallback(pages[0].Text())
		}
		return nil
	})
	if err != nil {
		a.logger.Warn("structure analysis failed", "error", err)
		if pe, ok := err.(*pdferrors.PDFError); ok {
			ec.Add(pe)
		}
	}

	a.logger.Debug("structure analyzed",
		"bold_spans", len(info.BoldSpans),
		"headers", len(info.SectionHeaders),
		"title", info.Title != "",
		"abstract_fallback", info.Abstract != "")
	return info
}

// ExtractBoldSpans collects every non-empty bold span that is not a caption
// label.
func ExtractBoldSpans(pages []model.Page) []model.BoldSpan {
	var spans []model.BoldSpan
	for _, page := range pages {
		for _, b := range page.Blocks {
			for _, l := range b.Lines {
				for _, s := range l.Spans {
					text := strings.TrimSpace(s.Text)
					if !s.Bold || text == "" || captionLikeRe.MatchString(text) {
						continue
					}
					spans = append(spans, model.BoldSpan{
						Text:      text,
						Page:      page.Index,
						FontSize:  s.FontSize,
						BBox:      s.BBox,
						YPosition: s.BBox.Y0,
					})
				}
			}
		}
	}
	return spans
}

func (a *StructureAnalyzer) detectTitle(spans []model.BoldSpan, pageHeight float64) string {
	limit := pageHeight * a.cfg.TitlePositionThreshold

	var candidates []model.BoldSpan
	for _, s := range spans {
		if s.Page != 0 || s.YPosition >= limit || len(s.Text) <= 10 {
			continue
		}
		if matchesAny(titleSkipPatterns, s.Text) || looksLikeAuthors(s.Text) {
			continue
		}
		candidates = append(candidates, s)
	}
	if len(candidates) == 0 {
		return ""
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.FontSize > best.FontSize+0.01:
			best = c
		case math.Abs(c.FontSize-best.FontSize) <= 0.01 && c.YPosition < best.YPosition:
			best = c
		}
	}

	// Continuation lines of a multi-line title share its font size.
	parts := []string{best.Text}
	last := best
	for _, s := range spans {
		if s.Page != 0 || s.YPosition <= last.YPosition || math.Abs(s.FontSize-best.FontSize) > 0.1 {
			continue
		}
		if s.YPosition-last.BBox.Y1 > best.FontSize {
			break
		}
		if matchesAny(titleSkipPatterns, s.Text) {
			break
		}
		parts = append(parts, s.Text)
		last = s
	}
	title := strings.Join(parts, " ")
	a.logger.Debug("title detected", "title", title)
	return title
}

// looksLikeAuthors matches runs of short capitalized words such as a byline.
func looksLikeAuthors(text string) bool {
	words := strings.Fields(text)
	if len(words) < 2 {
		return false
	}
	for _, w := range words {
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) || utf8.RuneCountInString(w) >= 12 {
			return false
		}
	}
	return true
}

// DetectSectionHeaders maps bold spans onto the section vocabulary. The
// first span found for a section wins.
func (a *StructureAnalyzer) DetectSectionHeaders(spans []model.BoldSpan) []model.SectionHeader {
	var headers []model.SectionHeader
	seen := make(map[string]bool)
	for _, s := range spans {
		clean := CleanHeaderText(s.Text)
		if clean == "" {
			continue
		}
		for _, name := range a.vocabulary {
			var confidence float64
			switch {
			case clean == name:
				confidence = 1.0
			case strings.Contains(clean, name) && len(clean) < len(name)+10:
				confidence = 0.8
			default:
				continue
			}
			normalized := strings.ReplaceAll(name, " ", "_")
			if !seen[normalized] {
				seen[normalized] = true
				headers = append(headers, model.SectionHeader{
					Text:           s.Text,
					NormalizedName: normalized,
					Page:           s.Page,
					Confidence:     confidence,
				})
			}
			break
		}
	}
	return headers
}

// CleanHeaderText strips markup and numbering from header text and
// lowercases it.
func CleanHeaderText(text string) string {
	t := strings.Trim(text, "*#.: ")
	t = headerNumberingRe.ReplaceAllString(t, "")
	return strings.ToLower(strings.Trim(t, "*#.: "))
}

// AbstractFallback picks the abstract out of first-page text when no
// abstract header was detected. It returns "" when nothing qualifies.
func AbstractFallback(pageText string) string {
	for _, para := range paragraphSplitRe.Split(pageText, -1) {
		clean := leadingLineNumRe.ReplaceAllString(strings.TrimSpace(para), "")

		if loc := abstractLineRe.FindStringIndex(clean); loc != nil {
			content := strings.TrimSpace(abstractFooterRe.ReplaceAllString(clean[loc[1]:], ""))
			if len(content) > 100 {
				return collapseSpace(content)
			}
		}

		if len(clean) < 100 || len(clean) >= 3000 {
			continue
		}
		if matchesAny(abstractSkipStart, clean) {
			continue
		}
		sentences := strings.Count(clean, ". ") + strings.Count(clean, "! ") + strings.Count(clean, "? ")
		terminators := strings.Count(clean, ".") + strings.Count(clean, "!") + strings.Count(clean, "?")
		if sentences < 2 && terminators < 3 {
			continue
		}
		clean = strings.TrimSpace(abstractFooterRe.ReplaceAllString(clean, ""))
		if len(clean) > 100 && strings.ContainsAny(clean[len(clean)-1:], ".!?") {
			return collapseSpace(clean)
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var bylineConnectors = map[string]bool{"and": true, "&": true}

// IsByline reports whether text reads like an author list: two or more
// capitalized short words, optionally joined by "and" or "&", with no mail
// address.
func IsByline(text string) bool {
	if strings.Contains(text, "@") {
		return false
	}
	words := 0
	for _, w := range strings.Fields(text) {
		if bylineConnectors[strings.ToLower(w)] {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		if !unicode.IsUpper(r) || utf8.RuneCountInString(w) >= 16 {
			return false
		}
		words++
	}
	return words >= 2
}

// HasAuthorLine reports whether page carries a byline between the title
// and the first section header found on it. Without a header the upper
// half of the page is searched.
func HasAuthorLine(page model.Page, info model.StructureInfo) bool {
	top, bottom := 0.0, page.Height/2
	for _, s := range info.BoldSpans {
		if s.Page != page.Index {
			continue
		}
		if info.Title != "" && strings.Contains(info.Title, s.Text) && s.YPosition < bottom {
			top = math.Max(top, s.BBox.Y1)
		}
		for _, h := range info.SectionHeaders {
			if h.Page == page.Index && h.Text == s.Text && s.YPosition < bottom && s.YPosition > top {
				bottom = s.YPosition
			}
		}
	}

	for _, b := range page.Blocks {
		for _, l := range b.Lines {
			y := l.BBox.CenterY()
			if y <= top || y >= bottom {
				continue
			}
			text := strings.TrimSpace(l.Text())
			if text == "" || (info.Title != "" && strings.Contains(info.Title, text)) || matchesAny(titleSkipPatterns, text) {
				continue
			}
			if IsByline(text) {
				return true
			}
		}
	}
	return false
}
