package reflow

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

var (
	labelNumberRe = regexp.MustCompile(`^\d+\.?\s*`)
	labelMarkRe   = regexp.MustCompile(`### \*\*`)
)

// Labeler rewrites detected section headers into "### **Name**" markers.
type Labeler struct {
	logger *slog.Logger
}

// NewLabeler creates a labeler. A nil logger uses slog.Default().
func NewLabeler(logger *slog.Logger) *Labeler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Labeler{logger: logger.With("component", "Labeler")}
}

// Label is shorthand for NewLabeler(nil).Label.
func Label(md string, info model.StructureInfo) string {
	return NewLabeler(nil).Label(md, info)
}

// Label marks each header of info on the first line of md holding it, then
// inserts Introduction and Abstract markers when those sections went
// unlabeled.
func (l *Labeler) Label(md string, info model.StructureInfo) string {
	labeled := make(map[string]bool)
	for _, h := range info.SectionHeaders {
		clean := strings.Trim(h.Text, "*#.: ")
		if clean == "" {
			continue
		}
		label := labelNumberRe.ReplaceAllString(clean, "")

		patterns := []*regexp.Regexp{
			headerPattern(clean, true),
			headerPattern(clean, false),
		}
		if label != clean {
			patterns = append(patterns, headerPattern(label, true))
		}

		for _, re := range patterns {
			loc := re.FindStringIndex(md)
			if loc == nil {
				continue
			}
			md = replaceLine(md, loc, "### **"+label+"**")
			labeled[h.NormalizedName] = true
			l.logger.Debug("section labeled", "section", h.NormalizedName)
			break
		}
	}

	if !labeled["introduction"] {
		md = l.insertIntroduction(md)
	}
	if !labeled["abstract"] && info.Abstract != "" {
		md = l.insertAbstract(md, info.Abstract)
	}
	return md
}

// headerPattern matches text alone on a line, optionally wrapped in **.
// Whitespace inside the header may span line breaks.
func headerPattern(text string, bold bool) *regexp.Regexp {
	words := strings.Fields(text)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	body := strings.Join(words, `\s*`)
	if bold {
		body = `\*\*` + body + `\*\*`
	}
	return regexp.MustCompile(`(?im)^[ \t]*` + body + `[ \t]*$`)
}

// replaceLine substitutes md[loc[0]:loc[1]] with header as its own
// paragraph.
func replaceLine(md string, loc []int, header string) string {
	return replacePrefix(md[:loc[0]]+strings.TrimLeft(md[loc[1]:], "\n"), loc[0], header)
}

func (l *Labeler) insertIntroduction(md string) string {
	first := labelMarkRe.FindStringIndex(md)
	if first == nil || first[0] <= 500 {
		return md
	}

	offset := 0
	for _, line := range strings.SplitAfter(md[:first[0]], "\n") {
		offset += len(line)
		if offset > 300 && utf8.RuneCountInString(strings.TrimSpace(line)) > 100 {
			start := offset - len(line)
			if start == 0 {
				return md
			}
			l.logger.Debug("introduction label inserted")
			return replacePrefix(md, start, "### **Introduction**")
		}
	}
	return md
}

func (l *Labeler) insertAbstract(md, abstract string) string {
	key := abstract
	if r := []rune(abstract); len(r) > 40 {
		key = string(r[:40])
	}
	idx := strings.Index(md, key)
	if idx < 0 {
		return md
	}
	if first := labelMarkRe.FindStringIndex(md); first != nil && first[0] < idx {
		return md
	}
	start := strings.LastIndex(md[:idx], "\n") + 1
	l.logger.Debug("abstract label inserted")
	return replacePrefix(md, start, "### **Abstract**")
}

// replacePrefix inserts header as its own paragraph at byte offset start,
// which must be the beginning of a line.
func replacePrefix(md string, start int, header string) string {
	before := md[:start]
	if before != "" && !strings.HasSuffix(before, "\n\n") {
		before = strings.TrimRight(before, "\n") + "\n\n"
	}
	return before + header + "\n\n" + md[start:]
}
