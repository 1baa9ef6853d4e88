// Package reflow rebuilds paragraphs from line-broken page markdown, strips
// extraction artifacts and labels the detected sections.
package reflow

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Config controls paragraph reconstruction.
type Config struct {
	EnableReflow      bool `mapstructure:"enable_reflow" json:"enable_reflow"`
	MergeHyphenations bool `mapstructure:"merge_hyphenations" json:"merge_hyphenations"`
}

// DefaultConfig enables both passes.
func DefaultConfig() Config {
	return Config{EnableReflow: true, MergeHyphenations: true}
}

var (
	hyphenBreakRe = regexp.MustCompile(`(\w)-\s*\n\s*(\w)`)
	citationEndRe = regexp.MustCompile(`\[\d+\]$|\(\d{4}\)$`)

	sectionKeywords = []string{
		"abstract", "introduction", "methods", "results",
		"discussion", "conclusion", "references", "acknowledgment",
		"keywords", "background", "materials", "supplementary",
	}
)

// MergeHyphenations joins words split across a line break by a hyphen.
func MergeHyphenations(md string) string {
	return hyphenBreakRe.ReplaceAllString(md, "$1$2")
}

// Reflow joins wrapped lines back into paragraphs. Blank lines and header
// lines are kept as they are.
func Reflow(md string, cfg Config) string {
	if !cfg.EnableReflow {
		return md
	}
	if cfg.MergeHyphenations {
		md = MergeHyphenations(md)
	}

	lines := strings.Split(md, "\n")
	out := make([]string, 0, len(lines))
	var para []string
	flush := func() {
		if len(para) > 0 {
			out = append(out, strings.Join(para, " "))
			para = para[:0]
		}
	}

	for i, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" {
			flush()
			out = append(out, "")
			continue
		}
		if IsHeaderLine(stripped, i, lines) {
			flush()
			out = append(out, line)
			continue
		}

		para = append(para, stripped)
		if !endsSentence(stripped) {
			continue
		}
		next := ""
		if i+1 < len(lines) {
			next = strings.TrimSpace(lines[i+1])
		}
		if next == "" || startsUpper(next) {
			flush()
		}
	}
	flush()
	return strings.Join(out, "\n")
}

func endsSentence(s string) bool {
	if strings.ContainsAny(s[len(s)-1:], ".!?:;") {
		return true
	}
	return citationEndRe.MatchString(s)
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}

// IsHeaderLine reports whether the trimmed line at index i reads as a
// section header.
func IsHeaderLine(line string, i int, lines []string) bool {
	n := utf8.RuneCountInString(line)
	if n < 3 || n > 100 {
		return false
	}
	if strings.HasPrefix(line, "#") {
		return true
	}
	if IsBoldWrapped(line) {
		return true
	}

	lower := strings.Trim(strings.ToLower(line), "*# ")
	for _, kw := range sectionKeywords {
		if !strings.Contains(lower, kw) {
			continue
		}
		if i+1 < len(lines) {
			next := strings.TrimSpace(lines[i+1])
			if next == "" || !isAllCaps(next) {
				return true
			}
		}
		break
	}

	return isAllCaps(line) && len(strings.Fields(line)) < 5
}

// IsBoldWrapped reports whether the whole line is a **bold** run.
func IsBoldWrapped(line string) bool {
	return len(line) >= 4 && strings.HasPrefix(line, "**") && strings.HasSuffix(line, "**")
}

// isAllCaps needs at least one cased letter and no lowercase ones.
func isAllCaps(s string) bool {
	cased := false
	for _, r := range s {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r) || unicode.IsTitle(r):
			cased = true
		}
	}
	return cased
}
