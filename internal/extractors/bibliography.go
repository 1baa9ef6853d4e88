package extractors

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

var (
	entryStartRe = regexp.MustCompile(`^(?:\d+\.?\s+|\[\d+\]\s*)`)
	doiRe        = regexp.MustCompile(`10\.\d{4,}/[^\s]+`)
)

// Bibliography parses the references section, or the bibliography section
// when there is none.
func Bibliography(sections map[string]*model.ParsedSection, parseDOI bool) []model.BibliographyEntry {
	s, ok := sections["references"]
	if !ok {
		s = sections["bibliography"]
	}
	return ParseBibliography(s, parseDOI)
}

// ParseBibliography splits a reference list into entries. A line opening
// with "12." or "[12]" starts a new entry; other lines continue the
// current one.
func ParseBibliography(section *model.ParsedSection, parseDOI bool) []model.BibliographyEntry {
	if section == nil {
		return nil
	}

	var entries []model.BibliographyEntry
	var current []string
	flush := func() {
		if len(current) == 0 {
			return
		}
		raw := strings.Join(current, " ")
		e := model.BibliographyEntry{ID: strconv.Itoa(len(entries) + 1), RawText: raw}
		if parseDOI {
			e.DOI = ExtractDOI(raw)
		}
		entries = append(entries, e)
		current = current[:0]
	}

	for _, line := range strings.Split(section.Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if loc := entryStartRe.FindStringIndex(line); loc != nil {
			flush()
			line = line[loc[1]:]
		}
		if line != "" {
			current = append(current, line)
		}
	}
	flush()
	return entries
}

// ExtractDOI returns the first DOI in text without trailing punctuation.
func ExtractDOI(text string) string {
	return strings.TrimRight(doiRe.FindString(text), ".,;)")
}
