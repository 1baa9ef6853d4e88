package extractors

import (
	"regexp"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

var citationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\[(\d+(?:,\s*\d+)*)\]`),
	regexp.MustCompile(`\(([A-Z][a-z]+(?:\s+et\s+al\.?)?,?\s*\d{4})\)`),
}

// referenceSections are never scanned for in-text citations.
var referenceSections = map[string]bool{"references": true, "bibliography": true}

// Citations returns one CitationRef per citation match per sentence.
// Numeric citations of a sentence come before author-year ones.
func Citations(sections map[string]*model.ParsedSection) []model.CitationRef {
	var refs []model.CitationRef
	for _, s := range model.OrderedSections(sections) {
		if referenceSections[s.Name] {
			continue
		}
		for _, sent := range s.Sentences {
			for _, re := range citationPatterns {
				for _, m := range re.FindAllStringSubmatch(sent.Text, -1) {
					refs = append(refs, model.CitationRef{
						ID:           m[1],
						Section:      s.Name,
						SentenceID:   sent.ID,
						SentenceText: sent.Text,
					})
				}
			}
		}
	}
	return refs
}
