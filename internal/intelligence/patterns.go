package intelligence

import "regexp"

var (
	// captionStartRe matches a caption label at the start of text:
	// kind word, optional supplement marker, number, optional panel letter.
	captionStartRe = regexp.MustCompile(`^(?i:(Figure|Fig\.?|Table|Scheme))\s*(S)?(\d+)([A-Z])?`)

	// captionLikeRe is the looser test used to keep caption labels out of
	// the bold-span list.
	captionLikeRe = regexp.MustCompile(`(?i)^(?:(?:Figure|Fig\.?|Table|Scheme)\s*S?\d+|\d+\s*\.?\s*(?:Figure|Fig|Table)|Supplementary (?:Figure|Table)|Extended Data Figure)`)

	runningHeaderPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(journal|proceedings|transactions|letters|nature|science|cell|plos|elife|elsevier|springer|ieee|acm)\b`),
		regexp.MustCompile(`(?i)(\bdoi:|doi\.org/|\b10\.\d{4,}/)`),
		regexp.MustCompile(`(?i)^page\s+\d+`),
		regexp.MustCompile(`(?i)^\d+\s+of\s+\d+$`),
		regexp.MustCompile(`^\d{1,4}$`),
		regexp.MustCompile(`(?i)(biorxiv|medrxiv|arxiv|preprint|peer review|author manuscript)`),
	}

	footerStopPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(journal of|proceedings of|nature\s|science\s|plos\s|cell\s)`),
		regexp.MustCompile(`(?i)(\bdoi:|doi\.org/|^10\.\d{4,}/)`),
		regexp.MustCompile(`(?i)^page\s+\d+`),
		regexp.MustCompile(`^\d{1,4}$`),
		regexp.MustCompile(`(?i)(©|\bcopyright\b|all rights reserved)`),
		regexp.MustCompile(`(?i)(biorxiv preprint|medrxiv preprint|this version posted|certified by peer review|the copyright holder)`),
	}

	// footerTailRe finds footer text glued to the end of an absorbed caption.
	footerTailRe = regexp.MustCompile(`(?is)\s*(?:bioRxiv preprint|medRxiv preprint|this version posted|was not certified by peer review|the copyright holder|all rights reserved|©|\bdoi:\s*10\.|https?://doi\.org/).*$`)

	authorCitationRe = regexp.MustCompile(`^[A-Z][\p{L}'\-]+(?:\s+[A-Z][\p{L}'\-]+)?\s+et\s+al\.?`)

	headerKeywords = []string{
		"introduction", "background", "methods", "results",
		"discussion", "conclusion", "abstract", "references",
		"acknowledgment", "appendix", "summary",
	}
)

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// IsCaptionStart reports whether text begins with a caption label.
func IsCaptionStart(text string) bool {
	return captionStartRe.MatchString(text)
}
