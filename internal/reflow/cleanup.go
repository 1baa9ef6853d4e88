package reflow

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanupConfig switches the optional cleanup rules. The core rules always
// run.
type CleanupConfig struct {
	RemoveRepeatedLines bool `mapstructure:"remove_repeated_lines" json:"remove_repeated_lines"`
	RemovePageNumbers   bool `mapstructure:"remove_page_numbers" json:"remove_page_numbers"`
	RemoveCopyright     bool `mapstructure:"remove_copyright" json:"remove_copyright"`
	RemoveDOILines      bool `mapstructure:"remove_doi_lines" json:"remove_doi_lines"`
}

// DefaultCleanupConfig leaves every optional rule off.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{}
}

// Rule is one cleanup pass over the whole text.
type Rule struct {
	Name  string
	Apply func(string) string
}

var (
	listMarkerRe   = regexp.MustCompile(`^[a-z]\.$|^\d+\.$|^[-*]$|^\([a-z0-9]+\)$`)
	tableDividerRe = regexp.MustCompile(`^[|\-\s]+$`)
	urlRe          = regexp.MustCompile(`(?i)https?://|www\.|\.com\b|\.org\b|\.edu\b|\.gov\b`)
	statLineRe     = regexp.MustCompile(`^_?[A-Za-z]{1,2}_?\s*[=<>≤≥]\s*[-−]?\d`)
	letterMarkerRe = regexp.MustCompile(`^\*\*[A-Za-z]\*\*$`)
	pageNumberRe   = regexp.MustCompile(`(?i)^(?:page\s+\d+|\d+)$`)
	copyrightRe    = regexp.MustCompile(`(?i)©|copyright`)
	doiLineRe      = regexp.MustCompile(`(?i)doi:\s*10\.\d+/\S+`)
	manyNewlinesRe = regexp.MustCompile(`\n{4,}`)
	manySpacesRe   = regexp.MustCompile(` {3,}`)
)

// Cleaner runs the cleanup rules in order.
type Cleaner struct {
	rules  []Rule
	logger *slog.Logger
}

// NewCleaner builds the rule list for cfg. A nil logger uses slog.Default().
func NewCleaner(cfg CleanupConfig, logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	rules := []Rule{
		{Name: "short_gibberish", Apply: RemoveShortGibberish},
		{Name: "scattered_chars", Apply: RemoveScatteredChars},
		{Name: "fragment_runs", Apply: RemoveFragmentRuns},
		{Name: "table_remnants", Apply: RemoveTableRemnants},
		{Name: "url_lines", Apply: RemoveURLLines},
	}
	if cfg.RemoveRepeatedLines {
		rules = append(rules, Rule{Name: "repeated_lines", Apply: RemoveRepeatedLines})
	}
	if cfg.RemovePageNumbers {
		rules = append(rules, Rule{Name: "page_numbers", Apply: dropLines(pageNumberRe)})
	}
	if cfg.RemoveCopyright {
		rules = append(rules, Rule{Name: "copyright", Apply: dropLines(copyrightRe)})
	}
	if cfg.RemoveDOILines {
		rules = append(rules, Rule{Name: "doi_lines", Apply: dropLines(doiLineRe)})
	}
	rules = append(rules, Rule{Name: "whitespace", Apply: NormalizeWhitespace})

	return &Cleaner{rules: rules, logger: logger.With("component", "Cleaner")}
}

// Rules returns the rule names in run order.
func (c *Cleaner) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Clean applies every rule to md.
func (c *Cleaner) Clean(md string) string {
	before := len(md)
	for _, r := range c.rules {
		n := len(md)
		md = r.Apply(md)
		if len(md) != n {
			c.logger.Debug("cleanup rule applied", "rule", r.Name, "removed_bytes", n-len(md))
		}
	}
	c.logger.Debug("cleanup done", "before", before, "after", len(md))
	return md
}

// Cleanup runs the rules selected by cfg on md.
func Cleanup(md string, cfg CleanupConfig) string {
	return NewCleaner(cfg, nil).Clean(md)
}

// filterLines keeps the lines for which keep returns true. Blank lines are
// always kept.
func filterLines(text string, keep func(stripped string) bool) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		stripped := strings.TrimSpace(line)
		if stripped == "" || keep(stripped) {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func dropLines(re *regexp.Regexp) func(string) string {
	return func(text string) string {
		return filterLines(text, func(s string) bool { return !re.MatchString(s) })
	}
}

// RemoveShortGibberish drops lines of one to three characters that are not
// list markers.
func RemoveShortGibberish(text string) string {
	return filterLines(text, func(s string) bool {
		return utf8.RuneCountInString(s) > 3 || listMarkerRe.MatchString(s)
	})
}

// RemoveScatteredChars drops short lines of lone letters or number runs,
// typically axis labels.
func RemoveScatteredChars(text string) string {
	return filterLines(text, func(s string) bool {
		return utf8.RuneCountInString(s) > 50 || !isScattered(strings.Fields(s))
	})
}

func isScattered(tokens []string) bool {
	if len(tokens) < 3 {
		return false
	}
	single := true
	numeric := 0
	for _, t := range tokens {
		if utf8.RuneCountInString(t) != 1 {
			single = false
		}
		if isDigits(strings.NewReplacer(".", "", "-", "").Replace(t)) {
			numeric++
		}
	}
	if single {
		return true
	}
	return len(tokens) >= 4 && float64(numeric)/float64(len(tokens)) > 0.7
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// RemoveFragmentRuns drops runs of two or more sentence fragments, such as
// figure legends and statistics that escaped region filtering. A run may be
// bridged by up to three blank lines or single-letter bold panel markers.
func RemoveFragmentRuns(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		if !isFragment(lines, i) {
			out = append(out, lines[i])
			i++
			continue
		}

		count, last, blanks := 1, i, 0
	scan:
		for k := i + 1; k < len(lines); k++ {
			s := strings.TrimSpace(lines[k])
			switch {
			case s == "":
				if blanks++; blanks > 3 {
					break scan
				}
			case letterMarkerRe.MatchString(s):
				blanks = 0
			case isFragment(lines, k):
				count, last, blanks = count+1, k, 0
			default:
				break scan
			}
		}

		if count < 2 {
			out = append(out, lines[i])
			i++
			continue
		}

		// The run collapses to a single blank line between its neighbours.
		if len(out) > 0 && strings.TrimSpace(out[len(out)-1]) != "" {
			out = append(out, "")
		}
		i = last + 1
		for i < len(lines) && strings.TrimSpace(lines[i]) == "" {
			i++
		}
	}
	return strings.Join(out, "\n")
}

func isFragment(lines []string, i int) bool {
	s := strings.TrimSpace(lines[i])
	if s == "" || letterMarkerRe.MatchString(s) {
		return false
	}
	if statLineRe.MatchString(s) {
		return true
	}
	if IsHeaderLine(s, i, lines) {
		return false
	}
	return len(strings.Fields(s)) <= 3 && !endsSentence(s)
}

// RemoveTableRemnants drops divider rows and pipe-separated rows whose
// cells hold no more than two words each.
func RemoveTableRemnants(text string) string {
	return filterLines(text, func(s string) bool {
		if tableDividerRe.MatchString(s) {
			return false
		}
		if strings.Count(s, "|") <= 4 {
			return true
		}
		for _, cell := range strings.Split(s, "|") {
			if len(strings.Fields(cell)) > 2 {
				return true
			}
		}
		return false
	})
}

// RemoveURLLines drops lines carrying a web address.
func RemoveURLLines(text string) string {
	return dropLines(urlRe)(text)
}

// RemoveRepeatedLines drops short lines seen more than three times, which
// are usually running headers.
func RemoveRepeatedLines(text string) string {
	counts := make(map[string]int)
	for _, line := range strings.Split(text, "\n") {
		counts[strings.TrimSpace(line)]++
	}
	return filterLines(text, func(s string) bool {
		return len(s) >= 100 || counts[s] <= 3
	})
}

// NormalizeWhitespace collapses long newline and space runs and trims.
func NormalizeWhitespace(text string) string {
	text = manyNewlinesRe.ReplaceAllString(text, "\n\n\n")
	text = manySpacesRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
