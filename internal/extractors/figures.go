package extractors

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

var (
	figureLabelRe = regexp.MustCompile(`(?i)(?:Figure|Fig\.?)\s+(\d+)[.:]?\s*`)
	figureRefRe   = regexp.MustCompile(`(?i)(?:Figure|Fig\.?)\s+(\d+)`)
)

var idPrefix = map[model.FigureKind]string{
	model.KindFigure: "fig",
	model.KindTable:  "table",
	model.KindScheme: "scheme",
}

// FigureID returns the block id of a caption, e.g. "fig-3", "fig-S2" or "table-1".
func FigureID(c model.FigureCaption) string {
	prefix, ok := idPrefix[c.Kind]
	if !ok {
		prefix = strings.ToLower(string(c.Kind))
	}
	s := ""
	if c.Supplemental {
		s = "S"
	}
	return fmt.Sprintf("%s-%s%d%s", prefix, s, c.Number, c.SubLetter)
}

type captionKey struct {
	page  int
	label string
}

// FigureBlocks surfaces the captions that belong to a real figure or stand
// on their own, one block per label. Without captions the markdown is
// scanned for "Figure N" paragraphs instead.
func FigureBlocks(captions []model.FigureCaption, regions []model.FigureRegion, md string) []model.FigureBlock {
	if len(captions) == 0 {
		return markdownFigures(md)
	}

	backed := make(map[captionKey]bool)
	for _, r := range regions {
		if r.HasActualFigure && r.AssociatedCaption != nil {
			backed[captionKey{r.AssociatedCaption.Page, r.AssociatedCaption.Label()}] = true
		}
	}

	seen := make(map[string]bool)
	var out []model.FigureBlock
	for _, c := range captions {
		label := c.Label()
		if seen[label] || !(c.Standalone || backed[captionKey{c.Page, label}]) {
			continue
		}
		seen[label] = true
		out = append(out, model.FigureBlock{
			ID:      FigureID(c),
			Label:   label,
			Caption: c.Text,
			Page:    c.Page + 1,
		})
	}
	return out
}

// markdownFigures takes each "Figure N" label and the text after it up to a
// blank line, the next label or the end of md.
func markdownFigures(md string) []model.FigureBlock {
	locs := figureLabelRe.FindAllStringSubmatchIndex(md, -1)
	seen := make(map[string]bool)
	var out []model.FigureBlock
	for i, loc := range locs {
		stop := len(md)
		if i+1 < len(locs) {
			stop = locs[i+1][0]
		}
		if j := strings.Index(md[loc[1]:stop], "\n\n"); j >= 0 {
			stop = loc[1] + j
		}

		caption := strings.TrimSpace(md[loc[1]:stop])
		num := md[loc[2]:loc[3]]
		label := "Figure " + num
		if caption == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, model.FigureBlock{ID: "fig-" + num, Label: label, Caption: caption})
	}
	return out
}

// FigureRefs returns one FigureRef per "Figure N" or "Fig. N" mention in
// the indexed sentences.
func FigureRefs(sections map[string]*model.ParsedSection) []model.FigureRef {
	var refs []model.FigureRef
	for _, s := range model.OrderedSections(sections) {
		for _, sent := range s.Sentences {
			for _, m := range figureRefRe.FindAllStringSubmatch(sent.Text, -1) {
				refs = append(refs, model.FigureRef{
					Label:        "Figure " + m[1],
					Section:      s.Name,
					SentenceID:   sent.ID,
					SentenceText: sent.Text,
				})
			}
		}
	}
	return refs
}
