// Package output renders a ParsedDocument for people and tools.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	"github.com/a3tai/mcp-paper-parser/internal/sections"
)

// Formats
const (
	JSON     = "json"
	Markdown = "markdown"
	Summary  = "summary"
)

// Write renders doc to w in the given format.
func Write(w io.Writer, doc *model.ParsedDocument, format string) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case Markdown:
		_, err := io.WriteString(w, doc.Markdown+"\n")
		return err
	case Summary:
		_, err := io.WriteString(w, FormatSummary(doc))
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Render is Write into a string.
func Render(doc *model.ParsedDocument, format string) (string, error) {
	var b strings.Builder
	if err := Write(&b, doc, format); err != nil {
		return "", err
	}
	return b.String(), nil
}

// FormatSummary lists the title, sections, figures and validation checks.
func FormatSummary(doc *model.ParsedDocument) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", doc.Title)
	fmt.Fprintf(&b, "File: %s (%d pages)\n", doc.Filename, doc.PageCount)
	fmt.Fprintf(&b, "Document ID: %s\n", doc.ID)

	fmt.Fprintf(&b, "\nSections (%d):\n", len(doc.Sections))
	for _, s := range model.OrderedSections(doc.Sections) {
		fmt.Fprintf(&b, "  - %s: %d sentences, %d chars\n", sections.DisplayName(s.Name), len(s.Sentences), len(s.Text))
	}

	if len(doc.Figures) > 0 {
		fmt.Fprintf(&b, "\nFigures (%d):\n", len(doc.Figures))
		for _, f := range doc.Figures {
			fmt.Fprintf(&b, "  - %s (page %d): %s\n", f.Label, f.Page, truncate(f.Caption, 80))
		}
	}

	fmt.Fprintf(&b, "\nCitations: %d, figure references: %d, bibliography entries: %d\n",
		len(doc.Citations), len(doc.FigureRefs), len(doc.Bibliography))

	if len(doc.Validation) > 0 {
		keys := make([]string, 0, len(doc.Validation))
		for k := range doc.Validation {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString("\nValidation:\n")
		for _, k := range keys {
			mark := "no"
			if doc.Validation[k] {
				mark = "yes"
			}
			fmt.Fprintf(&b, "  %s: %s\n", k, mark)
		}
	}

	if len(doc.Warnings) > 0 {
		fmt.Fprintf(&b, "\nWarnings (%d):\n", len(doc.Warnings))
		for _, w := range doc.Warnings {
			fmt.Fprintf(&b, "  - %s\n", w)
		}
	}
	return b.String()
}

// Line is a one-line description of doc for batch listings.
func Line(doc *model.ParsedDocument) string {
	missing := []string{}
	for k, ok := range doc.Validation {
		if !ok {
			missing = append(missing, strings.TrimPrefix(k, "has_"))
		}
	}
	sort.Strings(missing)
	line := fmt.Sprintf("%q: %d pages, %d sections, %d sentences, %d figures",
		doc.Title, doc.PageCount, len(doc.Sections), doc.SentenceCount(), len(doc.Figures))
	if len(missing) > 0 {
		line += ", missing " + strings.Join(missing, ", ")
	}
	return line
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
