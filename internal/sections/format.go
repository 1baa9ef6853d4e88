package sections

import (
	"strings"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Format renders sections back into labeled markdown in priority order.
// Splitting the result again yields the same section texts.
func Format(sections map[string]*model.ParsedSection) string {
	ordered := model.OrderedSections(sections)
	parts := make([]string, 0, 2*len(ordered))
	for _, s := range ordered {
		if s.Name != PreambleName {
			parts = append(parts, "\n### **"+DisplayName(s.Name)+"**\n")
		}
		parts = append(parts, s.Text)
	}
	return strings.Join(parts, "\n")
}

// DisplayName turns a section key into its header form, e.g. "MATERIALS AND METHODS".
func DisplayName(name string) string {
	return strings.ToUpper(strings.TrimSpace(strings.ReplaceAll(name, "_", " ")))
}
