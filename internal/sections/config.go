// Package sections splits labeled markdown into named sections, validates
// that the expected section groups are present and indexes sentences.
package sections

import (
	"fmt"
	"strings"
)

// DefaultPriority orders sections missing from the priority table.
const DefaultPriority = 100

// Config holds the section vocabulary used by splitting and validation.
type Config struct {
	SectionOrder   map[string]int      `mapstructure:"section_order" json:"section_order"`
	RequiredGroups map[string][]string `mapstructure:"required_groups" json:"required_groups"`
}

// DefaultConfig returns the standard priority table and required groups.
func DefaultConfig() Config {
	return Config{
		SectionOrder: map[string]int{
			"abstract":               1,
			"keywords":               2,
			"introduction":           10,
			"background":             11,
			"related_work":           12,
			"methods":                20,
			"materials_and_methods":  20,
			"experimental":           21,
			"methodology":            21,
			"results":                30,
			"results_and_discussion": 35,
			"discussion":             40,
			"conclusion":             50,
			"conclusions":            50,
			"summary":                55,
			"acknowledgments":        60,
			"acknowledgements":       60,
			"author_contributions":   61,
			"funding":                62,
			"competing_interests":    63,
			"data_availability":      64,
			"references":             70,
			"bibliography":           70,
		},
		RequiredGroups: map[string][]string{
			"introduction": {"introduction"},
			"methods":      {"methods", "materials_and_methods", "experimental", "methodology", "materials and methods"},
			"results":      {"results", "results_and_discussion"},
			"discussion":   {"discussion", "conclusions", "results_and_discussion", "conclusion"},
		},
	}
}

// Priority returns the ordering priority for a section name.
func (c Config) Priority(name string) int {
	if p, ok := c.SectionOrder[name]; ok {
		return p
	}
	return DefaultPriority
}

// Validate checks the section settings.
func (c Config) Validate() error {
	for group, names := range c.RequiredGroups {
		if strings.TrimSpace(group) == "" {
			return fmt.Errorf("sections.required_groups has an empty group name")
		}
		if len(names) == 0 {
			return fmt.Errorf("sections.required_groups.%s must list at least one section", group)
		}
	}
	return nil
}

// IndexingConfig controls sentence indexing.
type IndexingConfig struct {
	EnableSentenceIndexing bool   `mapstructure:"enable_sentence_indexing" json:"enable_sentence_indexing"`
	UsePunkt               bool   `mapstructure:"use_punkt" json:"use_punkt"`
	Language               string `mapstructure:"language" json:"language"`
}

// DefaultIndexingConfig enables punkt tokenization of English text.
func DefaultIndexingConfig() IndexingConfig {
	return IndexingConfig{
		EnableSentenceIndexing: true,
		UsePunkt:               true,
		Language:               "english",
	}
}

// Validate checks the indexing settings.
func (c IndexingConfig) Validate() error {
	if c.UsePunkt && strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("indexing.language is required when use_punkt is set")
	}
	return nil
}

var nameVariations = map[string]string{
	"methods_and_materials": "materials_and_methods",
	"reference":             "references",
}

// NormalizeName lowercases name, turns spaces and hyphens into underscores
// and maps known spelling variants onto their canonical key.
func NormalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "_", "-", "_").Replace(n)
	if v, ok := nameVariations[n]; ok {
		return v
	}
	return n
}
