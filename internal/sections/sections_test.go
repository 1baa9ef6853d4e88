package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/model"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
)

const labeled = "Paper Title\nJane Doe\n\n" +
	"### **Abstract**\n\nWe study things.\n\n" +
	"### **Materials and Methods**\n\nWe did things.\nThen more.\n\n" +
	"### **Zebrafish Care**\n\nFish were fed."

func TestSplit(t *testing.T) {
	secs := Split(labeled, DefaultConfig())
	require.Len(t, secs, 4)

	tests := []struct {
		name     string
		text     string
		priority int
	}{
		{PreambleName, "Paper Title\nJane Doe", 0},
		{"abstract", "We study things.", 1},
		{"materials_and_methods", "We did things.\nThen more.", 20},
		{"zebrafish_care", "Fish were fed.", DefaultPriority},
	}
	for _, tt := range tests {
		s, ok := secs[tt.name]
		require.True(t, ok, tt.name)
		assert.Equal(t, tt.name, s.Name)
		assert.Equal(t, tt.text, s.Text)
		assert.Equal(t, tt.priority, s.Priority)
	}
}

func TestSplitWithoutHeaders(t *testing.T) {
	secs := Split("  just some text\n\nand more  ", DefaultConfig())
	require.Len(t, secs, 1)
	assert.Equal(t, "just some text\n\nand more", secs[FullTextName].Text)
	assert.Equal(t, DefaultPriority, secs[FullTextName].Priority)
}

func TestSplitDuplicateKeepsLast(t *testing.T) {
	ec := pdferrors.NewErrorCollection("test.pdf")
	md := "### **Results**\n\nfirst\n\n### **Results**\n\nsecond"

	secs := NewSplitter(DefaultConfig(), nil).Split(md, ec)
	require.Len(t, secs, 1)
	assert.Equal(t, "second", secs["results"].Text)

	_, warnings := ec.Count()
	assert.Equal(t, 1, warnings)
}

func TestSplitIgnoresInlineHeaders(t *testing.T) {
	md := "### **Results** and more\n\ntext\n\n#### **Deeper**\n\nbody"
	secs := Split(md, DefaultConfig())
	require.Len(t, secs, 1)
	assert.Contains(t, secs, FullTextName)
}

func TestSplitFallsBackToLineScan(t *testing.T) {
	// An unclosed fence turns the rest of the document into a code block.
	md := "```\n### **Results**\nFound it."
	secs := Split(md, DefaultConfig())
	require.Contains(t, secs, "results")
	assert.Equal(t, "Found it.", secs["results"].Text)
	assert.Equal(t, "```", secs[PreambleName].Text)
}

func TestFormat(t *testing.T) {
	secs := map[string]*model.ParsedSection{
		"introduction": {Name: "introduction", Text: "B.", Priority: 10},
		PreambleName:   {Name: PreambleName, Text: "T"},
		"abstract":     {Name: "abstract", Text: "A.", Priority: 1},
	}
	assert.Equal(t, "T\n\n### **ABSTRACT**\n\nA.\n\n### **INTRODUCTION**\n\nB.", Format(secs))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "MATERIALS AND METHODS", DisplayName("materials_and_methods"))
	assert.Equal(t, "NOTES", DisplayName("_notes_"))
	assert.Equal(t, "X", DisplayName("x_"))
}

func TestFormatTrimsUnderscoredKeys(t *testing.T) {
	secs := map[string]*model.ParsedSection{
		"_notes_": {Name: "_notes_", Text: "Some notes.", Priority: DefaultPriority},
	}
	md := Format(secs)
	assert.Contains(t, md, "### **NOTES**")

	again := Split(md, DefaultConfig())
	require.Contains(t, again, "notes")
	assert.Equal(t, "Some notes.", again["notes"].Text)
}

func TestSplitFormatIdempotent(t *testing.T) {
	first := Split(labeled, DefaultConfig())
	second := Split(Format(first), DefaultConfig())

	require.Len(t, second, len(first))
	for name, s := range first {
		require.Contains(t, second, name)
		assert.Equal(t, s.Text, second[name].Text, name)
		assert.Equal(t, s.Priority, second[name].Priority, name)
	}
}

func TestValidate(t *testing.T) {
	secs := map[string]*model.ParsedSection{
		"introduction":           {Name: "introduction"},
		"materials_and_methods":  {Name: "materials_and_methods"},
		"results_and_discussion": {Name: "results_and_discussion"},
	}
	ec := pdferrors.NewErrorCollection("test.pdf")

	got := NewValidator(DefaultConfig(), nil).Validate(secs, "A Title", false, ec)
	assert.Equal(t, map[string]bool{
		"has_introduction": true,
		"has_methods":      true,
		"has_results":      true,
		"has_discussion":   true,
		"has_title":        true,
		"has_authors":      false,
	}, got)

	errs, warnings := ec.Count()
	assert.Zero(t, errs)
	assert.Equal(t, 1, warnings)
}

func TestValidateMissingGroups(t *testing.T) {
	ec := pdferrors.NewErrorCollection("test.pdf")
	got := NewValidator(DefaultConfig(), nil).Validate(map[string]*model.ParsedSection{}, "Unknown", true, ec)

	assert.False(t, got["has_introduction"])
	assert.False(t, got["has_discussion"])
	assert.False(t, got["has_title"])
	assert.True(t, got["has_authors"])

	_, warnings := ec.Count()
	assert.Equal(t, 5, warnings)
	assert.False(t, ec.HasFatal())
}

func TestSplitCanonicalizesVariants(t *testing.T) {
	md := "### **Methods and Materials**\n\nWe did things.\n\n### **Reference**\n\n[1] A. Author."
	secs := Split(md, DefaultConfig())

	require.Contains(t, secs, "materials_and_methods")
	require.Contains(t, secs, "references")
	assert.Equal(t, "[1] A. Author.", secs["references"].Text)
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"Materials and Methods": "materials_and_methods",
		"Methods and Materials": "materials_and_methods",
		"  Reference ":          "references",
		"Author-Contributions":  "author_contributions",
		"results":               "results",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.NoError(t, DefaultIndexingConfig().Validate())

	cfg := DefaultConfig()
	cfg.RequiredGroups["empty"] = nil
	assert.Error(t, cfg.Validate())

	assert.Error(t, IndexingConfig{UsePunkt: true}.Validate())
}
