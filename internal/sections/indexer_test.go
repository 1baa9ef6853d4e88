package sections

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

type fixedTokenizer []string

func (f fixedTokenizer) Tokenize(string) []string { return f }

func TestRegexTokenizer(t *testing.T) {
	got := RegexTokenizer{}.Tokenize("First sentence here. Second one follows! Third? Yes. e.g. lower case stays.")
	assert.Equal(t, []string{"First sentence here.", "Second one follows!", "Third?", "Yes. e.g. lower case stays."}, got)
	assert.Empty(t, RegexTokenizer{}.Tokenize("   "))
}

func TestPunktTokenizer(t *testing.T) {
	tok, err := NewTokenizer(DefaultIndexingConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"We study layout.", "It works well."}, tok.Tokenize("We study layout. It works well."))
}

func TestNewTokenizerFallback(t *testing.T) {
	tok, err := NewTokenizer(IndexingConfig{UsePunkt: true, Language: "german"})
	assert.Error(t, err)
	assert.IsType(t, RegexTokenizer{}, tok)

	tok, err = NewTokenizer(IndexingConfig{})
	assert.NoError(t, err)
	assert.IsType(t, RegexTokenizer{}, tok)
}

func TestIndexSpansAndIDs(t *testing.T) {
	text := "Cells grew fast.  They divided twice. Growth stopped."
	in := map[string]*model.ParsedSection{
		"results": {Name: "results", Text: text, Priority: 30},
	}

	ix := NewIndexerWithTokenizer(RegexTokenizer{}, nil)
	out := ix.Index(in)

	require.Len(t, out["results"].Sentences, 3)
	for i, s := range out["results"].Sentences {
		assert.Equal(t, s.Text, text[s.CharStart:s.CharEnd])
		assert.Equal(t, i, s.ParagraphIndex)
		assert.Equal(t, "results", s.Section)
		assert.Equal(t, SentenceID("results", i, s.Text), s.ID)
	}
	assert.Equal(t, 30, out["results"].Priority)
	assert.Nil(t, in["results"].Sentences)

	again := ix.Index(in)
	assert.Equal(t, out["results"].Sentences, again["results"].Sentences)
}

func TestIndexRepeatedSentences(t *testing.T) {
	text := "Same here. Same here."
	out := NewIndexerWithTokenizer(RegexTokenizer{}, nil).Index(map[string]*model.ParsedSection{
		"x": {Name: "x", Text: text},
	})

	s := out["x"].Sentences
	require.Len(t, s, 2)
	assert.Equal(t, 0, s[0].CharStart)
	assert.Equal(t, 11, s[1].CharStart)
	assert.NotEqual(t, s[0].ID, s[1].ID)
}

func TestIndexUnlocatedSentence(t *testing.T) {
	out := NewIndexerWithTokenizer(fixedTokenizer{"", "not in the text at all"}, nil).Index(map[string]*model.ParsedSection{
		"x": {Name: "x", Text: "short"},
	})

	s := out["x"].Sentences
	require.Len(t, s, 1)
	assert.Equal(t, 0, s[0].CharStart)
	assert.Equal(t, 5, s[0].CharEnd)
}

func TestSentenceID(t *testing.T) {
	// md5("hello") = 5d41402abc4b2a76b9719d911017c592
	assert.Equal(t, "intro_2_5d41402a", SentenceID("intro", 2, "hello"))
}
