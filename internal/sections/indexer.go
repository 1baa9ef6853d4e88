package sections

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

// Tokenizer splits text into sentence strings.
type Tokenizer interface {
	Tokenize(text string) []string
}

// RegexTokenizer splits after ., ! or ? when whitespace and an uppercase
// letter follow.
type RegexTokenizer struct{}

var sentenceBreakRe = regexp.MustCompile(`[.!?]\s+[A-Z]`)

// Tokenize implements Tokenizer.
func (RegexTokenizer) Tokenize(text string) []string {
	var out []string
	start := 0
	for _, loc := range sentenceBreakRe.FindAllStringIndex(text, -1) {
		if s := strings.TrimSpace(text[start : loc[0]+1]); s != "" {
			out = append(out, s)
		}
		start = loc[1] - 1
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}
	return out
}

type punktTokenizer struct {
	t interface {
		Tokenize(text string) []*sentences.Sentence
	}
}

func (p punktTokenizer) Tokenize(text string) []string {
	var out []string
	for _, s := range p.t.Tokenize(text) {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// NewTokenizer returns the punkt tokenizer for English when cfg asks for it
// and the regex tokenizer otherwise.
func NewTokenizer(cfg IndexingConfig) (Tokenizer, error) {
	if !cfg.UsePunkt {
		return RegexTokenizer{}, nil
	}
	if !strings.EqualFold(cfg.Language, "english") {
		return RegexTokenizer{}, fmt.Errorf("no punkt training data for language %q", cfg.Language)
	}
	t, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return RegexTokenizer{}, fmt.Errorf("loading punkt tokenizer: %w", err)
	}
	return punktTokenizer{t: t}, nil
}

// Indexer assigns addressable sentences to sections.
type Indexer struct {
	tok    Tokenizer
	logger *slog.Logger
}

// NewIndexer creates an indexer for cfg. A tokenizer that cannot be loaded
// falls back to RegexTokenizer. A nil logger uses slog.Default().
func NewIndexer(cfg IndexingConfig, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "Indexer")

	tok, err := NewTokenizer(cfg)
	if err != nil {
		logger.Warn("sentence tokenizer unavailable, using regex split", "error", err)
	}
	return &Indexer{tok: tok, logger: logger}
}

// NewIndexerWithTokenizer creates an indexer around a custom tokenizer.
func NewIndexerWithTokenizer(tok Tokenizer, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{tok: tok, logger: logger.With("component", "Indexer")}
}

// Index returns copies of sections with their sentences filled in. The
// input map and its values are left untouched.
func (ix *Indexer) Index(sections map[string]*model.ParsedSection) map[string]*model.ParsedSection {
	out := make(map[string]*model.ParsedSection, len(sections))
	total := 0
	for name, s := range sections {
		c := *s
		c.Sentences = ix.sentences(name, s.Text)
		total += len(c.Sentences)
		out[name] = &c
	}
	ix.logger.Debug("sentences indexed", "sentences", total, "sections", len(out))
	return out
}

func (ix *Indexer) sentences(section, text string) []model.Sentence {
	var out []model.Sentence
	pos := 0
	for _, st := range ix.tok.Tokenize(text) {
		st = strings.TrimSpace(st)
		if st == "" {
			continue
		}

		start := pos
		if i := strings.Index(text[pos:], st); i >= 0 {
			start = pos + i
		}
		end := min(start+len(st), len(text))
		pos = end

		n := len(out)
		out = append(out, model.Sentence{
			ID:             SentenceID(section, n, st),
			Section:        section,
			Text:           st,
			CharStart:      start,
			CharEnd:        end,
			ParagraphIndex: n,
		})
	}
	return out
}

// SentenceID derives the stable id "{section}_{n}_{hash}" where hash is the
// first 8 hex digits of the MD5 of text.
func SentenceID(section string, n int, text string) string {
	sum := md5.Sum([]byte(text))
	return fmt.Sprintf("%s_%d_%s", section, n, hex.EncodeToString(sum[:])[:8])
}
