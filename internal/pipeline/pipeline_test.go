package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/config"
	"github.com/a3tai/mcp-paper-parser/internal/extractors"
	pdferrors "github.com/a3tai/mcp-paper-parser/internal/pdf/errors"
	"github.com/a3tai/mcp-paper-parser/internal/pdf/pdftest"
)

// shortPaper is a single page with a title, a byline, an abstract of two
// sentences and a one-sentence introduction.
func shortPaper() []byte {
	doc := pdftest.New()
	doc.AddPage(612, 792).
		TextTop(pdftest.Bold, 16, 72, 80, "Layout analysis of scientific papers").
		TextTop(pdftest.Regular, 10, 72, 110, "Ada Lovelace and Alan Turing").
		TextTop(pdftest.Bold, 10, 72, 200, "Abstract").
		TextTop(pdftest.Regular, 10, 72, 225, "We study page layout. The method is simple.").
		TextTop(pdftest.Bold, 10, 72, 280, "Introduction").
		TextTop(pdftest.Regular, 10, 72, 305, "Papers mix text and figures.")
	return doc.Bytes()
}

// figurePaper has a 200x150 image with a caption directly below it.
func figurePaper() []byte {
	doc := pdftest.New()
	doc.AddPage(612, 792).
		TextTop(pdftest.Regular, 10, 72, 150, "Body text introduces the figure.").
		Image(150, 792-400, 200, 150).
		TextTop(pdftest.Regular, 9, 150, 415, "Figure 1: A diagram of X.").
		TextTop(pdftest.Regular, 10, 72, 600, "More body text follows further down.")
	return doc.Bytes()
}

func TestParseAbstractAndIntroduction(t *testing.T) {
	p := New(config.DefaultPipelineConfig())

	doc, err := p.Parse(context.Background(), shortPaper(), "short.pdf")
	require.NoError(t, err)

	require.Contains(t, doc.Sections, "abstract")
	require.Contains(t, doc.Sections, "introduction")
	assert.Equal(t, "We study page layout. The method is simple.", doc.Sections["abstract"].Text)
	assert.Equal(t, 1, doc.Sections["abstract"].Priority)
	assert.Equal(t, 10, doc.Sections["introduction"].Priority)

	assert.Equal(t, "Layout analysis of scientific papers", doc.Title)
	assert.True(t, doc.Validation["has_introduction"])
	assert.True(t, doc.Validation["has_title"])
	assert.True(t, doc.Validation["has_authors"])
	assert.False(t, doc.Validation["has_methods"])

	assert.Equal(t, 3, doc.SentenceCount())
	ids := map[string]bool{}
	for _, s := range doc.Sections {
		for _, sent := range s.Sentences {
			ids[sent.ID] = true
			assert.Equal(t, sent.Text, s.Text[sent.CharStart:sent.CharEnd])
		}
	}
	assert.Len(t, ids, 3)

	assert.Equal(t, 1, doc.PageCount)
	assert.Len(t, doc.Hash, 64)
	assert.NotEmpty(t, doc.ID)
	assert.Contains(t, doc.Markdown, "### **Abstract**")
}

func TestParseImageWithCaption(t *testing.T) {
	rec := NewSnapshotRecorder()
	p := New(config.DefaultPipelineConfig(), WithObserver(rec))

	doc, err := p.Parse(context.Background(), figurePaper(), "figure.pdf")
	require.NoError(t, err)

	ev, ok := rec.Snapshot(StageExtract)
	require.True(t, ok)
	assert.Contains(t, ev.Summary, "captions=1")
	assert.Contains(t, ev.Summary, "regions=1")

	require.Len(t, doc.Figures, 1)
	assert.Equal(t, "fig-1", doc.Figures[0].ID)
	assert.Equal(t, "Figure 1: A diagram of X.", doc.Figures[0].Caption)
	assert.Equal(t, 1, doc.Figures[0].Page)
	assert.Contains(t, doc.Markdown, "Figure 1: A diagram of X.")
}

func TestParseReportsEveryStage(t *testing.T) {
	rec := NewSnapshotRecorder()
	var mu sync.Mutex
	var order []Stage
	obs := ObserverFunc(func(_ context.Context, ev StageEvent) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, ev.Stage)
	})

	_, err := New(config.DefaultPipelineConfig(), WithObserver(rec, obs)).
		Parse(context.Background(), shortPaper(), "short.pdf")
	require.NoError(t, err)

	assert.Equal(t, Stages(), order)
	snaps := rec.Snapshots()
	require.Len(t, snaps, len(Stages()))
	for _, ev := range snaps {
		assert.False(t, ev.Skipped, ev.Stage.String())
	}

	labeled, ok := rec.Snapshot(StageLabelSections)
	require.True(t, ok)
	md, ok := labeled.Output.(string)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(md, "### **Abstract**"))
}

func TestParseSkipsDisabledStages(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	cfg.Reflow.EnableReflow = false
	cfg.Indexing.EnableSentenceIndexing = false
	cfg.Extraction = extractors.Config{}

	rec := NewSnapshotRecorder()
	doc, err := New(cfg, WithObserver(rec)).Parse(context.Background(), shortPaper(), "short.pdf")
	require.NoError(t, err)

	for _, s := range []Stage{StageReflow, StageIndexSentences, StageExtractMetadata} {
		ev, ok := rec.Snapshot(s)
		require.True(t, ok)
		assert.True(t, ev.Skipped, s.String())
	}
	assert.Zero(t, doc.SentenceCount())
	assert.Contains(t, doc.Sections, "abstract")
	assert.Nil(t, doc.Figures)
}

func TestParseFatalErrors(t *testing.T) {
	p := New(config.DefaultPipelineConfig())

	_, err := p.Parse(context.Background(), []byte("not a pdf"), "bad.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, pdferrors.ErrInvalidInput)
	assert.True(t, pdferrors.IsFatal(err))

	_, err = p.Parse(context.Background(), pdftest.New().Bytes(), "empty.pdf")
	assert.ErrorIs(t, err, pdferrors.ErrUnsupportedDocument)
}

func TestFinishWithoutResult(t *testing.T) {
	r := &run{
		p:        New(config.DefaultPipelineConfig()),
		filename: "broken.pdf",
		logger:   slog.Default(),
		ec:       pdferrors.NewErrorCollection("broken.pdf"),
	}

	doc, err := r.finish(time.Now())
	require.Error(t, err)
	assert.Nil(t, doc)
	assert.ErrorIs(t, err, pdferrors.ErrDegradedDetection)

	var pe *pdferrors.PDFError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, StageAssemble.String(), pe.Stage)
}

func TestParseHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(config.DefaultPipelineConfig()).Parse(ctx, shortPaper(), "short.pdf")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseCancelledBetweenStages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var last Stage
	obs := ObserverFunc(func(_ context.Context, ev StageEvent) {
		last = ev.Stage
		if ev.Stage == StageGeometry {
			cancel()
		}
	})

	_, err := New(config.DefaultPipelineConfig(), WithObserver(obs)).Parse(ctx, shortPaper(), "short.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StageGeometry, last)
}

func TestParseTitleFallsBackToFilename(t *testing.T) {
	doc := pdftest.New()
	doc.AddPage(612, 792).
		TextTop(pdftest.Regular, 10, 72, 200, "Plain text without any bold title line.")

	parsed, err := New(config.DefaultPipelineConfig()).Parse(context.Background(), doc.Bytes(), "dir/my-paper.pdf")
	require.NoError(t, err)
	assert.Equal(t, "my-paper", parsed.Title)
	assert.NotEmpty(t, parsed.Warnings)
}

func TestParseIsDeterministic(t *testing.T) {
	p := New(config.DefaultPipelineConfig())
	data := shortPaper()

	a, err := p.Parse(context.Background(), data, "short.pdf")
	require.NoError(t, err)
	b, err := p.Parse(context.Background(), data, "short.pdf")
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Markdown, b.Markdown)
	assert.Equal(t, a.Sections, b.Sections)
}

func TestBatchParse(t *testing.T) {
	inputs := []Input{
		{Filename: "a.pdf", Data: shortPaper()},
		{Filename: "bad.pdf", Data: []byte("garbage")},
		{Filename: "lazy.pdf", Open: func() ([]byte, error) { return figurePaper(), nil }},
		{Filename: "missing.pdf", Open: func() ([]byte, error) { return nil, errors.New("no such file") }},
	}

	results, err := New(config.DefaultPipelineConfig()).BatchParse(context.Background(), inputs, 2)
	require.NoError(t, err)
	require.Len(t, results, 4)

	for i, r := range results {
		assert.Equal(t, inputs[i].Filename, r.Filename)
	}
	require.NoError(t, results[0].Err)
	assert.Contains(t, results[0].Document.Sections, "abstract")
	assert.ErrorIs(t, results[1].Err, pdferrors.ErrInvalidInput)
	require.NoError(t, results[2].Err)
	assert.Len(t, results[2].Document.Figures, 1)
	assert.EqualError(t, results[3].Err, "no such file")
}

func TestBatchParseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := New(config.DefaultPipelineConfig()).BatchParse(ctx, []Input{{Filename: "a.pdf", Data: shortPaper()}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestStageNames(t *testing.T) {
	assert.Equal(t, "load", StageLoad.String())
	assert.Equal(t, "index_sentences", StageIndexSentences.String())
	assert.Equal(t, "assemble", StageAssemble.String())
	assert.Equal(t, "stage(99)", Stage(99).String())
	assert.Len(t, Stages(), 12)
}
