package intelligence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-paper-parser/internal/model"
)

func TestTextFilterKeepsCaptionBlocks(t *testing.T) {
	captionBlock := blockAt(100, 410, 9, false, "Figure 1. A caption that is long enough")
	page := letterPage(0,
		blockAt(150, 300, 8, false, "axis label"),
		captionBlock,
		blockAt(72, 600, 10, false, "Body text after the figure."),
	)
	regions := []model.FigureRegion{{BBox: model.Rect{X0: 95, Y0: 190, X1: 405, Y1: 440}, Page: 0}}
	captions := []model.FigureCaption{{Text: captionBlock.Text(), Page: 0, BBox: captionBlock.BBox}}

	out := NewTextFilter(DefaultFilterConfig(), nil).Apply([]model.Page{page}, regions, captions)

	require.Len(t, out, 1)
	assert.Equal(t, []string{"Figure 1. A caption that is long enough", "Body text after the figure."}, pageTexts(out[0]))
	assert.Len(t, page.Blocks, 3, "input page is left untouched")
}

func TestTextFilterOverlapThresholds(t *testing.T) {
	region := model.FigureRegion{BBox: model.Rect{X0: 0, Y0: 0, X1: 612, Y1: 100}, Page: 0}

	tests := []struct {
		name  string
		block model.Block
		keep  bool
	}{
		// 6 of 10pt inside a short block: above the 0.5 limit.
		{"short block mostly inside", blockAt(72, 94, 10, false, "small label"), false},
		{"short block partly inside", blockAt(72, 96, 10, false, "small label"), true},
		// 12 of 34pt inside a tall block: above the 0.3 limit.
		{"tall block partly inside", blockAt(72, 88, 10, false, "a", "b", "c"), false},
		{"block outside", blockAt(72, 200, 10, false, "far away"), true},
	}

	f := NewTextFilter(DefaultFilterConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := f.Apply([]model.Page{letterPage(0, tt.block)}, []model.FigureRegion{region}, nil)
			assert.Equal(t, tt.keep, len(out[0].Blocks) == 1)
		})
	}
}

func TestTextFilterOnlyTouchesRegionPages(t *testing.T) {
	pages := []model.Page{
		letterPage(0, blockAt(72, 50, 10, false, "inside")),
		letterPage(1, blockAt(72, 50, 10, false, "other page")),
	}
	regions := []model.FigureRegion{{BBox: model.Rect{X0: 0, Y0: 0, X1: 612, Y1: 100}, Page: 0}}

	out := NewTextFilter(DefaultFilterConfig(), nil).Apply(pages, regions, nil)
	assert.Empty(t, out[0].Blocks)
	assert.Equal(t, []string{"other page"}, pageTexts(out[1]))
}

func TestIsCaptionBlock(t *testing.T) {
	captions := []model.FigureCaption{{
		Text: "Figure 2. Results of the growth assay in detail",
		BBox: model.Rect{X0: 72, Y0: 400, X1: 300, Y1: 430},
	}}

	tests := []struct {
		name string
		bbox model.Rect
		text string
		want bool
	}{
		{"same box", model.Rect{X0: 72, Y0: 400, X1: 300, Y1: 430}, "anything", true},
		{"shared prefix", model.Rect{X0: 72, Y0: 440, X1: 300, Y1: 450}, "Figure 2. Results of the growth assay", true},
		{"prefix across line breaks", model.Rect{X0: 72, Y0: 440, X1: 300, Y1: 450}, "Figure 2.\nResults  of the growth", true},
		{"short text", model.Rect{X0: 72, Y0: 440, X1: 300, Y1: 450}, "Figure 2.", false},
		{"unrelated", model.Rect{X0: 72, Y0: 100, X1: 300, Y1: 120}, "Body text that happens to be long", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCaptionBlock(tt.bbox, tt.text, captions))
		})
	}
}
