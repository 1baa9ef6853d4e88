package reflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReflow(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "hyphenated break",
			in:   "The experi-\nment was run.",
			want: "The experiment was run.",
		},
		{
			name: "wrapped sentence",
			in:   "This is a line\nthat continues here.\nNext sentence starts.",
			want: "This is a line that continues here.\nNext sentence starts.",
		},
		{
			name: "terminator followed by lowercase keeps joining",
			in:   "Values were 3.\nwhich is low.",
			want: "Values were 3. which is low.",
		},
		{
			name: "bold header kept",
			in:   "**Methods**\nWe did things\nand more things.",
			want: "**Methods**\nWe did things and more things.",
		},
		{
			name: "markdown header kept",
			in:   "## Data\nrows here",
			want: "## Data\nrows here",
		},
		{
			name: "all caps header",
			in:   "RESULTS\nsome text.",
			want: "RESULTS\nsome text.",
		},
		{
			name: "keyword header",
			in:   "1 Introduction\nPapers are long.",
			want: "1 Introduction\nPapers are long.",
		},
		{
			name: "blank lines preserved",
			in:   "First part\n\nSecond part",
			want: "First part\n\nSecond part",
		},
		{
			name: "citation ends sentence",
			in:   "as shown [12]\nThe next one",
			want: "as shown [12]\nThe next one",
		},
		{
			name: "year citation ends sentence",
			in:   "reported by Smith (2020)\nLater work",
			want: "reported by Smith (2020)\nLater work",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reflow(tt.in, DefaultConfig()))
		})
	}
}

func TestReflowRoundTrip(t *testing.T) {
	words := strings.Fields("the quick brown fox jumps over the lazy dog while the cat watches from the fence")
	for n := 2; n <= 6; n++ {
		var lines []string
		step := (len(words) + n - 1) / n
		for i := 0; i < len(words); i += step {
			lines = append(lines, strings.Join(words[i:min(i+step, len(words))], " "))
		}
		assert.Equal(t, strings.Join(words, " "), Reflow(strings.Join(lines, "\n"), DefaultConfig()), "n=%d", n)
	}
}

func TestReflowToggles(t *testing.T) {
	in := "broken hyphen-\nated line"

	assert.Equal(t, in, Reflow(in, Config{}))
	assert.Equal(t, "broken hyphen- ated line", Reflow(in, Config{EnableReflow: true}))
	assert.Equal(t, "broken hyphenated line", Reflow(in, DefaultConfig()))
}

func TestIsHeaderLine(t *testing.T) {
	lines := []string{"Methods overview", "TABLE ONE", "Results", ""}

	assert.False(t, IsHeaderLine(lines[0], 0, lines), "keyword line followed by all caps")
	assert.True(t, IsHeaderLine(lines[1], 1, lines))
	assert.True(t, IsHeaderLine(lines[2], 2, lines))
	assert.False(t, IsHeaderLine("ab", 0, nil))
	assert.False(t, IsHeaderLine(strings.Repeat("results ", 20), 0, nil))
	assert.True(t, IsHeaderLine("**Anything**", 0, nil))
}
