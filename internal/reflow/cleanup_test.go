package reflow

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoveShortGibberish(t *testing.T) {
	in := "Real content line\nxq\na.\n12.\n-\n(b)\n\n%$\nEnding"
	want := "Real content line\na.\n12.\n-\n(b)\n\nEnding"
	assert.Equal(t, want, RemoveShortGibberish(in))
}

func TestRemoveScatteredChars(t *testing.T) {
	tests := []struct {
		line string
		keep bool
	}{
		{"a b c d", false},
		{"0 5 10 15 20 25", false},
		{"-1.5 0 1.5 3.0", false},
		{"a b", true},
		{"Results at 1 2", true},
		{"We measured 4 samples in total", true},
		{strings.Repeat("1 ", 30), true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			out := RemoveScatteredChars(tt.line)
			assert.Equal(t, tt.keep, out != "")
		})
	}
}

func TestRemoveFragmentRuns(t *testing.T) {
	t.Run("run bridged by blanks and panel markers", func(t *testing.T) {
		in := "The paragraph before the figure ends here.\n" +
			"Control\n\nTreated\n**a**\nn = 12\n" +
			"The paragraph after the figure starts here."
		want := "The paragraph before the figure ends here.\n\nThe paragraph after the figure starts here."
		assert.Equal(t, want, RemoveFragmentRuns(in))
	})

	t.Run("single fragment kept", func(t *testing.T) {
		in := "Full sentence here.\nLone words\nAnother full sentence."
		assert.Equal(t, in, RemoveFragmentRuns(in))
	})

	t.Run("headers are not fragments", func(t *testing.T) {
		in := "**Methods**\nIntroduction\n"
		assert.Equal(t, in, RemoveFragmentRuns(in))
	})

	t.Run("too many blanks end the run", func(t *testing.T) {
		in := "Control\n\n\n\n\nTreated"
		assert.Equal(t, in, RemoveFragmentRuns(in))
	})

	t.Run("statistical notation", func(t *testing.T) {
		in := "_P_ = 0.05\np < 0.001\nA sentence that stays in place."
		assert.Equal(t, "A sentence that stays in place.", RemoveFragmentRuns(in))
	})
}

func TestRemoveTableRemnants(t *testing.T) {
	in := "|---|---|\n| a | b | c | d | e |\n| this cell has real words | x | y | z | w |\nplain | text"
	want := "| this cell has real words | x | y | z | w |\nplain | text"
	assert.Equal(t, want, RemoveTableRemnants(in))
}

func TestRemoveURLLines(t *testing.T) {
	in := "Keep this line\nSee https://example.test/x\nwww.lab.net\nContact lab.EDU today\nThe .company stays"
	want := "Keep this line\nThe .company stays"
	assert.Equal(t, want, RemoveURLLines(in))
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a\n\n\nb c", NormalizeWhitespace("\n a\n\n\n\n\n\nb    c  \n"))
	assert.Equal(t, "a  b", NormalizeWhitespace("a  b"))
}

func TestCleanerRuleOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"short_gibberish", "scattered_chars", "fragment_runs", "table_remnants", "url_lines", "whitespace"},
		NewCleaner(DefaultCleanupConfig(), nil).Rules())

	cfg := CleanupConfig{RemoveRepeatedLines: true, RemovePageNumbers: true, RemoveCopyright: true, RemoveDOILines: true}
	assert.Equal(t,
		[]string{"short_gibberish", "scattered_chars", "fragment_runs", "table_remnants", "url_lines",
			"repeated_lines", "page_numbers", "copyright", "doi_lines", "whitespace"},
		NewCleaner(cfg, nil).Rules())
}

func TestCleanupOptionalRules(t *testing.T) {
	header := "Running Header Of The Journal Article"
	body := "A body sentence that is long enough to keep." + strings.Repeat(" More words follow here.", 4)
	in := strings.Join([]string{
		header, body, header, body, header, body, header,
		"Page 12",
		"© 2024 The Authors.",
		"Available at doi: 10.1101/2020.01.01.123456",
		body,
	}, "\n")

	assert.Contains(t, Cleanup(in, DefaultCleanupConfig()), header)

	cfg := CleanupConfig{RemoveRepeatedLines: true, RemovePageNumbers: true, RemoveCopyright: true, RemoveDOILines: true}
	out := Cleanup(in, cfg)
	assert.NotContains(t, out, header)
	assert.NotContains(t, out, "Page 12")
	assert.NotContains(t, out, "©")
	assert.NotContains(t, out, "doi:")
	assert.Equal(t, 4, strings.Count(out, body))
}
