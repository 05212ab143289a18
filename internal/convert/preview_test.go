package convert

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanPreview(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "fix the login bug", "fix the login bug"},
		{"first line only", "fix the bug\nand add a test",
			"fix the bug"},
		{"collapses whitespace", "fix   the\tbug", "fix the bug"},
		{"strips reminder block",
			"fix the bug<system-reminder>\nnote\n</system-reminder>",
			"fix the bug"},
		{"reminder only", "<system-reminder>note</system-reminder>", ""},
		{"slash command",
			"<command-name>/commit</command-name>" +
				"<command-args>--amend</command-args>",
			"/commit --amend"},
		{"slash command no args",
			"<command-name>/review</command-name>", "/review"},
		{"command envelope stripped",
			"<command-message>ran</command-message>\nreal request",
			"real request"},
		{"shell prompt marker", "$ make build fails", "make build fails"},
		{"skips error noise",
			"Error: cannot find module\nplease fix the import",
			"please fix the import"},
		{"noise with question kept",
			"error: what is this supposed to mean?",
			"error: what is this supposed to mean?"},
		{"blank lines skipped", "\n\n  \nactual text", "actual text"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanPreview(tc.in))
		})
	}
}

func TestCleanPreviewTruncates(t *testing.T) {
	long := strings.Repeat("a", 200)
	got := CleanPreview(long)
	assert.Len(t, got, maxPreviewLen)
	assert.True(t, strings.HasSuffix(got, "..."))
}
