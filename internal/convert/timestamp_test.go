package convert

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestampLayouts(t *testing.T) {
	want := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	cases := []string{
		"2025-06-01T10:00:00Z",
		"2025-06-01T10:00:00.000Z",
		"2025-06-01T10:00:00",
		"2025-06-01 10:00:00",
		"  2025-06-01T10:00:00Z  ",
	}
	for _, in := range cases {
		assert.Equal(t, want, parseTimestamp(in), in)
	}
}

func TestParseTimestampOffsetNormalizedToUTC(t *testing.T) {
	got := parseTimestamp("2025-06-01T12:00:00+02:00")
	assert.Equal(t,
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), got)
}

func TestParseTimestampInvalid(t *testing.T) {
	assert.True(t, parseTimestamp("").IsZero())
	assert.True(t, parseTimestamp("yesterday").IsZero())
	assert.True(t, parseTimestamp("1748772000000").IsZero())
}

func TestMillisToTime(t *testing.T) {
	assert.True(t, millisToTime(0).IsZero())
	got := millisToTime(1748772000000)
	assert.Equal(t,
		time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exactlyten", truncate("exactlyten", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijk", 10))
}

func TestLineReaderSkipsBlankLines(t *testing.T) {
	lr := newLineReader(
		strings.NewReader("one\n\n\ntwo\n"), maxLineSize)

	line, ok := lr.next()
	require.True(t, ok)
	assert.Equal(t, "one", line)

	line, ok = lr.next()
	require.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = lr.next()
	assert.False(t, ok)
	assert.NoError(t, lr.Err())
}

func TestLineReaderSkipsOversizedLines(t *testing.T) {
	big := strings.Repeat("x", 100)
	lr := newLineReader(
		strings.NewReader("small\n"+big+"\nafter\n"), 50)

	line, ok := lr.next()
	require.True(t, ok)
	assert.Equal(t, "small", line)

	line, ok = lr.next()
	require.True(t, ok)
	assert.Equal(t, "after", line)
}

func TestLineReaderNoTrailingNewline(t *testing.T) {
	lr := newLineReader(strings.NewReader("only"), maxLineSize)
	line, ok := lr.next()
	require.True(t, ok)
	assert.Equal(t, "only", line)
}
