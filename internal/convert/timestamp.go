package convert

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/loglens/loglens/internal/logging"
)

// timestampLayouts lists the formats observed across source logs,
// most common first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseTimestamp parses a timestamp string from any source format.
// Returns the zero time when the string is empty or unparseable.
func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// millisToTime converts Unix milliseconds to a UTC time, treating
// zero as "no timestamp".
func millisToTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

var parseErrCount atomic.Int64

// logParseError records an unparseable field without flooding the
// log: the first few occurrences are written, then every 1000th.
func logParseError(detail string) {
	n := parseErrCount.Add(1)
	if n <= 10 || n%1000 == 0 {
		logging.Debugf("unparseable field (#%d): %s",
			n, truncate(strings.ReplaceAll(detail, "\n", " "), 120))
	}
}

// truncate trims s to at most maxLen bytes, marking the cut with an
// ellipsis inside the budget.
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
