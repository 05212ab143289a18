package convert

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/transcript"
)

// deriveStats aggregates working-tree statistics from the Write and
// Edit tool calls in a message sequence. Returns nil when the
// session touched no files.
func deriveStats(msgs []transcript.Message) *transcript.WorkingTreeStats {
	var stats transcript.WorkingTreeStats
	seen := make(map[string]struct{})

	for _, m := range msgs {
		if m.Type != transcript.MessageToolCall {
			continue
		}
		input := gjson.ParseBytes(m.Input)
		path := input.Get("file_path").Str
		if path == "" {
			path = input.Get("path").Str
		}

		switch m.ToolName {
		case "Write":
			if path == "" {
				continue
			}
			markFile(seen, &stats, path)
			stats.LinesAdded += countLines(input.Get("content").Str)
		case "Edit":
			if path == "" {
				continue
			}
			markFile(seen, &stats, path)
			if diff := input.Get("diff").Str; diff != "" {
				addDiffCounts(&stats, diff)
			} else if content := input.Get("content").Str; content != "" {
				stats.LinesAdded += countLines(content)
			} else {
				old := countLines(input.Get("old_string").Str)
				new_ := countLines(input.Get("new_string").Str)
				mod := min(old, new_)
				stats.LinesModified += mod
				stats.LinesAdded += new_ - mod
				stats.LinesRemoved += old - mod
			}
		}
	}

	if stats.FilesChanged == 0 {
		return nil
	}
	return &stats
}

func markFile(
	seen map[string]struct{},
	stats *transcript.WorkingTreeStats,
	path string,
) {
	if _, ok := seen[path]; ok {
		return
	}
	seen[path] = struct{}{}
	stats.FilesChanged++
}

// addDiffCounts walks unified-diff style lines. Paired additions
// and removals count as modifications.
func addDiffCounts(stats *transcript.WorkingTreeStats, diff string) {
	var plus, minus int
	for _, line := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"),
			strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			plus++
		case strings.HasPrefix(line, "-"):
			minus++
		}
	}
	mod := min(plus, minus)
	stats.LinesModified += mod
	stats.LinesAdded += plus - mod
	stats.LinesRemoved += minus - mod
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
