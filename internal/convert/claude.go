package convert

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/gitinfo"
	"github.com/loglens/loglens/internal/transcript"
)

// ConvertClaude converts a Claude Code JSONL session file. Returns
// nil when the file is unreadable or carries no session identity.
func ConvertClaude(path string, opts Options) *transcript.Transcript {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	b := newBuilder()
	var sessionID, cwd string

	lr := newLineReader(f, maxLineSize)
	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			continue
		}

		ts := parseTimestamp(gjson.Get(line, "timestamp").Str)
		if ts.IsZero() {
			ts = parseTimestamp(
				gjson.Get(line, "snapshot.timestamp").Str,
			)
		}

		entryType := gjson.Get(line, "type").Str
		if entryType != "user" && entryType != "assistant" {
			continue
		}

		if sessionID == "" {
			sessionID = gjson.Get(line, "sessionId").Str
		}
		if cwd == "" {
			cwd = gjson.Get(line, "cwd").Str
		}

		sidechain := gjson.Get(line, "isSidechain").Bool()
		if entryType == "user" {
			if gjson.Get(line, "isMeta").Bool() ||
				gjson.Get(line, "isCompactSummary").Bool() {
				continue
			}
		}

		model := gjson.Get(line, "message.model").Str
		if entryType == "assistant" {
			b.addUsage(model, usageFromResult(
				gjson.Get(line, "message.usage"),
			))
		}

		content := gjson.Get(line, "message.content")
		if entryType == "user" && content.Type == gjson.String &&
			isClaudeSystemText(content.Str) {
			continue
		}

		text := b.addContentBlocks(entryType, content, ts, model)

		if entryType == "user" && !sidechain &&
			strings.TrimSpace(text) != "" &&
			!isClaudeSystemText(text) {
			b.setPreview(text)
		}
	}

	if sessionID == "" {
		sessionID = strings.TrimSuffix(
			filepath.Base(path), ".jsonl",
		)
	}
	if sessionID == "" || sessionID == ".jsonl" {
		return nil
	}
	if len(b.msgs) == 0 {
		return nil
	}

	return b.finish(
		sessionID, transcript.SourceClaudeCode,
		cwd, gitinfo.Resolve(cwd), opts,
	)
}

// isClaudeSystemText reports whether user content matches a known
// system-injected pattern.
func isClaudeSystemText(content string) bool {
	trimmed := strings.TrimSpace(content)
	prefixes := [...]string{
		"This session is being continued",
		"[Request interrupted",
		"Caveat: The messages below",
		"Stop hook feedback:",
	}
	for _, p := range prefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}
