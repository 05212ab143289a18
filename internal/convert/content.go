package convert

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/transcript"
)

// addContentBlocks walks an Anthropic-style message content value
// (a plain string or an array of typed blocks) and appends the
// corresponding canonical messages. Claude Code and Cline both
// persist this shape. Returns the concatenated plain text of the
// message's text blocks.
func (b *builder) addContentBlocks(
	role string,
	content gjson.Result,
	ts time.Time,
	model string,
) string {
	msgType := transcript.MessageAgent
	if role == "user" {
		msgType = transcript.MessageUser
	}

	if content.Type == gjson.String {
		text := content.Str
		if strings.TrimSpace(text) != "" {
			b.add(transcript.Message{
				Type:      msgType,
				Text:      text,
				Timestamp: ts,
				Model:     model,
			})
		}
		return text
	}
	if !content.IsArray() {
		return ""
	}

	var texts []string
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if t := block.Get("text").Str; strings.TrimSpace(t) != "" {
				texts = append(texts, t)
				b.add(transcript.Message{
					Type:      msgType,
					Text:      t,
					Timestamp: ts,
					Model:     model,
				})
			}
		case "thinking":
			if t := block.Get("thinking").Str; t != "" {
				b.add(transcript.Message{
					Type:      transcript.MessageThinking,
					Text:      t,
					Timestamp: ts,
					Model:     model,
				})
			}
		case "tool_use":
			name := block.Get("name").Str
			if name == "" {
				break
			}
			tool, input := rewriteToolUse(
				name, block.Get("input"),
			)
			b.addToolCall(
				block.Get("id").Str, tool, input, ts, model,
			)
		case "tool_result":
			b.attachOutput(
				block.Get("tool_use_id").Str,
				rawJSON(block.Get("content")),
			)
		}
		return true
	})
	return strings.Join(texts, "\n")
}

// rewriteToolUse normalizes a tool name and, for shell tools,
// attempts idiom reclassification on the command.
func rewriteToolUse(
	name string, input gjson.Result,
) (string, json.RawMessage) {
	tool := normalizeToolName(name)
	if tool == "Bash" {
		cmd := input.Get("command").Str
		if cmd == "" {
			cmd = input.Get("cmd").Str
		}
		if cmd != "" {
			if t, rewritten, ok := ReclassifyShell(cmd); ok {
				return t, rewritten
			}
		}
	}
	return tool, rawJSON(input)
}

// rawJSON returns the raw bytes of a gjson value, or nil for a
// missing value.
func rawJSON(v gjson.Result) json.RawMessage {
	if !v.Exists() {
		return nil
	}
	raw := strings.TrimSpace(v.Raw)
	if raw == "" || raw == "null" {
		return nil
	}
	return json.RawMessage(raw)
}

// usageFromResult reads an Anthropic-style usage object.
func usageFromResult(u gjson.Result) transcript.TokenUsage {
	if !u.Exists() {
		return transcript.TokenUsage{}
	}
	return transcript.TokenUsage{
		InputTokens:              u.Get("input_tokens").Int(),
		OutputTokens:             u.Get("output_tokens").Int(),
		CacheReadInputTokens:     u.Get("cache_read_input_tokens").Int(),
		CacheCreationInputTokens: u.Get("cache_creation_input_tokens").Int(),
	}
}
