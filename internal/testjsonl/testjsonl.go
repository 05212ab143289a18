// Package testjsonl provides shared session fixture builders for
// converter and discovery test data.
package testjsonl

import (
	"encoding/json"
	"strings"
)

// ClaudeUserJSON returns a Claude Code user entry as a JSON string.
func ClaudeUserJSON(
	content, timestamp string, cwd ...string,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"role":    "user",
			"content": content,
		},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeUserWithSessionIDJSON returns a Claude Code user entry with
// a sessionId field.
func ClaudeUserWithSessionIDJSON(
	content, timestamp, sessionID string, cwd ...string,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"sessionId": sessionID,
		"message": map[string]any{
			"role":    "user",
			"content": content,
		},
	}
	if len(cwd) > 0 {
		m["cwd"] = cwd[0]
	}
	return mustMarshal(m)
}

// ClaudeMetaUserJSON returns a Claude Code user entry with optional
// isMeta and isCompactSummary flags.
func ClaudeMetaUserJSON(
	content, timestamp string, meta, compact bool,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"role":    "user",
			"content": content,
		},
	}
	if meta {
		m["isMeta"] = true
	}
	if compact {
		m["isCompactSummary"] = true
	}
	return mustMarshal(m)
}

// ClaudeAssistantJSON returns a Claude Code assistant entry. content
// may be a string or a block array.
func ClaudeAssistantJSON(content any, timestamp string) string {
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message": map[string]any{
			"role":    "assistant",
			"content": content,
		},
	}
	return mustMarshal(m)
}

// ClaudeAssistantModelJSON returns a Claude Code assistant entry
// carrying model and usage fields.
func ClaudeAssistantModelJSON(
	content any, timestamp, model string,
	inputTokens, outputTokens int64,
) string {
	m := map[string]any{
		"type":      "assistant",
		"timestamp": timestamp,
		"message": map[string]any{
			"role":    "assistant",
			"model":   model,
			"content": content,
			"usage": map[string]int64{
				"input_tokens":  inputTokens,
				"output_tokens": outputTokens,
			},
		},
	}
	return mustMarshal(m)
}

// ToolUseBlock builds an Anthropic-style tool_use content block.
func ToolUseBlock(id, name string, input map[string]any) map[string]any {
	return map[string]any{
		"type":  "tool_use",
		"id":    id,
		"name":  name,
		"input": input,
	}
}

// ToolResultBlock builds an Anthropic-style tool_result content
// block.
func ToolResultBlock(toolUseID string, content any) map[string]any {
	return map[string]any{
		"type":        "tool_result",
		"tool_use_id": toolUseID,
		"content":     content,
	}
}

// TextBlock builds a text content block.
func TextBlock(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// ClaudeToolResultJSON returns a Claude Code user entry carrying a
// tool_result block.
func ClaudeToolResultJSON(
	toolUseID string, content any, timestamp string,
) string {
	m := map[string]any{
		"type":      "user",
		"timestamp": timestamp,
		"message": map[string]any{
			"role": "user",
			"content": []map[string]any{
				ToolResultBlock(toolUseID, content),
			},
		},
	}
	return mustMarshal(m)
}

// CodexSessionMetaJSON returns a Codex session_meta entry.
func CodexSessionMetaJSON(
	id, cwd, originator, timestamp string,
) string {
	m := map[string]any{
		"type":      "session_meta",
		"timestamp": timestamp,
		"payload": map[string]any{
			"id":         id,
			"cwd":        cwd,
			"originator": originator,
		},
	}
	return mustMarshal(m)
}

// CodexMsgJSON returns a Codex response_item message entry.
func CodexMsgJSON(role, text, timestamp string) string {
	contentType := "output_text"
	if role == "user" {
		contentType = "input_text"
	}
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type": "message",
			"role": role,
			"content": []map[string]string{
				{
					"type": contentType,
					"text": text,
				},
			},
		},
	}
	return mustMarshal(m)
}

// CodexFunctionCallJSON returns a Codex function_call entry.
// arguments is marshaled into the JSON-encoded string form Codex
// writes.
func CodexFunctionCallJSON(
	name, callID string, arguments any, timestamp string,
) string {
	args := mustMarshal(arguments)
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":      "function_call",
			"name":      name,
			"call_id":   callID,
			"arguments": args,
		},
	}
	return mustMarshal(m)
}

// CodexFunctionOutputJSON returns a Codex function_call_output
// entry.
func CodexFunctionOutputJSON(
	callID, output, timestamp string,
) string {
	m := map[string]any{
		"type":      "response_item",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type":    "function_call_output",
			"call_id": callID,
			"output":  output,
		},
	}
	return mustMarshal(m)
}

// CodexTokenCountJSON returns a Codex event_msg token_count entry
// with cumulative totals.
func CodexTokenCountJSON(
	input, output, cached int64, timestamp string,
) string {
	m := map[string]any{
		"type":      "event_msg",
		"timestamp": timestamp,
		"payload": map[string]any{
			"type": "token_count",
			"info": map[string]any{
				"total_token_usage": map[string]int64{
					"input_tokens":        input,
					"output_tokens":       output,
					"cached_input_tokens": cached,
				},
			},
		},
	}
	return mustMarshal(m)
}

// PiHeaderJSON returns a pi session-header entry.
func PiHeaderJSON(id, cwd, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "session",
		"id":        id,
		"cwd":       cwd,
		"timestamp": timestamp,
	})
}

// PiMessageJSON returns a pi message entry. content follows the pi
// block shapes (string for users, block array otherwise).
func PiMessageJSON(role string, content any, timestamp string) string {
	return mustMarshal(map[string]any{
		"type":      "message",
		"timestamp": timestamp,
		"message": map[string]any{
			"role":    role,
			"content": content,
		},
	})
}

// JoinJSONL joins JSON lines with newlines and appends a trailing
// newline.
func JoinJSONL(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

// SessionBuilder constructs JSONL session content using a fluent
// API.
type SessionBuilder struct {
	lines []string
}

// NewSessionBuilder returns a new empty SessionBuilder.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{}
}

// AddClaudeUser appends a Claude Code user line.
func (b *SessionBuilder) AddClaudeUser(
	timestamp, content string, cwd ...string,
) *SessionBuilder {
	b.lines = append(b.lines, ClaudeUserJSON(content, timestamp, cwd...))
	return b
}

// AddClaudeUserWithSessionID appends a Claude Code user line with a
// sessionId field.
func (b *SessionBuilder) AddClaudeUserWithSessionID(
	timestamp, content, sessionID string, cwd ...string,
) *SessionBuilder {
	b.lines = append(
		b.lines,
		ClaudeUserWithSessionIDJSON(
			content, timestamp, sessionID, cwd...,
		),
	)
	return b
}

// AddClaudeAssistant appends a Claude Code assistant text line.
func (b *SessionBuilder) AddClaudeAssistant(
	timestamp, text string,
) *SessionBuilder {
	b.lines = append(b.lines, ClaudeAssistantJSON(
		[]map[string]any{TextBlock(text)}, timestamp,
	))
	return b
}

// AddClaudeToolUse appends an assistant line carrying one tool_use
// block.
func (b *SessionBuilder) AddClaudeToolUse(
	timestamp, id, name string, input map[string]any,
) *SessionBuilder {
	b.lines = append(b.lines, ClaudeAssistantJSON(
		[]map[string]any{ToolUseBlock(id, name, input)}, timestamp,
	))
	return b
}

// AddClaudeToolResult appends a user line carrying one tool_result
// block.
func (b *SessionBuilder) AddClaudeToolResult(
	timestamp, toolUseID string, content any,
) *SessionBuilder {
	b.lines = append(b.lines,
		ClaudeToolResultJSON(toolUseID, content, timestamp))
	return b
}

// AddRaw appends an arbitrary raw line.
func (b *SessionBuilder) AddRaw(line string) *SessionBuilder {
	b.lines = append(b.lines, line)
	return b
}

// String returns the JSONL content with a trailing newline.
func (b *SessionBuilder) String() string {
	return strings.Join(b.lines, "\n") + "\n"
}

func mustMarshal(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
