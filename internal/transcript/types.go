// Package transcript defines the canonical session representation
// produced by the per-source converters. Field names and nesting are
// a cross-component contract shared with storage and reporting;
// changing a JSON tag here is a breaking change.
package transcript

import (
	"encoding/json"
	"time"
)

// Source identifies the agent tool that produced a session.
type Source string

const (
	SourceClaudeCode Source = "claude-code"
	SourceCodex      Source = "codex"
	SourceCline      Source = "cline"
	SourceOpenCode   Source = "opencode"
	SourcePi         Source = "pi"
)

// Sources lists all supported sources. Order is stable and used
// for iteration in discovery fan-out and CLI output.
var Sources = []Source{
	SourceClaudeCode,
	SourceCodex,
	SourceCline,
	SourceOpenCode,
	SourcePi,
}

// Valid reports whether s is one of the supported sources.
func (s Source) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// MessageType identifies the kind of a transcript entry.
type MessageType string

const (
	MessageUser     MessageType = "user"
	MessageThinking MessageType = "thinking"
	MessageAgent    MessageType = "agent"
	MessageToolCall MessageType = "tool-call"
)

// Message is a single entry in a transcript. A tool invocation and
// its result are merged into one tool-call message; Output stays nil
// when no result arrived by end of stream.
type Message struct {
	Type      MessageType     `json:"type"`
	ID        string          `json:"id,omitempty"`
	Text      string          `json:"text,omitempty"`
	ToolName  string          `json:"toolName,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Output    json.RawMessage `json:"output,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Model     string          `json:"model,omitempty"`
}

// GitInfo holds repository metadata resolved from a session's cwd.
type GitInfo struct {
	// RepoID is the normalized "host/owner/name" identifier
	// derived from the origin remote URL.
	RepoID string `json:"repoId"`
	Branch string `json:"branch,omitempty"`
	// RepoPath is the session cwd relative to the repository root
	// ("." when the cwd is the root itself).
	RepoPath string `json:"repoPath,omitempty"`
}

// TokenUsage holds per-model token counts.
type TokenUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens,omitempty"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens,omitempty"`
	ReasoningOutputTokens    int64 `json:"reasoningOutputTokens,omitempty"`
}

// Add accumulates o into u.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheReadInputTokens += o.CacheReadInputTokens
	u.CacheCreationInputTokens += o.CacheCreationInputTokens
	u.ReasoningOutputTokens += o.ReasoningOutputTokens
}

// IsZero reports whether all counters are zero.
func (u TokenUsage) IsZero() bool {
	return u == TokenUsage{}
}

// WorkingTreeStats summarizes file changes observed across a
// session's Write/Edit tool calls.
type WorkingTreeStats struct {
	FilesChanged  int `json:"filesChanged"`
	LinesAdded    int `json:"linesAdded"`
	LinesRemoved  int `json:"linesRemoved"`
	LinesModified int `json:"linesModified"`
}

// Transcript is the canonical representation of one agent session,
// immutable once produced. Messages are ordered by event time
// ascending; Timestamp equals the maximum event time observed.
type Transcript struct {
	ID               string                `json:"id"`
	Source           Source                `json:"source"`
	Cwd              string                `json:"cwd,omitempty"`
	Git              *GitInfo              `json:"git"`
	Timestamp        time.Time             `json:"timestamp"`
	Preview          string                `json:"preview,omitempty"`
	Model            string                `json:"model,omitempty"`
	Messages         []Message             `json:"messages"`
	TokenUsage       TokenUsage            `json:"tokenUsage"`
	ModelUsage       map[string]TokenUsage `json:"modelUsage,omitempty"`
	CostUSD          float64               `json:"costUsd"`
	MessageCount     int                   `json:"messageCount"`
	UserMessageCount int                   `json:"userMessageCount"`
	ToolCount        int                   `json:"toolCount"`
	Stats            *WorkingTreeStats     `json:"stats,omitempty"`
}

// Finalize recomputes the derived counters from Messages and lifts
// Timestamp to the latest message time when it lags behind. Called
// by every converter as its last step.
func (t *Transcript) Finalize() {
	t.MessageCount = len(t.Messages)
	t.UserMessageCount = 0
	t.ToolCount = 0
	for _, m := range t.Messages {
		switch m.Type {
		case MessageUser:
			t.UserMessageCount++
		case MessageToolCall:
			t.ToolCount++
		}
		if !m.Timestamp.IsZero() && m.Timestamp.After(t.Timestamp) {
			t.Timestamp = m.Timestamp
		}
	}
}

// Discovered is the lightweight pre-conversion record produced by
// the discovery scanner. RepoID is nil until a full conversion runs
// (git lookup is too costly to do for every candidate) and Stats is
// nil because change statistics are never computed during discovery.
type Discovered struct {
	ID        string            `json:"id"`
	Source    Source            `json:"source"`
	Path      string            `json:"path"`
	Timestamp time.Time         `json:"timestamp"`
	Preview   string            `json:"preview"`
	Cwd       string            `json:"cwd,omitempty"`
	RepoID    *string           `json:"repoId"`
	Stats     *WorkingTreeStats `json:"stats"`
}
