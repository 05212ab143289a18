package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/gitinfo"
	"github.com/loglens/loglens/internal/transcript"
)

// Codex JSONL entry types.
const (
	codexTypeSessionMeta  = "session_meta"
	codexTypeResponseItem = "response_item"
	codexTypeEventMsg     = "event_msg"
	codexTypeTurnContext  = "turn_context"
)

// rolloutRe matches a Codex rollout filename stem and captures the
// trailing UUID.
var rolloutRe = regexp.MustCompile(
	`^rollout-.*-([0-9a-fA-F]{8}-[0-9a-fA-F]{4}-` +
		`[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12})$`,
)

// rolloutSessionID extracts and validates the UUID embedded in a
// rollout filename.
func rolloutSessionID(filename string) string {
	stem := strings.TrimSuffix(filename, ".jsonl")
	m := rolloutRe.FindStringSubmatch(stem)
	if m == nil {
		return ""
	}
	if _, err := uuid.Parse(m[1]); err != nil {
		return ""
	}
	return m[1]
}

// ConvertCodex converts a Codex rollout JSONL session file.
func ConvertCodex(path string, opts Options) *transcript.Transcript {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	b := newBuilder()
	var (
		sessionID, cwd, model string
		branch                string
		totals                transcript.TokenUsage
	)

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
		payload := gjson.Get(line, "payload")

		switch gjson.Get(line, "type").Str {
		case codexTypeSessionMeta:
			sessionID = payload.Get("id").Str
			cwd = payload.Get("cwd").Str
			branch = payload.Get("git.branch").Str

		case codexTypeTurnContext:
			if m := payload.Get("model").Str; m != "" {
				model = m
			}

		case codexTypeEventMsg:
			if payload.Get("type").Str == "token_count" {
				// Cumulative totals: keep the latest snapshot.
				if u := codexTokenTotals(payload); !u.IsZero() {
					totals = u
				}
			}

		case codexTypeResponseItem:
			b.addCodexResponseItem(payload, ts, model)
		}
	}

	if sessionID == "" {
		sessionID = rolloutSessionID(filepath.Base(path))
	}
	if sessionID == "" {
		return nil
	}
	if len(b.msgs) == 0 {
		return nil
	}

	usageModel := model
	if usageModel == "" {
		usageModel = "unknown"
	}
	b.addUsage(usageModel, totals)

	git := gitinfo.Resolve(cwd)
	if git == nil && branch != "" {
		git = &transcript.GitInfo{Branch: branch}
	}

	return b.finish(
		sessionID, transcript.SourceCodex, cwd, git, opts,
	)
}

func codexTokenTotals(payload gjson.Result) transcript.TokenUsage {
	u := payload.Get("info.total_token_usage")
	if !u.Exists() {
		u = payload.Get("info.last_token_usage")
	}
	return transcript.TokenUsage{
		InputTokens:           u.Get("input_tokens").Int(),
		OutputTokens:          u.Get("output_tokens").Int(),
		CacheReadInputTokens:  u.Get("cached_input_tokens").Int(),
		ReasoningOutputTokens: u.Get("reasoning_output_tokens").Int(),
	}
}

// addCodexResponseItem routes one response_item payload into the
// builder.
func (b *builder) addCodexResponseItem(
	payload gjson.Result, ts time.Time, model string,
) {
	switch payload.Get("type").Str {
	case "message":
		role := payload.Get("role").Str
		if role != "user" && role != "assistant" {
			return
		}
		text := codexContentText(payload.Get("content"))
		if strings.TrimSpace(text) == "" {
			return
		}
		if role == "user" && isCodexSystemText(text) {
			return
		}
		msgType := transcript.MessageAgent
		if role == "user" {
			msgType = transcript.MessageUser
			b.setPreview(text)
		}
		b.add(transcript.Message{
			Type:      msgType,
			Text:      text,
			Timestamp: ts,
			Model:     model,
		})

	case "reasoning":
		var parts []string
		payload.Get("summary").ForEach(
			func(_, block gjson.Result) bool {
				if t := block.Get("text").Str; t != "" {
					parts = append(parts, t)
				}
				return true
			},
		)
		if len(parts) == 0 {
			return
		}
		b.add(transcript.Message{
			Type:      transcript.MessageThinking,
			Text:      strings.Join(parts, "\n"),
			Timestamp: ts,
			Model:     model,
		})

	case "function_call":
		name := payload.Get("name").Str
		if name == "" {
			return
		}
		tool, input := rewriteCodexCall(
			name, payload.Get("arguments"),
		)
		b.addToolCall(
			payload.Get("call_id").Str, tool, input, ts, model,
		)

	case "function_call_output":
		b.attachOutput(
			payload.Get("call_id").Str,
			rawJSON(payload.Get("output")),
		)
	}
}

// rewriteCodexCall normalizes a Codex function call. arguments is
// usually a JSON-encoded string; shell calls carry an argv array or
// a command string that reclassification may lift into a file
// operation, and apply_patch payloads become Edits.
func rewriteCodexCall(
	name string, arguments gjson.Result,
) (string, json.RawMessage) {
	args := arguments
	if args.Type == gjson.String && gjson.Valid(args.Str) {
		args = gjson.Parse(args.Str)
	}

	switch normalizeToolName(name) {
	case "Bash":
		if cmd := codexCommandString(args); cmd != "" {
			if tool, input, ok := ReclassifyShell(cmd); ok {
				return tool, input
			}
		}
	case "Edit":
		if patch := args.Get("patch").Str; patch != "" {
			if tool, input, ok := ReclassifyShell(patch); ok {
				return tool, input
			}
		}
	}
	return normalizeToolName(name), rawJSON(args)
}

// codexCommandString flattens a shell call's command field, which
// is either a string or an argv array like ["bash","-lc","…"].
func codexCommandString(args gjson.Result) string {
	cmd := args.Get("command")
	if !cmd.Exists() {
		cmd = args.Get("cmd")
	}
	if cmd.Type == gjson.String {
		return cmd.Str
	}
	if !cmd.IsArray() {
		return ""
	}
	var argv []string
	cmd.ForEach(func(_, v gjson.Result) bool {
		argv = append(argv, v.Str)
		return true
	})
	if len(argv) == 0 {
		return ""
	}
	// bash -lc wrappers carry the real command as the last element.
	if len(argv) >= 3 &&
		(argv[0] == "bash" || argv[0] == "zsh" || argv[0] == "sh") {
		for _, a := range argv[1 : len(argv)-1] {
			if a == "-c" || a == "-lc" || a == "-cl" {
				return argv[len(argv)-1]
			}
		}
	}
	return strings.Join(argv, " ")
}

// codexContentText joins the text blocks of a response message.
func codexContentText(content gjson.Result) string {
	var texts []string
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "input_text", "output_text", "text":
			if t := block.Get("text").Str; t != "" {
				texts = append(texts, t)
			}
		}
		return true
	})
	return strings.Join(texts, "\n")
}

func isCodexSystemText(content string) bool {
	return strings.HasPrefix(content, "# AGENTS.md") ||
		strings.HasPrefix(content, "<environment_context>") ||
		strings.HasPrefix(content, "<user_instructions>") ||
		strings.HasPrefix(content, "<INSTRUCTIONS>")
}
