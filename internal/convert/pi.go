package convert

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/gitinfo"
	"github.com/loglens/loglens/internal/transcript"
)

// ConvertPi converts a pi-agent JSONL session file. The file opens
// with a session-header entry followed by message, model_change,
// and compaction entries.
func ConvertPi(path string, opts Options) *transcript.Transcript {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	lr := newLineReader(f, maxLineSize)

	header, ok := lr.next()
	if !ok || !gjson.Valid(header) {
		return nil
	}
	if gjson.Get(header, "type").Str != "session" {
		return nil
	}

	sessionID := gjson.Get(header, "id").Str
	cwd := gjson.Get(header, "cwd").Str

	b := newBuilder()
	model := ""

	for {
		line, ok := lr.next()
		if !ok {
			break
		}
		if !gjson.Valid(line) {
			continue
		}

		switch gjson.Get(line, "type").Str {
		case "message":
			msg := gjson.Get(line, "message")
			ts := piTimestamp(line)
			if m := msg.Get("model").Str; m != "" {
				model = m
			}

			switch msg.Get("role").Str {
			case "user":
				text := piTextContent(msg.Get("content"))
				if strings.TrimSpace(text) == "" {
					continue
				}
				b.setPreview(text)
				b.add(transcript.Message{
					Type:      transcript.MessageUser,
					Text:      text,
					Timestamp: ts,
					Model:     model,
				})

			case "assistant":
				b.addPiAssistant(msg, ts, model)
				b.addUsage(piUsageModel(model),
					piUsage(msg.Get("usage")))

			case "toolResult":
				b.attachOutput(
					msg.Get("toolCallId").Str,
					rawJSON(msg.Get("content")),
				)
			}

		case "model_change":
			provider := gjson.Get(line, "provider").Str
			modelID := gjson.Get(line, "modelId").Str
			if modelID != "" {
				model = modelID
				if provider != "" {
					model = provider + "/" + modelID
				}
			}

		case "compaction":
			// Compaction summaries are synthetic, not user input.
			continue
		}
	}

	if sessionID == "" {
		sessionID = strings.TrimSuffix(
			filepath.Base(path), ".jsonl",
		)
	}
	if sessionID == "" || len(b.msgs) == 0 {
		return nil
	}

	return b.finish(
		sessionID, transcript.SourcePi,
		cwd, gitinfo.Resolve(cwd), opts,
	)
}

// addPiAssistant walks an assistant message's content blocks.
// Redacted thinking blocks carry an empty thinking field and are
// dropped.
func (b *builder) addPiAssistant(
	msg gjson.Result, ts time.Time, model string,
) {
	msg.Get("content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "text":
			if t := block.Get("text").Str; strings.TrimSpace(t) != "" {
				b.add(transcript.Message{
					Type:      transcript.MessageAgent,
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
		case "toolCall":
			name := block.Get("name").Str
			if name == "" {
				break
			}
			tool, input := rewriteToolUse(
				name, block.Get("arguments"),
			)
			b.addToolCall(
				block.Get("id").Str, tool, input, ts, model,
			)
		}
		return true
	})
}

// piTextContent flattens a user message's content, which is either
// a string or an array of text blocks.
func piTextContent(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	var parts []string
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "text" {
			if t := block.Get("text").Str; t != "" {
				parts = append(parts, t)
			}
		}
		return true
	})
	return strings.Join(parts, "\n")
}

func piUsageModel(model string) string {
	if model == "" {
		return "unknown"
	}
	return model
}

// piUsage reads an assistant message's usage block.
func piUsage(u gjson.Result) transcript.TokenUsage {
	return transcript.TokenUsage{
		InputTokens:              u.Get("input").Int(),
		OutputTokens:             u.Get("output").Int(),
		CacheReadInputTokens:     u.Get("cacheRead").Int(),
		CacheCreationInputTokens: u.Get("cacheWrite").Int(),
	}
}

// piTimestamp reads an entry's timestamp: the top-level ISO field,
// then message.timestamp as Unix milliseconds.
func piTimestamp(line string) time.Time {
	if ts := parseTimestamp(gjson.Get(line, "timestamp").Str); !ts.IsZero() {
		return ts
	}
	return millisToTime(gjson.Get(line, "message.timestamp").Int())
}
