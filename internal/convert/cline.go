package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/gitinfo"
	"github.com/loglens/loglens/internal/transcript"
)

// Cline persists each task as a directory holding
// api_conversation_history.json (Anthropic-style role/content
// messages, no timestamps) and ui_messages.json (timestamped UI
// rows whose api_req_started entries embed token and cost JSON).
const (
	clineAPIHistoryFile = "api_conversation_history.json"
	clineUIMessagesFile = "ui_messages.json"
)

// ConvertCline converts one Cline task directory. The task id is
// the directory name (a millisecond timestamp in practice).
func ConvertCline(path string, opts Options) *transcript.Transcript {
	taskID := filepath.Base(path)
	if taskID == "" || taskID == "." || taskID == string(filepath.Separator) {
		return nil
	}

	history, err := os.ReadFile(
		filepath.Join(path, clineAPIHistoryFile),
	)
	if err != nil {
		return nil
	}
	parsed := gjson.ParseBytes(history)
	if !parsed.IsArray() {
		return nil
	}

	ui := readClineUI(filepath.Join(path, clineUIMessagesFile))

	b := newBuilder()
	var cwd string
	reqIdx := 0

	parsed.ForEach(func(i, msg gjson.Result) bool {
		role := msg.Get("role").Str
		content := msg.Get("content")

		var ts time.Time
		switch role {
		case "user":
			if i.Int() == 0 && !ui.firstTs.IsZero() {
				ts = ui.firstTs
			}
		case "assistant":
			// Each assistant turn corresponds to one API
			// request row in the UI log.
			if reqIdx < len(ui.reqTimes) {
				ts = ui.reqTimes[reqIdx]
			}
			reqIdx++
		default:
			return true
		}

		b.addClineMessage(role, content, ts, ui.model)
		return true
	})

	if len(b.msgs) == 0 {
		return nil
	}

	b.addUsage(ui.usageModel(), ui.usage)
	cwd = clineCwd(parsed)

	t := b.finish(
		taskID, transcript.SourceCline,
		cwd, gitinfo.Resolve(cwd), opts,
	)
	// The UI log carries the provider-reported spend, which beats
	// a rate-table estimate for models we have no rates for.
	if t.CostUSD == 0 && ui.cost > 0 {
		t.CostUSD = ui.cost
	}
	return t
}

// addClineMessage walks one history message. Native tool_use
// blocks go through the shared block walker; older Cline versions
// instead inline tools as XML inside assistant text and report
// results as bracketed user text, so both shapes are handled.
func (b *builder) addClineMessage(
	role string, content gjson.Result, ts time.Time, model string,
) {
	if content.Type == gjson.String {
		b.addClineText(role, content.Str, ts, model)
		return
	}
	if !content.IsArray() {
		return
	}
	hasTyped := false
	content.ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").Str {
		case "tool_use", "tool_result", "thinking":
			hasTyped = true
			return false
		}
		return true
	})
	if hasTyped {
		b.addContentBlocks(role, content, ts, model)
		return
	}
	content.ForEach(func(_, block gjson.Result) bool {
		if block.Get("type").Str == "text" {
			b.addClineText(role, block.Get("text").Str, ts, model)
		}
		return true
	})
}

func (b *builder) addClineText(
	role, text string, ts time.Time, model string,
) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if role == "user" {
		if out, ok := clineToolResult(text); ok {
			if enc, err := json.Marshal(out); err == nil {
				b.attachOutput(b.lastPendingCallID(), enc)
			}
			return
		}
		if task, ok := clineTaskText(text); ok {
			b.setPreview(task)
			text = task
		} else if strings.HasPrefix(text, "<environment_details>") ||
			strings.HasPrefix(text, "[TASK RESUMPTION]") {
			return
		}
		b.add(transcript.Message{
			Type:      transcript.MessageUser,
			Text:      text,
			Timestamp: ts,
			Model:     model,
		})
		return
	}

	// Assistant text may end with one inline XML tool invocation.
	plain, tool, input := splitClineToolXML(text)
	if strings.TrimSpace(plain) != "" {
		b.add(transcript.Message{
			Type:      transcript.MessageAgent,
			Text:      plain,
			Timestamp: ts,
			Model:     model,
		})
	}
	if tool != "" {
		id := b.nextSyntheticCallID()
		b.addToolCall(id, tool, input, ts, model)
	}
}

// lastPendingCallID returns the id of the most recent tool call
// that has no output yet, or "".
func (b *builder) lastPendingCallID() string {
	for i := len(b.msgs) - 1; i >= 0; i-- {
		m := b.msgs[i]
		if m.Type == transcript.MessageToolCall && m.Output == nil {
			return m.ID
		}
	}
	return ""
}

func (b *builder) nextSyntheticCallID() string {
	return "cline-" + strconv.Itoa(len(b.msgs))
}

// clineTaskText extracts the user prompt from a <task> envelope.
func clineTaskText(text string) (string, bool) {
	const open, closing = "<task>", "</task>"
	i := strings.Index(text, open)
	if i < 0 {
		return "", false
	}
	rest := text[i+len(open):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:j]), true
}

// clineToolResult recognizes "[tool_name for 'x'] Result:" user
// text, which carries the previous tool call's output.
func clineToolResult(text string) (string, bool) {
	if !strings.HasPrefix(text, "[") {
		return "", false
	}
	i := strings.Index(text, "] Result:")
	if i < 0 {
		return "", false
	}
	return strings.TrimSpace(text[i+len("] Result:"):]), true
}

// clineToolTags maps Cline's XML tool tags to their argument tags.
var clineToolTags = []struct {
	tag  string
	args []string
}{
	{"execute_command", []string{"command"}},
	{"read_file", []string{"path"}},
	{"write_to_file", []string{"path", "content"}},
	{"replace_in_file", []string{"path", "diff"}},
	{"search_files", []string{"path", "regex", "file_pattern"}},
	{"list_files", []string{"path"}},
}

// splitClineToolXML splits assistant text into its prose prefix and
// an optional trailing tool invocation.
func splitClineToolXML(text string) (string, string, json.RawMessage) {
	for _, def := range clineToolTags {
		open := "<" + def.tag + ">"
		closing := "</" + def.tag + ">"
		i := strings.Index(text, open)
		if i < 0 {
			continue
		}
		j := strings.Index(text[i:], closing)
		if j < 0 {
			continue
		}
		body := text[i+len(open) : i+j]
		args := map[string]string{}
		for _, arg := range def.args {
			if v, ok := xmlInner(body, arg); ok {
				args[arg] = v
			}
		}
		tool, input := rewriteClineXMLCall(def.tag, args)
		return strings.TrimSpace(text[:i]), tool, input
	}
	return text, "", nil
}

// rewriteClineXMLCall maps an XML invocation onto the canonical
// tool vocabulary, routing commands through shell reclassification.
func rewriteClineXMLCall(
	tag string, args map[string]string,
) (string, json.RawMessage) {
	switch tag {
	case "execute_command":
		cmd := args["command"]
		if cmd != "" {
			if tool, input, ok := ReclassifyShell(cmd); ok {
				return tool, input
			}
		}
		return "Bash", marshalInput(map[string]string{
			"command": cmd,
		})
	case "read_file":
		return "Read", marshalInput(map[string]string{
			"file_path": args["path"],
		})
	case "write_to_file":
		return "Write", marshalInput(map[string]string{
			"file_path": args["path"],
			"content":   args["content"],
		})
	case "replace_in_file":
		return "Edit", marshalInput(map[string]string{
			"file_path": args["path"],
			"diff":      args["diff"],
		})
	default:
		return normalizeToolName(tag), marshalInput(args)
	}
}

func marshalInput(args map[string]string) json.RawMessage {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil
	}
	return raw
}

func xmlInner(body, tag string) (string, bool) {
	open := "<" + tag + ">"
	closing := "</" + tag + ">"
	i := strings.Index(body, open)
	if i < 0 {
		return "", false
	}
	j := strings.Index(body[i:], closing)
	if j < 0 {
		return "", false
	}
	return strings.TrimSpace(body[i+len(open) : i+j]), true
}

// clineCwd pulls the working directory out of the first
// environment_details block in the history.
func clineCwd(parsed gjson.Result) string {
	const marker = "# Current Working Directory ("
	cwd := ""
	parsed.ForEach(func(_, msg gjson.Result) bool {
		msg.Get("content").ForEach(func(_, block gjson.Result) bool {
			text := block.Get("text").Str
			i := strings.Index(text, marker)
			if i < 0 {
				return true
			}
			rest := text[i+len(marker):]
			if j := strings.Index(rest, ")"); j > 0 {
				cwd = rest[:j]
				return false
			}
			return true
		})
		return cwd == ""
	})
	return cwd
}

// clineUI aggregates what the converter needs from ui_messages.json.
type clineUI struct {
	firstTs  time.Time
	reqTimes []time.Time
	usage    transcript.TokenUsage
	cost     float64
	model    string
}

func (u clineUI) usageModel() string {
	if u.model != "" {
		return u.model
	}
	return "unknown"
}

func readClineUI(path string) clineUI {
	var ui clineUI
	data, err := os.ReadFile(path)
	if err != nil {
		return ui
	}
	rows := gjson.ParseBytes(data)
	if !rows.IsArray() {
		return ui
	}
	rows.ForEach(func(_, row gjson.Result) bool {
		ts := millisToTime(row.Get("ts").Int())
		if ui.firstTs.IsZero() && !ts.IsZero() {
			ui.firstTs = ts
		}
		if row.Get("say").Str != "api_req_started" {
			return true
		}
		ui.reqTimes = append(ui.reqTimes, ts)
		info := gjson.Parse(row.Get("text").Str)
		ui.usage.Add(transcript.TokenUsage{
			InputTokens:              info.Get("tokensIn").Int(),
			OutputTokens:             info.Get("tokensOut").Int(),
			CacheReadInputTokens:     info.Get("cacheReads").Int(),
			CacheCreationInputTokens: info.Get("cacheWrites").Int(),
		})
		ui.cost += info.Get("cost").Float()
		if m := info.Get("model").Str; m != "" {
			ui.model = m
		}
		return true
	})
	return ui
}
