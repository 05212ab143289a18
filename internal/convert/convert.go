// Package convert turns each agent tool's native session log into
// the canonical transcript representation. Conversion fails closed:
// structurally invalid input yields nil, and malformed individual
// lines are skipped, so one corrupt file never aborts a batch.
package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"github.com/loglens/loglens/internal/transcript"
)

// Options carries caller-supplied conversion inputs.
type Options struct {
	// Now is the fallback timestamp used only when a session
	// contains no real timestamps at all.
	Now time.Time
	// Pricing maps model identifiers to per-token rates. Models
	// absent from the table cost zero.
	Pricing transcript.PricingTable
}

// ConvertFunc transforms one source file (or database) into a
// canonical transcript. nil means the input was not a usable
// session; it is never an error the caller should fail on.
type ConvertFunc func(path string, opts Options) *transcript.Transcript

// SourceDef describes a supported source's filesystem layout and
// converter.
type SourceDef struct {
	Source      transcript.Source
	DisplayName string
	EnvVar      string // env var overriding the discovery root
	DefaultPath string // root relative to $HOME ("" = per-OS, see DefaultRoot)
	Convert     ConvertFunc
}

// Registry lists all supported sources. Order is stable and used
// for discovery fan-out and CLI iteration.
var Registry = []SourceDef{
	{
		Source:      transcript.SourceClaudeCode,
		DisplayName: "Claude Code",
		EnvVar:      "LOGLENS_CLAUDE_DIR",
		DefaultPath: ".claude/projects",
		Convert:     ConvertClaude,
	},
	{
		Source:      transcript.SourceCodex,
		DisplayName: "Codex",
		EnvVar:      "LOGLENS_CODEX_DIR",
		DefaultPath: ".codex/sessions",
		Convert:     ConvertCodex,
	},
	{
		Source:      transcript.SourceCline,
		DisplayName: "Cline",
		EnvVar:      "LOGLENS_CLINE_DIR",
		Convert:     ConvertCline,
	},
	{
		Source:      transcript.SourceOpenCode,
		DisplayName: "OpenCode",
		EnvVar:      "LOGLENS_OPENCODE_DB",
		DefaultPath: ".local/share/opencode/opencode.db",
		Convert:     ConvertOpenCode,
	},
	{
		Source:      transcript.SourcePi,
		DisplayName: "Pi",
		EnvVar:      "LOGLENS_PI_DIR",
		DefaultPath: ".pi/agent/sessions",
		Convert:     ConvertPi,
	},
}

// BySource returns the SourceDef for the given source.
func BySource(s transcript.Source) (SourceDef, bool) {
	for _, def := range Registry {
		if def.Source == s {
			return def, true
		}
	}
	return SourceDef{}, false
}

// Root resolves a source's discovery root: the env override when
// set, otherwise the well-known path under the user's home dir.
func Root(def SourceDef) string {
	if v := os.Getenv(def.EnvVar); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	if def.DefaultPath != "" {
		return filepath.Join(home, def.DefaultPath)
	}
	if def.Source == transcript.SourceCline {
		return filepath.Join(home, clineStoragePath(), "tasks")
	}
	return ""
}

// clineStoragePath returns the VS Code global-storage path of the
// Cline extension for the current OS, relative to $HOME.
func clineStoragePath() string {
	const ext = "saoudrizwan.claude-dev"
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(
			"Library", "Application Support", "Code",
			"User", "globalStorage", ext,
		)
	case "windows":
		return filepath.Join(
			"AppData", "Roaming", "Code",
			"User", "globalStorage", ext,
		)
	default:
		return filepath.Join(
			".config", "Code", "User", "globalStorage", ext,
		)
	}
}

// Convert dispatches to the source's converter. Unknown sources
// yield nil.
func Convert(
	source transcript.Source, path string, opts Options,
) *transcript.Transcript {
	def, ok := BySource(source)
	if !ok {
		return nil
	}
	return def.Convert(path, opts)
}

// builder accumulates canonical messages and usage while a
// converter scans its input. It owns call/result merging: a tool
// call and its later result become one message, matched by the
// provider-assigned call id.
type builder struct {
	msgs     []transcript.Message
	byCallID map[string]int
	usage    map[string]transcript.TokenUsage
	// modelOrder remembers first-seen order for the primary-model
	// tiebreak.
	modelOrder []string
	preview    string
}

func newBuilder() *builder {
	return &builder{
		byCallID: make(map[string]int),
		usage:    make(map[string]transcript.TokenUsage),
	}
}

func (b *builder) add(m transcript.Message) {
	b.msgs = append(b.msgs, m)
}

// addToolCall appends a tool-call message and indexes it by call id
// so a later result can be merged in.
func (b *builder) addToolCall(
	id, name string, input json.RawMessage,
	ts time.Time, model string,
) {
	b.msgs = append(b.msgs, transcript.Message{
		Type:      transcript.MessageToolCall,
		ID:        id,
		ToolName:  name,
		Input:     input,
		Timestamp: ts,
		Model:     model,
	})
	if id != "" {
		b.byCallID[id] = len(b.msgs) - 1
	}
}

// attachOutput merges a tool result into its pending call. Results
// with no matching call are dropped; calls with no result keep a
// nil Output.
func (b *builder) attachOutput(callID string, output json.RawMessage) {
	if callID == "" || len(output) == 0 {
		return
	}
	if i, ok := b.byCallID[callID]; ok {
		b.msgs[i].Output = output
	}
}

func (b *builder) addUsage(model string, u transcript.TokenUsage) {
	if u.IsZero() {
		return
	}
	if _, seen := b.usage[model]; !seen {
		b.modelOrder = append(b.modelOrder, model)
	}
	acc := b.usage[model]
	acc.Add(u)
	b.usage[model] = acc
}

func (b *builder) setPreview(text string) {
	if b.preview != "" {
		return
	}
	b.preview = CleanPreview(text)
}

// primaryModel picks the model with the most total tokens,
// first-seen order breaking ties.
func (b *builder) primaryModel() string {
	var best string
	var bestTotal int64 = -1
	for _, model := range b.modelOrder {
		u := b.usage[model]
		total := u.InputTokens + u.OutputTokens +
			u.CacheReadInputTokens + u.CacheCreationInputTokens
		if total > bestTotal {
			best, bestTotal = model, total
		}
	}
	return best
}

// finish orders messages by event time and assembles the final
// transcript. Messages without a timestamp inherit the previous
// message's before sorting so they stay in place.
func (b *builder) finish(
	id string, source transcript.Source,
	cwd string, git *transcript.GitInfo, opts Options,
) *transcript.Transcript {
	fillTimestamps(b.msgs, opts.Now)
	sort.SliceStable(b.msgs, func(i, j int) bool {
		return b.msgs[i].Timestamp.Before(b.msgs[j].Timestamp)
	})

	t := &transcript.Transcript{
		ID:       id,
		Source:   source,
		Cwd:      cwd,
		Git:      git,
		Preview:  b.preview,
		Model:    b.primaryModel(),
		Messages: b.msgs,
		Stats:    deriveStats(b.msgs),
	}
	if len(b.usage) > 0 {
		t.ModelUsage = b.usage
		for _, u := range b.usage {
			t.TokenUsage.Add(u)
		}
		t.CostUSD = opts.Pricing.Cost(b.usage)
	}
	t.Finalize()
	return t
}

// fillTimestamps carries the previous event time into messages that
// have none. When no message carries a real timestamp, now is used
// for all of them (and only then).
func fillTimestamps(msgs []transcript.Message, now time.Time) {
	var last time.Time
	any := false
	for _, m := range msgs {
		if !m.Timestamp.IsZero() {
			any = true
			break
		}
	}
	if !any {
		for i := range msgs {
			msgs[i].Timestamp = now
		}
		return
	}
	for i := range msgs {
		if msgs[i].Timestamp.IsZero() {
			msgs[i].Timestamp = last
		} else {
			last = msgs[i].Timestamp
		}
	}
}
