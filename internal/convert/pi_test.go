package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/testjsonl"
	"github.com/loglens/loglens/internal/transcript"
)

// piToolResultJSON builds a toolResult entry; the shared builder has
// no pi-specific helper for this shape.
func piToolResultJSON(callID, content, timestamp string) string {
	return `{"type":"message","timestamp":"` + timestamp +
		`","message":{"role":"toolResult","toolCallId":"` + callID +
		`","content":"` + content + `"}}`
}

func TestConvertPiSession(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiHeaderJSON("pi-sess-1", "/tmp/proj", ts0),
		`{"type":"model_change","timestamp":"`+ts0+
			`","provider":"anthropic","modelId":"claude-sonnet-4"}`,
		testjsonl.PiMessageJSON("user", "Summarize the repo", ts1),
		`{"type":"message","timestamp":"`+ts2+
			`","message":{"role":"assistant","content":[`+
			`{"type":"thinking","thinking":"scan the tree first"},`+
			`{"type":"toolCall","id":"tc-1","name":"bash",`+
			`"arguments":{"command":"ls -la"}}],`+
			`"usage":{"input":500,"output":150,"cacheRead":40}}}`,
		piToolResultJSON("tc-1", "total 12", ts3),
		testjsonl.PiMessageJSON("assistant", []map[string]any{
			{"type": "text", "text": "Small Go repo with two packages."},
		}, ts4),
	)
	path := createTestFile(t, "pi-sess-1.jsonl", content)
	tr := ConvertPi(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, "pi-sess-1", tr.ID)
	assert.Equal(t, transcript.SourcePi, tr.Source)
	assert.Equal(t, "/tmp/proj", tr.Cwd)
	assert.Equal(t, "Summarize the repo", tr.Preview)
	assert.Equal(t, 1, tr.UserMessageCount)
	requireAscending(t, tr.Messages)

	require.Len(t, tr.Messages, 4)
	assert.Equal(t, transcript.MessageUser, tr.Messages[0].Type)
	assert.Equal(t, transcript.MessageThinking, tr.Messages[1].Type)

	calls := toolCalls(tr.Messages)
	require.Len(t, calls, 1)
	assert.Equal(t, "Bash", calls[0].ToolName)
	assert.Equal(t, `"total 12"`, string(calls[0].Output))

	assert.Equal(t, int64(500), tr.TokenUsage.InputTokens)
	assert.Equal(t, int64(150), tr.TokenUsage.OutputTokens)
	assert.Equal(t, int64(40), tr.TokenUsage.CacheReadInputTokens)
}

func TestConvertPiModelChange(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiHeaderJSON("pi-sess-2", "/tmp/proj", ts0),
		`{"type":"model_change","timestamp":"`+ts0+
			`","provider":"anthropic","modelId":"claude-sonnet-4"}`,
		testjsonl.PiMessageJSON("user", "hello", ts1),
		testjsonl.PiMessageJSON("assistant", []map[string]any{
			{"type": "text", "text": "hi"},
		}, ts2),
	)
	path := createTestFile(t, "pi-sess-2.jsonl", content)
	tr := ConvertPi(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, "anthropic/claude-sonnet-4", tr.Messages[1].Model)
}

func TestConvertPiUserBlockContent(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiHeaderJSON("pi-sess-3", "/tmp/proj", ts0),
		testjsonl.PiMessageJSON("user", []map[string]any{
			{"type": "text", "text": "first line"},
			{"type": "text", "text": "second line"},
		}, ts1),
	)
	path := createTestFile(t, "pi-sess-3.jsonl", content)
	tr := ConvertPi(path, testOpts())
	require.NotNil(t, tr)

	require.Len(t, tr.Messages, 1)
	assert.Equal(t, "first line\nsecond line", tr.Messages[0].Text)
}

func TestConvertPiSkipsCompaction(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiHeaderJSON("pi-sess-4", "/tmp/proj", ts0),
		testjsonl.PiMessageJSON("user", "real prompt", ts1),
		`{"type":"compaction","timestamp":"`+ts2+
			`","summary":"earlier context"}`,
	)
	path := createTestFile(t, "pi-sess-4.jsonl", content)
	tr := ConvertPi(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, 1, tr.MessageCount)
	assert.Equal(t, "real prompt", tr.Preview)
}

func TestConvertPiRequiresHeader(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiMessageJSON("user", "no header", ts0),
	)
	path := createTestFile(t, "pi-bad.jsonl", content)
	assert.Nil(t, ConvertPi(path, testOpts()))
}

func TestConvertPiIDFromFilename(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.PiHeaderJSON("", "/tmp/proj", ts0),
		testjsonl.PiMessageJSON("user", "hello", ts1),
	)
	path := createTestFile(t, "fallback-id.jsonl", content)
	tr := ConvertPi(path, testOpts())
	require.NotNil(t, tr)
	assert.Equal(t, "fallback-id", tr.ID)
}
