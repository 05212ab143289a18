package convert

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/transcript"
)

const (
	ts0 = "2025-06-01T10:00:00Z"
	ts1 = "2025-06-01T10:00:05Z"
	ts2 = "2025-06-01T10:00:10Z"
	ts3 = "2025-06-01T10:00:15Z"
	ts4 = "2025-06-01T10:00:20Z"
	ts5 = "2025-06-01T10:00:25Z"
)

func createTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testOpts() Options {
	return Options{Now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

// requireAscending asserts the timestamp-non-decreasing invariant
// every converter must uphold.
func requireAscending(t *testing.T, msgs []transcript.Message) {
	t.Helper()
	for i := 1; i < len(msgs); i++ {
		require.False(t,
			msgs[i].Timestamp.Before(msgs[i-1].Timestamp),
			"message %d out of order", i)
	}
}

func parseJSON(t *testing.T, raw string) gjson.Result {
	t.Helper()
	require.True(t, gjson.Valid(raw))
	return gjson.Parse(raw)
}

func toolCalls(msgs []transcript.Message) []transcript.Message {
	var out []transcript.Message
	for _, m := range msgs {
		if m.Type == transcript.MessageToolCall {
			out = append(out, m)
		}
	}
	return out
}

func TestRegistryCoversAllSources(t *testing.T) {
	require.Len(t, Registry, len(transcript.Sources))
	for _, source := range transcript.Sources {
		def, ok := BySource(source)
		require.True(t, ok, string(source))
		require.NotNil(t, def.Convert)
		require.NotEmpty(t, def.EnvVar)
	}
}

func TestRootEnvOverride(t *testing.T) {
	def, _ := BySource(transcript.SourceClaudeCode)
	t.Setenv(def.EnvVar, "/tmp/claude-root")
	require.Equal(t, "/tmp/claude-root", Root(def))
}

func TestConvertUnknownSource(t *testing.T) {
	require.Nil(t, Convert("gemini", "/nonexistent", testOpts()))
}

func TestFillTimestampsCarriesForward(t *testing.T) {
	at := func(s string) time.Time {
		parsed, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return parsed
	}
	msgs := []transcript.Message{
		{Timestamp: at(ts0)},
		{},
		{Timestamp: at(ts2)},
		{},
	}
	fillTimestamps(msgs, at(ts5))
	require.Equal(t, at(ts0), msgs[1].Timestamp)
	require.Equal(t, at(ts2), msgs[3].Timestamp)
}

func TestFillTimestampsAllMissingUsesNow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	msgs := []transcript.Message{{}, {}}
	fillTimestamps(msgs, now)
	require.Equal(t, now, msgs[0].Timestamp)
	require.Equal(t, now, msgs[1].Timestamp)
}

func TestBuilderMergesToolResult(t *testing.T) {
	b := newBuilder()
	b.addToolCall("call_1", "Bash", []byte(`{"command":"ls"}`),
		time.Time{}, "")
	b.attachOutput("call_1", []byte(`"ok"`))

	require.Len(t, b.msgs, 1)
	require.Equal(t, `"ok"`, string(b.msgs[0].Output))
}

func TestBuilderUnmatchedResultDropped(t *testing.T) {
	b := newBuilder()
	b.attachOutput("call_x", []byte(`"ignored"`))
	require.Empty(t, b.msgs)
}

func TestBuilderCallWithoutResultKeepsNilOutput(t *testing.T) {
	b := newBuilder()
	b.addToolCall("call_1", "Read", []byte(`{}`), time.Time{}, "")
	require.Nil(t, b.msgs[0].Output)
}

func TestPrimaryModelMostTokens(t *testing.T) {
	b := newBuilder()
	b.addUsage("small", transcript.TokenUsage{InputTokens: 10})
	b.addUsage("big", transcript.TokenUsage{InputTokens: 1000})
	require.Equal(t, "big", b.primaryModel())
}

func TestPrimaryModelFirstSeenTiebreak(t *testing.T) {
	b := newBuilder()
	b.addUsage("first", transcript.TokenUsage{InputTokens: 100})
	b.addUsage("second", transcript.TokenUsage{InputTokens: 100})
	require.Equal(t, "first", b.primaryModel())
}
