package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/testjsonl"
	"github.com/loglens/loglens/internal/transcript"
)

const codexSessionID = "0198a2b4-1111-7abc-8def-0123456789ab"

func codexSession() string {
	return testjsonl.JoinJSONL(
		testjsonl.CodexSessionMetaJSON(
			codexSessionID, "/tmp/proj", "codex_cli_rs", ts0),
		`{"type":"turn_context","timestamp":"`+ts0+
			`","payload":{"model":"gpt-5-codex"}}`,
		testjsonl.CodexMsgJSON("user", "Rename the config loader", ts1),
		testjsonl.CodexMsgJSON("assistant", "Looking at the loader.", ts2),
		testjsonl.CodexFunctionCallJSON("shell", "call_1",
			map[string]any{
				"command": []string{"bash", "-lc", "cat config.go"},
			}, ts3),
		testjsonl.CodexFunctionOutputJSON("call_1", "package config", ts4),
		testjsonl.CodexTokenCountJSON(900, 300, 100, ts5),
	)
}

func TestConvertCodexSession(t *testing.T) {
	path := createTestFile(t,
		"rollout-2025-06-01T10-00-00-"+codexSessionID+".jsonl",
		codexSession())
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, codexSessionID, tr.ID)
	assert.Equal(t, transcript.SourceCodex, tr.Source)
	assert.Equal(t, "/tmp/proj", tr.Cwd)
	assert.Equal(t, "gpt-5-codex", tr.Model)
	assert.Equal(t, "Rename the config loader", tr.Preview)
	assert.Equal(t, 1, tr.UserMessageCount)
	requireAscending(t, tr.Messages)

	calls := toolCalls(tr.Messages)
	require.Len(t, calls, 1)
	// bash -lc cat … unwraps and reclassifies to a Read.
	assert.Equal(t, "Read", calls[0].ToolName)
	assert.JSONEq(t, `{"file_path":"./config.go"}`,
		string(calls[0].Input))
	assert.Equal(t, `"package config"`, string(calls[0].Output))
}

func TestConvertCodexTokenCountIsSnapshot(t *testing.T) {
	content := codexSession() +
		testjsonl.CodexTokenCountJSON(1500, 500, 200, ts5) + "\n"
	path := createTestFile(t, "rollout.jsonl", content)
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)

	// Later snapshots replace earlier ones rather than accumulate.
	assert.Equal(t, int64(1500), tr.TokenUsage.InputTokens)
	assert.Equal(t, int64(500), tr.TokenUsage.OutputTokens)
	assert.Equal(t, int64(200), tr.TokenUsage.CacheReadInputTokens)
}

func TestConvertCodexApplyPatch(t *testing.T) {
	patch := "*** Begin Patch\n*** Update File: src/main.go\n" +
		"@@\n-old line\n+new line\n*** End Patch"
	content := testjsonl.JoinJSONL(
		testjsonl.CodexSessionMetaJSON(
			codexSessionID, "/tmp/proj", "codex_cli_rs", ts0),
		testjsonl.CodexMsgJSON("user", "fix main", ts1),
		testjsonl.CodexFunctionCallJSON("apply_patch", "call_9",
			map[string]any{"patch": patch}, ts2),
	)
	path := createTestFile(t, "rollout.jsonl", content)
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)

	calls := toolCalls(tr.Messages)
	require.Len(t, calls, 1)
	assert.Equal(t, "Edit", calls[0].ToolName)
	input := decodeInput(t, calls[0].Input)
	assert.Equal(t, "./src/main.go", input["file_path"])
	assert.Contains(t, input["diff"], "-old line")
}

func TestConvertCodexSkipsInstructionMessages(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.CodexSessionMetaJSON(
			codexSessionID, "/tmp/proj", "codex_cli_rs", ts0),
		testjsonl.CodexMsgJSON("user",
			"<environment_context>cwd=/tmp</environment_context>", ts1),
		testjsonl.CodexMsgJSON("user", "# AGENTS.md\ninstructions", ts1),
		testjsonl.CodexMsgJSON("user", "actual request", ts2),
	)
	path := createTestFile(t, "rollout.jsonl", content)
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, 1, tr.UserMessageCount)
	assert.Equal(t, "actual request", tr.Preview)
}

func TestConvertCodexReasoningSummary(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.CodexSessionMetaJSON(
			codexSessionID, "/tmp/proj", "codex_cli_rs", ts0),
		testjsonl.CodexMsgJSON("user", "hi", ts1),
		`{"type":"response_item","timestamp":"`+ts2+`","payload":`+
			`{"type":"reasoning","summary":[`+
			`{"type":"summary_text","text":"first"},`+
			`{"type":"summary_text","text":"second"}]}}`,
	)
	path := createTestFile(t, "rollout.jsonl", content)
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)

	require.Len(t, tr.Messages, 2)
	assert.Equal(t, transcript.MessageThinking, tr.Messages[1].Type)
	assert.Equal(t, "first\nsecond", tr.Messages[1].Text)
}

func TestConvertCodexIDFromFilename(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.CodexMsgJSON("user", "no meta line", ts0),
	)
	path := createTestFile(t,
		"rollout-2025-06-01T10-00-00-"+codexSessionID+".jsonl", content)
	tr := ConvertCodex(path, testOpts())
	require.NotNil(t, tr)
	assert.Equal(t, codexSessionID, tr.ID)
}

func TestConvertCodexNoIDIsNil(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.CodexMsgJSON("user", "hello", ts0),
	)
	path := createTestFile(t, "not-a-rollout.jsonl", content)
	assert.Nil(t, ConvertCodex(path, testOpts()))
}

func TestRolloutSessionID(t *testing.T) {
	assert.Equal(t, codexSessionID, rolloutSessionID(
		"rollout-2025-06-01T10-00-00-"+codexSessionID+".jsonl"))
	assert.Empty(t, rolloutSessionID("rollout-not-a-uuid.jsonl"))
	assert.Empty(t, rolloutSessionID("session.jsonl"))
}

func TestCodexCommandStringForms(t *testing.T) {
	cases := []struct {
		name string
		args string
		want string
	}{
		{"plain string", `{"command":"ls -la"}`, "ls -la"},
		{"argv array", `{"command":["git","status"]}`, "git status"},
		{"bash lc wrapper",
			`{"command":["bash","-lc","echo hi"]}`, "echo hi"},
		{"cmd field", `{"cmd":"pwd"}`, "pwd"},
		{"missing", `{}`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := codexCommandString(parseJSON(t, tc.args))
			assert.Equal(t, tc.want, got)
		})
	}
}
