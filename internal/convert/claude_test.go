package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/testjsonl"
	"github.com/loglens/loglens/internal/transcript"
)

// crudSession is a session with one user request and four tool
// calls: a shell read, a heredoc write, an edit, and a test run.
func crudSession() string {
	b := testjsonl.NewSessionBuilder()
	b.AddClaudeUserWithSessionID(ts0,
		"Create a CRUD endpoint for notes\n"+
			"<system-reminder>internal note</system-reminder>",
		"sess-crud", "/tmp/proj")
	b.AddRaw(testjsonl.ClaudeAssistantModelJSON(
		[]map[string]any{
			testjsonl.TextBlock("Starting with the existing routes."),
			testjsonl.ToolUseBlock("toolu_1", "Bash",
				map[string]any{"command": "cat routes.go"}),
		}, ts1, "claude-sonnet-4", 120, 40))
	b.AddClaudeToolResult(ts2, "toolu_1", "package routes")
	b.AddRaw(testjsonl.ClaudeAssistantModelJSON(
		[]map[string]any{
			testjsonl.ToolUseBlock("toolu_2", "Bash",
				map[string]any{
					"command": "cat <<'EOF' > notes.go\npackage notes\nEOF",
				}),
		}, ts3, "claude-sonnet-4", 200, 80))
	b.AddClaudeToolResult(ts4, "toolu_2", "")
	b.AddRaw(testjsonl.ClaudeAssistantModelJSON(
		[]map[string]any{
			testjsonl.ToolUseBlock("toolu_3", "Edit",
				map[string]any{
					"file_path":  "routes.go",
					"old_string": "// routes",
					"new_string": "// routes\nregisterNotes(r)",
				}),
			testjsonl.ToolUseBlock("toolu_4", "Bash",
				map[string]any{"command": "go test ./..."}),
		}, ts5, "claude-sonnet-4", 300, 120))
	b.AddClaudeToolResult(ts5, "toolu_4", "ok")
	return b.String()
}

func TestConvertClaudeCrudSession(t *testing.T) {
	path := createTestFile(t, "sess-crud.jsonl", crudSession())
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, "sess-crud", tr.ID)
	assert.Equal(t, transcript.SourceClaudeCode, tr.Source)
	assert.Equal(t, "/tmp/proj", tr.Cwd)
	assert.Equal(t, 1, tr.UserMessageCount)
	assert.Equal(t, 4, tr.ToolCount)
	assert.Equal(t, "Create a CRUD endpoint for notes", tr.Preview)
	assert.Equal(t, "claude-sonnet-4", tr.Model)
	requireAscending(t, tr.Messages)

	calls := toolCalls(tr.Messages)
	require.Len(t, calls, 4)

	// cat routes.go reclassified to a Read.
	assert.Equal(t, "Read", calls[0].ToolName)
	assert.JSONEq(t, `{"file_path":"./routes.go"}`,
		string(calls[0].Input))
	assert.Equal(t, `"package routes"`, string(calls[0].Output))

	// heredoc reclassified to a Write.
	assert.Equal(t, "Write", calls[1].ToolName)
	assert.JSONEq(t,
		`{"file_path":"./notes.go","content":"package notes\n"}`,
		string(calls[1].Input))

	assert.Equal(t, "Edit", calls[2].ToolName)

	// go test stays a shell call, result merged by id.
	assert.Equal(t, "Bash", calls[3].ToolName)
	assert.Equal(t, `"ok"`, string(calls[3].Output))
}

func TestConvertClaudeUsageAndCost(t *testing.T) {
	path := createTestFile(t, "sess-crud.jsonl", crudSession())
	opts := testOpts()
	opts.Pricing = transcript.PricingTable{
		"claude-sonnet-4": {
			InputCostPerToken:  0.001,
			OutputCostPerToken: 0.002,
		},
	}
	tr := ConvertClaude(path, opts)
	require.NotNil(t, tr)

	assert.Equal(t, int64(620), tr.TokenUsage.InputTokens)
	assert.Equal(t, int64(240), tr.TokenUsage.OutputTokens)
	assert.InDelta(t, 620*0.001+240*0.002, tr.CostUSD, 1e-9)
	require.Contains(t, tr.ModelUsage, "claude-sonnet-4")
}

func TestConvertClaudeWorkingTreeStats(t *testing.T) {
	path := createTestFile(t, "sess-crud.jsonl", crudSession())
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)

	want := &transcript.WorkingTreeStats{
		FilesChanged:  2,
		LinesAdded:    2,
		LinesModified: 1,
	}
	if diff := cmp.Diff(want, tr.Stats); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}
}

func TestConvertClaudeTimestampIsMax(t *testing.T) {
	path := createTestFile(t, "sess-crud.jsonl", crudSession())
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)
	assert.Equal(t, ts5, tr.Timestamp.Format("2006-01-02T15:04:05Z"))
}

func TestConvertClaudeSkipsMetaAndSystemText(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.ClaudeMetaUserJSON("injected context", ts0, true, false),
		testjsonl.ClaudeUserWithSessionIDJSON(
			"Caveat: The messages below were generated elsewhere",
			ts1, "sess-meta"),
		testjsonl.ClaudeUserJSON("real question", ts2),
		testjsonl.ClaudeAssistantJSON(
			[]map[string]any{testjsonl.TextBlock("answer")}, ts3),
	)
	path := createTestFile(t, "sess-meta.jsonl", content)
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)

	assert.Equal(t, 1, tr.UserMessageCount)
	assert.Equal(t, "real question", tr.Preview)
}

func TestConvertClaudeMalformedLinesSkipped(t *testing.T) {
	content := "not json at all\n" +
		"{\"broken\n" +
		testjsonl.ClaudeUserWithSessionIDJSON("hello there", ts0, "sess-x") + "\n"
	path := createTestFile(t, "sess-x.jsonl", content)
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)
	assert.Equal(t, 1, tr.MessageCount)
}

func TestConvertClaudeEmptyFileIsNil(t *testing.T) {
	path := createTestFile(t, "empty.jsonl", "")
	assert.Nil(t, ConvertClaude(path, testOpts()))
}

func TestConvertClaudeMissingFileIsNil(t *testing.T) {
	assert.Nil(t, ConvertClaude("/nonexistent/sess.jsonl", testOpts()))
}

func TestConvertClaudeSessionIDFromFilename(t *testing.T) {
	content := testjsonl.JoinJSONL(
		testjsonl.ClaudeUserJSON("no session id here", ts0),
	)
	path := createTestFile(t, "fa11back.jsonl", content)
	tr := ConvertClaude(path, testOpts())
	require.NotNil(t, tr)
	assert.Equal(t, "fa11back", tr.ID)
}
