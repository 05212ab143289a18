package convert

import (
	"database/sql"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/gitinfo"
	"github.com/loglens/loglens/internal/transcript"

	_ "github.com/mattn/go-sqlite3"
)

// ConvertOpenCode converts one OpenCode session out of the tool's
// SQLite database. path is "<dbPath>#<sessionID>"; without the
// fragment the most recently updated session is used.
func ConvertOpenCode(path string, opts Options) *transcript.Transcript {
	dbPath, sessionID := splitOpenCodePath(path)

	db, err := openOpenCodeDB(dbPath)
	if err != nil {
		logParseError("opencode db " + dbPath + ": " + err.Error())
		return nil
	}
	defer db.Close()

	if sessionID == "" {
		sessionID = latestOpenCodeSession(db)
		if sessionID == "" {
			return nil
		}
	}

	var (
		worktree    string
		timeCreated int64
	)
	err = db.QueryRow(`
		SELECT COALESCE(p.worktree, ''), s.time_created
		FROM session s
		LEFT JOIN project p ON p.id = s.project_id
		WHERE s.id = ?
	`, sessionID).Scan(&worktree, &timeCreated)
	if err != nil {
		return nil
	}

	b := newBuilder()
	if !loadOpenCodeMessages(db, sessionID, b) {
		return nil
	}
	if len(b.msgs) == 0 {
		return nil
	}

	return b.finish(
		sessionID, transcript.SourceOpenCode,
		worktree, gitinfo.Resolve(worktree), opts,
	)
}

// splitOpenCodePath separates the database path from an optional
// "#sessionID" fragment.
func splitOpenCodePath(path string) (string, string) {
	if i := strings.LastIndex(path, "#"); i >= 0 {
		return path[:i], path[i+1:]
	}
	return path, ""
}

func openOpenCodeDB(dbPath string) (*sql.DB, error) {
	dsn := "file:" + dbPath +
		"?mode=ro&_journal_mode=WAL&_busy_timeout=3000"
	return sql.Open("sqlite3", dsn)
}

func latestOpenCodeSession(db *sql.DB) string {
	var id string
	err := db.QueryRow(`
		SELECT id FROM session
		ORDER BY time_updated DESC
		LIMIT 1
	`).Scan(&id)
	if err != nil {
		return ""
	}
	return id
}

// loadOpenCodeMessages streams the session's messages and parts
// into the builder. Returns false on a query error.
func loadOpenCodeMessages(
	db *sql.DB, sessionID string, b *builder,
) bool {
	rows, err := db.Query(`
		SELECT id, role, COALESCE(data, '{}'), time_created
		FROM message
		WHERE session_id = ?
		ORDER BY time_created
	`, sessionID)
	if err != nil {
		return false
	}
	defer rows.Close()

	type msgRow struct {
		id   string
		role string
		data string
		ts   int64
	}
	var msgs []msgRow
	for rows.Next() {
		var m msgRow
		if err := rows.Scan(&m.id, &m.role, &m.data, &m.ts); err != nil {
			return false
		}
		msgs = append(msgs, m)
	}
	if rows.Err() != nil {
		return false
	}

	parts := loadOpenCodeParts(db, sessionID)

	for _, m := range msgs {
		if m.role != "user" && m.role != "assistant" {
			continue
		}
		ts := millisToTime(m.ts)
		data := gjson.Parse(m.data)
		model := data.Get("modelID").Str

		if m.role == "assistant" {
			b.addUsage(openCodeUsageModel(model),
				openCodeUsage(data))
		}

		for _, p := range parts[m.id] {
			b.addOpenCodePart(m.role, p, ts, model)
		}
	}
	return true
}

// openCodePart is one row of the part table, its JSON data already
// parsed.
type openCodePart struct {
	partType string
	data     gjson.Result
}

func loadOpenCodeParts(
	db *sql.DB, sessionID string,
) map[string][]openCodePart {
	parts := make(map[string][]openCodePart)
	rows, err := db.Query(`
		SELECT p.message_id, p.type, COALESCE(p.data, '{}')
		FROM part p
		JOIN message m ON m.id = p.message_id
		WHERE m.session_id = ?
		ORDER BY p.time_created
	`, sessionID)
	if err != nil {
		return parts
	}
	defer rows.Close()

	for rows.Next() {
		var (
			messageID, partType, data string
		)
		if err := rows.Scan(&messageID, &partType, &data); err != nil {
			return parts
		}
		parts[messageID] = append(parts[messageID], openCodePart{
			partType: partType,
			data:     gjson.Parse(data),
		})
	}
	return parts
}

// addOpenCodePart maps one part row to a canonical message. Tool
// parts already bundle the call and its result, so the output is
// attached in the same step.
func (b *builder) addOpenCodePart(
	role string, p openCodePart, ts time.Time, model string,
) {
	switch p.partType {
	case "text":
		text := p.data.Get("text").Str
		if text == "" {
			text = p.data.Get("content").Str
		}
		if strings.TrimSpace(text) == "" {
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
		text := p.data.Get("text").Str
		if text == "" {
			text = p.data.Get("content").Str
		}
		if text == "" {
			return
		}
		b.add(transcript.Message{
			Type:      transcript.MessageThinking,
			Text:      text,
			Timestamp: ts,
			Model:     model,
		})

	case "tool":
		name := p.data.Get("tool").Str
		if name == "" {
			return
		}
		tool, input := rewriteToolUse(
			name, p.data.Get("state.input"),
		)
		callID := p.data.Get("id").Str
		b.addToolCall(callID, tool, input, ts, model)
		b.attachOutput(callID, rawJSON(p.data.Get("state.output")))
	}
}

func openCodeUsageModel(model string) string {
	if model == "" {
		return "unknown"
	}
	return model
}

// openCodeUsage reads the token block an assistant message row
// carries in its data JSON.
func openCodeUsage(data gjson.Result) transcript.TokenUsage {
	t := data.Get("tokens")
	return transcript.TokenUsage{
		InputTokens:              t.Get("input").Int(),
		OutputTokens:             t.Get("output").Int(),
		ReasoningOutputTokens:    t.Get("reasoning").Int(),
		CacheReadInputTokens:     t.Get("cache.read").Int(),
		CacheCreationInputTokens: t.Get("cache.write").Int(),
	}
}
