package discover

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/tidwall/gjson"

	"github.com/loglens/loglens/internal/convert"
	"github.com/loglens/loglens/internal/transcript"
)

// candidate is a phase-1 discovery record: a path and its
// filesystem modification time, nothing parsed yet.
type candidate struct {
	path  string
	mtime time.Time
}

// strategy binds a source's cheap enumeration to its partial
// parser.
type strategy struct {
	enumerate func(root string) []candidate
	probe     func(path string) *transcript.Discovered
}

var strategies = map[transcript.Source]strategy{
	transcript.SourceClaudeCode: {enumerateClaude, probeClaude},
	transcript.SourceCodex:      {enumerateCodex, probeCodex},
	transcript.SourceCline:      {enumerateCline, probeCline},
	transcript.SourcePi:         {enumeratePi, probePi},
}

func isDirOrSymlink(entry os.DirEntry, parentDir string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	fi, err := os.Stat(filepath.Join(parentDir, entry.Name()))
	return err == nil && fi.IsDir()
}

// enumerateClaude lists session files under the per-project
// directories of the Claude Code projects root. Subagent sidecar
// files are not sessions and are skipped.
func enumerateClaude(root string) []candidate {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []candidate
	for _, entry := range entries {
		if !isDirOrSymlink(entry, root) {
			continue
		}
		projDir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(projDir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			if strings.HasPrefix(f.Name(), "agent-") {
				continue
			}
			out = appendCandidate(out, filepath.Join(projDir, f.Name()))
		}
	}
	return out
}

// enumerateCodex walks the year/month/day session tree.
func enumerateCodex(root string) []candidate {
	var out []candidate
	walkDigitDirs(root, 3, func(dayPath string) {
		files, err := os.ReadDir(dayPath)
		if err != nil {
			return
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			name := f.Name()
			if !strings.HasPrefix(name, "rollout-") ||
				!strings.HasSuffix(name, ".jsonl") {
				continue
			}
			out = appendCandidate(out, filepath.Join(dayPath, name))
		}
	})
	return out
}

// enumerateCline lists task directories; the candidate path is the
// directory itself and its mtime comes from ui_messages.json when
// present.
func enumerateCline(root string) []candidate {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []candidate
	for _, entry := range entries {
		if !isDirOrSymlink(entry, root) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		mtimePath := filepath.Join(dir, "ui_messages.json")
		info, err := os.Stat(mtimePath)
		if err != nil {
			info, err = os.Stat(dir)
			if err != nil {
				continue
			}
		}
		out = append(out, candidate{path: dir, mtime: info.ModTime()})
	}
	return out
}

// enumeratePi lists session files under the encoded-cwd
// directories of the pi sessions root.
func enumeratePi(root string) []candidate {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []candidate
	for _, entry := range entries {
		if !isDirOrSymlink(entry, root) {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(f.Name(), ".jsonl") {
				continue
			}
			out = appendCandidate(out, filepath.Join(dir, f.Name()))
		}
	}
	return out
}

func appendCandidate(out []candidate, path string) []candidate {
	info, err := os.Stat(path)
	if err != nil {
		return out
	}
	return append(out, candidate{path: path, mtime: info.ModTime()})
}

// walkDigitDirs descends depth levels of all-digit directory names
// (year/month/day) and calls fn on each leaf directory.
func walkDigitDirs(dir string, depth int, fn func(string)) {
	if depth == 0 {
		fn(dir)
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() || !isDigits(entry.Name()) {
			continue
		}
		walkDigitDirs(filepath.Join(dir, entry.Name()), depth-1, fn)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// probeClaude partially parses a Claude Code session: identity,
// cwd and preview from the head window, latest timestamp from the
// tail when the file exceeds the head.
func probeClaude(path string) *transcript.Discovered {
	lines, size := headLines(path)
	if len(lines) == 0 {
		return nil
	}

	d := &transcript.Discovered{
		Source: transcript.SourceClaudeCode,
		Path:   path,
	}
	for _, line := range lines {
		if d.ID == "" {
			d.ID = gjson.Get(line, "sessionId").Str
		}
		if d.Cwd == "" {
			d.Cwd = gjson.Get(line, "cwd").Str
		}
		if ts := parseTime(gjson.Get(line, "timestamp").Str); !ts.IsZero() {
			d.Timestamp = ts
		}
		if d.Preview == "" && gjson.Get(line, "type").Str == "user" &&
			!gjson.Get(line, "isMeta").Bool() &&
			!gjson.Get(line, "isSidechain").Bool() {
			content := gjson.Get(line, "message.content")
			if content.Type == gjson.String {
				d.Preview = convert.CleanPreview(content.Str)
			} else if content.IsArray() {
				d.Preview = convert.CleanPreview(
					content.Get("0.text").Str,
				)
			}
		}
		if d.ID != "" && d.Preview != "" && !d.Timestamp.IsZero() {
			break
		}
	}
	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	liftTailTimestamp(d, path, size, "timestamp")
	return d
}

func probeCodex(path string) *transcript.Discovered {
	lines, size := headLines(path)
	if len(lines) == 0 {
		return nil
	}

	d := &transcript.Discovered{
		Source: transcript.SourceCodex,
		Path:   path,
	}
	for _, line := range lines {
		if ts := parseTime(gjson.Get(line, "timestamp").Str); !ts.IsZero() {
			d.Timestamp = ts
		}
		payload := gjson.Get(line, "payload")
		switch gjson.Get(line, "type").Str {
		case "session_meta":
			d.ID = payload.Get("id").Str
			d.Cwd = payload.Get("cwd").Str
		case "response_item":
			if d.Preview != "" {
				continue
			}
			if payload.Get("type").Str == "message" &&
				payload.Get("role").Str == "user" {
				text := payload.Get("content.0.text").Str
				if !strings.HasPrefix(text, "<") &&
					!strings.HasPrefix(text, "# AGENTS.md") {
					d.Preview = convert.CleanPreview(text)
				}
			}
		}
		if d.ID != "" && d.Preview != "" {
			break
		}
	}
	if d.ID == "" {
		return nil
	}
	liftTailTimestamp(d, path, size, "timestamp")
	return d
}

func probePi(path string) *transcript.Discovered {
	lines, size := headLines(path)
	if len(lines) == 0 {
		return nil
	}
	if gjson.Get(lines[0], "type").Str != "session" {
		return nil
	}

	d := &transcript.Discovered{
		Source:    transcript.SourcePi,
		Path:      path,
		ID:        gjson.Get(lines[0], "id").Str,
		Cwd:       gjson.Get(lines[0], "cwd").Str,
		Timestamp: parseTime(gjson.Get(lines[0], "timestamp").Str),
	}
	for _, line := range lines[1:] {
		if ts := parseTime(gjson.Get(line, "timestamp").Str); !ts.IsZero() {
			d.Timestamp = ts
		}
		if d.Preview == "" &&
			gjson.Get(line, "type").Str == "message" &&
			gjson.Get(line, "message.role").Str == "user" {
			content := gjson.Get(line, "message.content")
			text := content.Str
			if content.IsArray() {
				text = content.Get("0.text").Str
			}
			d.Preview = convert.CleanPreview(text)
		}
		if d.Preview != "" && d.ID != "" {
			break
		}
	}
	if d.ID == "" {
		d.ID = strings.TrimSuffix(filepath.Base(path), ".jsonl")
	}
	liftTailTimestamp(d, path, size, "timestamp")
	return d
}

// probeCline reads the task directory's two files partially: the
// prompt from the history head, the latest UI timestamp from the
// ui_messages tail.
func probeCline(dir string) *transcript.Discovered {
	d := &transcript.Discovered{
		Source: transcript.SourceCline,
		Path:   dir,
		ID:     filepath.Base(dir),
	}

	head, _ := rawHead(filepath.Join(dir, "api_conversation_history.json"))
	if head == "" {
		return nil
	}
	if task := between(head, "<task>", "</task>"); task != "" {
		d.Preview = convert.CleanPreview(task)
	}
	if cwd := between(head, "# Current Working Directory (", ")"); cwd != "" {
		d.Cwd = cwd
	}

	d.Timestamp = lastClineTs(filepath.Join(dir, "ui_messages.json"))
	if d.Timestamp.IsZero() {
		if info, err := os.Stat(dir); err == nil {
			d.Timestamp = info.ModTime()
		}
	}
	return d
}

// rawHead reads the head window of a file without line splitting
// (cline files are single JSON documents, not JSONL).
func rawHead(path string) (string, int64) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", 0
	}
	buf := make([]byte, headWindowSize)
	n, _ := f.Read(buf)
	return string(buf[:n]), info.Size()
}

func between(s, open, closing string) string {
	i := strings.Index(s, open)
	if i < 0 {
		return ""
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, closing)
	if j < 0 {
		return ""
	}
	return strings.TrimSpace(rest[:j])
}

// lastClineTs scans the tail window of ui_messages.json for the
// last "ts" millisecond value.
func lastClineTs(path string) time.Time {
	f, err := os.Open(path)
	if err != nil {
		return time.Time{}
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return time.Time{}
	}
	off := info.Size() - tailWindowSize
	if off < 0 {
		off = 0
	}
	buf := make([]byte, info.Size()-off)
	if _, err := f.ReadAt(buf, off); err != nil && err != io.EOF {
		return time.Time{}
	}

	s := string(buf)
	i := strings.LastIndex(s, `"ts":`)
	if i < 0 {
		return time.Time{}
	}
	var ms int64
	for _, r := range s[i+len(`"ts":`):] {
		if r < '0' || r > '9' {
			break
		}
		ms = ms*10 + int64(r-'0')
	}
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

// liftTailTimestamp replaces the discovered timestamp with the
// latest one found in the tail window, for files larger than the
// head window.
func liftTailTimestamp(
	d *transcript.Discovered, path string, size int64, field string,
) {
	if size <= headWindowSize {
		return
	}
	for _, line := range tailLines(path) {
		if ts := parseTime(gjson.Get(line, field).Str); !ts.IsZero() &&
			ts.After(d.Timestamp) {
			d.Timestamp = ts
		}
	}
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
