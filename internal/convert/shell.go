package convert

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// shellRule pairs a matcher with the tool it rewrites a shell
// invocation into. Rules are pure and order-sensitive: the list is
// consulted in order and the first match wins, so more specific
// idioms must precede generic ones. This is best-effort pattern
// matching, not shell parsing; anything ambiguous stays Bash.
type shellRule struct {
	name  string
	match func(cmd string, argv []string) (tool string, input map[string]any, ok bool)
}

var shellRules = []shellRule{
	{"heredoc-write", matchHeredocWrite},
	{"patch-edit", matchPatchEdit},
	{"single-file-read", matchSingleFileRead},
}

// ReclassifyShell reinterprets a bash/zsh invocation as a
// higher-level file operation when it matches a known idiom.
// Returns ok=false when the command should stay a raw Bash call.
func ReclassifyShell(command string) (string, json.RawMessage, bool) {
	command = strings.Trim(command, "\n")
	if command == "" {
		return "", nil, false
	}
	command = unwrapShell(command)

	argv, err := shlex.Split(firstLine(command))
	if err != nil {
		argv = nil
	}

	for _, rule := range shellRules {
		tool, input, ok := rule.match(command, argv)
		if !ok {
			continue
		}
		raw, err := json.Marshal(input)
		if err != nil {
			return "", nil, false
		}
		return tool, raw, true
	}
	return "", nil, false
}

// unwrapShell peels one "bash -lc <script>" style wrapper so the
// rules see the inner command. shlex preserves newlines inside a
// quoted script, so multi-line heredocs survive the unwrap.
func unwrapShell(command string) string {
	argv, err := shlex.Split(command)
	if err != nil || len(argv) < 3 {
		return command
	}
	switch argv[0] {
	case "bash", "zsh", "sh", "/bin/bash", "/bin/zsh", "/bin/sh":
	default:
		return command
	}
	for _, a := range argv[1 : len(argv)-1] {
		if a == "-c" || a == "-lc" || a == "-cl" {
			return argv[len(argv)-1]
		}
	}
	return command
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return s[:i]
	}
	return s
}

// heredocWriteRe matches the opening line of `cat <<'EOF' > path`.
var heredocWriteRe = regexp.MustCompile(
	`^cat\s+<<-?\s*['"]?([A-Za-z_][A-Za-z0-9_]*)['"]?\s*>{1,2}\s*(\S+)\s*$`,
)

// matchHeredocWrite rewrites `cat <<'EOF' > path ... EOF` into a
// Write of the heredoc body.
func matchHeredocWrite(cmd string, _ []string) (string, map[string]any, bool) {
	open, rest, found := strings.Cut(cmd, "\n")
	if !found {
		return "", nil, false
	}
	m := heredocWriteRe.FindStringSubmatch(open)
	if m == nil {
		return "", nil, false
	}
	marker, path := m[1], m[2]

	lines := strings.Split(rest, "\n")
	end := -1
	for i, line := range lines {
		if strings.TrimSpace(line) == marker {
			end = i
			break
		}
	}
	if end == -1 {
		return "", nil, false
	}
	// Anything after the terminator means a compound command.
	for _, line := range lines[end+1:] {
		if strings.TrimSpace(line) != "" {
			return "", nil, false
		}
	}

	content := strings.Join(lines[:end], "\n") + "\n"
	return "Write", map[string]any{
		"file_path": normalizeShellPath(path),
		"content":   content,
	}, true
}

// matchSingleFileRead rewrites `cat path` into a Read. Flags,
// multiple files, and pipelines are left alone.
func matchSingleFileRead(_ string, argv []string) (string, map[string]any, bool) {
	if len(argv) != 2 || argv[0] != "cat" {
		return "", nil, false
	}
	if strings.HasPrefix(argv[1], "-") {
		return "", nil, false
	}
	return "Read", map[string]any{
		"file_path": normalizeShellPath(argv[1]),
	}, true
}

const (
	patchBegin = "*** Begin Patch"
	patchEnd   = "*** End Patch"
)

var patchFileRe = regexp.MustCompile(
	`(?m)^\*\*\* (?:Add|Update|Delete) File: (.+)$`,
)

// matchPatchEdit rewrites an apply_patch payload (inline or piped
// through a heredoc) into an Edit. Single Add File patches yield
// {file_path, content}; everything else yields {file_path, diff}.
func matchPatchEdit(cmd string, argv []string) (string, map[string]any, bool) {
	if len(argv) > 0 {
		base := argv[0]
		if base != "apply_patch" && base != "applypatch" &&
			!strings.Contains(cmd, patchBegin) {
			return "", nil, false
		}
	}
	begin := strings.Index(cmd, patchBegin)
	if begin == -1 {
		return "", nil, false
	}
	body := cmd[begin+len(patchBegin):]
	if end := strings.Index(body, patchEnd); end != -1 {
		body = body[:end]
	}
	body = strings.Trim(body, "\n")
	if body == "" {
		return "", nil, false
	}

	files := patchFileRe.FindAllStringSubmatch(body, -1)
	if len(files) == 0 {
		return "", nil, false
	}
	path := normalizeShellPath(strings.TrimSpace(files[0][1]))

	if len(files) == 1 &&
		strings.HasPrefix(body, "*** Add File: ") {
		if content, ok := patchAddContent(body); ok {
			return "Edit", map[string]any{
				"file_path": path,
				"content":   content,
			}, true
		}
	}
	return "Edit", map[string]any{
		"file_path": path,
		"diff":      body,
	}, true
}

// patchAddContent reconstructs the file body of a single Add File
// patch, whose payload lines are all prefixed with "+".
func patchAddContent(body string) (string, bool) {
	lines := strings.Split(body, "\n")
	var out []string
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "+") {
			return "", false
		}
		out = append(out, line[1:])
	}
	if len(out) == 0 {
		return "", false
	}
	return strings.Join(out, "\n") + "\n", true
}

// normalizeShellPath strips quoting and anchors bare relative names
// with "./" so downstream consumers can tell them from tool names.
func normalizeShellPath(p string) string {
	p = strings.Trim(p, `"'`)
	if p == "" {
		return p
	}
	switch {
	case strings.HasPrefix(p, "/"),
		strings.HasPrefix(p, "./"),
		strings.HasPrefix(p, "../"),
		strings.HasPrefix(p, "~"),
		strings.HasPrefix(p, "$"):
		return p
	}
	return "./" + p
}
