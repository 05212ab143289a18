package convert

import (
	"regexp"
	"strings"
)

// maxPreviewLen caps preview length including the ellipsis.
const maxPreviewLen = 80

var (
	reminderBlockRe = regexp.MustCompile(
		`(?s)<system-reminder>.*?</system-reminder>`,
	)
	commandNameRe = regexp.MustCompile(
		`<command-name>([^<]*)</command-name>`,
	)
	commandArgsRe = regexp.MustCompile(
		`<command-args>([^<]*)</command-args>`,
	)
	envelopeTagRe = regexp.MustCompile(
		`(?s)<(command-message|command-contents|local-command-stdout|local-command-stderr|task-notification)>` +
			`.*?</(command-message|command-contents|local-command-stdout|local-command-stderr|task-notification)>`,
	)
)

// noisePrefixes mark lines that are pasted build output or stack
// traces rather than the user's actual prompt. A line starting with
// one of these is skipped unless it carries a prompt cue.
var noisePrefixes = []string{
	"error:", "warning:", "npm err!", "npm warn",
	"traceback (", "panic:", "fatal:", "exception in",
	"at ", "file \"", "goroutine ",
	"=== run", "--- fail", "stack trace",
}

// promptCues rescue a noisy-looking line that is actually a request.
var promptCues = []string{
	"please", "can you", "could you", "how do", "how can",
	"why", "help", "fix this", "what is", "what's",
}

// CleanPreview reduces a raw first user message to a short one-line
// preview: reminder blocks and command envelopes are stripped,
// slash-command invocations are rendered as "/name args", and
// leading tool/build noise lines are skipped.
func CleanPreview(text string) string {
	text = reminderBlockRe.ReplaceAllString(text, "")

	if m := commandNameRe.FindStringSubmatch(text); m != nil {
		cmd := strings.TrimSpace(m[1])
		if a := commandArgsRe.FindStringSubmatch(text); a != nil {
			if args := strings.TrimSpace(a[1]); args != "" {
				cmd += " " + args
			}
		}
		return truncate(cmd, maxPreviewLen)
	}
	text = envelopeTagRe.ReplaceAllString(text, "")

	for _, line := range strings.Split(text, "\n") {
		line = trimPromptMarker(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		if isNoiseLine(line) {
			continue
		}
		return truncate(strings.Join(strings.Fields(line), " "), maxPreviewLen)
	}
	return ""
}

// trimPromptMarker removes a leading shell-prompt marker pasted
// along with a command.
func trimPromptMarker(line string) string {
	for _, marker := range []string{"$ ", "> ", "% "} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(line[len(marker):])
		}
	}
	return line
}

func isNoiseLine(line string) bool {
	lower := strings.ToLower(line)
	noisy := false
	for _, p := range noisePrefixes {
		if strings.HasPrefix(lower, p) {
			noisy = true
			break
		}
	}
	if !noisy {
		return false
	}
	if strings.Contains(line, "?") {
		return false
	}
	for _, cue := range promptCues {
		if strings.Contains(lower, cue) {
			return false
		}
	}
	return true
}
