package discover

import (
	"io"
	"os"
	"strings"
)

// Window sizes for partial candidate reads. The head recovers
// identity and preview, the tail the latest event timestamp, and a
// candidate is never read in full.
const (
	headWindowSize = 50 * 1024
	tailWindowSize = 20 * 1024
)

// headLines reads the first window of the file and splits it into
// complete JSONL lines. A line that is not "}"-terminated within
// the window is treated as truncated and ends the scan.
func headLines(path string) ([]string, int64) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, 0
	}

	buf := make([]byte, headWindowSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, info.Size()
	}
	return windowLines(string(buf[:n])), info.Size()
}

// tailLines reads the last window of the file. The first line is
// dropped as almost certainly partial.
func tailLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil
	}
	off := info.Size() - tailWindowSize
	if off < 0 {
		off = 0
	}
	buf := make([]byte, info.Size()-off)
	if _, err := f.ReadAt(buf, off); err != nil && err != io.EOF {
		return nil
	}

	lines := windowLines(string(buf))
	if off > 0 && len(lines) > 0 {
		lines = lines[1:]
	}
	return lines
}

// windowLines splits a raw window into lines, halting at the first
// line that does not end with "}" (truncated by the window edge or
// mid-write).
func windowLines(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.HasSuffix(line, "}") {
			break
		}
		lines = append(lines, line)
	}
	return lines
}
