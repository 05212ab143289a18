// Package analyze derives aggregate metrics, anti-pattern findings
// and a health score from one canonical transcript. Everything here
// is a deterministic function of the input: same transcript, same
// result.
package analyze

import (
	"strings"
	"time"

	"github.com/loglens/loglens/internal/transcript"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Metrics are linear-scan aggregates over a transcript's messages.
type Metrics struct {
	MessageCount         int           `json:"messageCount"`
	UserMessageCount     int           `json:"userMessageCount"`
	ToolCallCount        int           `json:"toolCallCount"`
	ErrorCount           int           `json:"errorCount"`
	RetryCount           int           `json:"retryCount"`
	ContextOverflowCount int           `json:"contextOverflowCount"`
	Duration             time.Duration `json:"duration"`
	LongestIdleGap       time.Duration `json:"longestIdleGap"`
	TotalTokens          int64         `json:"totalTokens"`
	CostUSD              float64       `json:"costUsd"`
	FilesTouched         int           `json:"filesTouched"`
}

// AntiPattern is one detected named condition.
type AntiPattern struct {
	Name     string   `json:"name"`
	Severity Severity `json:"severity"`
	Detail   string   `json:"detail"`
}

// Result is the full analysis output.
type Result struct {
	Metrics         Metrics       `json:"metrics"`
	AntiPatterns    []AntiPattern `json:"antiPatterns"`
	Recommendations []string      `json:"recommendations"`
	HealthScore     int           `json:"healthScore"`
}

// Analyze computes the analysis for one transcript.
func Analyze(t *transcript.Transcript) Result {
	m := computeMetrics(t)
	patterns := detect(m)

	recs := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if rec, ok := recommendations[p.Name]; ok {
			recs = append(recs, rec)
		}
	}

	return Result{
		Metrics:         m,
		AntiPatterns:    patterns,
		Recommendations: recs,
		HealthScore:     healthScore(m, patterns),
	}
}

func computeMetrics(t *transcript.Transcript) Metrics {
	m := Metrics{
		MessageCount: len(t.Messages),
		TotalTokens: t.TokenUsage.InputTokens +
			t.TokenUsage.OutputTokens +
			t.TokenUsage.CacheReadInputTokens +
			t.TokenUsage.CacheCreationInputTokens,
		CostUSD: t.CostUSD,
	}
	if t.Stats != nil {
		m.FilesTouched = t.Stats.FilesChanged
	}

	var (
		first, last  time.Time
		prev         time.Time
		lastErrInput string
		lastWasErr   bool
	)
	for _, msg := range t.Messages {
		if !msg.Timestamp.IsZero() {
			if first.IsZero() {
				first = msg.Timestamp
			}
			last = msg.Timestamp
			if !prev.IsZero() {
				if gap := msg.Timestamp.Sub(prev); gap > m.LongestIdleGap {
					m.LongestIdleGap = gap
				}
			}
			prev = msg.Timestamp
		}

		switch msg.Type {
		case transcript.MessageUser:
			m.UserMessageCount++
		case transcript.MessageToolCall:
			m.ToolCallCount++
			input := normalizeInput(string(msg.Input))
			if lastWasErr && input != "" && input == lastErrInput {
				m.RetryCount++
			}

			out := strings.ToLower(string(msg.Output))
			isErr := isErrorOutput(out)
			if isErr {
				m.ErrorCount++
			}
			if hasOverflowMarker(out) {
				m.ContextOverflowCount++
			}
			lastWasErr = isErr
			if isErr {
				lastErrInput = input
			}
		}
	}
	if !first.IsZero() && !last.IsZero() {
		m.Duration = last.Sub(first)
	}
	return m
}

// normalizeInput collapses whitespace so near-identical retries
// still compare equal.
func normalizeInput(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var errorMarkers = []string{
	`"is_error":true`,
	"exit status 1",
	"exit status 2",
	"exit code 1",
	"non-zero exit",
	"command not found",
	"no such file or directory",
	"permission denied",
	"error:",
	"fatal:",
	"panic:",
	"traceback (most recent call last)",
}

func isErrorOutput(out string) bool {
	if out == "" {
		return false
	}
	for _, marker := range errorMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}

var overflowMarkers = []string{
	"context window",
	"context length",
	"context low",
	"output truncated",
	"response was truncated",
	"conversation was compacted",
}

func hasOverflowMarker(out string) bool {
	for _, marker := range overflowMarkers {
		if strings.Contains(out, marker) {
			return true
		}
	}
	return false
}
