package transcript

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSourceValid(t *testing.T) {
	for _, s := range Sources {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Source("gemini").Valid())
	assert.False(t, Source("").Valid())
}

func TestTokenUsageAdd(t *testing.T) {
	u := TokenUsage{InputTokens: 10, OutputTokens: 5}
	u.Add(TokenUsage{
		InputTokens:          3,
		CacheReadInputTokens: 7,
	})
	assert.Equal(t, TokenUsage{
		InputTokens:          13,
		OutputTokens:         5,
		CacheReadInputTokens: 7,
	}, u)
}

func TestTokenUsageIsZero(t *testing.T) {
	assert.True(t, TokenUsage{}.IsZero())
	assert.False(t, TokenUsage{OutputTokens: 1}.IsZero())
}

func TestFinalizeCounts(t *testing.T) {
	tr := Transcript{
		Messages: []Message{
			{Type: MessageUser, Timestamp: ts("2025-06-01T10:00:00Z")},
			{Type: MessageThinking, Timestamp: ts("2025-06-01T10:00:05Z")},
			{Type: MessageAgent, Timestamp: ts("2025-06-01T10:00:10Z")},
			{Type: MessageToolCall, Timestamp: ts("2025-06-01T10:00:15Z")},
			{Type: MessageToolCall, Timestamp: ts("2025-06-01T10:00:20Z")},
		},
	}
	tr.Finalize()

	assert.Equal(t, 5, tr.MessageCount)
	assert.Equal(t, 1, tr.UserMessageCount)
	assert.Equal(t, 2, tr.ToolCount)
}

func TestFinalizeLiftsTimestampToMax(t *testing.T) {
	tr := Transcript{
		Timestamp: ts("2025-06-01T09:00:00Z"),
		Messages: []Message{
			{Type: MessageUser, Timestamp: ts("2025-06-01T10:00:00Z")},
			{Type: MessageAgent, Timestamp: ts("2025-06-01T11:30:00Z")},
		},
	}
	tr.Finalize()
	assert.Equal(t, ts("2025-06-01T11:30:00Z"), tr.Timestamp)
}

func TestFinalizeKeepsLaterTranscriptTimestamp(t *testing.T) {
	tr := Transcript{
		Timestamp: ts("2025-06-01T12:00:00Z"),
		Messages: []Message{
			{Type: MessageUser, Timestamp: ts("2025-06-01T10:00:00Z")},
		},
	}
	tr.Finalize()
	assert.Equal(t, ts("2025-06-01T12:00:00Z"), tr.Timestamp)
}
