package analyze

import (
	"fmt"
	"time"
)

// Anti-pattern names form a closed set; detectors run independently
// against the metrics, and each can fire at most once.
const (
	PatternExcessiveRetries = "excessive-retries"
	PatternHighErrorRate    = "high-error-rate"
	PatternContextThrash    = "context-thrash"
	PatternLongIdleGap      = "long-idle-gap"
	PatternTokenBurn        = "token-burn"
	PatternLowProgress      = "low-progress"
)

// Detection thresholds. Stable by contract: the score tests
// snapshot results computed from these.
const (
	retriesMedium = 2
	retriesHigh   = 5

	errorRateMedium = 0.15
	errorRateHigh   = 0.30
	errorRateMinOps = 5

	overflowMedium = 2
	overflowHigh   = 4

	idleGapLow    = 30 * time.Minute
	idleGapMedium = 2 * time.Hour

	tokenBurnMedium = 2_000_000
	tokenBurnHigh   = 5_000_000

	lowProgressMinTools = 20
)

type detector func(Metrics) *AntiPattern

var detectors = []detector{
	detectExcessiveRetries,
	detectHighErrorRate,
	detectContextThrash,
	detectLongIdleGap,
	detectTokenBurn,
	detectLowProgress,
}

func detect(m Metrics) []AntiPattern {
	var found []AntiPattern
	for _, d := range detectors {
		if p := d(m); p != nil {
			found = append(found, *p)
		}
	}
	return found
}

func detectExcessiveRetries(m Metrics) *AntiPattern {
	if m.RetryCount < retriesMedium {
		return nil
	}
	sev := SeverityMedium
	if m.RetryCount >= retriesHigh {
		sev = SeverityHigh
	}
	return &AntiPattern{
		Name:     PatternExcessiveRetries,
		Severity: sev,
		Detail: fmt.Sprintf(
			"%d retries of failed tool calls", m.RetryCount,
		),
	}
}

func detectHighErrorRate(m Metrics) *AntiPattern {
	if m.ToolCallCount < errorRateMinOps {
		return nil
	}
	rate := float64(m.ErrorCount) / float64(m.ToolCallCount)
	if rate < errorRateMedium {
		return nil
	}
	sev := SeverityMedium
	if rate >= errorRateHigh {
		sev = SeverityHigh
	}
	return &AntiPattern{
		Name:     PatternHighErrorRate,
		Severity: sev,
		Detail: fmt.Sprintf(
			"%d of %d tool calls failed",
			m.ErrorCount, m.ToolCallCount,
		),
	}
}

func detectContextThrash(m Metrics) *AntiPattern {
	if m.ContextOverflowCount < overflowMedium {
		return nil
	}
	sev := SeverityMedium
	if m.ContextOverflowCount >= overflowHigh {
		sev = SeverityHigh
	}
	return &AntiPattern{
		Name:     PatternContextThrash,
		Severity: sev,
		Detail: fmt.Sprintf(
			"%d context overflow markers",
			m.ContextOverflowCount,
		),
	}
}

func detectLongIdleGap(m Metrics) *AntiPattern {
	if m.LongestIdleGap < idleGapLow {
		return nil
	}
	sev := SeverityLow
	if m.LongestIdleGap >= idleGapMedium {
		sev = SeverityMedium
	}
	return &AntiPattern{
		Name:     PatternLongIdleGap,
		Severity: sev,
		Detail: fmt.Sprintf(
			"longest gap between events was %s",
			m.LongestIdleGap.Round(time.Minute),
		),
	}
}

func detectTokenBurn(m Metrics) *AntiPattern {
	if m.TotalTokens < tokenBurnMedium {
		return nil
	}
	sev := SeverityMedium
	if m.TotalTokens >= tokenBurnHigh {
		sev = SeverityHigh
	}
	return &AntiPattern{
		Name:     PatternTokenBurn,
		Severity: sev,
		Detail: fmt.Sprintf(
			"%d total tokens consumed", m.TotalTokens,
		),
	}
}

func detectLowProgress(m Metrics) *AntiPattern {
	if m.ToolCallCount < lowProgressMinTools || m.FilesTouched > 0 {
		return nil
	}
	return &AntiPattern{
		Name:     PatternLowProgress,
		Severity: SeverityMedium,
		Detail: fmt.Sprintf(
			"%d tool calls without a file change",
			m.ToolCallCount,
		),
	}
}

// recommendations maps each anti-pattern to its templated advice.
var recommendations = map[string]string{
	PatternExcessiveRetries: "Repeated identical tool calls after failures rarely converge. Change the input or approach before retrying.",
	PatternHighErrorRate:    "A large share of tool calls failed. Check the working directory, permissions, and command availability.",
	PatternContextThrash:    "The session hit context limits repeatedly. Split the task or reduce the amount of file content pulled into context.",
	PatternLongIdleGap:      "Long idle gaps inflate wall-clock duration. Consider splitting work into separate sessions.",
	PatternTokenBurn:        "Token consumption is high. Narrow file reads and prune conversation history to cut cost.",
	PatternLowProgress:      "Many tool calls produced no file changes. The session may be stuck exploring; restate the goal more concretely.",
}

// Score weights. Changing any of these changes snapshotted scores.
const (
	scoreErrorWeight   = 3
	scoreErrorCap      = 30
	scoreRetryWeight   = 5
	scoreRetryCap      = 25
	scoreOverflowUnit  = 5
	scoreOverflowCap   = 20
	scorePenaltyLow    = 3
	scorePenaltyMedium = 8
	scorePenaltyHigh   = 15
)

// healthScore maps metrics and findings to 0..100, monotonically
// decreasing in every bad count.
func healthScore(m Metrics, patterns []AntiPattern) int {
	score := 100
	score -= capped(m.ErrorCount*scoreErrorWeight, scoreErrorCap)
	score -= capped(m.RetryCount*scoreRetryWeight, scoreRetryCap)
	score -= capped(
		m.ContextOverflowCount*scoreOverflowUnit, scoreOverflowCap,
	)
	for _, p := range patterns {
		switch p.Severity {
		case SeverityLow:
			score -= scorePenaltyLow
		case SeverityMedium:
			score -= scorePenaltyMedium
		case SeverityHigh:
			score -= scorePenaltyHigh
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}

func capped(n, limit int) int {
	if n > limit {
		return limit
	}
	return n
}
