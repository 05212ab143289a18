package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/analyze"
	"github.com/loglens/loglens/internal/convert"
	"github.com/loglens/loglens/internal/transcript"
)

var (
	analyzePricing string
	analyzeJSON    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <source> <path>",
	Short: "Report metrics, anti-patterns, and a health score for one session",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := transcript.Source(args[0])
		if !source.Valid() {
			return fmt.Errorf("unknown source %q", args[0])
		}

		pricing, err := loadPricing(analyzePricing)
		if err != nil {
			return err
		}

		t := convert.Convert(source, args[1], convert.Options{
			Now:     time.Now().UTC(),
			Pricing: pricing,
		})
		if t == nil {
			return fmt.Errorf("%s is not a usable %s session", args[1], source)
		}

		result := analyze.Analyze(t)
		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		}
		printAnalysis(t, result)
		return nil
	},
}

func printAnalysis(t *transcript.Transcript, r analyze.Result) {
	fmt.Printf("Session %s (%s)\n", t.ID, t.Source)
	if t.Preview != "" {
		fmt.Printf("  %s\n", t.Preview)
	}
	fmt.Printf("Health score: %d/100\n\n", r.HealthScore)

	m := r.Metrics
	fmt.Printf("Messages:     %d (%d from user)\n",
		m.MessageCount, m.UserMessageCount)
	fmt.Printf("Tool calls:   %d (%d failed, %d retries)\n",
		m.ToolCallCount, m.ErrorCount, m.RetryCount)
	fmt.Printf("Tokens:       %s\n", humanize.Comma(m.TotalTokens))
	if m.CostUSD > 0 {
		fmt.Printf("Cost:         $%.4f\n", m.CostUSD)
	}
	if m.Duration > 0 {
		fmt.Printf("Duration:     %s\n", m.Duration.Round(time.Second))
	}

	if len(r.AntiPatterns) > 0 {
		fmt.Println("\nFindings:")
		for _, p := range r.AntiPatterns {
			fmt.Printf("  [%s] %s: %s\n", p.Severity, p.Name, p.Detail)
		}
	}
	if len(r.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  - %s\n", rec)
		}
	}
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzePricing, "pricing", "",
		"JSON file mapping model ids to per-token costs")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false,
		"emit JSON instead of a report")
	rootCmd.AddCommand(analyzeCmd)
}
