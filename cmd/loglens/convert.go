package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/convert"
	"github.com/loglens/loglens/internal/redact"
	"github.com/loglens/loglens/internal/transcript"
)

var (
	convertPricing string
	convertRedact  bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <source> <path>",
	Short: "Convert one session log to the canonical transcript JSON",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := transcript.Source(args[0])
		if !source.Valid() {
			return fmt.Errorf("unknown source %q", args[0])
		}

		pricing, err := loadPricing(convertPricing)
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

		out := any(t)
		if convertRedact {
			out = redactTranscript(t)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

// loadPricing reads a model-to-rates table from a JSON file. Falls
// back to the configured pricing_path; without either, every model
// costs zero.
func loadPricing(path string) (transcript.PricingTable, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		path = cfg.PricingPath
	}
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pricing table: %w", err)
	}
	var table transcript.PricingTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing pricing table: %w", err)
	}
	return table, nil
}

// redactTranscript round-trips the transcript through JSON so the
// redactor sees a plain value tree.
func redactTranscript(t *transcript.Transcript) any {
	data, err := json.Marshal(t)
	if err != nil {
		return t
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return t
	}
	return redact.Default().Redact(tree)
}

func init() {
	convertCmd.Flags().StringVar(&convertPricing, "pricing", "",
		"JSON file mapping model ids to per-token costs")
	convertCmd.Flags().BoolVar(&convertRedact, "redact", false,
		"mask secrets in the output")
	rootCmd.AddCommand(convertCmd)
}
