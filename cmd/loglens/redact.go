package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/redact"
)

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Mask secrets in JSON read from stdin",
	Long: `Reads a JSON document from stdin, masks every string leaf that
matches a known secret pattern, and writes the document to stdout.
Masked spans keep their original length.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		var tree any
		if err := json.Unmarshal(data, &tree); err != nil {
			return fmt.Errorf("stdin is not valid JSON: %w", err)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(redact.Default().Redact(tree))
	},
}

func init() {
	rootCmd.AddCommand(redactCmd)
}
