package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Manage loglens log files",
}

var logsPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the log directory path",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := logDir()
		if err != nil {
			return err
		}
		fmt.Println(dir)
		return nil
	},
}

var logsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List log files",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := logDir()
		if err != nil {
			return err
		}
		files, err := filepath.Glob(filepath.Join(dir, "loglens.log*"))
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No log files found")
			return nil
		}
		for _, file := range files {
			info, err := os.Stat(file)
			if err != nil {
				continue
			}
			fmt.Printf("%s (%s)\n", filepath.Base(file),
				humanize.Bytes(uint64(info.Size())))
		}
		return nil
	},
}

func logDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".loglens", "logs"), nil
}

func init() {
	rootCmd.AddCommand(logsCmd)
	logsCmd.AddCommand(logsPathCmd)
	logsCmd.AddCommand(logsListCmd)
}
