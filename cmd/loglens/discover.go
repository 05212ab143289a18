package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/loglens/loglens/internal/config"
	"github.com/loglens/loglens/internal/discover"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/transcript"
	"github.com/loglens/loglens/internal/watch"
)

var (
	discoverSource string
	discoverLimit  int
	discoverCwd    string
	discoverJSON   bool
	discoverWatch  bool
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List recent agent sessions found on this machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := selectedSources(discoverSource)
		if err != nil {
			return err
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		limit := resolveLimit(discoverLimit, cfg.Limit)

		run := func() {
			found := discover.DiscoverAll(
				context.Background(), discover.AllOptions{
					Sources: sources,
					Roots:   cfg.Roots,
					Cwd:     discoverCwd,
					Limit:   limit,
				})
			printDiscovered(found)
		}
		run()

		if !discoverWatch {
			return nil
		}
		return watchAndRerun(sources, cfg.Roots, run)
	},
}

func selectedSources(flag string) ([]transcript.Source, error) {
	if flag == "" {
		return nil, nil
	}
	source := transcript.Source(flag)
	if !source.Valid() {
		return nil, fmt.Errorf("unknown source %q", flag)
	}
	return []transcript.Source{source}, nil
}

func printDiscovered(found []transcript.Discovered) {
	if discoverJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(found)
		return
	}
	if len(found) == 0 {
		fmt.Println("No sessions found")
		return
	}
	for _, d := range found {
		age := "unknown time"
		if !d.Timestamp.IsZero() {
			age = humanize.Time(d.Timestamp)
		}
		fmt.Printf("%-12s %-14s %s\n", d.Source, age, d.Preview)
		fmt.Printf("             %s\n", d.Path)
	}
}

// resolveLimit layers the session limit: an explicit --limit wins,
// then the config file's limit, then the built-in default.
func resolveLimit(flagValue, configLimit int) int {
	if flagValue > 0 {
		return flagValue
	}
	if configLimit > 0 {
		return configLimit
	}
	return discover.DefaultLimit
}

// watchAndRerun re-runs discovery whenever a source tree changes,
// until interrupted. The same root overrides the discovery run
// honors apply to the watched trees.
func watchAndRerun(
	sources []transcript.Source,
	roots map[transcript.Source]string,
	run func(),
) error {
	if len(sources) == 0 {
		sources = transcript.Sources
	}
	w, err := watch.New(sources, roots, 2*time.Second,
		func(changed []transcript.Source) {
			logging.Infof("sources changed: %v", changed)
			fmt.Println()
			run()
		})
	if err != nil {
		return err
	}
	w.Start()
	defer w.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func init() {
	discoverCmd.Flags().StringVar(&discoverSource, "source", "",
		"only scan one source (claude-code, codex, cline, opencode, pi)")
	discoverCmd.Flags().IntVar(&discoverLimit, "limit", 0,
		fmt.Sprintf("maximum sessions to return (default %d)",
			discover.DefaultLimit))
	discoverCmd.Flags().StringVar(&discoverCwd, "cwd", "",
		"only sessions whose working directory contains or is contained by this path")
	discoverCmd.Flags().BoolVar(&discoverJSON, "json", false,
		"emit JSON instead of a table")
	discoverCmd.Flags().BoolVar(&discoverWatch, "watch", false,
		"keep running and re-list when a source tree changes")
	rootCmd.AddCommand(discoverCmd)
}
