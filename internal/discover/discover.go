// Package discover finds recent agent sessions on disk without
// fully parsing them. Phase one enumerates candidates cheaply by
// modification time; phase two partially parses only the most
// recent ones, reading bounded head and tail windows.
package discover

import (
	"context"
	"database/sql"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/loglens/loglens/internal/convert"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/transcript"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultLimit bounds a discovery call that does not specify one.
const DefaultLimit = 25

// Oversampling factors: modification time and the log's internal
// latest-event timestamp can diverge, so more candidates are parsed
// than returned.
const (
	oversample    = 2
	oversampleAll = 3
)

// openCodeCLITimeout bounds the fallback session-listing process.
const openCodeCLITimeout = 5 * time.Second

// Options configures a single-source discovery call.
type Options struct {
	Limit int
	// Root overrides the source's resolved discovery root.
	Root string
}

// AllOptions configures a fan-out over several sources.
type AllOptions struct {
	// Sources to scan; empty means every supported source.
	Sources []transcript.Source
	// Roots overrides the resolved discovery root per source.
	Roots map[transcript.Source]string
	// Cwd filters results to sessions whose working directory is
	// an ancestor or descendant of this path.
	Cwd   string
	Limit int
}

// Discover lists a source's most recent sessions, newest first by
// parsed timestamp. An inaccessible root yields an empty list.
func Discover(source transcript.Source, opts Options) []transcript.Discovered {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	def, ok := convert.BySource(source)
	if !ok {
		return nil
	}
	root := opts.Root
	if root == "" {
		root = convert.Root(def)
	}
	if root == "" {
		return nil
	}

	if source == transcript.SourceOpenCode {
		return discoverOpenCode(root, limit)
	}

	strat, ok := strategies[source]
	if !ok {
		return nil
	}

	cands := strat.enumerate(root)
	sort.Slice(cands, func(i, j int) bool {
		return cands[i].mtime.After(cands[j].mtime)
	})
	if len(cands) > limit*oversample {
		cands = cands[:limit*oversample]
	}

	var found []transcript.Discovered
	for _, c := range cands {
		if d := strat.probe(c.path); d != nil && d.ID != "" {
			if d.Timestamp.IsZero() {
				d.Timestamp = c.mtime
			}
			found = append(found, *d)
		}
	}

	sortByTimestamp(found)
	if len(found) > limit {
		found = found[:limit]
	}
	return found
}

// DiscoverAll scans the requested sources concurrently and merges
// the pooled results, newest first. One failing source never fails
// the whole call.
func DiscoverAll(ctx context.Context, opts AllOptions) []transcript.Discovered {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	sources := opts.Sources
	if len(sources) == 0 {
		sources = transcript.Sources
	}

	var (
		mu     sync.Mutex
		pooled []transcript.Discovered
	)
	g, _ := errgroup.WithContext(ctx)
	for _, source := range sources {
		source := source
		g.Go(func() error {
			// Each source contributes limit*oversampleAll entries
			// so the blank-preview and cwd filters below still
			// leave enough survivors after the merge.
			found := Discover(source, Options{
				Limit: limit * oversampleAll,
				Root:  opts.Roots[source],
			})
			mu.Lock()
			pooled = append(pooled, found...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	var merged []transcript.Discovered
	for _, d := range pooled {
		if strings.TrimSpace(d.Preview) == "" {
			continue
		}
		if opts.Cwd != "" && !cwdMatches(d.Cwd, opts.Cwd) {
			continue
		}
		merged = append(merged, d)
	}

	sortByTimestamp(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func sortByTimestamp(ds []transcript.Discovered) {
	sort.SliceStable(ds, func(i, j int) bool {
		return ds[i].Timestamp.After(ds[j].Timestamp)
	})
}

// cwdMatches reports whether a session's cwd and the filter path
// contain one another as path prefixes, in either direction.
func cwdMatches(cwd, filter string) bool {
	if cwd == "" {
		return false
	}
	return strings.HasPrefix(cwd, filter) ||
		strings.HasPrefix(filter, cwd)
}

// discoverOpenCode lists sessions straight from the database, most
// recently updated first. When the database is missing, the
// opencode CLI is tried under a hard timeout.
func discoverOpenCode(dbPath string, limit int) []transcript.Discovered {
	db, err := sql.Open("sqlite3",
		"file:"+dbPath+"?mode=ro&_journal_mode=WAL&_busy_timeout=3000")
	if err != nil {
		return discoverOpenCodeCLI(limit)
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT s.id, COALESCE(s.title, ''),
		       COALESCE(p.worktree, ''), s.time_updated
		FROM session s
		LEFT JOIN project p ON p.id = s.project_id
		ORDER BY s.time_updated DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return discoverOpenCodeCLI(limit)
	}
	defer rows.Close()

	var found []transcript.Discovered
	for rows.Next() {
		var (
			id, title, worktree string
			updated             int64
		)
		if err := rows.Scan(&id, &title, &worktree, &updated); err != nil {
			continue
		}
		found = append(found, transcript.Discovered{
			ID:        id,
			Source:    transcript.SourceOpenCode,
			Path:      dbPath + "#" + id,
			Timestamp: time.UnixMilli(updated).UTC(),
			Preview:   convert.CleanPreview(title),
			Cwd:       worktree,
		})
	}
	return found
}

// discoverOpenCodeCLI shells out to the opencode binary for a
// session list. The process is killed at the deadline and any
// failure resolves to no data.
func discoverOpenCodeCLI(limit int) []transcript.Discovered {
	ctx, cancel := context.WithTimeout(
		context.Background(), openCodeCLITimeout,
	)
	defer cancel()

	out, err := exec.CommandContext(
		ctx, "opencode", "session", "list", "--json",
	).Output()
	if err != nil {
		logging.Debugf("opencode cli fallback: %v", err)
		return nil
	}

	parsed := gjson.ParseBytes(out)
	if !parsed.IsArray() {
		return nil
	}
	var found []transcript.Discovered
	parsed.ForEach(func(_, row gjson.Result) bool {
		id := row.Get("id").Str
		if id == "" {
			return true
		}
		found = append(found, transcript.Discovered{
			ID:        id,
			Source:    transcript.SourceOpenCode,
			Path:      "opencode#" + id,
			Timestamp: time.UnixMilli(row.Get("time.updated").Int()).UTC(),
			Preview:   convert.CleanPreview(row.Get("title").Str),
			Cwd:       row.Get("directory").Str,
		})
		return len(found) < limit
	})
	return found
}
