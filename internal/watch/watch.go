// Package watch observes each source's discovery root and reports
// which sources changed, debounced, so callers can re-run discovery
// only for the trees that moved.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/loglens/loglens/internal/convert"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/transcript"
)

// Watcher maps filesystem events under the source roots to the
// owning source and invokes the callback after the debounce period.
type Watcher struct {
	onChange func(sources []transcript.Source)
	watcher  *fsnotify.Watcher
	debounce time.Duration
	roots    map[string]transcript.Source

	mu      sync.Mutex
	pending map[transcript.Source]time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// New creates a watcher over the given sources' roots. An entry in
// roots overrides that source's resolved root, matching what a
// discovery run over the same sources would scan. Sources whose
// root does not exist are skipped; at least one watchable root is
// required.
func New(
	sources []transcript.Source,
	roots map[transcript.Source]string,
	debounce time.Duration,
	onChange func(sources []transcript.Source),
) (*Watcher, error) {
	if onChange == nil {
		return nil, fmt.Errorf("onChange callback is nil: %w", os.ErrInvalid)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		onChange: onChange,
		watcher:  fsw,
		debounce: debounce,
		roots:    make(map[string]transcript.Source),
		pending:  make(map[transcript.Source]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		now:      time.Now,
	}

	for _, source := range sources {
		root := roots[source]
		if root == "" {
			def, ok := convert.BySource(source)
			if !ok {
				continue
			}
			root = convert.Root(def)
		}
		if root == "" {
			continue
		}
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			// An opencode root is a database file, not a tree.
			if err == nil && !info.IsDir() {
				if err := fsw.Add(filepath.Dir(root)); err == nil {
					w.roots[filepath.Dir(root)] = source
				}
			}
			continue
		}
		if n := w.watchTree(root); n > 0 {
			w.roots[root] = source
		}
	}
	if len(w.roots) == 0 {
		fsw.Close()
		return nil, fmt.Errorf("no watchable source roots")
	}
	return w, nil
}

// watchTree adds root and every subdirectory, returning how many
// directories were added.
func (w *Watcher) watchTree(root string) int {
	added := 0
	_ = filepath.WalkDir(root,
		func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				if addErr := w.watcher.Add(path); addErr == nil {
					added++
				}
			}
			return nil
		})
	return added
}

// Start begins processing events in a goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop halts the watcher and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.watcher.Close()
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Warnf("watcher error: %v", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		w.watchIfDir(event.Name)
	}

	source, ok := w.sourceFor(event.Name)
	if !ok {
		return
	}
	w.mu.Lock()
	w.pending[source] = w.now()
	w.mu.Unlock()
}

// sourceFor resolves an event path to the source owning its root.
func (w *Watcher) sourceFor(path string) (transcript.Source, bool) {
	for root, source := range w.roots {
		if strings.HasPrefix(path, root+string(filepath.Separator)) ||
			path == root {
			return source, true
		}
	}
	return "", false
}

func (w *Watcher) watchIfDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	_ = w.watcher.Add(path)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	now := w.now()
	var ready []transcript.Source
	for source, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, source)
		}
	}
	for _, source := range ready {
		delete(w.pending, source)
	}
	w.mu.Unlock()

	if len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool {
			return ready[i] < ready[j]
		})
		w.onChange(ready)
	}
}
