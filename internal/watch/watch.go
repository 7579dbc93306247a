// Package watch keeps a search resident and re-runs it when watched
// source files change.
//
// A session runs the pipeline once, derives fsnotify watches from the
// directories containing its candidate files, and re-runs after a quiet
// period whenever a recognized file is created, written, renamed, or
// removed. Writes that leave file content byte-identical (editor saves
// without modification, touch) are detected by content hash and do not
// trigger a re-run.
package watch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/pf/internal/logging"
	"github.com/standardbeagle/pf/internal/resolve"
	"github.com/standardbeagle/pf/internal/runner"
	"github.com/standardbeagle/pf/pkg/pathutil"
)

// DefaultDebounce is the quiet period between the last file event and the
// re-run it triggers.
const DefaultDebounce = 200 * time.Millisecond

// Session is a single resident watch run. Populate the exported fields
// and call Run once; Run blocks until ctx is cancelled and returns the
// exit code of the session (0 when the latest run had matches, 1
// otherwise).
type Session struct {
	Request  runner.Request
	Stdout   io.Writer
	Stderr   io.Writer
	Debounce time.Duration // 0 means DefaultDebounce

	log     *slog.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{} // event paths since the last flush
	dirs    map[string]struct{} // canonical watched directories
	timer   *time.Timer
	rerun   chan struct{}

	hashes map[string]uint64 // candidate key -> last seen content hash
}

// Run performs the initial search, then re-runs it on debounced file
// changes until ctx is cancelled. Each re-run is announced on stderr with
// a "--- <RFC3339 timestamp> ---" separator line.
func (s *Session) Run(ctx context.Context) (int, error) {
	if s.Debounce <= 0 {
		s.Debounce = DefaultDebounce
	}
	s.log = s.Request.Log
	if s.log == nil {
		s.log = logging.Nop()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return 1, fmt.Errorf("start watcher: %w", err)
	}
	s.watcher = watcher
	defer watcher.Close()

	s.pending = make(map[string]struct{})
	s.dirs = make(map[string]struct{})
	s.hashes = make(map[string]uint64)
	s.rerun = make(chan struct{}, 1)

	latest := runner.Run(ctx, s.Request, s.Stdout, s.Stderr)
	s.refresh()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.eventLoop(gctx)
		return nil
	})

	for {
		select {
		case <-gctx.Done():
			_ = g.Wait()
			if latest.Matches > 0 {
				return 0, nil
			}
			return 1, nil
		case <-s.rerun:
			if !s.takeChanged() {
				s.log.Debug("content unchanged, skipping re-run")
				continue
			}
			fmt.Fprintf(s.Stderr, "--- %s ---\n", time.Now().Format(time.RFC3339))
			latest = runner.Run(gctx, s.Request, s.Stdout, s.Stderr)
			s.refresh()
		}
	}
}

// refresh re-derives watched directories and content hashes from the
// current candidate set. Files already re-hashed by takeChanged keep
// their value; only unseen candidates are read here.
func (s *Session) refresh() {
	resolution := resolve.Roots(s.Request.Roots, s.Request.Resolve)
	for _, f := range resolution.Files {
		s.addDir(filepath.Dir(f.Display))
		if _, ok := s.hashes[f.Key]; !ok {
			if data, err := os.ReadFile(f.Display); err == nil {
				s.hashes[f.Key] = xxhash.Sum64(data)
			}
		}
	}
	for _, root := range s.Request.Roots {
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			s.addDir(root)
		}
	}
}

func (s *Session) addDir(dir string) {
	key := pathutil.Canonical(dir)
	s.mu.Lock()
	_, seen := s.dirs[key]
	s.dirs[key] = struct{}{}
	s.mu.Unlock()
	if seen {
		return
	}

	if err := s.watcher.Add(dir); err != nil {
		s.log.Warn("cannot watch directory", "dir", dir, "error", err)
	}
}

func (s *Session) watchedDir(path string) bool {
	key := pathutil.Canonical(path)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirs[key]
	return ok
}

func (s *Session) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Error("watch error", "error", err)
		}
	}
}

func (s *Session) handleEvent(event fsnotify.Event) {
	const ops = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&ops == 0 {
		return
	}

	path := event.Name

	// A directory appearing under a watched one starts generating its
	// own events; files moved in alongside it are caught by the watch
	// added here.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			s.addDir(path)
			return
		}
	}

	if resolve.PythonFile(path) {
		s.pend(path)
		return
	}

	// A watched directory going away takes its candidates with it.
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		if s.watchedDir(path) {
			s.pend(path)
		}
	}
}

func (s *Session) pend(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[path] = struct{}{}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.Debounce, s.flush)
}

func (s *Session) flush() {
	select {
	case s.rerun <- struct{}{}:
	default:
	}
}

// takeChanged drains the pending set and reports whether any path's
// content differs from the last seen hash. Unreadable paths (removed
// files, vanished directories) always count as changed.
func (s *Session) takeChanged() bool {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[string]struct{})
	s.mu.Unlock()

	changed := false
	for path := range batch {
		key := pathutil.Canonical(path)
		data, err := os.ReadFile(path)
		if err != nil {
			delete(s.hashes, key)
			changed = true
			continue
		}
		sum := xxhash.Sum64(data)
		if old, ok := s.hashes[key]; !ok || old != sum {
			s.hashes[key] = sum
			changed = true
		}
	}
	return changed
}
