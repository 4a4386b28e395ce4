// Package watch reports changes to SQL files under a set of paths.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before it is reported.
const DefaultDebounce = 100 * time.Millisecond

// Options configures Run.
type Options struct {
	// Extensions limits reported files. Empty means ".sql".
	Extensions []string
	Debounce   time.Duration
	Logger     *slog.Logger
}

// Run watches paths until ctx is done and calls onChange with each
// written or created file. Directories are watched recursively. Calls
// to onChange are serialized; a burst of events for the same file is
// reported once. Run waits for a running onChange before it returns.
func Run(ctx context.Context, paths []string, opts Options, onChange func(path string)) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".sql"}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	for _, p := range paths {
		if err := add(watcher, p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	var mu sync.Mutex
	timers := map[string]*time.Timer{}

	// serial guards onChange and stopped. Run takes it before returning,
	// so no callback is running or starts once Run has returned.
	var serial sync.Mutex
	stopped := false
	defer func() {
		mu.Lock()
		for _, t := range timers {
			t.Stop()
		}
		mu.Unlock()

		serial.Lock()
		stopped = true
		serial.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := add(watcher, event.Name); err != nil {
						logger.Error("failed to watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 || !matches(event.Name, exts) {
				continue
			}

			name := event.Name
			mu.Lock()
			if t, ok := timers[name]; ok {
				t.Stop()
			}
			timers[name] = time.AfterFunc(debounce, func() {
				serial.Lock()
				defer serial.Unlock()
				if stopped || ctx.Err() != nil {
					return
				}
				logger.Debug("file changed", "file", name)
				onChange(name)
			})
			mu.Unlock()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}

func matches(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// add watches a file, or a directory and all its subdirectories.
func add(watcher *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return watcher.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return watcher.Add(p)
		}
		return nil
	})
}
