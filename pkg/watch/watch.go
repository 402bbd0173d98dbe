// Package watch runs a handler for every mesh file that lands in an inbox
// directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/chazu/ezsplit/pkg/logging"
)

// DefaultSettle is how long a file must go without writes before it is
// handled.
const DefaultSettle = 250 * time.Millisecond

// Handler processes one settled file. Errors are logged and the watcher
// keeps running.
type Handler func(ctx context.Context, file string) error

// Watcher watches a single directory, non-recursively. Only files with the
// configured extension are handled; handlers run one at a time on the
// watcher's goroutine.
type Watcher struct {
	Settle time.Duration

	dir     string
	ext     string
	handle  Handler
	fs      *fsnotify.Watcher
	pending map[string]time.Time
}

// New watches dir for files ending in ext.
func New(dir, ext string, h Handler) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}
	return &Watcher{
		Settle:  DefaultSettle,
		dir:     dir,
		ext:     ext,
		handle:  h,
		fs:      fs,
		pending: make(map[string]time.Time),
	}, nil
}

// Run handles files already in the directory, then every file created or
// written until ctx is done. It always returns ctx.Err().
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	for _, f := range w.existing() {
		w.run(ctx, f)
	}

	tick := time.NewTicker(w.Settle / 2)
	defer tick.Stop()
	for {
		select {
		case e, ok := <-w.fs.Events:
			if !ok {
				return ctx.Err()
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 && w.wants(e.Name) {
				w.pending[e.Name] = time.Now()
			}
			if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				delete(w.pending, e.Name)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ctx.Err()
			}
			logging.Error("watch %s: %v", w.dir, err)

		case now := <-tick.C:
			for _, f := range w.settled(now) {
				w.run(ctx, f)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// settled removes and returns the pending files that have been quiet for
// Settle, in name order.
func (w *Watcher) settled(now time.Time) []string {
	var out []string
	for f, last := range w.pending {
		if now.Sub(last) >= w.Settle {
			out = append(out, f)
			delete(w.pending, f)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) run(ctx context.Context, file string) {
	if fi, err := os.Stat(file); err != nil || fi.IsDir() {
		return
	}
	logging.Info("inbox: handling %s", file)
	if err := w.handle(ctx, file); err != nil {
		logging.Error("inbox: %s: %v", file, err)
	}
}

func (w *Watcher) existing() []string {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logging.Error("watch %s: %v", w.dir, err)
		return nil
	}
	var out []string
	for _, e := range entries {
		f := filepath.Join(w.dir, e.Name())
		if !e.IsDir() && w.wants(f) {
			out = append(out, f)
		}
	}
	return out
}

func (w *Watcher) wants(file string) bool {
	return strings.EqualFold(filepath.Ext(file), w.ext) && filepath.Dir(file) == filepath.Clean(w.dir)
}
