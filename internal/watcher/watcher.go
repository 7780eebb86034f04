// Package watcher observes the venv's site-packages directory for
// mutations made outside venvtrack (bare pip, IDE package managers) and
// reports the resulting drift against the ledger's last recorded state.
//
// The watcher is advisory. It never mutates the environment or the
// ledger; drift is only ever recorded by the next venvtrack command.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/blackwell-systems/venvtrack/internal/snapshot"
)

// Event is one detected external mutation, debounced: a burst of
// filesystem activity collapses into a single event carrying the diff
// from the last recorded state to what is installed now.
type Event struct {
	Time time.Time
	// Diff holds the changes relative to the baseline. Nil when the
	// burst settled back to the recorded state.
	Diff *snapshot.Diff
}

// CaptureFunc returns the currently installed package set.
type CaptureFunc func(ctx context.Context) (*snapshot.Snapshot, error)

// BaselineFunc returns the last recorded package set, or nil when no
// operations have been recorded yet.
type BaselineFunc func() (*snapshot.Snapshot, error)

// Watcher watches one site-packages directory.
type Watcher struct {
	dir      string
	capture  CaptureFunc
	baseline BaselineFunc
	debounce time.Duration
}

// New returns a Watcher over the given site-packages directory.
func New(dir string, capture CaptureFunc, baseline BaselineFunc) *Watcher {
	return &Watcher{
		dir:      dir,
		capture:  capture,
		baseline: baseline,
		debounce: 500 * time.Millisecond,
	}
}

// SetDebounce overrides the settle window (useful for testing).
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Run watches until ctx is cancelled, calling cb for each settled burst
// of external activity. Directories created at runtime (new packages)
// are added to the watch list as they appear.
func (w *Watcher) Run(ctx context.Context, cb func(Event)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := addDirsRecursive(fsw, w.dir); err != nil {
		return err
	}

	// settleTimer debounces event bursts; pip touches hundreds of files
	// per install and only the settled end state matters.
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	scheduleSettle := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(w.debounce)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(w.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			return nil

		case <-settleCh:
			ev, err := w.settle(ctx)
			if err != nil {
				continue
			}
			cb(ev)

		case fe, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if fe.Op&fsnotify.Create != 0 {
				// New directories (fresh package installs) need watching
				// too; walking a plain file adds nothing.
				_ = addDirsRecursive(fsw, fe.Name)
			}
			if w.interesting(fe.Name) {
				scheduleSettle()
			}

		case _, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}

// settle captures the current state and diffs it against the baseline.
func (w *Watcher) settle(ctx context.Context) (Event, error) {
	current, err := w.capture(ctx)
	if err != nil {
		return Event{}, err
	}
	base, err := w.baseline()
	if err != nil {
		return Event{}, err
	}

	ev := Event{Time: time.Now()}
	if base != nil {
		if d := snapshot.Compute(base, current); !d.Empty() {
			ev.Diff = d
		}
	}
	return ev, nil
}

// interesting filters filesystem noise down to package-level changes:
// dist-info metadata, egg-links, and entries directly under the root.
func (w *Watcher) interesting(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".pyc") || base == "__pycache__" {
		return false
	}
	if strings.Contains(path, ".dist-info") || strings.HasSuffix(base, ".egg-link") {
		return true
	}
	return filepath.Dir(path) == filepath.Clean(w.dir)
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}
