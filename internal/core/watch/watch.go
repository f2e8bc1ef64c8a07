// Package watch re-lists provider sessions when transcript files change.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/neilberkman/agentrider/internal/core/logging"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Kind classifies a Change.
type Kind int

const (
	Added Kind = iota
	Updated
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "new"
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Change is a session that differs from the previous scan.
type Change struct {
	Kind   Kind
	Record agentsessions.SessionRecord
}

type snapshot struct {
	last     time.Time
	messages int
}

// Watcher tracks provider roots and diffs successive listings.
type Watcher struct {
	registry *agentsessions.Registry
	logger   *slog.Logger
	debounce time.Duration

	fsw  *fsnotify.Watcher
	prev map[string]snapshot
	recs map[string]agentsessions.SessionRecord
}

// New creates a watcher over every provider in reg.
func New(reg *agentsessions.Registry, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		registry: reg,
		logger:   logger,
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) { w.debounce = d }

// Scan lists all providers and returns what changed since the last Scan.
// The first call reports every session as Added.
func (w *Watcher) Scan() []Change {
	records, err := w.registry.ListSessions()
	logging.ProviderFailures(w.logger, err)

	next := make(map[string]snapshot, len(records))
	nextRecs := make(map[string]agentsessions.SessionRecord, len(records))
	var changes []Change
	for _, rec := range records {
		snap := snapshot{last: rec.LastTimestamp, messages: len(rec.UserMessages)}
		next[rec.FilePath] = snap
		nextRecs[rec.FilePath] = rec

		old, seen := w.prev[rec.FilePath]
		switch {
		case !seen:
			changes = append(changes, Change{Kind: Added, Record: rec})
		case !old.last.Equal(snap.last) || old.messages != snap.messages:
			changes = append(changes, Change{Kind: Updated, Record: rec})
		}
	}

	// A failed provider keeps its previous sessions rather than reporting them removed
	if err == nil {
		for path, rec := range w.recs {
			if _, ok := next[path]; !ok {
				changes = append(changes, Change{Kind: Removed, Record: rec})
			}
		}
	} else {
		for path, rec := range w.recs {
			if _, ok := next[path]; !ok {
				next[path] = w.prev[path]
				nextRecs[path] = rec
			}
		}
	}

	w.prev = next
	w.recs = nextRecs
	return changes
}

// Run watches every provider root until ctx is cancelled. It establishes a
// baseline scan, then calls onChange with each non-empty diff.
func (w *Watcher) Run(ctx context.Context, onChange func([]Change)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fsw = fsw
	defer func() { _ = fsw.Close() }()

	watched := 0
	for _, p := range w.registry.Providers() {
		r, ok := p.(interface{ Root() string })
		if !ok {
			continue
		}
		if _, err := os.Stat(r.Root()); err != nil {
			w.logger.Debug("provider root not found", "provider", p.Name(), "root", r.Root())
			continue
		}
		w.addRecursive(r.Root())
		watched++
	}
	if watched == 0 {
		return errors.New("no provider roots to watch")
	}

	w.Scan()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return errors.New("watcher closed unexpectedly")
			}
			if w.handleEvent(ev) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return errors.New("watcher error channel closed")
			}
			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if changes := w.Scan(); len(changes) > 0 {
				onChange(changes)
			}
		}
	}
}

// handleEvent reports whether ev should trigger a rescan.
func (w *Watcher) handleEvent(ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addRecursive(ev.Name)
			return true
		}
	}
	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) ||
		ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (w *Watcher) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}
