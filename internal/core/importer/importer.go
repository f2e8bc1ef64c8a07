package importer

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/neilberkman/agentrider/internal/core/db"
	"github.com/neilberkman/agentrider/internal/core/logging"
	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Importer copies provider sessions into the search index
type Importer struct {
	db       *db.DB
	registry *agentsessions.Registry
	logger   *slog.Logger
}

// Result summarizes one import run
type Result struct {
	Indexed   int
	Unchanged int
	Failed    int
	Pruned    int
}

// New creates a new importer
func New(database *db.DB, registry *agentsessions.Registry, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Importer{db: database, registry: registry, logger: logger}
}

// ImportSession indexes one record unless the file is unchanged since the
// last import. It reports whether the record was (re)indexed.
func (i *Importer) ImportSession(rec agentsessions.SessionRecord) (bool, error) {
	info, err := os.Stat(rec.FilePath)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", rec.FilePath, err)
	}

	size, mtime, ok, err := i.db.FileState(rec.FilePath)
	if err != nil {
		return false, fmt.Errorf("failed to check index: %w", err)
	}
	if ok && size == info.Size() && mtime.Equal(info.ModTime()) {
		return false, nil
	}

	events, err := i.registry.LoadSessionEvents(rec, agentsessions.LoadFull, false)
	if err != nil {
		return false, err
	}
	if _, err := i.db.ReplaceSession(rec, events, info.Size(), info.ModTime()); err != nil {
		return false, fmt.Errorf("failed to store session %s: %w", rec.ID, err)
	}
	return true, nil
}

// ImportRecords indexes records, reporting each through progress. With prune
// set, indexed sessions whose file is not among records are removed.
func (i *Importer) ImportRecords(records []agentsessions.SessionRecord, progress ProgressCallback, prune bool) (Result, error) {
	var res Result
	keep := make(map[string]bool, len(records))

	for _, rec := range records {
		keep[rec.FilePath] = true

		changed, err := i.ImportSession(rec)
		switch {
		case err != nil && errors.Is(err, fs.ErrNotExist):
			// Deleted between listing and import
			delete(keep, rec.FilePath)
			res.Failed++
		case err != nil:
			i.logger.Warn("failed to import session", "provider", rec.Provider, "session", rec.ID, "error", err)
			res.Failed++
		case changed:
			res.Indexed++
		default:
			res.Unchanged++
		}

		if progress != nil {
			progress.Update(rec.ID, rec.FirstUserMessage)
		}
	}

	if prune {
		n, err := i.db.PruneSessions(keep)
		if err != nil {
			return res, fmt.Errorf("failed to prune index: %w", err)
		}
		res.Pruned = n
	}
	return res, nil
}

// Sync lists every provider and imports the result. Pruning is skipped when
// a provider failed, so its sessions are not dropped from the index.
func (i *Importer) Sync(progress func(total int) ProgressCallback) (Result, error) {
	records, listErr := i.registry.ListSessions()
	logging.ProviderFailures(i.logger, listErr)

	var cb ProgressCallback
	if progress != nil {
		cb = progress(len(records))
	}
	res, err := i.ImportRecords(records, cb, listErr == nil)
	if cb != nil {
		cb.Finish()
	}
	return res, err
}
