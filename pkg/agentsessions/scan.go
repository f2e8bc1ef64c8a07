package agentsessions

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// maxLineSize bounds a single transcript line. Tool outputs can be large.
const maxLineSize = 64 * 1024 * 1024

// TranscriptFile is one transcript found in a directory listing, with the
// metadata the cache compares against.
type TranscriptFile struct {
	Path     string
	Modified time.Time
	Length   int64
}

// ListTranscripts returns the regular files under root matching the
// doublestar pattern, sorted by path. A missing root is not an error: the
// provider simply has no sessions. Directories that cannot be read are.
func ListTranscripts(root, pattern string) ([]TranscriptFile, error) {
	if root == "" {
		return nil, nil
	}
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	return walkTranscripts(os.DirFS(root), root, pattern)
}

func walkTranscripts(fsys fs.FS, root, pattern string) ([]TranscriptFile, error) {
	var files []TranscriptFile
	err := doublestar.GlobWalk(fsys, pattern, func(rel string, d fs.DirEntry) error {
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			// Vanished between listing and stat.
			return nil
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		files = append(files, TranscriptFile{
			Path:     filepath.Join(root, filepath.FromSlash(rel)),
			Modified: fi.ModTime(),
			Length:   fi.Size(),
		})
		return nil
	}, doublestar.WithFailOnIOErrors()) // otherwise unreadable directories look empty
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Path < files[j].Path
	})
	return files, nil
}

// ScanLines calls fn for every non-blank line of the file at path. Lines are
// only valid for the duration of the call.
func ScanLines(path string, fn func(line []byte)) (err error) {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		fn(line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading file: %w", err)
	}
	return nil
}

// LineParser decodes one transcript line. It reports false for lines that
// should be skipped (malformed JSON, non-object values).
type LineParser func(line []byte, includeRaw bool) (Observation, bool)

// ParseTranscript reads a whole file through parse and returns its
// observations in order.
func ParseTranscript(path string, includeRaw bool, parse LineParser) ([]Observation, error) {
	var observations []Observation
	err := ScanLines(path, func(line []byte) {
		if obs, ok := parse(line, includeRaw); ok {
			observations = append(observations, obs)
		}
	})
	if err != nil {
		return nil, err
	}
	return observations, nil
}

// Events returns the events carried by observations, skipping text-less ones.
func Events(observations []Observation) []SessionEvent {
	events := make([]SessionEvent, 0, len(observations))
	for _, obs := range observations {
		if obs.Event != nil {
			events = append(events, *obs.Event)
		}
	}
	return events
}

// Summarize folds observations into a record; see Aggregator.Record.
func Summarize(provider, path, fallbackID string, observations []Observation) (SessionRecord, bool) {
	var agg Aggregator
	for _, obs := range observations {
		agg.Observe(obs)
	}
	return agg.Record(provider, path, fallbackID)
}
