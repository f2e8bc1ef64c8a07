package agentsessions

import (
	"sync"
	"time"
)

// maxParseWorkers bounds how many changed transcripts are parsed at once.
const maxParseWorkers = 8

type cacheEntry struct {
	modified time.Time
	length   int64
	record   SessionRecord
}

// Cache remembers the record parsed from each transcript, keyed by the path
// as listed. An entry is reused only while the file's modification time and
// length are unchanged. The zero value is not usable; call NewCache.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// ParseFunc parses one transcript into a record, reporting false when the
// file yields no record (unreadable, or no user input).
type ParseFunc func(file TranscriptFile) (SessionRecord, bool)

type parseResult struct {
	file   TranscriptFile
	record SessionRecord
	ok     bool
}

// Refresh brings the cache in line with a directory listing and returns the
// records for files, in listing order. Unchanged files are served from the
// cache, changed or new ones are parsed outside the lock, and cached paths
// missing from files are evicted.
func (c *Cache) Refresh(files []TranscriptFile, parse ParseFunc) []SessionRecord {
	records := make([]*SessionRecord, len(files))
	var misses []int

	c.mu.Lock()
	for i, f := range files {
		entry, ok := c.entries[f.Path]
		if ok && entry.length == f.Length && entry.modified.Equal(f.Modified) {
			rec := entry.record
			records[i] = &rec
			continue
		}
		misses = append(misses, i)
	}
	c.mu.Unlock()

	results := parseAll(files, misses, parse)

	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
	}

	c.mu.Lock()
	for i, res := range results {
		if !res.ok {
			delete(c.entries, res.file.Path)
			continue
		}
		c.entries[res.file.Path] = cacheEntry{
			modified: res.file.Modified,
			length:   res.file.Length,
			record:   res.record,
		}
		rec := res.record
		records[misses[i]] = &rec
	}
	for path := range c.entries {
		if _, ok := seen[path]; !ok {
			delete(c.entries, path)
		}
	}
	c.mu.Unlock()

	out := make([]SessionRecord, 0, len(files))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

// Len returns the number of cached records.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached record.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// parseAll parses files[idx] for each idx with a bounded worker pool. The
// result slice is aligned with idx.
func parseAll(files []TranscriptFile, idx []int, parse ParseFunc) []parseResult {
	results := make([]parseResult, len(idx))
	if len(idx) == 0 {
		return results
	}

	workers := min(maxParseWorkers, len(idx))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				f := files[idx[j]]
				rec, ok := parse(f)
				results[j] = parseResult{file: f, record: rec, ok: ok}
			}
		}()
	}
	for j := range idx {
		jobs <- j
	}
	close(jobs)
	wg.Wait()
	return results
}
