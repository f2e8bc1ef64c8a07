package agentsessions

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingParser struct {
	calls atomic.Int32
	skip  map[string]bool
}

func (c *countingParser) parse(f TranscriptFile) (SessionRecord, bool) {
	c.calls.Add(1)
	if c.skip[f.Path] {
		return SessionRecord{}, false
	}
	return SessionRecord{
		Provider:     "test",
		ID:           f.Path,
		FilePath:     f.Path,
		UserMessages: []string{"hi"},
	}, true
}

func TestCacheRefreshIsIdempotent(t *testing.T) {
	now := time.Now()
	files := []TranscriptFile{
		{Path: "/s/b.jsonl", Modified: now, Length: 10},
		{Path: "/s/a.jsonl", Modified: now, Length: 20},
	}
	cache := NewCache()
	parser := &countingParser{}

	first := cache.Refresh(files, parser.parse)
	require.Len(t, first, 2)
	assert.Equal(t, "/s/b.jsonl", first[0].FilePath, "output follows listing order")
	assert.Equal(t, int32(2), parser.calls.Load())

	second := cache.Refresh(files, parser.parse)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(2), parser.calls.Load(), "unchanged files must not be reparsed")
}

func TestCacheRefreshInvalidatesOnChange(t *testing.T) {
	now := time.Now()
	cache := NewCache()
	parser := &countingParser{}

	cache.Refresh([]TranscriptFile{{Path: "/s/a.jsonl", Modified: now, Length: 10}}, parser.parse)

	cache.Refresh([]TranscriptFile{{Path: "/s/a.jsonl", Modified: now, Length: 11}}, parser.parse)
	assert.Equal(t, int32(2), parser.calls.Load(), "length change")

	cache.Refresh([]TranscriptFile{{Path: "/s/a.jsonl", Modified: now.Add(time.Second), Length: 11}}, parser.parse)
	assert.Equal(t, int32(3), parser.calls.Load(), "mtime change")
}

func TestCacheRefreshEvictsStalePaths(t *testing.T) {
	now := time.Now()
	cache := NewCache()
	parser := &countingParser{}

	cache.Refresh([]TranscriptFile{
		{Path: "/s/a.jsonl", Modified: now, Length: 1},
		{Path: "/s/b.jsonl", Modified: now, Length: 1},
	}, parser.parse)
	require.Equal(t, 2, cache.Len())

	records := cache.Refresh([]TranscriptFile{{Path: "/s/b.jsonl", Modified: now, Length: 1}}, parser.parse)
	require.Len(t, records, 1)
	assert.Equal(t, "/s/b.jsonl", records[0].FilePath)
	assert.Equal(t, 1, cache.Len())

	assert.Empty(t, cache.Refresh(nil, parser.parse))
	assert.Equal(t, 0, cache.Len())
}

func TestCacheRefreshDropsFilesWithoutRecord(t *testing.T) {
	now := time.Now()
	cache := NewCache()
	parser := &countingParser{}

	cache.Refresh([]TranscriptFile{{Path: "/s/a.jsonl", Modified: now, Length: 1}}, parser.parse)
	require.Equal(t, 1, cache.Len())

	parser.skip = map[string]bool{"/s/a.jsonl": true}
	records := cache.Refresh([]TranscriptFile{{Path: "/s/a.jsonl", Modified: now, Length: 2}}, parser.parse)
	assert.Empty(t, records)
	assert.Equal(t, 0, cache.Len())
}

func TestCacheRefreshManyFiles(t *testing.T) {
	now := time.Now()
	files := make([]TranscriptFile, 50)
	for i := range files {
		files[i] = TranscriptFile{Path: "/s/" + string(rune('a'+i%26)) + string(rune('a'+i/26)) + ".jsonl", Modified: now, Length: int64(i)}
	}
	cache := NewCache()
	parser := &countingParser{}

	records := cache.Refresh(files, parser.parse)
	require.Len(t, records, len(files))
	for i, rec := range records {
		assert.Equal(t, files[i].Path, rec.FilePath)
	}
	assert.Equal(t, int32(len(files)), parser.calls.Load())
}
