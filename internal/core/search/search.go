package search

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/neilberkman/agentrider/internal/core/db"
)

// SearchResult is one matching event
type SearchResult struct {
	Provider   string
	SessionID  string
	FilePath   string
	WorkingDir string
	Seq        int
	Label      string
	Category   string
	Snippet    string
	Timestamp  string
}

// Options narrows a search
type Options struct {
	Provider string
	Limit    int
	Code     bool // search the unstemmed table
}

// Default sort order for search results (most recent first)
const defaultOrderBy = "e.timestamp DESC, e.id DESC"

// Search performs a full-text search using the natural language FTS table
// Results are ordered by timestamp (most recent first)
func Search(database *db.DB, query string) ([]SearchResult, error) {
	return SearchWith(database, query, Options{})
}

// SearchCode performs a full-text search using the code-optimized FTS table
// This table uses unicode61 tokenizer without stemming to preserve code identifiers
func SearchCode(database *db.DB, query string) ([]SearchResult, error) {
	return SearchWith(database, query, Options{Code: true})
}

// SearchWith runs a search with the given options
func SearchWith(database *db.DB, query string, opts Options) ([]SearchResult, error) {
	table := "events_fts"
	if opts.Code {
		table = "events_fts_code"
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 1000
	}
	return search(database, query, table, opts.Provider, limit)
}

func search(database *db.DB, query, ftsTable, provider string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}

	// FTS5 tokenizes these away; fall back to substring matching
	hasSpecialChars := strings.ContainsAny(query, "-_@#$%&/.")

	const columns = `s.provider, s.session_id, s.file_path, COALESCE(s.working_dir, ''),
				e.seq, COALESCE(e.label, ''), e.category`

	providerClause := ""
	args := []interface{}{query}
	if provider != "" {
		providerClause = "AND s.provider = ?"
		args = append(args, provider)
	}
	args = append(args, limit)

	var q string
	if hasSpecialChars {
		q = fmt.Sprintf(`
			SELECT %s, e.text, COALESCE(e.timestamp, '')
			FROM events e
			JOIN sessions s ON s.id = e.session_id
			WHERE e.text LIKE '%%' || ? || '%%' %s
			ORDER BY %s
			LIMIT ?
		`, columns, providerClause, defaultOrderBy)
	} else {
		q = fmt.Sprintf(`
			SELECT %s, snippet(%s, -1, '', '', '...', 64), COALESCE(e.timestamp, '')
			FROM %s
			JOIN events e ON %s.rowid = e.id
			JOIN sessions s ON s.id = e.session_id
			WHERE %s MATCH ? %s
			ORDER BY %s
			LIMIT ?
		`, columns, ftsTable, ftsTable, ftsTable, ftsTable, providerClause, defaultOrderBy)
	}

	rows, err := database.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanResults(rows, hasSpecialChars, query)
}

func scanResults(rows *sql.Rows, trim bool, query string) ([]SearchResult, error) {
	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.Provider,
			&r.SessionID,
			&r.FilePath,
			&r.WorkingDir,
			&r.Seq,
			&r.Label,
			&r.Category,
			&r.Snippet,
			&r.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if trim {
			r.Snippet = excerpt(r.Snippet, query, 64)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

// excerpt cuts text to roughly width words around the first match of query.
func excerpt(text, query string, width int) string {
	words := strings.Fields(text)
	if len(words) <= width {
		return strings.Join(words, " ")
	}
	lq := strings.ToLower(query)
	hit := 0
	for i, w := range words {
		if strings.Contains(strings.ToLower(w), lq) {
			hit = i
			break
		}
	}
	start := max(0, hit-width/2)
	end := min(len(words), start+width)
	out := strings.Join(words[start:end], " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(words) {
		out += "..."
	}
	return out
}
