package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Session is an indexed transcript as stored in the sessions table
type Session struct {
	ID               int64
	Provider         string
	SessionID        string
	FilePath         string
	WorkingDir       string
	Originator       string
	Instructions     string
	FirstUserMessage string
	LastUserMessage  string
	LastTimestamp    time.Time
	UserMessageCount int
	EventCount       int
}

// FileState returns the size and mtime recorded for a transcript, and false
// when the file has never been indexed.
func (db *DB) FileState(filePath string) (int64, time.Time, bool, error) {
	var size, mtime sql.NullInt64
	err := db.QueryRow(`SELECT file_size, file_mtime FROM sessions WHERE file_path = ?`, filePath).Scan(&size, &mtime)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, err
	}
	return size.Int64, time.Unix(0, mtime.Int64), true, nil
}

// ReplaceSession stores rec and its events, replacing whatever was indexed
// for the same file. The FTS tables follow through triggers.
func (db *DB) ReplaceSession(rec agentsessions.SessionRecord, events []agentsessions.SessionEvent, size int64, mtime time.Time) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE file_path = ?`, rec.FilePath); err != nil {
		return 0, fmt.Errorf("delete previous session: %w", err)
	}

	res, err := tx.Exec(`
		INSERT INTO sessions (
			provider, session_id, file_path, working_dir, originator, instructions,
			first_user_message, last_user_message, last_timestamp,
			user_message_count, event_count, file_size, file_mtime
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.Provider, rec.ID, rec.FilePath, rec.WorkingDir, rec.Originator, rec.Instructions,
		rec.FirstUserMessage, rec.LastUserMessage, formatTime(rec.LastTimestamp),
		len(rec.UserMessages), len(events), size, mtime.UnixNano(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO events (
			session_id, seq, actor, category, label, text, is_user_message,
			tool_name, tool_phase, tool_identifier, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("prepare event insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, ev := range events {
		var toolName, toolPhase, toolID sql.NullString
		if ev.Tool != nil {
			phase, _ := ev.Tool.Phase.MarshalText()
			toolName = sql.NullString{String: ev.Tool.Name, Valid: ev.Tool.Name != ""}
			toolPhase = sql.NullString{String: string(phase), Valid: true}
			toolID = sql.NullString{String: ev.Tool.Identifier, Valid: ev.Tool.Identifier != ""}
		}
		if _, err := stmt.Exec(
			id, i+1, ev.Actor, ev.Category, ev.Label, ev.Text, ev.SummaryText != "",
			toolName, toolPhase, toolID, formatTime(ev.Timestamp),
		); err != nil {
			return 0, fmt.Errorf("insert event %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

// PruneSessions deletes indexed sessions whose file is not in keep and
// returns how many were removed.
func (db *DB) PruneSessions(keep map[string]bool) (int, error) {
	rows, err := db.Query(`SELECT id, file_path FROM sessions`)
	if err != nil {
		return 0, err
	}
	var stale []int64
	for rows.Next() {
		var id int64
		var path string
		if err := rows.Scan(&id, &path); err != nil {
			_ = rows.Close()
			return 0, err
		}
		if !keep[path] {
			stale = append(stale, id)
		}
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range stale {
		if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
			return 0, fmt.Errorf("delete session %d: %w", id, err)
		}
	}
	return len(stale), nil
}

// ListFilter narrows ListSessions
type ListFilter struct {
	Provider   string
	WorkingDir string // substring match
	Limit      int
}

// ListSessions returns indexed sessions, most recent first
func (db *DB) ListSessions(f ListFilter) ([]Session, error) {
	query := `
		SELECT id, provider, session_id, file_path, COALESCE(working_dir, ''), COALESCE(originator, ''),
			COALESCE(instructions, ''), COALESCE(first_user_message, ''), COALESCE(last_user_message, ''),
			COALESCE(last_timestamp, ''), user_message_count, event_count
		FROM sessions
		WHERE 1 = 1`

	args := []interface{}{}
	if f.Provider != "" {
		query += " AND provider = ?"
		args = append(args, f.Provider)
	}
	if f.WorkingDir != "" {
		query += " AND working_dir LIKE ?"
		args = append(args, "%"+f.WorkingDir+"%")
	}
	query += " ORDER BY last_timestamp IS NULL OR last_timestamp = '', last_timestamp DESC, file_path"
	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetSession returns the indexed session with the given provider session id
func (db *DB) GetSession(sessionID string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, provider, session_id, file_path, COALESCE(working_dir, ''), COALESCE(originator, ''),
			COALESCE(instructions, ''), COALESCE(first_user_message, ''), COALESCE(last_user_message, ''),
			COALESCE(last_timestamp, ''), user_message_count, event_count
		FROM sessions
		WHERE session_id = ?
		ORDER BY last_timestamp DESC
		LIMIT 1
	`, sessionID)
	s, err := scanSession(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var s Session
	var ts string
	err := row.Scan(
		&s.ID, &s.Provider, &s.SessionID, &s.FilePath, &s.WorkingDir, &s.Originator,
		&s.Instructions, &s.FirstUserMessage, &s.LastUserMessage,
		&ts, &s.UserMessageCount, &s.EventCount,
	)
	if err != nil {
		return s, err
	}
	s.LastTimestamp = parseTime(ts)
	return s, nil
}

// timeLayout is fixed-width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(timeLayout), Valid: true}
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
