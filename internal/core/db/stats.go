package db

import (
	"database/sql"
	"time"
)

// Stats represents database statistics
type Stats struct {
	TotalSessions          int
	TotalEvents            int
	TotalToolUses          int
	SessionsByProvider     map[string]int
	OldestActivity         time.Time
	NewestActivity         time.Time
	MostActiveProject      string
	MostActiveProjectCount int
}

// GetStats returns index statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{SessionsByProvider: make(map[string]int)}

	err := db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&stats.TotalSessions)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM events").Scan(&stats.TotalEvents)
	if err != nil {
		return nil, err
	}

	err = db.QueryRow("SELECT COUNT(*) FROM events WHERE tool_phase = 'use'").Scan(&stats.TotalToolUses)
	if err != nil {
		return nil, err
	}

	if stats.TotalSessions == 0 {
		return stats, nil
	}

	rows, err := db.Query("SELECT provider, COUNT(*) FROM sessions GROUP BY provider")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var provider string
		var count int
		if err := rows.Scan(&provider, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		stats.SessionsByProvider[provider] = count
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var oldest, newest sql.NullString
	err = db.QueryRow(`
		SELECT MIN(last_timestamp), MAX(last_timestamp)
		FROM sessions WHERE last_timestamp IS NOT NULL AND last_timestamp != ''
	`).Scan(&oldest, &newest)
	if err != nil {
		return nil, err
	}
	stats.OldestActivity = parseTime(oldest.String)
	stats.NewestActivity = parseTime(newest.String)

	var mostActiveProject sql.NullString
	err = db.QueryRow(`
		SELECT working_dir, COUNT(*) as count
		FROM sessions
		WHERE working_dir IS NOT NULL AND working_dir != ''
		GROUP BY working_dir
		ORDER BY count DESC
		LIMIT 1
	`).Scan(&mostActiveProject, &stats.MostActiveProjectCount)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if mostActiveProject.Valid {
		stats.MostActiveProject = mostActiveProject.String
	}

	return stats, nil
}
