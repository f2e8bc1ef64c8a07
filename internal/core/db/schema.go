package db

func (db *DB) initSchema() error {
	schema := `
	-- One row per transcript file
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT NOT NULL,
		session_id TEXT NOT NULL,
		file_path TEXT UNIQUE NOT NULL,
		working_dir TEXT,
		originator TEXT,
		instructions TEXT,
		first_user_message TEXT,
		last_user_message TEXT,
		last_timestamp TEXT,
		user_message_count INTEGER DEFAULT 0,
		event_count INTEGER DEFAULT 0,
		file_size INTEGER,
		file_mtime INTEGER,
		indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_provider ON sessions(provider);
	CREATE INDEX IF NOT EXISTS idx_sessions_working_dir ON sessions(working_dir);
	CREATE INDEX IF NOT EXISTS idx_sessions_last_timestamp ON sessions(last_timestamp);

	-- Normalized events, in transcript order
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		actor TEXT,
		category TEXT NOT NULL,
		label TEXT,
		text TEXT NOT NULL,
		is_user_message BOOLEAN DEFAULT 0,
		tool_name TEXT,
		tool_phase TEXT,
		tool_identifier TEXT,
		timestamp TEXT,
		FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_events_session_id ON events(session_id, seq);
	CREATE INDEX IF NOT EXISTS idx_events_category ON events(category);
	CREATE INDEX IF NOT EXISTS idx_events_tool_name ON events(tool_name);

	-- Natural language search with porter stemming
	CREATE VIRTUAL TABLE IF NOT EXISTS events_fts USING fts5(
		text,
		content=events,
		content_rowid=id,
		tokenize='porter unicode61'
	);

	-- Code search without stemming (preserves symbols, camelCase)
	CREATE VIRTUAL TABLE IF NOT EXISTS events_fts_code USING fts5(
		text,
		content=events,
		content_rowid=id,
		tokenize='unicode61'
	);

	CREATE TRIGGER IF NOT EXISTS events_ai AFTER INSERT ON events BEGIN
		INSERT INTO events_fts(rowid, text) VALUES (new.id, new.text);
		INSERT INTO events_fts_code(rowid, text) VALUES (new.id, new.text);
	END;

	CREATE TRIGGER IF NOT EXISTS events_ad AFTER DELETE ON events BEGIN
		INSERT INTO events_fts(events_fts, rowid, text) VALUES ('delete', old.id, old.text);
		INSERT INTO events_fts_code(events_fts_code, rowid, text) VALUES ('delete', old.id, old.text);
	END;

	CREATE TRIGGER IF NOT EXISTS events_au AFTER UPDATE ON events BEGIN
		INSERT INTO events_fts(events_fts, rowid, text) VALUES ('delete', old.id, old.text);
		INSERT INTO events_fts_code(events_fts_code, rowid, text) VALUES ('delete', old.id, old.text);
		INSERT INTO events_fts(rowid, text) VALUES (new.id, new.text);
		INSERT INTO events_fts_code(rowid, text) VALUES (new.id, new.text);
	END;
	`

	_, err := db.conn.Exec(schema)
	return err
}
