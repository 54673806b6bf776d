package store

const Schema = `
CREATE TABLE IF NOT EXISTS tracks (
	id TEXT PRIMARY KEY,
	source_url TEXT UNIQUE NOT NULL,
	platform TEXT,
	platform_id TEXT,

	-- Metadata
	title TEXT,
	artist TEXT,
	album TEXT,
	genre TEXT,
	bpm INTEGER,
	key_name TEXT,
	duration_sec INTEGER,
	lufs REAL,
	fingerprint TEXT,

	-- Produced files, format -> absolute path
	paths TEXT,

	-- External ids
	eagle_id TEXT,
	notion_id TEXT,

	-- Processing
	status TEXT NOT NULL,
	error TEXT,

	-- Timestamps
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tracks_platform_id ON tracks(platform, platform_id);
CREATE INDEX IF NOT EXISTS idx_tracks_status ON tracks(status);
CREATE INDEX IF NOT EXISTS idx_tracks_fingerprint ON tracks(fingerprint);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);
`
