package store

const Schema = `
CREATE TABLE IF NOT EXISTS audios (
	id TEXT PRIMARY KEY,
	source_url TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	artist TEXT NOT NULL DEFAULT '',
	thumbnail_url TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	audio_url TEXT NOT NULL DEFAULT '',
	public_id TEXT NOT NULL DEFAULT '',
	error TEXT,
	tracking_token TEXT NOT NULL DEFAULT '',
	download_count INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- At most one in-flight conversion per source URL. A second request for the
-- same URL must attach to the existing record, never start a duplicate.
CREATE UNIQUE INDEX IF NOT EXISTS idx_audios_active_source ON audios(source_url)
WHERE status IN ('pending', 'processing');

-- At most one completed result per source URL, ever.
CREATE UNIQUE INDEX IF NOT EXISTS idx_audios_completed_source ON audios(source_url)
WHERE status = 'completed';

CREATE INDEX IF NOT EXISTS idx_audios_source_url ON audios(source_url);
CREATE INDEX IF NOT EXISTS idx_audios_status ON audios(status);
CREATE INDEX IF NOT EXISTS idx_audios_tracking_token ON audios(tracking_token);
`
