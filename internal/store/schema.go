package store

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	name         TEXT NOT NULL,
	name_lower   TEXT NOT NULL UNIQUE,
	path         TEXT NOT NULL,
	category     TEXT NOT NULL,
	aliases_json TEXT,
	hub_score    INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_entities_category ON entities(category);

CREATE TABLE IF NOT EXISTS links (
	source_path TEXT NOT NULL,
	target      TEXT NOT NULL,
	target_path TEXT,
	line_number INTEGER
);

CREATE INDEX IF NOT EXISTS idx_links_source ON links(source_path);
CREATE INDEX IF NOT EXISTS idx_links_target ON links(target_path);

CREATE TABLE IF NOT EXISTS recency (
	entity_name_lower TEXT PRIMARY KEY,
	last_mentioned_at INTEGER NOT NULL,
	mention_count     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS config (
	namespace TEXT NOT NULL,
	key       TEXT NOT NULL,
	value     TEXT NOT NULL,
	PRIMARY KEY (namespace, key)
);

CREATE TABLE IF NOT EXISTS notes (
	path         TEXT PRIMARY KEY,
	title        TEXT NOT NULL DEFAULT '',
	content_hash TEXT NOT NULL DEFAULT '',
	modified_at  INTEGER,
	aliases_json TEXT,
	tags_json    TEXT
);

CREATE TABLE IF NOT EXISTS metadata (
	id                INTEGER PRIMARY KEY CHECK (id = 1),
	schema_version    INTEGER NOT NULL,
	entity_count      INTEGER NOT NULL DEFAULT 0,
	note_count        INTEGER NOT NULL DEFAULT 0,
	entities_built_at INTEGER,
	notes_built_at    INTEGER
);

INSERT OR IGNORE INTO metadata (id, schema_version) VALUES (1, 3);

CREATE TABLE IF NOT EXISTS vault_cache (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	data       BLOB NOT NULL,
	note_count INTEGER NOT NULL,
	saved_at   INTEGER NOT NULL
);
`
