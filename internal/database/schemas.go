package database

// schemas maps database names to their embedded schema DDL.
// Each statement is idempotent so Migrate can run on every startup.
var schemas = map[string]string{
	"matches": `
CREATE TABLE IF NOT EXISTS match_participants (
	match_id            TEXT    NOT NULL,
	player_id           TEXT    NOT NULL,
	champion_id         INTEGER NOT NULL,
	champion_name       TEXT    NOT NULL DEFAULT '',
	role                TEXT    NOT NULL DEFAULT '',
	kills               INTEGER NOT NULL DEFAULT 0,
	deaths              INTEGER NOT NULL DEFAULT 0,
	assists             INTEGER NOT NULL DEFAULT 0,
	creep_score         INTEGER NOT NULL DEFAULT 0,
	vision_score        INTEGER NOT NULL DEFAULT 0,
	gold_earned         INTEGER NOT NULL DEFAULT 0,
	damage_to_champions INTEGER NOT NULL DEFAULT 0,
	duration_minutes    REAL    NOT NULL DEFAULT 0,
	win                 INTEGER NOT NULL DEFAULT 0,
	played_at           INTEGER NOT NULL,
	PRIMARY KEY (match_id, player_id)
);

CREATE INDEX IF NOT EXISTS idx_participants_player_time
	ON match_participants(player_id, played_at);
`,

	"client_data": `
CREATE TABLE IF NOT EXISTS upstream_account (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS upstream_summoner (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS upstream_match_list (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS upstream_match_detail (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS upstream_static (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS analytics_snapshot (
	key TEXT PRIMARY KEY, data BLOB NOT NULL, expires_at INTEGER NOT NULL
);
`,
}
