// Author: Kaviru Hapuarachchi
// GitHub: https://github.com/Kavirubc
// Created: 2026-10-06
// Last Modified: 2026-10-19

package state

type migration struct {
	version int
	sql     string
}

// migrations are applied in order; each records its own version.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	source_url  TEXT NOT NULL DEFAULT '',
	tracker     INTEGER NOT NULL DEFAULT 0,
	target_repo TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS issues (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	position       INTEGER NOT NULL,
	artifact_id    INTEGER NOT NULL,
	title          TEXT NOT NULL DEFAULT '',
	payload        TEXT NOT NULL DEFAULT '',
	skipped        INTEGER NOT NULL DEFAULT 0,
	skip_reason    TEXT NOT NULL DEFAULT '',
	assemble_error TEXT NOT NULL DEFAULT '',
	warnings       TEXT NOT NULL DEFAULT '',
	publish_status TEXT NOT NULL DEFAULT 'none',
	target_repo    TEXT NOT NULL DEFAULT '',
	target_number  INTEGER NOT NULL DEFAULT 0,
	target_url     TEXT NOT NULL DEFAULT '',
	publish_error  TEXT NOT NULL DEFAULT '',
	published_at   DATETIME,
	PRIMARY KEY (run_id, artifact_id)
);

CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(run_id, publish_status);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
