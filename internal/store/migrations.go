package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS link_references (
	id           TEXT PRIMARY KEY,
	execution_id INTEGER NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	url          TEXT NOT NULL,
	is_defect    INTEGER NOT NULL DEFAULT 0 CHECK(is_defect IN (0, 1)),
	created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(execution_id, url, is_defect)
);

CREATE INDEX IF NOT EXISTS idx_link_references_execution_id
	ON link_references(execution_id);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_link_references_url
	ON link_references(url);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
