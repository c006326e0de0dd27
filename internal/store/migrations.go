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

CREATE TABLE IF NOT EXISTS messages (
	row_id     TEXT PRIMARY KEY,
	account    TEXT NOT NULL,
	mailbox    TEXT NOT NULL,
	msg_id     TEXT NOT NULL,
	subject    TEXT NOT NULL DEFAULT '',
	timestamp  TEXT NOT NULL DEFAULT '',
	record     TEXT NOT NULL,
	fetched_at DATETIME NOT NULL,
	UNIQUE(account, mailbox, msg_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_account_mailbox ON messages(account, mailbox);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
}
