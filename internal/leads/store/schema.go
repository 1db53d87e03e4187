package store

// One row per lead. Timestamps are RFC3339 UTC text (sortable); empty text
// means "not set". Step and status are the fixed enumerations from the
// domain package.
const schema = `
CREATE TABLE IF NOT EXISTS leads (
	lead_id               TEXT PRIMARY KEY,
	name                  TEXT NOT NULL DEFAULT '',
	step                  TEXT NOT NULL,
	age                   INTEGER NOT NULL DEFAULT 0,
	country               TEXT NOT NULL DEFAULT '',
	interest              TEXT NOT NULL DEFAULT '',
	status                TEXT NOT NULL,
	last_agent_message_at TEXT NOT NULL DEFAULT '',
	last_user_message_at  TEXT NOT NULL DEFAULT '',
	follow_up_sent        INTEGER NOT NULL DEFAULT 0,
	created_at            TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_status_followup
	ON leads (status, follow_up_sent);
`
