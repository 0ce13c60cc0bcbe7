package db

const (
	// SchemaV1 defines the SQL statements for version 1 of the database schema.
	// entry_date holds the calendar day as YYYY-MM-DD; created_at and
	// updated_at are unix milliseconds.
	SchemaV1 = `
CREATE TABLE IF NOT EXISTS moodledger_versions (
    component TEXT PRIMARY KEY,
    version INTEGER NOT NULL,
    created_at REAL DEFAULT (unixepoch())
);

CREATE TABLE IF NOT EXISTS mood_entries (
    id TEXT PRIMARY KEY,
    patient_id TEXT NOT NULL,
    entry_date TEXT NOT NULL,
    mood TEXT NOT NULL CHECK (mood IN ('ANGRY', 'SAD', 'ANXIOUS', 'TIRED', 'CALM', 'HAPPY')),
    mood_score INTEGER NOT NULL CHECK (mood_score BETWEEN 1 AND 5),
    notes TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL,
    UNIQUE (patient_id, entry_date)
);
`
)
