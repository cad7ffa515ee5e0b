package storage

const schema = `
-- One row per card fingerprint. Scheduling state starts as the all-null
-- "new" cluster: review_count = 0 exactly when last_reviewed_at,
-- stability, difficulty and due_date are all NULL.
CREATE TABLE IF NOT EXISTS cards (
    card_hash TEXT PRIMARY KEY,
    added_at TEXT NOT NULL,
    last_reviewed_at TEXT,
    stability REAL,
    difficulty REAL,
    interval_raw REAL,
    interval_days INTEGER NOT NULL DEFAULT 0,
    due_date TEXT,
    review_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_cards_due_date ON cards(due_date);
`
