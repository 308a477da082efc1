package store

const schema = `
CREATE TABLE IF NOT EXISTS scenarios (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    ac_file    TEXT NOT NULL DEFAULT '',
    ac_path    TEXT NOT NULL DEFAULT '',
    data       TEXT NOT NULL DEFAULT '{}',
    updated_at TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE TABLE IF NOT EXISTS sync_journal (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    scenario_id TEXT NOT NULL,
    ac_file     TEXT NOT NULL DEFAULT '',
    ac_path     TEXT NOT NULL DEFAULT '',
    counts      TEXT NOT NULL DEFAULT '{}',
    failures    TEXT NOT NULL DEFAULT '',
    applied_at  TEXT NOT NULL DEFAULT (datetime('now','localtime'))
);

CREATE INDEX IF NOT EXISTS idx_sync_journal_scenario
    ON sync_journal(scenario_id, applied_at);
`
