package database

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    number INTEGER PRIMARY KEY,
    started_at TEXT NOT NULL,
    notes TEXT
);

CREATE TABLE IF NOT EXISTS reports (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_number INTEGER NOT NULL,
    name TEXT NOT NULL,
    format TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (run_number, name),
    FOREIGN KEY (run_number) REFERENCES runs(number) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS samples (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    report_id INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    key TEXT NOT NULL,
    duration_ms INTEGER NOT NULL,
    timestamp TEXT,
    success INTEGER NOT NULL,
    size_bytes INTEGER DEFAULT 0,
    sample_count INTEGER,
    window_seconds REAL,
    min_ms INTEGER,
    max_ms INTEGER,
    error_count INTEGER,
    error_percent REAL,
    throughput REAL,
    FOREIGN KEY (report_id) REFERENCES reports(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_reports_run ON reports(run_number);
CREATE INDEX IF NOT EXISTS idx_reports_name ON reports(name);
CREATE INDEX IF NOT EXISTS idx_samples_report ON samples(report_id, seq);
`
