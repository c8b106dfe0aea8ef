package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mslinn/perftrend/pkg/history"
	"github.com/mslinn/perftrend/pkg/report"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

var _ history.Store = (*DB)(nil)

// Open opens or creates a SQLite database and initializes the schema
func Open(path string) (*DB, error) {
	// Connection parameters apply to every pooled connection, the PRAGMAs
	// below only to the first one
	conn, err := sql.Open("sqlite3", "file:"+path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL allows readers while an import is writing
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// If database is locked, retry for up to 5 seconds before failing
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Needed for the cascading deletes of replaced reports
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{conn: conn}, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// SaveRun inserts or updates a run. Number 0 assigns the next free number.
func (db *DB) SaveRun(run history.Run) (history.Run, error) {
	if run.Number < 0 {
		return history.Run{}, fmt.Errorf("invalid run number %d", run.Number)
	}

	if run.Number == 0 {
		if err := db.conn.QueryRow(`SELECT COALESCE(MAX(number), 0) + 1 FROM runs`).Scan(&run.Number); err != nil {
			return history.Run{}, fmt.Errorf("failed to assign run number: %w", err)
		}
	}

	_, err := db.conn.Exec(`
		INSERT INTO runs (number, started_at, notes)
		VALUES (?, ?, ?)
		ON CONFLICT(number) DO UPDATE SET started_at = excluded.started_at, notes = excluded.notes`,
		run.Number, run.Timestamp.Format(time.RFC3339Nano), run.Notes,
	)
	if err != nil {
		return history.Run{}, fmt.Errorf("failed to save run: %w", err)
	}

	return run, nil
}

// GetRun retrieves a run by number
func (db *DB) GetRun(number int) (*history.Run, error) {
	var run history.Run
	var startedAt string
	var notes *string

	err := db.conn.QueryRow(`SELECT number, started_at, notes FROM runs WHERE number = ?`, number).
		Scan(&run.Number, &startedAt, &notes)
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.Timestamp, _ = time.Parse(time.RFC3339Nano, startedAt)
	if notes != nil {
		run.Notes = *notes
	}
	return &run, nil
}

// ListRuns lists all runs, oldest first
func (db *DB) ListRuns() ([]history.Run, error) {
	rows, err := db.conn.Query(`SELECT number, started_at, notes FROM runs ORDER BY number`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []history.Run
	for rows.Next() {
		var run history.Run
		var startedAt string
		var notes *string

		if err := rows.Scan(&run.Number, &startedAt, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		run.Timestamp, _ = time.Parse(time.RFC3339Nano, startedAt)
		if notes != nil {
			run.Notes = *notes
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// DeleteRun removes a run together with its reports
func (db *DB) DeleteRun(number int) error {
	if _, err := db.conn.Exec(`DELETE FROM runs WHERE number = ?`, number); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}

// SaveReport stores r under r.SourceName for the run, replacing an earlier
// report of the same name
func (db *DB) SaveReport(runNumber int, r *report.Report) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM reports WHERE run_number = ? AND name = ?`, runNumber, r.SourceName); err != nil {
		return fmt.Errorf("failed to replace report: %w", err)
	}

	result, err := tx.Exec(`
		INSERT INTO reports (run_number, name, format, created_at)
		VALUES (?, ?, ?, ?)`,
		runNumber, r.SourceName, r.Format, time.Now().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	reportID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO samples (report_id, seq, key, duration_ms, timestamp, success, size_bytes,
			sample_count, window_seconds, min_ms, max_ms, error_count, error_percent, throughput)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare sample insert: %w", err)
	}
	defer stmt.Close()

	for seq, s := range r.All() {
		row := toRow(s)
		_, err := stmt.Exec(reportID, seq, row.Key, row.DurationMs, row.Timestamp, row.Success, row.SizeBytes,
			row.SampleCount, row.WindowSeconds, row.MinMs, row.MaxMs, row.ErrorCount, row.ErrorPercent, row.Throughput)
		if err != nil {
			return fmt.Errorf("failed to create sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// Report loads the report stored under name for the run
func (db *DB) Report(runNumber int, name string) (*report.Report, error) {
	var id int64
	var format string

	err := db.conn.QueryRow(`SELECT id, format FROM reports WHERE run_number = ? AND name = ?`, runNumber, name).
		Scan(&id, &format)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %d, %q: %w", runNumber, name, report.ErrReportNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT key, duration_ms, timestamp, success, size_bytes,
			sample_count, window_seconds, min_ms, max_ms, error_count, error_percent, throughput
		FROM samples WHERE report_id = ? ORDER BY seq`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list samples: %w", err)
	}
	defer rows.Close()

	r := report.New(name, format)
	for rows.Next() {
		var row sampleRow
		err := rows.Scan(
			&row.Key, &row.DurationMs, &row.Timestamp, &row.Success, &row.SizeBytes,
			&row.SampleCount, &row.WindowSeconds, &row.MinMs, &row.MaxMs,
			&row.ErrorCount, &row.ErrorPercent, &row.Throughput,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		r.Add(row.sample())
	}

	return r, rows.Err()
}

// ReportNames lists the distinct report names over all runs, sorted
func (db *DB) ReportNames() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT name FROM reports ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list report names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan report name: %w", err)
		}
		names = append(names, name)
	}

	return names, rows.Err()
}

// ListReports lists the reports of a run (0 = all runs)
func (db *DB) ListReports(runNumber int) ([]*ReportInfo, error) {
	query := `
		SELECT r.id, r.run_number, r.name, r.format, r.created_at,
			COUNT(s.id), COUNT(DISTINCT s.key)
		FROM reports r LEFT JOIN samples s ON s.report_id = r.id`
	var args []interface{}
	if runNumber > 0 {
		query += ` WHERE r.run_number = ?`
		args = append(args, runNumber)
	}
	query += ` GROUP BY r.id ORDER BY r.run_number, r.name`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var infos []*ReportInfo
	for rows.Next() {
		var info ReportInfo
		var createdAt string
		err := rows.Scan(&info.ID, &info.RunNumber, &info.Name, &info.Format, &createdAt,
			&info.SampleCount, &info.KeyCount)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		infos = append(infos, &info)
	}

	return infos, rows.Err()
}

// Rows wraps sql.Rows for use in query commands
type Rows = sql.Rows

// QueryRaw executes a raw SQL query and returns rows
func (db *DB) QueryRaw(query string, args ...interface{}) (*sql.Rows, error) {
	return db.conn.Query(query, args...)
}

func toRow(s report.Sample) sampleRow {
	row := sampleRow{
		Key:        s.Key,
		DurationMs: s.DurationMs,
		Success:    s.Success,
		SizeBytes:  s.SizeBytes,
	}
	if !s.Timestamp.IsZero() {
		ts := s.Timestamp.Format(time.RFC3339Nano)
		row.Timestamp = &ts
	}
	if sum := s.Summary; sum != nil {
		row.SampleCount = &sum.SampleCount
		row.WindowSeconds = &sum.WindowSeconds
		row.MinMs = &sum.MinMs
		row.MaxMs = &sum.MaxMs
		row.ErrorCount = &sum.ErrorCount
		row.ErrorPercent = &sum.ErrorPercent
		row.Throughput = &sum.Throughput
	}
	return row
}

func (row sampleRow) sample() report.Sample {
	s := report.Sample{
		Key:        row.Key,
		DurationMs: row.DurationMs,
		Success:    row.Success,
		SizeBytes:  row.SizeBytes,
	}
	if row.Timestamp != nil {
		s.Timestamp, _ = time.Parse(time.RFC3339Nano, *row.Timestamp)
	}
	if row.SampleCount != nil {
		s.Summary = &report.Summary{SampleCount: *row.SampleCount}
		if row.WindowSeconds != nil {
			s.Summary.WindowSeconds = *row.WindowSeconds
		}
		if row.MinMs != nil {
			s.Summary.MinMs = *row.MinMs
		}
		if row.MaxMs != nil {
			s.Summary.MaxMs = *row.MaxMs
		}
		if row.ErrorCount != nil {
			s.Summary.ErrorCount = *row.ErrorCount
		}
		if row.ErrorPercent != nil {
			s.Summary.ErrorPercent = *row.ErrorPercent
		}
		if row.Throughput != nil {
			s.Summary.Throughput = *row.Throughput
		}
	}
	return s
}
