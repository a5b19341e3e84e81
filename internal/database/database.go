// Package database persists scan history to SQLite.
package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Noro2001/Valac/pkg/models"
)

// Database handles SQLite scan-history operations.
type Database struct {
	db *sql.DB
}

// HistoryRow is one stored scan result plus the run it belonged to.
type HistoryRow struct {
	RunID  string
	Result models.ScanResult
}

// Open opens (or creates) the history database at path.
func Open(path string) (*Database, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	d := &Database{db: db}
	if err := d.initTables(); err != nil {
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// initTables creates the scan_history table and its indexes.
func (d *Database) initTables() error {
	historyTable := `
	CREATE TABLE IF NOT EXISTS scan_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		ip TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		ports TEXT,
		vulns TEXT,
		hostnames TEXT,
		cpe TEXT,
		tags TEXT,
		geolocation TEXT,
		technologies TEXT,
		severity_score REAL NOT NULL,
		risk_level TEXT NOT NULL,
		response_time REAL NOT NULL
	);`

	indexes := []string{
		historyTable,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_ip ON scan_history (ip);`,
		`CREATE INDEX IF NOT EXISTS idx_scan_history_timestamp ON scan_history (timestamp);`,
	}
	for _, stmt := range indexes {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}

// SaveResult stores one scan result under the given run id. Slice and
// struct columns are stored JSON-encoded.
func (d *Database) SaveResult(runID string, result models.ScanResult) error {
	ports, _ := json.Marshal(result.Ports)
	vulns, _ := json.Marshal(result.Vulns)
	hostnames, _ := json.Marshal(result.Hostnames)
	cpe, _ := json.Marshal(result.CPE)
	tags, _ := json.Marshal(result.Tags)
	techs, _ := json.Marshal(result.Technologies)

	var geo []byte
	if result.Geolocation != nil {
		geo, _ = json.Marshal(result.Geolocation)
	}

	query := `
	INSERT INTO scan_history (run_id, ip, timestamp, ports, vulns, hostnames, cpe, tags, geolocation, technologies, severity_score, risk_level, response_time)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := d.db.Exec(query,
		runID, result.IP, result.Timestamp,
		string(ports), string(vulns), string(hostnames), string(cpe), string(tags),
		string(geo), string(techs),
		result.SeverityScore, string(result.RiskLevel), result.ResponseTime,
	)
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}

	return nil
}

// ResultsByTarget retrieves every stored result for an IP, most recent
// first.
func (d *Database) ResultsByTarget(ip string) ([]HistoryRow, error) {
	query := `
	SELECT run_id, ip, timestamp, ports, vulns, hostnames, cpe, tags, geolocation, technologies, severity_score, risk_level, response_time
	FROM scan_history WHERE ip = ? ORDER BY timestamp DESC`

	rows, err := d.db.Query(query, ip)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

// RecentResults retrieves the latest stored results across all runs.
func (d *Database) RecentResults(limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
	SELECT run_id, ip, timestamp, ports, vulns, hostnames, cpe, tags, geolocation, technologies, severity_score, risk_level, response_time
	FROM scan_history ORDER BY timestamp DESC LIMIT ?`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	return scanHistoryRows(rows)
}

func scanHistoryRows(rows *sql.Rows) ([]HistoryRow, error) {
	var out []HistoryRow
	for rows.Next() {
		var (
			row       HistoryRow
			ports     string
			vulns     string
			hostnames string
			cpe       string
			tags      string
			geo       string
			techs     string
			risk      string
		)
		err := rows.Scan(&row.RunID, &row.Result.IP, &row.Result.Timestamp,
			&ports, &vulns, &hostnames, &cpe, &tags, &geo, &techs,
			&row.Result.SeverityScore, &risk, &row.Result.ResponseTime)
		if err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(ports), &row.Result.Ports)
		json.Unmarshal([]byte(vulns), &row.Result.Vulns)
		json.Unmarshal([]byte(hostnames), &row.Result.Hostnames)
		json.Unmarshal([]byte(cpe), &row.Result.CPE)
		json.Unmarshal([]byte(tags), &row.Result.Tags)
		json.Unmarshal([]byte(techs), &row.Result.Technologies)
		if geo != "" {
			var g models.Geolocation
			if json.Unmarshal([]byte(geo), &g) == nil {
				row.Result.Geolocation = &g
			}
		}
		row.Result.RiskLevel = models.RiskLevel(risk)

		out = append(out, row)
	}
	return out, rows.Err()
}

// RunSummary aggregates the stored rows of one run.
type RunSummary struct {
	RunID     string
	Targets   int
	Critical  int
	StartedAt string
}

// RunSummaries lists stored runs, most recent first.
func (d *Database) RunSummaries(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
	SELECT run_id, COUNT(*),
		SUM(CASE WHEN risk_level IN ('HIGH', 'CRITICAL') THEN 1 ELSE 0 END),
		MIN(timestamp)
	FROM scan_history GROUP BY run_id ORDER BY MIN(timestamp) DESC LIMIT ?`

	rows, err := d.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run summaries: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(&s.RunID, &s.Targets, &s.Critical, &s.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes history rows whose timestamp is older than the
// given age. Returns the number of rows removed.
func (d *Database) PurgeOlderThan(age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age).Format(time.RFC3339)

	res, err := d.db.Exec(`DELETE FROM scan_history WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge history: %w", err)
	}
	return res.RowsAffected()
}
