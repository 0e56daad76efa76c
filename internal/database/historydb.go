package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescan/internal/model"
)

// FileName is the name of the database file inside the database directory.
const FileName = "sitescan.db"

// DefaultRecentLimit is the number of scans GetRecentScans returns when
// the limit is not positive.
const DefaultRecentLimit = 50

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02 15:04:05.000"

// ErrNilReport is returned when saving a nil report.
var ErrNilReport = errors.New("scan report is nil")

// HistoryDB provides SQLite-based storage for settled scan reports.
type HistoryDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures HistoryDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a HistoryDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*HistoryDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a missing file.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	hdb := &HistoryDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := hdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return hdb, nil
}

// Close closes the database connection.
func (h *HistoryDB) Close() error {
	return h.db.Close()
}

// Path returns the database file path.
func (h *HistoryDB) Path() string {
	return h.dbPath
}

func (h *HistoryDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scan_reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		target TEXT NOT NULL,
		raw_target TEXT NOT NULL DEFAULT '',
		outcome_kind TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		report_json TEXT NOT NULL,
		summary_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_target ON scan_reports(target);
	CREATE INDEX IF NOT EXISTS idx_reports_timestamp ON scan_reports(timestamp);
	`

	_, err := h.db.ExecContext(context.Background(), schema)
	return err
}

// ScanRecord is the summary of one stored scan, used for history listings
// without loading the full report.
type ScanRecord struct {
	// ID is the row identifier of the scan report.
	ID int64 `json:"id"`

	// Target is the normalized identifier that was scanned.
	Target string `json:"target"`

	// RawTarget is the input as the operator typed it.
	RawTarget string `json:"raw_target,omitempty"`

	// OutcomeKind is the outcome variant.
	OutcomeKind string `json:"outcome_kind"`

	// Timestamp is when the scan was submitted.
	Timestamp time.Time `json:"timestamp"`

	// Summary counts the findings.
	Summary model.Summary `json:"summary"`
}

// SaveScanReport stores a settled report and returns its ID.
func (h *HistoryDB) SaveScanReport(ctx context.Context, report *model.ScanReport) (int64, error) {
	if report == nil || report.Outcome == nil {
		return 0, ErrNilReport
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(model.NewSummary(report))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	ts := report.DateScanned
	if ts.IsZero() {
		ts = time.Now()
	}

	query := `
	INSERT INTO scan_reports (target, raw_target, outcome_kind, timestamp, report_json, summary_json)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := h.db.ExecContext(ctx, query,
		report.Identifier.String(),
		report.Target,
		report.Outcome.Kind().String(),
		ts.UTC().Format(timestampLayout),
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save scan report: %w", err)
	}

	return result.LastInsertId()
}

// GetLatestScanReport retrieves the most recent report for a target.
// It returns nil when the target was never scanned.
func (h *HistoryDB) GetLatestScanReport(ctx context.Context, target string) (*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	LIMIT 1
	`

	var reportJSON string
	err := h.db.QueryRowContext(ctx, query, target).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetScanReportByID retrieves a report by its ID.
// It returns nil when no report has that ID.
func (h *HistoryDB) GetScanReportByID(ctx context.Context, id int64) (*model.ScanReport, error) {
	var reportJSON string
	err := h.db.QueryRowContext(ctx, "SELECT report_json FROM scan_reports WHERE id = ?", id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan report: %w", err)
	}

	return decodeReport(reportJSON)
}

// GetScanHistory retrieves every report for a target, newest first.
// Malformed rows are skipped.
func (h *HistoryDB) GetScanHistory(ctx context.Context, target string) ([]*model.ScanReport, error) {
	query := `
	SELECT report_json FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`

	rows, err := h.db.QueryContext(ctx, query, target)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		report, err := decodeReport(reportJSON)
		if err != nil {
			continue
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}

// GetScanHistoryWithMetadata retrieves the records of one target, newest first.
func (h *HistoryDB) GetScanHistoryWithMetadata(ctx context.Context, target string) ([]ScanRecord, error) {
	query := `
	SELECT id, target, raw_target, outcome_kind, timestamp, summary_json
	FROM scan_reports
	WHERE target = ?
	ORDER BY timestamp DESC, id DESC
	`
	return h.queryRecords(ctx, query, target)
}

// GetRecentScans retrieves the newest records across all targets.
// A non-positive limit means DefaultRecentLimit.
func (h *HistoryDB) GetRecentScans(ctx context.Context, limit int) ([]ScanRecord, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	query := `
	SELECT id, target, raw_target, outcome_kind, timestamp, summary_json
	FROM scan_reports
	ORDER BY timestamp DESC, id DESC
	LIMIT ?
	`
	return h.queryRecords(ctx, query, limit)
}

func (h *HistoryDB) queryRecords(ctx context.Context, query string, args ...any) ([]ScanRecord, error) {
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	results := make([]ScanRecord, 0)
	for rows.Next() {
		var rec ScanRecord
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Target, &rec.RawTarget, &rec.OutcomeKind, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Timestamp = parseTimestamp(timestamp)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A damaged summary only loses the counts.
			_ = json.Unmarshal([]byte(summaryJSON.String), &rec.Summary)
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// ListScannedTargets returns every target with at least one stored scan.
func (h *HistoryDB) ListScannedTargets(ctx context.Context) ([]string, error) {
	rows, err := h.db.QueryContext(ctx, "SELECT DISTINCT target FROM scan_reports ORDER BY target")
	if err != nil {
		return nil, fmt.Errorf("failed to list targets: %w", err)
	}
	defer rows.Close()

	var targets []string
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to scan target: %w", err)
		}
		targets = append(targets, target)
	}

	return targets, rows.Err()
}

func decodeReport(reportJSON string) (*model.ScanReport, error) {
	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999",
}

// parseTimestamp tries each known format and returns the zero time when none match.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
