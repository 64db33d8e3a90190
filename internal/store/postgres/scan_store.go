// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// dbPool is the slice of pgxpool.Pool the stores use; pgxmock satisfies it.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ScanStoreConfig controls the Postgres connection pool used for scan rows.
type ScanStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// ScanStore writes scan documents into Postgres. Result bags are stored as
// JSONB so the document shape can evolve without migrations.
type ScanStore struct {
	pool  dbPool
	table string
	clock grader.Clock
}

// NewScanStore creates a Postgres-backed ScanStore using the provided config.
func NewScanStore(ctx context.Context, cfg ScanStoreConfig, clock grader.Clock) (*ScanStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "scans"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ScanStore{pool: pool, table: table, clock: clock}, nil
}

// NewScanStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewScanStoreWithPool(pool dbPool, table string, clock grader.Clock) (*ScanStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "scans"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ScanStore{pool: pool, table: table, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *ScanStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *ScanStore) now() time.Time {
	if s.clock != nil {
		return s.clock.Now().UTC()
	}
	return time.Now().UTC()
}

// CreateScan inserts a new scan row.
func (s *ScanStore) CreateScan(ctx context.Context, scan grader.Scan) error {
	if scan.ID == "" {
		return fmt.Errorf("scan id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	scan_type,
	restaurant_name,
	restaurant_website,
	url,
	status,
	error_text,
	overall_score,
	letter_grade,
	created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)`, s.table)

	_, err := s.pool.Exec(ctx, query,
		scan.ID,
		string(scan.Type),
		scan.RestaurantName,
		scan.RestaurantWebsite,
		scan.URL,
		string(scan.Status),
		scan.ErrorText,
		scan.OverallScore,
		scan.LetterGrade,
		scan.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return grader.ErrScanExists
		}
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// UpdateScanStatus moves a scan through its lifecycle. Entering in_progress
// stamps started_at once; entering a terminal state stamps completed_at.
func (s *ScanStore) UpdateScanStatus(ctx context.Context, scanID string, status grader.ScanStatus, errText string) error {
	now := s.now()
	var startedAt, completedAt *time.Time
	if status == grader.ScanStatusInProgress {
		startedAt = &now
	}
	if status.Terminal() {
		completedAt = &now
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	status = $2,
	error_text = $3,
	started_at = COALESCE(started_at, $4),
	completed_at = COALESCE($5, completed_at)
WHERE id = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query, scanID, string(status), errText, startedAt, completedAt)
	if err != nil {
		return fmt.Errorf("update scan status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return grader.ErrScanNotFound
	}
	return nil
}

// SaveScanResults attaches the score document and marks the scan completed.
func (s *ScanStore) SaveScanResults(
	ctx context.Context,
	scanID string,
	results grader.ScoreBreakdown,
	analysis grader.AnalysisData,
	recs []grader.Recommendation,
) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	recsJSON, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}

	query := fmt.Sprintf(`
UPDATE %s SET
	status = $2,
	overall_score = $3,
	letter_grade = $4,
	results = $5,
	analysis = $6,
	recommendations = $7,
	error_text = '',
	completed_at = $8
WHERE id = $1`, s.table)

	tag, err := s.pool.Exec(ctx, query,
		scanID,
		string(grader.ScanStatusCompleted),
		results.OverallScore,
		results.LetterGrade,
		resultsJSON,
		analysisJSON,
		recsJSON,
		s.now(),
	)
	if err != nil {
		return fmt.Errorf("save scan results: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return grader.ErrScanNotFound
	}
	return nil
}

const scanColumns = `id, scan_type, restaurant_name, restaurant_website, url, status, error_text,
	overall_score, letter_grade, results, analysis, recommendations, created_at, started_at, completed_at`

// GetScan fetches a scan by ID.
func (s *ScanStore) GetScan(ctx context.Context, scanID string) (grader.Scan, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, scanColumns, s.table)
	scan, err := scanRow(s.pool.QueryRow(ctx, query, scanID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grader.Scan{}, grader.ErrScanNotFound
		}
		return grader.Scan{}, fmt.Errorf("get scan: %w", err)
	}
	return scan, nil
}

// ListScans returns scans newest first, optionally filtered by status.
func (s *ScanStore) ListScans(ctx context.Context, filter grader.ScanFilter) ([]grader.Scan, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var (
		query string
		args  []any
	)
	if filter.Status != "" {
		query = fmt.Sprintf(
			`SELECT %s FROM %s WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			scanColumns, s.table)
		args = []any{string(filter.Status), limit, filter.Offset}
	} else {
		query = fmt.Sprintf(
			`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			scanColumns, s.table)
		args = []any{limit, filter.Offset}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	scans := make([]grader.Scan, 0, limit)
	for rows.Next() {
		scan, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	return scans, nil
}

func scanRow(row pgx.Row) (grader.Scan, error) {
	var (
		scan        grader.Scan
		scanType    string
		status      string
		resultsJSON []byte
		analysis    []byte
		recs        []byte
	)
	err := row.Scan(
		&scan.ID,
		&scanType,
		&scan.RestaurantName,
		&scan.RestaurantWebsite,
		&scan.URL,
		&status,
		&scan.ErrorText,
		&scan.OverallScore,
		&scan.LetterGrade,
		&resultsJSON,
		&analysis,
		&recs,
		&scan.CreatedAt,
		&scan.StartedAt,
		&scan.CompletedAt,
	)
	if err != nil {
		return grader.Scan{}, err
	}
	scan.Type = grader.ScanType(scanType)
	scan.Status = grader.ScanStatus(status)
	if len(resultsJSON) > 0 {
		var breakdown grader.ScoreBreakdown
		if err := json.Unmarshal(resultsJSON, &breakdown); err != nil {
			return grader.Scan{}, fmt.Errorf("unmarshal results: %w", err)
		}
		scan.Results = &breakdown
	}
	if len(analysis) > 0 {
		var data grader.AnalysisData
		if err := json.Unmarshal(analysis, &data); err != nil {
			return grader.Scan{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
		scan.Analysis = &data
	}
	if len(recs) > 0 {
		if err := json.Unmarshal(recs, &scan.Recommendations); err != nil {
			return grader.Scan{}, fmt.Errorf("unmarshal recommendations: %w", err)
		}
	}
	return scan, nil
}
