package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/restaurantgrader/restaurantgrader/internal/grader"
)

// LeadStoreConfig controls the Postgres connection pool used for lead rows.
type LeadStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// LeadStore writes leads into Postgres. The email column carries a unique
// index, compared lowercased.
type LeadStore struct {
	pool  dbPool
	table string
	clock grader.Clock
}

// NewLeadStore creates a Postgres-backed LeadStore using the provided config.
func NewLeadStore(ctx context.Context, cfg LeadStoreConfig, clock grader.Clock) (*LeadStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "leads"
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
	return &LeadStore{pool: pool, table: table, clock: clock}, nil
}

// NewLeadStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewLeadStoreWithPool(pool dbPool, table string, clock grader.Clock) (*LeadStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "leads"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &LeadStore{pool: pool, table: table, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *LeadStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateLead inserts a new lead row.
func (s *LeadStore) CreateLead(ctx context.Context, lead grader.Lead) error {
	if lead.ID == "" {
		return fmt.Errorf("lead id is required")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	email,
	name,
	restaurant_name,
	phone,
	source,
	status,
	scan_id,
	created_at
) VALUES (
	$1,lower($2),$3,$4,$5,$6,$7,$8,$9
)`, s.table)

	_, err := s.pool.Exec(ctx, query,
		lead.ID,
		lead.Email,
		lead.Name,
		lead.RestaurantName,
		lead.Phone,
		lead.Source,
		string(lead.Status),
		lead.ScanID,
		lead.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return grader.ErrLeadExists
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

const leadColumns = `id, email, name, restaurant_name, phone, source, status, scan_id, created_at, updated_at`

// GetLead fetches a lead by ID.
func (s *LeadStore) GetLead(ctx context.Context, leadID string) (grader.Lead, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, leadColumns, s.table)
	lead, err := leadRow(s.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grader.Lead{}, grader.ErrLeadNotFound
		}
		return grader.Lead{}, fmt.Errorf("get lead: %w", err)
	}
	return lead, nil
}

// FindLeadByEmail looks a lead up by email, case-insensitively.
func (s *LeadStore) FindLeadByEmail(ctx context.Context, email string) (grader.Lead, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE email = lower($1)`, leadColumns, s.table)
	lead, err := leadRow(s.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return grader.Lead{}, false, nil
		}
		return grader.Lead{}, false, fmt.Errorf("find lead by email: %w", err)
	}
	return lead, true, nil
}

// UpdateLeadStatus moves a lead through the follow-up pipeline.
func (s *LeadStore) UpdateLeadStatus(ctx context.Context, leadID string, status grader.LeadStatus) error {
	now := time.Now().UTC()
	if s.clock != nil {
		now = s.clock.Now().UTC()
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $2, updated_at = $3 WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, leadID, string(status), now)
	if err != nil {
		return fmt.Errorf("update lead status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return grader.ErrLeadNotFound
	}
	return nil
}

// ListLeads returns leads newest first, optionally filtered by status.
func (s *LeadStore) ListLeads(ctx context.Context, status grader.LeadStatus, limit, offset int) ([]grader.Lead, error) {
	if limit <= 0 {
		limit = 50
	}
	var (
		query string
		args  []any
	)
	if status != "" {
		query = fmt.Sprintf(
			`SELECT %s FROM %s WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
			leadColumns, s.table)
		args = []any{string(status), limit, offset}
	} else {
		query = fmt.Sprintf(
			`SELECT %s FROM %s ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			leadColumns, s.table)
		args = []any{limit, offset}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	leads := make([]grader.Lead, 0, limit)
	for rows.Next() {
		lead, err := leadRow(rows)
		if err != nil {
			return nil, fmt.Errorf("lead row: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	return leads, nil
}

func leadRow(row pgx.Row) (grader.Lead, error) {
	var (
		lead   grader.Lead
		status string
	)
	err := row.Scan(
		&lead.ID,
		&lead.Email,
		&lead.Name,
		&lead.RestaurantName,
		&lead.Phone,
		&lead.Source,
		&status,
		&lead.ScanID,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return grader.Lead{}, err
	}
	lead.Status = grader.LeadStatus(status)
	return lead, nil
}
