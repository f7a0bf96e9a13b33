// Package postgres provides the Postgres-backed scan store.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/presencelab/presence-scanner/internal/scan"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store persists scan records in the scans table:
//
//	CREATE TABLE scans (
//	    id            TEXT PRIMARY KEY,
//	    restaurant    JSONB NOT NULL,
//	    restaurant_id TEXT NOT NULL,
//	    category      TEXT NOT NULL,
//	    status        TEXT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    started_at    TIMESTAMPTZ,
//	    completed_at  TIMESTAMPTZ,
//	    results       JSONB NOT NULL DEFAULT '{}',
//	    website_score DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    overall_score DOUBLE PRECISION NOT NULL DEFAULT 0,
//	    grade         TEXT NOT NULL DEFAULT '',
//	    retry_of      TEXT NOT NULL DEFAULT '',
//	    error_text    TEXT NOT NULL DEFAULT ''
//	);
type Store struct {
	pool dbConn
}

// NewStore connects a pool and pings it before handing the store out.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
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
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewStoreWithPool constructs a store from an existing pool (primarily
// for testing).
func NewStoreWithPool(pool dbConn) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateScan inserts a new scan row.
func (s *Store) CreateScan(ctx context.Context, rec scan.Record) error {
	restaurant, results, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	query := `
INSERT INTO scans (
	id, restaurant, restaurant_id, category, status,
	created_at, started_at, completed_at,
	results, website_score, overall_score, grade, retry_of, error_text
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err = s.pool.Exec(ctx, query,
		rec.ID, restaurant, rec.Restaurant.ID, string(rec.Category), string(rec.Status),
		rec.CreatedAt, rec.StartedAt, rec.CompletedAt,
		results, rec.WebsiteScore, rec.Composite, rec.Grade, rec.RetryOf, rec.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

// UpdateScan replaces the mutable columns of an existing row.
func (s *Store) UpdateScan(ctx context.Context, rec scan.Record) error {
	restaurant, results, err := marshalRecord(rec)
	if err != nil {
		return err
	}
	query := `
UPDATE scans SET
	restaurant = $2, category = $3, status = $4,
	started_at = $5, completed_at = $6,
	results = $7, website_score = $8, overall_score = $9,
	grade = $10, retry_of = $11, error_text = $12
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		rec.ID, restaurant, string(rec.Category), string(rec.Status),
		rec.StartedAt, rec.CompletedAt,
		results, rec.WebsiteScore, rec.Composite, rec.Grade, rec.RetryOf, rec.ErrorText,
	)
	if err != nil {
		return fmt.Errorf("update scan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return scan.ErrNotFound
	}
	return nil
}

const selectColumns = `
	id, restaurant, category, status,
	created_at, started_at, completed_at,
	results, website_score, overall_score, grade, retry_of, error_text`

// GetScan fetches one scan by ID.
func (s *Store) GetScan(ctx context.Context, scanID string) (scan.Record, error) {
	row := s.pool.QueryRow(ctx, `SELECT`+selectColumns+` FROM scans WHERE id = $1`, scanID)
	rec, err := scanRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return scan.Record{}, scan.ErrNotFound
	}
	if err != nil {
		return scan.Record{}, fmt.Errorf("select scan: %w", err)
	}
	return rec, nil
}

// ListScansByRestaurant returns a restaurant's scans, newest first.
func (s *Store) ListScansByRestaurant(ctx context.Context, restaurantID string) ([]scan.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT`+selectColumns+` FROM scans WHERE restaurant_id = $1 ORDER BY created_at DESC`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var out []scan.Record
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return out, nil
}

func marshalRecord(rec scan.Record) (restaurant, results []byte, err error) {
	restaurant, err = json.Marshal(rec.Restaurant)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal restaurant: %w", err)
	}
	results, err = json.Marshal(rec.Results)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal results: %w", err)
	}
	return restaurant, results, nil
}

func scanRow(row pgx.Row) (scan.Record, error) {
	var (
		rec        scan.Record
		category   string
		status     string
		restaurant []byte
		results    []byte
	)
	err := row.Scan(
		&rec.ID, &restaurant, &category, &status,
		&rec.CreatedAt, &rec.StartedAt, &rec.CompletedAt,
		&results, &rec.WebsiteScore, &rec.Composite, &rec.Grade, &rec.RetryOf, &rec.ErrorText,
	)
	if err != nil {
		return scan.Record{}, err
	}
	rec.Category = scan.Category(category)
	rec.Status = scan.Status(status)
	if err := json.Unmarshal(restaurant, &rec.Restaurant); err != nil {
		return scan.Record{}, fmt.Errorf("unmarshal restaurant: %w", err)
	}
	if err := json.Unmarshal(results, &rec.Results); err != nil {
		return scan.Record{}, fmt.Errorf("unmarshal results: %w", err)
	}
	return rec, nil
}
