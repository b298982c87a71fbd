// Package postgres provides a PostgreSQL-backed PlanStorage storing plan
// documents as JSONB with denormalized list-view columns.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"cropplan/pkg/domain"
)

var _ domain.PlanStorage = (*Storage)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/cropplan?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Storage persists plans to PostgreSQL. Documents are written wholesale;
// each SavePlan replaces the full JSONB payload.
type Storage struct {
	db *sql.DB
}

const ddl = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	year INTEGER NOT NULL,
	crop_count INTEGER NOT NULL,
	last_modified TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS stash (
	plan_id TEXT PRIMARY KEY,
	payload JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoints (
	plan_id TEXT NOT NULL,
	name TEXT NOT NULL,
	saved_at TIMESTAMPTZ NOT NULL,
	payload JSONB NOT NULL,
	PRIMARY KEY (plan_id, name)
);
CREATE TABLE IF NOT EXISTS flags (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// NewStorage opens a Postgres-backed storage using the provided DSN (falls
// back to defaultDSN), pings the server, and applies the DDL.
func NewStorage(dsn string) (*Storage, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply ddl: %w", err)
	}
	return &Storage{db: db}, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore
// function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// Close releases the underlying database handle.
func (s *Storage) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Storage) DB() *sql.DB { return s.db }

func (s *Storage) GetPlanList(ctx context.Context) ([]domain.PlanSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, year, crop_count, last_modified FROM plans ORDER BY year DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("select plans: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.PlanSummary
	for rows.Next() {
		var sum domain.PlanSummary
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Year, &sum.CropCount, &sum.LastModified); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Storage) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM plans WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select plan %s: %w", id, err)
	}
	return decodePlan(payload)
}

func (s *Storage) SavePlan(ctx context.Context, id string, plan *domain.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode plan %s: %w", id, err)
	}
	crops := make(map[string]struct{})
	for _, pl := range plan.Plantings {
		crops[pl.CropID] = struct{}{}
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO plans(id, name, year, crop_count, last_modified, payload)
		VALUES($1,$2,$3,$4,$5,$6)
		ON CONFLICT(id) DO UPDATE SET
			name=EXCLUDED.name, year=EXCLUDED.year, crop_count=EXCLUDED.crop_count,
			last_modified=EXCLUDED.last_modified, payload=EXCLUDED.payload`,
		id, plan.Metadata.Name, plan.Metadata.Year, len(crops), plan.Metadata.LastModified.UTC(), payload)
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", id, err)
	}
	return nil
}

func (s *Storage) DeletePlan(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM plans WHERE id = $1`,
		`DELETE FROM stash WHERE plan_id = $1`,
		`DELETE FROM checkpoints WHERE plan_id = $1`,
	} {
		if _, err := s.db.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete plan %s: %w", id, err)
		}
	}
	return nil
}

func (s *Storage) Stash(ctx context.Context, id string, plan *domain.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode stash %s: %w", id, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO stash(plan_id, payload) VALUES($1,$2)
		ON CONFLICT(plan_id) DO UPDATE SET payload=EXCLUDED.payload`, id, payload)
	if err != nil {
		return fmt.Errorf("upsert stash %s: %w", id, err)
	}
	return nil
}

func (s *Storage) GetStash(ctx context.Context, id string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM stash WHERE plan_id = $1`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select stash %s: %w", id, err)
	}
	return decodePlan(payload)
}

func (s *Storage) SaveCheckpoint(ctx context.Context, id, name string, plan *domain.Plan) error {
	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("encode checkpoint %s/%s: %w", id, name, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO checkpoints(plan_id, name, saved_at, payload) VALUES($1,$2,$3,$4)
		ON CONFLICT(plan_id, name) DO UPDATE SET saved_at=EXCLUDED.saved_at, payload=EXCLUDED.payload`,
		id, name, time.Now().UTC(), payload)
	if err != nil {
		return fmt.Errorf("upsert checkpoint %s/%s: %w", id, name, err)
	}
	return nil
}

func (s *Storage) ListCheckpoints(ctx context.Context, id string) ([]domain.CheckpointInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, saved_at FROM checkpoints WHERE plan_id = $1 ORDER BY saved_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("select checkpoints %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.CheckpointInfo
	for rows.Next() {
		var info domain.CheckpointInfo
		if err := rows.Scan(&info.Name, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *Storage) GetCheckpoint(ctx context.Context, id, name string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE plan_id = $1 AND name = $2`, id, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint %s/%s: %w", id, name, err)
	}
	return decodePlan(payload)
}

func (s *Storage) SetFlag(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO flags(key, value) VALUES($1,$2)
		ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("upsert flag %s: %w", key, err)
	}
	return nil
}

func (s *Storage) GetFlag(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("select flag %s: %w", key, err)
	}
	return value, nil
}

func decodePlan(payload []byte) (*domain.Plan, error) {
	var plan domain.Plan
	if err := json.Unmarshal(payload, &plan); err != nil {
		return nil, fmt.Errorf("decode plan payload: %w", err)
	}
	return &plan, nil
}
