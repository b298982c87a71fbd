// Package sqlite persists plan documents to an embedded SQLite file as
// JSON payloads with denormalized list-view columns.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"cropplan/pkg/domain"
)

// Storage is a file-backed PlanStorage. Plans are written wholesale; each
// SavePlan replaces the full document.
type Storage struct {
	db   *sql.DB
	path string
}

var _ domain.PlanStorage = (*Storage)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	year INTEGER NOT NULL,
	crop_count INTEGER NOT NULL,
	last_modified TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS stash (
	plan_id TEXT PRIMARY KEY,
	payload BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS checkpoints (
	plan_id TEXT NOT NULL,
	name TEXT NOT NULL,
	saved_at TEXT NOT NULL,
	payload BLOB NOT NULL,
	PRIMARY KEY (plan_id, name)
);
CREATE TABLE IF NOT EXISTS flags (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// NewStorage opens (creating if needed) the sqlite file at path. An empty
// path defaults to ./cropplan.db.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		path = "cropplan.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &Storage{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Storage) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *Storage) Path() string { return s.path }

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
		var modified string
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Year, &sum.CropCount, &modified); err != nil {
			return nil, fmt.Errorf("scan plan row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, modified); err == nil {
			sum.LastModified = t
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Storage) GetPlan(ctx context.Context, id string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM plans WHERE id = ?`, id).Scan(&payload)
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
		VALUES(?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name, year=excluded.year, crop_count=excluded.crop_count,
			last_modified=excluded.last_modified, payload=excluded.payload`,
		id, plan.Metadata.Name, plan.Metadata.Year, len(crops),
		plan.Metadata.LastModified.UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("upsert plan %s: %w", id, err)
	}
	return nil
}

func (s *Storage) DeletePlan(ctx context.Context, id string) error {
	for _, q := range []string{
		`DELETE FROM plans WHERE id = ?`,
		`DELETE FROM stash WHERE plan_id = ?`,
		`DELETE FROM checkpoints WHERE plan_id = ?`,
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO stash(plan_id, payload) VALUES(?,?)
		ON CONFLICT(plan_id) DO UPDATE SET payload=excluded.payload`, id, payload)
	if err != nil {
		return fmt.Errorf("upsert stash %s: %w", id, err)
	}
	return nil
}

func (s *Storage) GetStash(ctx context.Context, id string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM stash WHERE plan_id = ?`, id).Scan(&payload)
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
	_, err = s.db.ExecContext(ctx, `INSERT INTO checkpoints(plan_id, name, saved_at, payload) VALUES(?,?,?,?)
		ON CONFLICT(plan_id, name) DO UPDATE SET saved_at=excluded.saved_at, payload=excluded.payload`,
		id, name, time.Now().UTC().Format(time.RFC3339Nano), payload)
	if err != nil {
		return fmt.Errorf("upsert checkpoint %s/%s: %w", id, name, err)
	}
	return nil
}

func (s *Storage) ListCheckpoints(ctx context.Context, id string) ([]domain.CheckpointInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, saved_at FROM checkpoints WHERE plan_id = ? ORDER BY saved_at DESC`, id)
	if err != nil {
		return nil, fmt.Errorf("select checkpoints %s: %w", id, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.CheckpointInfo
	for rows.Next() {
		var info domain.CheckpointInfo
		var saved string
		if err := rows.Scan(&info.Name, &saved); err != nil {
			return nil, fmt.Errorf("scan checkpoint row: %w", err)
		}
		if t, err := time.Parse(time.RFC3339Nano, saved); err == nil {
			info.SavedAt = t
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *Storage) GetCheckpoint(ctx context.Context, id, name string) (*domain.Plan, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM checkpoints WHERE plan_id = ? AND name = ?`, id, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select checkpoint %s/%s: %w", id, name, err)
	}
	return decodePlan(payload)
}

func (s *Storage) SetFlag(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO flags(key, value) VALUES(?,?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("upsert flag %s: %w", key, err)
	}
	return nil
}

func (s *Storage) GetFlag(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM flags WHERE key = ?`, key).Scan(&value)
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
