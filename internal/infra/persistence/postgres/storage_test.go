package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"cropplan/pkg/domain"
)

func newTestStorage(t *testing.T) (*Storage, *stubConn) {
	t.Helper()
	db, conn := newStubDB()
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	store, err := NewStorage("")
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, conn
}

func testPlan(name string, year int) *domain.Plan {
	now := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	plan := domain.NewPlan(name, year, now)
	plan.BedGroups = []domain.BedGroup{{ID: "grp_1", Name: "Row A"}}
	plan.Beds = []domain.Bed{domain.NewBed("Row A 1", "grp_1", 50, 0)}
	plan.Plantings = []domain.Planting{
		{ID: "p1", CropID: "lettuce-head", BedFeet: 25, UpdatedAt: now},
		{ID: "p2", CropID: "carrot", BedFeet: 50, UpdatedAt: now},
	}
	return plan
}

func TestNewStorageAppliesDDL(t *testing.T) {
	_, conn := newTestStorage(t)
	var sawDDL bool
	for _, stmt := range conn.execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE") {
			sawDDL = true
			break
		}
	}
	if !sawDDL {
		t.Fatalf("expected DDL applied on open, got execs: %v", conn.execs)
	}
}

func TestNewStoragePingFailure(t *testing.T) {
	db, conn := newStubDB()
	conn.failPing = true
	restore := OverrideSQLOpen(func(_, _ string) (*sql.DB, error) { return db, nil })
	defer restore()

	if _, err := NewStorage(""); err == nil {
		t.Fatal("expected error when the server is unreachable")
	}
}

func TestPostgresPlanRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStorage(t)
	plan := testPlan("Plan A", 2026)

	if err := store.SavePlan(ctx, plan.ID, plan); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(plan, got) {
		t.Fatal("loaded plan differs from saved plan")
	}
	if missing, err := store.GetPlan(ctx, "nope"); err != nil || missing != nil {
		t.Fatalf("GetPlan(missing) = %v, %v; want nil, nil", missing, err)
	}
}

func TestPostgresPlanListReflectsUpserts(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStorage(t)

	first := testPlan("Plan A", 2026)
	second := testPlan("Plan B", 2027)
	for _, p := range []*domain.Plan{first, second} {
		if err := store.SavePlan(ctx, p.ID, p); err != nil {
			t.Fatalf("save %s: %v", p.Metadata.Name, err)
		}
	}
	first.Metadata.Name = "Plan A Revised"
	if err := store.SavePlan(ctx, first.ID, first); err != nil {
		t.Fatalf("resave: %v", err)
	}

	list, err := store.GetPlanList(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("plans = %d, want 2", len(list))
	}
	byID := make(map[string]domain.PlanSummary, len(list))
	for _, sum := range list {
		byID[sum.ID] = sum
	}
	got, ok := byID[first.ID]
	if !ok {
		t.Fatalf("plan %s missing from list", first.ID)
	}
	if got.Name != "Plan A Revised" || got.Year != 2026 {
		t.Fatalf("upsert did not replace metadata: %+v", got)
	}
	if got.CropCount != 2 {
		t.Fatalf("crop count = %d, want 2", got.CropCount)
	}
	if !got.LastModified.Equal(first.Metadata.LastModified) {
		t.Fatalf("last modified = %v, want %v", got.LastModified, first.Metadata.LastModified)
	}
}

func TestPostgresDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStorage(t)
	plan := testPlan("Plan A", 2026)

	if err := store.SavePlan(ctx, plan.ID, plan); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Stash(ctx, plan.ID, plan); err != nil {
		t.Fatalf("stash: %v", err)
	}
	if err := store.SaveCheckpoint(ctx, plan.ID, "before", plan); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	if err := store.DeletePlan(ctx, plan.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got, _ := store.GetPlan(ctx, plan.ID); got != nil {
		t.Fatal("plan survived delete")
	}
	if got, _ := store.GetStash(ctx, plan.ID); got != nil {
		t.Fatal("stash survived delete")
	}
	if cps, _ := store.ListCheckpoints(ctx, plan.ID); len(cps) != 0 {
		t.Fatalf("checkpoints survived delete: %v", cps)
	}
}

func TestPostgresStashCheckpointsAndFlags(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStorage(t)
	plan := testPlan("Plan A", 2026)

	if err := store.Stash(ctx, plan.ID, plan); err != nil {
		t.Fatalf("stash: %v", err)
	}
	stashed, err := store.GetStash(ctx, plan.ID)
	if err != nil {
		t.Fatalf("get stash: %v", err)
	}
	if !reflect.DeepEqual(plan, stashed) {
		t.Fatal("stash round trip lost data")
	}

	if err := store.SaveCheckpoint(ctx, plan.ID, "first", plan); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}
	renamed := domain.ClonePlan(plan)
	renamed.Metadata.Name = "Renamed"
	if err := store.SaveCheckpoint(ctx, plan.ID, "first", renamed); err != nil {
		t.Fatalf("checkpoint overwrite: %v", err)
	}
	cps, err := store.ListCheckpoints(ctx, plan.ID)
	if err != nil {
		t.Fatalf("list checkpoints: %v", err)
	}
	if len(cps) != 1 || cps[0].Name != "first" {
		t.Fatalf("checkpoints = %+v, want single overwritten entry", cps)
	}
	got, err := store.GetCheckpoint(ctx, plan.ID, "first")
	if err != nil {
		t.Fatalf("get checkpoint: %v", err)
	}
	if got.Metadata.Name != "Renamed" {
		t.Fatalf("checkpoint name = %q, want overwritten payload", got.Metadata.Name)
	}
	if missing, _ := store.GetCheckpoint(ctx, plan.ID, "nope"); missing != nil {
		t.Fatal("missing checkpoint should be nil")
	}

	if v, err := store.GetFlag(ctx, "active_plan"); err != nil || v != "" {
		t.Fatalf("GetFlag(absent) = %q, %v", v, err)
	}
	if err := store.SetFlag(ctx, "active_plan", "plan_1"); err != nil {
		t.Fatalf("set flag: %v", err)
	}
	if err := store.SetFlag(ctx, "active_plan", "plan_2"); err != nil {
		t.Fatalf("overwrite flag: %v", err)
	}
	if v, _ := store.GetFlag(ctx, "active_plan"); v != "plan_2" {
		t.Fatalf("GetFlag = %q, want plan_2", v)
	}
}

// stubDriver serves an in-memory table model through database/sql so storage
// queries run without a postgres server.
type stubDriver struct {
	conn *stubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

type stubConn struct {
	execs    []string
	tables   map[string][]map[string]any
	failPing bool
}

func newStubDB() (*sql.DB, *stubConn) {
	conn := &stubConn{tables: make(map[string][]map[string]any)}
	name := fmt.Sprintf("stubpg%d", time.Now().UnixNano())
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	return db, conn
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }
func (c *stubConn) Close() error                        { return nil }
func (c *stubConn) Begin() (driver.Tx, error)           { return nil, fmt.Errorf("not implemented") }

func (c *stubConn) Ping(_ context.Context) error {
	if c.failPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

func (c *stubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.execs = append(c.execs, query)
	q := strings.TrimSpace(query)
	upper := strings.ToUpper(q)
	switch {
	case strings.HasPrefix(upper, "CREATE TABLE"):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "INSERT INTO"):
		return c.execInsert(q, args)
	case strings.HasPrefix(upper, "DELETE FROM"):
		return c.execDelete(q, args)
	}
	return driver.RowsAffected(0), nil
}

func (c *stubConn) execInsert(query string, args []driver.NamedValue) (driver.Result, error) {
	table, cols, conflictCols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	row := make(map[string]any, len(cols))
	for i, col := range cols {
		row[col] = args[i].Value
	}
	if len(conflictCols) > 0 {
		for i, existing := range c.tables[table] {
			if rowMatches(existing, conflictCols, row) {
				c.tables[table][i] = row
				return driver.RowsAffected(1), nil
			}
		}
	}
	c.tables[table] = append(c.tables[table], row)
	return driver.RowsAffected(1), nil
}

func (c *stubConn) execDelete(query string, args []driver.NamedValue) (driver.Result, error) {
	table, conds, err := parseDelete(query)
	if err != nil {
		return nil, err
	}
	kept := c.tables[table][:0]
	var removed int64
	for _, row := range c.tables[table] {
		if condsMatch(row, conds, args) {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	c.tables[table] = kept
	return driver.RowsAffected(removed), nil
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	table, cols, conds, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	var values [][]driver.Value
	for _, row := range c.tables[table] {
		if !condsMatch(row, conds, args) {
			continue
		}
		vals := make([]driver.Value, len(cols))
		for i, col := range cols {
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: cols, rows: values}, nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

// condition is one "col = $n" predicate.
type condition struct {
	col string
	arg int // 0-based index into the statement args
}

func condsMatch(row map[string]any, conds []condition, args []driver.NamedValue) bool {
	for _, cond := range conds {
		if cond.arg >= len(args) || row[cond.col] != args[cond.arg].Value {
			return false
		}
	}
	return true
}

func rowMatches(existing map[string]any, cols []string, row map[string]any) bool {
	for _, col := range cols {
		if existing[col] != row[col] {
			return false
		}
	}
	return true
}

func parseInsert(query string) (table string, cols, conflictCols []string, err error) {
	upper := strings.ToUpper(query)
	intoIdx := strings.Index(upper, "INTO ")
	if intoIdx == -1 {
		return "", nil, nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table = strings.ToLower(strings.TrimSpace(rest[:open]))
	cols = splitColumns(rest[open+1 : closeIdx])

	if conflictIdx := strings.Index(upper, "ON CONFLICT("); conflictIdx != -1 {
		conflictRest := query[conflictIdx+len("ON CONFLICT("):]
		if end := strings.Index(conflictRest, ")"); end != -1 {
			conflictCols = splitColumns(conflictRest[:end])
		}
	}
	return table, cols, conflictCols, nil
}

func parseDelete(query string) (string, []condition, error) {
	upper := strings.ToUpper(query)
	fromIdx := strings.Index(upper, "FROM ")
	if fromIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse delete: %s", query)
	}
	rest := strings.TrimSpace(query[fromIdx+len("FROM "):])
	table := strings.ToLower(strings.Fields(rest)[0])
	conds, err := parseWhere(query)
	return table, conds, err
}

func parseSelect(query string) (string, []string, []condition, error) {
	lower := strings.ToLower(query)
	if !strings.HasPrefix(strings.TrimSpace(lower), "select ") {
		return "", nil, nil, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, " from ")
	if fromIdx == -1 {
		return "", nil, nil, fmt.Errorf("cannot parse select: %s", query)
	}
	selIdx := strings.Index(lower, "select ") + len("select ")
	cols := splitColumns(query[selIdx:fromIdx])
	rest := strings.TrimSpace(query[fromIdx+len(" from "):])
	table := strings.ToLower(strings.Fields(rest)[0])
	conds, err := parseWhere(query)
	return table, cols, conds, err
}

func parseWhere(query string) ([]condition, error) {
	lower := strings.ToLower(query)
	whereIdx := strings.Index(lower, " where ")
	if whereIdx == -1 {
		return nil, nil
	}
	clause := query[whereIdx+len(" where "):]
	if orderIdx := strings.Index(strings.ToLower(clause), " order by "); orderIdx != -1 {
		clause = clause[:orderIdx]
	}
	var conds []condition
	for _, part := range strings.Split(clause, " AND ") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) != 3 || fields[1] != "=" || !strings.HasPrefix(fields[2], "$") {
			return nil, fmt.Errorf("cannot parse condition %q in: %s", part, query)
		}
		var n int
		if _, err := fmt.Sscanf(fields[2], "$%d", &n); err != nil || n < 1 {
			return nil, fmt.Errorf("cannot parse placeholder %q in: %s", fields[2], query)
		}
		conds = append(conds, condition{col: strings.ToLower(fields[0]), arg: n - 1})
	}
	return conds, nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
