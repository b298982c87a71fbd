package core

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"cropplan/internal/infra/persistence/memory"
	"cropplan/pkg/domain"
)

// fixedNow keeps test timestamps deterministic.
var fixedNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) (*PlanStore, *memory.Storage) {
	t.Helper()
	storage := memory.NewStorage()
	base := []Option{
		WithLogger(slog.New(slog.DiscardHandler)),
		WithClock(func() time.Time { return fixedNow }),
	}
	return NewPlanStore(storage, append(base, opts...)...), storage
}

// newTestStoreWithPlan creates a store with an active plan seeded from the
// standard bed template.
func newTestStoreWithPlan(t *testing.T, opts ...Option) (*PlanStore, *memory.Storage, *domain.Plan) {
	t.Helper()
	store, storage := newTestStore(t, opts...)
	plan, err := store.CreatePlan(context.Background(), CreatePlanOptions{Name: "Test Plan", Year: 2026})
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	return store, storage, plan
}

func bedIDByName(t *testing.T, plan *domain.Plan, name string) string {
	t.Helper()
	bed, ok := plan.FindBedByName(name)
	if !ok {
		t.Fatalf("bed %q not found", name)
	}
	return bed.ID
}

// failingStorage wraps a real storage and fails saves on demand.
type failingStorage struct {
	domain.PlanStorage
	failSaves bool
}

func (f *failingStorage) SavePlan(ctx context.Context, id string, plan *domain.Plan) error {
	if f.failSaves {
		return fmt.Errorf("disk full")
	}
	return f.PlanStorage.SavePlan(ctx, id, plan)
}
