package core

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorderAggregates(t *testing.T) {
	rec := NewExpvarRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "add_planting", true, 20*time.Millisecond)
	rec.Observe(ctx, "add_planting", true, 30*time.Millisecond)
	rec.Observe(ctx, "add_planting", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second) // ignored

	snap := rec.Snapshot()
	if got := snap.DurationsMS["add_planting"]; got != 55 {
		t.Fatalf("durations = %g, want 55", got)
	}
	if got := snap.Results["add_planting"]["success"]; got != 2 {
		t.Fatalf("success count = %d, want 2", got)
	}
	if got := snap.Results["add_planting"]["error"]; got != 1 {
		t.Fatalf("error count = %d, want 1", got)
	}
	if rec.Name() == "" {
		t.Fatal("generated name empty")
	}
}

func TestPrometheusRecorderRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("NewPrometheusRecorder: %v", err)
	}
	rec.Observe(context.Background(), "undo", true, 3*time.Millisecond)
	rec.Observe(context.Background(), "undo", false, time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	if !found["cropplan_store_operations_total"] || !found["cropplan_store_operation_duration_seconds"] {
		t.Fatalf("metric families = %v", found)
	}

	// Double registration must fail cleanly.
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatal("duplicate registration accepted")
	}
}

func TestStoreRecordsOperationMetrics(t *testing.T) {
	rec := NewExpvarRecorder("")
	store, _, _ := newTestStoreWithPlan(t, WithMetrics(rec))
	ctx := context.Background()

	if _, err := store.AddBedGroup(ctx, "Row D"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}
	if _, err := store.AddPlanting(ctx, PlantingInput{CropID: "missing", BedFeet: 1}); err == nil {
		t.Fatal("expected failure")
	}

	snap := rec.Snapshot()
	if snap.Results["add_bed_group"]["success"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
	if snap.Results["add_planting"]["error"] != 1 {
		t.Fatalf("results = %+v", snap.Results)
	}
}
