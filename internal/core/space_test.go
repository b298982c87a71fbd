package core

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cropplan/pkg/domain"
)

// The standard template lays out Row A as four 50 ft beds, so 200 ft is the
// total forward capacity from bed 1 and 100 ft from bed 3.

func TestAddPlantingCapacity(t *testing.T) {
	cases := []struct {
		name      string
		bed       string
		feet      float64
		wantErr   bool
		available float64
	}{
		{name: "fits exactly", bed: "Row A 1", feet: 200},
		{name: "fits one bed", bed: "Row A 1", feet: 50},
		{name: "spans into next bed", bed: "Row A 1", feet: 60},
		{name: "exceeds full row", bed: "Row A 1", feet: 250, wantErr: true, available: 200},
		{name: "exceeds tail from bed 3", bed: "Row A 3", feet: 150, wantErr: true, available: 100},
		{name: "unassigned exempt", bed: "", feet: 10000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, _, _ := newTestStoreWithPlan(t)
			_, err := store.AddPlanting(context.Background(), PlantingInput{
				CropID: "lettuce-head", Bed: tc.bed, BedFeet: tc.feet, FieldStartDate: "2026-05-01",
			})
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("AddPlanting: %v", err)
				}
				return
			}
			var capErr domain.CapacityError
			if !errors.As(err, &capErr) {
				t.Fatalf("err = %v, want CapacityError", err)
			}
			if capErr.AvailableFeet != tc.available {
				t.Fatalf("available = %g, want %g", capErr.AvailableFeet, tc.available)
			}
			if capErr.StartBedName != tc.bed {
				t.Fatalf("start bed = %q, want %q", capErr.StartBedName, tc.bed)
			}
			if !strings.Contains(err.Error(), "not enough space") {
				t.Fatalf("unexpected message: %v", err)
			}
		})
	}
}

func TestMoveRejectionLeavesPlacementUnchanged(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	created, err := store.AddPlanting(ctx, PlantingInput{
		CropID: "carrot-bunching", Bed: "Row A 1", BedFeet: 150, FieldStartDate: "2026-04-15",
	})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	before := store.Plan()

	// Only 50 ft remain forward of the last bed; the move must fail whole.
	err = store.MovePlanting(ctx, created.ID, "Row A 4")
	var capErr domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapacityError", err)
	}
	if !reflect.DeepEqual(store.Plan(), before) {
		t.Fatal("rejected move modified the document")
	}
}

func TestResizeValidatesAgainstCurrentBed(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	created, err := store.AddPlanting(ctx, PlantingInput{
		CropID: "salad-mix", Bed: "Row A 3", BedFeet: 40, FieldStartDate: "2026-04-01",
	})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	if err := store.ResizePlanting(ctx, created.ID, 100); err != nil {
		t.Fatalf("resize within capacity: %v", err)
	}
	err = store.ResizePlanting(ctx, created.ID, 120)
	var capErr domain.CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("err = %v, want CapacityError", err)
	}
	got, _ := store.Plan().FindPlanting(created.ID)
	if got.BedFeet != 100 {
		t.Fatalf("bed feet = %g after rejected resize, want 100", got.BedFeet)
	}
}

func TestSpanBeds(t *testing.T) {
	store, _, plan := newTestStoreWithPlan(t)
	ctx := context.Background()

	created, err := store.AddPlanting(ctx, PlantingInput{
		CropID: "lettuce-head", Bed: "Row A 2", BedFeet: 120, FieldStartDate: "2026-05-01",
	})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	span, err := SpanBeds(store.Plan(), created.ID)
	if err != nil {
		t.Fatalf("SpanBeds: %v", err)
	}
	want := []string{
		bedIDByName(t, plan, "Row A 2"),
		bedIDByName(t, plan, "Row A 3"),
		bedIDByName(t, plan, "Row A 4"),
	}
	if !reflect.DeepEqual(span, want) {
		t.Fatalf("span = %v, want %v", span, want)
	}

	unassigned, err := store.AddPlanting(ctx, PlantingInput{CropID: "lettuce-head", BedFeet: 30})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}
	span, err = SpanBeds(store.Plan(), unassigned.ID)
	if err != nil {
		t.Fatalf("SpanBeds unassigned: %v", err)
	}
	if span != nil {
		t.Fatalf("span for unassigned = %v, want nil", span)
	}
}
