package core

import (
	"context"
	"reflect"
	"testing"

	"cropplan/pkg/domain"
)

func TestMutateAppendsChangeLogAndPersists(t *testing.T) {
	store, storage, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	before := store.Plan()
	if _, err := store.AddBedGroup(ctx, "Row D"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}

	after := store.Plan()
	if len(after.ChangeLog) != len(before.ChangeLog)+1 {
		t.Fatalf("change log length = %d, want %d", len(after.ChangeLog), len(before.ChangeLog)+1)
	}
	if got := after.ChangeLog[len(after.ChangeLog)-1].Description; got != `Added bed group "Row D"` {
		t.Fatalf("change log description = %q", got)
	}

	saved, err := storage.GetPlan(ctx, after.ID)
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if !reflect.DeepEqual(saved, after) {
		t.Fatal("persisted plan differs from in-memory plan")
	}
	if store.IsDirty() {
		t.Fatal("store dirty after successful save")
	}
}

func TestMutationFailureLeavesDocumentUntouched(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	before := store.Plan()
	_, err := store.AddPlanting(ctx, PlantingInput{CropID: "no-such-crop", BedFeet: 10})
	if _, ok := err.(domain.NotFoundError); !ok {
		t.Fatalf("err = %v, want NotFoundError", err)
	}
	if !reflect.DeepEqual(store.Plan(), before) {
		t.Fatal("failed mutation modified the document")
	}
	if store.CanUndo() {
		t.Fatal("failed mutation pushed an undo snapshot")
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	snapshots := []*domain.Plan{store.Plan()}
	names := []string{"Row D", "Row E", "Row F"}
	for _, name := range names {
		if _, err := store.AddBedGroup(ctx, name); err != nil {
			t.Fatalf("AddBedGroup %q: %v", name, err)
		}
		snapshots = append(snapshots, store.Plan())
	}

	// Walk the whole history backward, checking each restored state is
	// byte-for-byte the document that was live at that point.
	for i := len(names); i > 0; i-- {
		applied, err := store.Undo(ctx)
		if err != nil || !applied {
			t.Fatalf("Undo #%d: applied=%v err=%v", i, applied, err)
		}
		if !reflect.DeepEqual(store.Plan(), snapshots[i-1]) {
			t.Fatalf("after undo #%d document differs from prior snapshot", i)
		}
	}
	if store.CanUndo() {
		t.Fatal("past stack should be empty")
	}

	for i := 1; i <= len(names); i++ {
		applied, err := store.Redo(ctx)
		if err != nil || !applied {
			t.Fatalf("Redo #%d: applied=%v err=%v", i, applied, err)
		}
		if !reflect.DeepEqual(store.Plan(), snapshots[i]) {
			t.Fatalf("after redo #%d document differs from snapshot", i)
		}
	}
	if store.CanRedo() {
		t.Fatal("future stack should be empty")
	}
}

func TestMutationClearsRedoStack(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	if _, err := store.AddBedGroup(ctx, "Row D"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}
	if _, err := store.Undo(ctx); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if !store.CanRedo() {
		t.Fatal("expected redo available after undo")
	}
	if _, err := store.AddBedGroup(ctx, "Row E"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}
	if store.CanRedo() {
		t.Fatal("new mutation must clear the redo stack")
	}
}

func TestUndoRedoEmptyStacksAreNoOps(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	before := store.Plan()
	if applied, err := store.Undo(ctx); err != nil || applied {
		t.Fatalf("Undo on empty past: applied=%v err=%v", applied, err)
	}
	if applied, err := store.Redo(ctx); err != nil || applied {
		t.Fatalf("Redo on empty future: applied=%v err=%v", applied, err)
	}
	if !reflect.DeepEqual(store.Plan(), before) {
		t.Fatal("no-op undo/redo modified the document")
	}
}

func TestHistoryDepthIsBounded(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	for i := 0; i < historyLimit+10; i++ {
		if err := store.RenameBedGroup(ctx, store.Plan().BedGroups[0].ID, "Row A"); err != nil {
			t.Fatalf("mutation #%d: %v", i, err)
		}
	}
	past, _ := store.HistoryDepth()
	if past != historyLimit {
		t.Fatalf("past depth = %d, want %d", past, historyLimit)
	}
}

func TestSaveFailureSurfacesWithoutRollback(t *testing.T) {
	store, storage := newTestStore(t)
	ctx := context.Background()
	if _, err := store.CreatePlan(ctx, CreatePlanOptions{Name: "P", Year: 2026}); err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}

	failing := &failingStorage{PlanStorage: storage, failSaves: true}
	store.storage = failing

	if _, err := store.AddBedGroup(ctx, "Row D"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}
	if store.SaveError() == "" {
		t.Fatal("expected save error to be recorded")
	}
	if !store.IsDirty() {
		t.Fatal("expected dirty flag after failed save")
	}
	// The in-memory mutation must survive the persistence failure.
	found := false
	for _, g := range store.Plan().BedGroups {
		if g.Name == "Row D" {
			found = true
		}
	}
	if !found {
		t.Fatal("mutation rolled back on save failure")
	}

	failing.failSaves = false
	if _, err := store.AddBedGroup(ctx, "Row E"); err != nil {
		t.Fatalf("AddBedGroup: %v", err)
	}
	if store.SaveError() != "" {
		t.Fatalf("save error not cleared: %q", store.SaveError())
	}
	if store.IsDirty() {
		t.Fatal("dirty flag not cleared after successful save")
	}
}

func TestPlanReturnsDeepCopy(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)

	snapshot := store.Plan()
	snapshot.BedGroups[0].Name = "tampered"
	snapshot.Beds[0].LengthFeet = 1
	if fresh := store.Plan(); fresh.BedGroups[0].Name == "tampered" || fresh.Beds[0].LengthFeet == 1 {
		t.Fatal("mutating a returned snapshot leaked into the store")
	}
}
