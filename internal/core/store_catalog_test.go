package core

import (
	"context"
	"errors"
	"testing"

	"cropplan/pkg/domain"
)

func TestAddCropConfigRejectsDuplicateIdentifier(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	affected, err := store.AddCropConfig(ctx, domain.CropConfig{
		Identifier: "kale-lacinato", Crop: "Kale", Method: "transplant", DaysToMaturity: 60,
	})
	if err != nil {
		t.Fatalf("AddCropConfig: %v", err)
	}
	if affected != 0 {
		t.Fatalf("affected = %d, want 0", affected)
	}

	_, err = store.AddCropConfig(ctx, domain.CropConfig{Identifier: "kale-lacinato", Crop: "Kale"})
	var conflict domain.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
}

func TestUpdateCropConfigReportsAffectedPlantings(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := store.AddPlanting(ctx, PlantingInput{CropID: "lettuce-head", BedFeet: 10}); err != nil {
			t.Fatalf("AddPlanting: %v", err)
		}
	}
	cfg := store.Plan().Crops["lettuce-head"]
	cfg.DaysToMaturity = 55
	affected, err := store.UpdateCropConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("UpdateCropConfig: %v", err)
	}
	if affected != 3 {
		t.Fatalf("affected = %d, want 3", affected)
	}
	if got := store.Plan().Crops["lettuce-head"].DaysToMaturity; got != 55 {
		t.Fatalf("days to maturity = %d, want 55", got)
	}

	if _, err := store.UpdateCropConfig(ctx, domain.CropConfig{Identifier: "missing"}); err == nil {
		t.Fatal("update of missing identifier accepted")
	}
}

func TestDeleteCropConfigsLeavesPlantingsAlone(t *testing.T) {
	store, _, _ := newTestStoreWithPlan(t)
	ctx := context.Background()

	pl, err := store.AddPlanting(ctx, PlantingInput{CropID: "tomato-slicer", BedFeet: 25})
	if err != nil {
		t.Fatalf("AddPlanting: %v", err)
	}

	removed, affected, err := store.DeleteCropConfigs(ctx, []string{"tomato-slicer", "no-such-crop"})
	if err != nil {
		t.Fatalf("DeleteCropConfigs: %v", err)
	}
	if removed != 1 || affected != 1 {
		t.Fatalf("removed=%d affected=%d, want 1/1", removed, affected)
	}

	after := store.Plan()
	if _, exists := after.Crops["tomato-slicer"]; exists {
		t.Fatal("crop config still present")
	}
	// The planting stays, now dangling; display-time lookups handle that.
	if _, ok := after.FindPlanting(pl.ID); !ok {
		t.Fatal("planting removed alongside its crop config")
	}
	if res := domain.ValidatePlan(after); res.OK() {
		t.Fatal("expected a dangling crop reference violation")
	}
}
