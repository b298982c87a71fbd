package domain

import "time"

// Entity factories construct records with system-generated identifiers and
// default fields. Display orders are assigned by the store at insertion time.

// NewBedGroup constructs an empty group with a fresh id.
func NewBedGroup(name string, order int) BedGroup {
	return BedGroup{ID: NewID("grp"), Name: name, DisplayOrder: order}
}

// NewBed constructs a bed belonging to the given group.
func NewBed(name, groupID string, lengthFeet float64, order int) Bed {
	return Bed{ID: NewID("bed"), Name: name, GroupID: groupID, LengthFeet: lengthFeet, DisplayOrder: order}
}

// NewVariety constructs a variety record with a fresh id.
func NewVariety(crop, name, supplier string) Variety {
	return Variety{ID: NewID("var"), Crop: crop, Name: name, Supplier: supplier}
}

// NewSeedMix constructs an empty seed mix with a fresh id.
func NewSeedMix(name, crop string) SeedMix {
	return SeedMix{ID: NewID("mix"), Name: name, Crop: crop}
}

// NewProduct constructs a product record with a fresh id.
func NewProduct(crop, product, unit string) Product {
	return Product{ID: NewID("prd"), Crop: crop, Product: product, Unit: unit}
}

// NewPlan constructs an empty plan document with current schema version.
func NewPlan(name string, year int, now time.Time) *Plan {
	return &Plan{
		ID:            NewPlanID(),
		SchemaVersion: SchemaVersion,
		Metadata: PlanMetadata{
			Name:         name,
			CreatedAt:    now,
			LastModified: now,
			Year:         year,
			Version:      1,
		},
		Crops: map[string]CropConfig{},
	}
}
