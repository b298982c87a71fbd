package domain

// Deep-clone helpers. Snapshots on the undo/redo stacks and every value
// handed out by the store are full copies; nothing shares backing storage
// with the live document.

// ClonePlan returns a deep copy of the plan.
func ClonePlan(p *Plan) *Plan {
	if p == nil {
		return nil
	}
	cp := *p
	cp.ChangeLog = append([]ChangeLogEntry(nil), p.ChangeLog...)
	cp.BedGroups = append([]BedGroup(nil), p.BedGroups...)
	cp.Beds = append([]Bed(nil), p.Beds...)
	if p.Plantings != nil {
		cp.Plantings = make([]Planting, len(p.Plantings))
		for i, pl := range p.Plantings {
			cp.Plantings[i] = ClonePlanting(pl)
		}
	}
	if p.Crops != nil {
		cp.Crops = make(map[string]CropConfig, len(p.Crops))
		for k, v := range p.Crops {
			cp.Crops[k] = v
		}
	}
	cp.Varieties = append([]Variety(nil), p.Varieties...)
	if p.SeedMixes != nil {
		cp.SeedMixes = make([]SeedMix, len(p.SeedMixes))
		for i, m := range p.SeedMixes {
			cp.SeedMixes[i] = CloneSeedMix(m)
		}
	}
	cp.Products = append([]Product(nil), p.Products...)
	if p.Metadata.ParentPlanID != nil {
		parent := *p.Metadata.ParentPlanID
		cp.Metadata.ParentPlanID = &parent
	}
	return &cp
}

// ClonePlanting returns a deep copy of a planting, preserving its id.
func ClonePlanting(pl Planting) Planting {
	cp := pl
	cp.StartBedID = cloneStringPtr(pl.StartBedID)
	cp.SeedSourceID = cloneStringPtr(pl.SeedSourceID)
	if pl.Sequence != nil {
		seq := *pl.Sequence
		cp.Sequence = &seq
	}
	cp.Overrides = CloneOverrides(pl.Overrides)
	if pl.Actuals != nil {
		act := PlantingActuals{
			GreenhouseDate: cloneStringPtr(pl.Actuals.GreenhouseDate),
			FieldDate:      cloneStringPtr(pl.Actuals.FieldDate),
		}
		cp.Actuals = &act
	}
	return cp
}

// CloneOverrides deep copies an overrides record; nil stays nil.
func CloneOverrides(o *PlantingOverrides) *PlantingOverrides {
	if o == nil {
		return nil
	}
	cp := PlantingOverrides{
		GreenhouseStartDate: cloneStringPtr(o.GreenhouseStartDate),
		FixedFieldStartDate: cloneStringPtr(o.FixedFieldStartDate),
		InRowSpacingInches:  cloneFloatPtr(o.InRowSpacingInches),
		RowsPerBed:          cloneIntPtr(o.RowsPerBed),
		YieldFactor:         cloneFloatPtr(o.YieldFactor),
	}
	return &cp
}

// CloneSeedMix returns a deep copy of a seed mix.
func CloneSeedMix(m SeedMix) SeedMix {
	cp := m
	cp.Components = append([]SeedMixComponent(nil), m.Components...)
	return cp
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
