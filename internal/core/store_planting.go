package core

import (
	"context"
	"fmt"

	"cropplan/pkg/domain"
)

// PlantingInput describes a planting to add. Bed may be a bed id or a display
// name; it is resolved to the canonical id before anything is stored. An
// empty Bed leaves the planting unassigned.
type PlantingInput struct {
	CropID         string
	Bed            string
	BedFeet        float64
	FieldStartDate string
	SeedSourceID   string
	Notes          string
}

// PlantingFieldUpdate carries a free-form field edit. Nil pointers leave the
// field alone; pointing at an empty string clears notes and seed source.
// Overrides are shallow-merged field by field; RemoveOverrides names override
// fields to drop.
type PlantingFieldUpdate struct {
	Notes           *string
	SeedSourceID    *string
	Overrides       *domain.PlantingOverrides
	RemoveOverrides []string
	Sequence        *domain.SequenceRef
	ClearSequence   bool
}

// AddPlanting validates and adds a new planting, resolving bed references and
// defaulting the seed source from the crop configuration.
func (s *PlanStore) AddPlanting(ctx context.Context, in PlantingInput) (domain.Planting, error) {
	var created domain.Planting
	err := s.mutate(ctx, "add_planting", fmt.Sprintf("Added %s planting", in.CropID), func(p *domain.Plan) error {
		cfg, ok := p.Crops[in.CropID]
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityCropConfig, Ref: in.CropID}
		}
		startBed, err := resolveBedRef(p, in.Bed)
		if err != nil {
			return err
		}
		if err := validatePlacement(p, startBed, in.BedFeet); err != nil {
			return err
		}
		seedSource := in.SeedSourceID
		if seedSource == "" {
			seedSource = cfg.DefaultSeedSourceID
		}
		created = domain.Planting{
			ID:             s.nextPlantingID(),
			CropID:         in.CropID,
			StartBedID:     startBed,
			BedFeet:        in.BedFeet,
			FieldStartDate: in.FieldStartDate,
			Notes:          in.Notes,
			UpdatedAt:      s.nowFn(),
		}
		if seedSource != "" {
			created.SeedSourceID = &seedSource
		}
		p.Plantings = append(p.Plantings, created)
		return nil
	})
	return created, err
}

// DuplicatePlanting clones a planting with a fresh id and no bed assignment.
func (s *PlanStore) DuplicatePlanting(ctx context.Context, plantingID string) (domain.Planting, error) {
	var created domain.Planting
	err := s.mutate(ctx, "duplicate_planting", "Duplicated planting", func(p *domain.Plan) error {
		src, ok := p.FindPlanting(plantingID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
		}
		created = domain.ClonePlanting(src)
		created.ID = s.nextPlantingID()
		created.StartBedID = nil
		created.Actuals = nil
		created.UpdatedAt = s.nowFn()
		p.Plantings = append(p.Plantings, created)
		return nil
	})
	return created, err
}

// DeletePlanting removes a planting from the plan.
func (s *PlanStore) DeletePlanting(ctx context.Context, plantingID string) error {
	return s.mutate(ctx, "delete_planting", "Deleted planting", func(p *domain.Plan) error {
		for i := range p.Plantings {
			if p.Plantings[i].ID == plantingID {
				p.Plantings = append(p.Plantings[:i], p.Plantings[i+1:]...)
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
	})
}

// MovePlanting reassigns a planting's start bed. An empty bed reference moves
// it to unassigned. The current footage is validated against the destination.
func (s *PlanStore) MovePlanting(ctx context.Context, plantingID, bed string) error {
	return s.placePlanting(ctx, "move_planting", "Moved planting", plantingID, &bed, nil)
}

// ResizePlanting changes a planting's requested footage, validated against
// its current location. Unassigned plantings resize freely.
func (s *PlanStore) ResizePlanting(ctx context.Context, plantingID string, bedFeet float64) error {
	return s.placePlanting(ctx, "resize_planting", fmt.Sprintf("Resized planting to %g ft", bedFeet), plantingID, nil, &bedFeet)
}

// MoveAndResizePlanting applies a combined move+resize, validating the new
// footage against the destination bed's forward capacity.
func (s *PlanStore) MoveAndResizePlanting(ctx context.Context, plantingID, bed string, bedFeet float64) error {
	return s.placePlanting(ctx, "move_resize_planting", "Moved and resized planting", plantingID, &bed, &bedFeet)
}

// placePlanting is the shared validate-then-commit path for placement edits.
// Validation always runs against the target location; on failure the planting
// keeps its previous startBed and bedFeet.
func (s *PlanStore) placePlanting(ctx context.Context, op, description, plantingID string, bed *string, bedFeet *float64) error {
	return s.mutate(ctx, op, description, func(p *domain.Plan) error {
		idx := -1
		for i := range p.Plantings {
			if p.Plantings[i].ID == plantingID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
		}
		target := p.Plantings[idx].StartBedID
		if bed != nil {
			resolved, err := resolveBedRef(p, *bed)
			if err != nil {
				return err
			}
			target = resolved
		}
		feet := p.Plantings[idx].BedFeet
		if bedFeet != nil {
			feet = *bedFeet
		}
		if err := validatePlacement(p, target, feet); err != nil {
			return err
		}
		p.Plantings[idx].StartBedID = target
		p.Plantings[idx].BedFeet = feet
		p.Plantings[idx].UpdatedAt = s.nowFn()
		return nil
	})
}

// SetPlantingFieldStartDate sets the field start date. The end date is always
// derived from the crop configuration and never stored. Plantings with
// recorded actuals are locked against date-only edits.
func (s *PlanStore) SetPlantingFieldStartDate(ctx context.Context, plantingID, date string) error {
	return s.mutate(ctx, "set_planting_date", fmt.Sprintf("Changed planting date to %s", date), func(p *domain.Plan) error {
		for i := range p.Plantings {
			if p.Plantings[i].ID != plantingID {
				continue
			}
			if p.Plantings[i].HasActuals() {
				return domain.ConflictError{
					Entity: domain.EntityPlanting,
					Ref:    plantingID,
					Reason: "planting has recorded actual dates and cannot be rescheduled",
				}
			}
			p.Plantings[i].FieldStartDate = date
			p.Plantings[i].UpdatedAt = s.nowFn()
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
	})
}

// UpdatePlantingFields applies a free-form field edit with shallow-merge
// semantics for overrides and clear-on-empty semantics for notes and seed
// source.
func (s *PlanStore) UpdatePlantingFields(ctx context.Context, plantingID string, update PlantingFieldUpdate) error {
	return s.mutate(ctx, "update_planting_fields", "Updated planting fields", func(p *domain.Plan) error {
		for i := range p.Plantings {
			if p.Plantings[i].ID != plantingID {
				continue
			}
			pl := &p.Plantings[i]
			if update.Notes != nil {
				pl.Notes = *update.Notes
			}
			if update.SeedSourceID != nil {
				if *update.SeedSourceID == "" {
					pl.SeedSourceID = nil
				} else {
					id := *update.SeedSourceID
					pl.SeedSourceID = &id
				}
			}
			if update.Overrides != nil {
				pl.Overrides = mergeOverrides(pl.Overrides, update.Overrides)
			}
			if len(update.RemoveOverrides) > 0 {
				pl.Overrides = removeOverrides(pl.Overrides, update.RemoveOverrides)
			}
			if update.ClearSequence {
				pl.Sequence = nil
			} else if update.Sequence != nil {
				seq := *update.Sequence
				pl.Sequence = &seq
			}
			pl.UpdatedAt = s.nowFn()
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
	})
}

// SetPlantingActuals records realized dates, locking the planting against
// date-only edits. Nil pointers leave existing actuals alone.
func (s *PlanStore) SetPlantingActuals(ctx context.Context, plantingID string, actuals domain.PlantingActuals) error {
	return s.mutate(ctx, "set_planting_actuals", "Recorded planting actuals", func(p *domain.Plan) error {
		for i := range p.Plantings {
			if p.Plantings[i].ID != plantingID {
				continue
			}
			pl := &p.Plantings[i]
			if pl.Actuals == nil {
				pl.Actuals = &domain.PlantingActuals{}
			}
			if actuals.GreenhouseDate != nil {
				pl.Actuals.GreenhouseDate = actuals.GreenhouseDate
			}
			if actuals.FieldDate != nil {
				pl.Actuals.FieldDate = actuals.FieldDate
			}
			pl.UpdatedAt = s.nowFn()
			return nil
		}
		return domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
	})
}

func mergeOverrides(current, patch *domain.PlantingOverrides) *domain.PlantingOverrides {
	merged := domain.CloneOverrides(current)
	if merged == nil {
		merged = &domain.PlantingOverrides{}
	}
	if patch.GreenhouseStartDate != nil {
		merged.GreenhouseStartDate = patch.GreenhouseStartDate
	}
	if patch.FixedFieldStartDate != nil {
		merged.FixedFieldStartDate = patch.FixedFieldStartDate
	}
	if patch.InRowSpacingInches != nil {
		merged.InRowSpacingInches = patch.InRowSpacingInches
	}
	if patch.RowsPerBed != nil {
		merged.RowsPerBed = patch.RowsPerBed
	}
	if patch.YieldFactor != nil {
		merged.YieldFactor = patch.YieldFactor
	}
	return merged
}

func removeOverrides(current *domain.PlantingOverrides, fields []string) *domain.PlantingOverrides {
	if current == nil {
		return nil
	}
	merged := domain.CloneOverrides(current)
	for _, f := range fields {
		switch f {
		case "greenhouse_start_date":
			merged.GreenhouseStartDate = nil
		case "fixed_field_start_date":
			merged.FixedFieldStartDate = nil
		case "in_row_spacing_inches":
			merged.InRowSpacingInches = nil
		case "rows_per_bed":
			merged.RowsPerBed = nil
		case "yield_factor":
			merged.YieldFactor = nil
		}
	}
	if *merged == (domain.PlantingOverrides{}) {
		return nil
	}
	return merged
}

// resolveBedRef resolves a bed id or display name to the canonical stored id.
// Empty means unassigned.
func resolveBedRef(p *domain.Plan, ref string) (*string, error) {
	if ref == "" {
		return nil, nil
	}
	if bed, ok := p.FindBed(ref); ok {
		id := bed.ID
		return &id, nil
	}
	if bed, ok := p.FindBedByName(ref); ok {
		id := bed.ID
		return &id, nil
	}
	return nil, domain.NotFoundError{Entity: domain.EntityBed, Ref: ref}
}
