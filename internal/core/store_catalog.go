package core

import (
	"context"
	"fmt"

	"cropplan/pkg/domain"
)

// Crop catalog operations mutate the plan's own copy of the master crop
// configuration. Plantings referencing an identifier are never touched; each
// operation reports how many currently reference it so callers can warn the
// user. Planting display derives from the catalog on read, not denormalized.

// AddCropConfig adds a new catalog entry, rejecting a duplicate identifier.
// The returned count is the number of plantings already referencing the
// identifier (normally zero for a fresh entry).
func (s *PlanStore) AddCropConfig(ctx context.Context, cfg domain.CropConfig) (affected int, err error) {
	err = s.mutate(ctx, "add_crop_config", fmt.Sprintf("Added crop %q", cfg.Identifier), func(p *domain.Plan) error {
		if _, exists := p.Crops[cfg.Identifier]; exists {
			return domain.ConflictError{Entity: domain.EntityCropConfig, Ref: cfg.Identifier, Reason: "identifier already exists"}
		}
		p.Crops[cfg.Identifier] = cfg
		affected = p.PlantingsForCrop(cfg.Identifier)
		return nil
	})
	return affected, err
}

// UpdateCropConfig replaces an existing catalog entry in place.
func (s *PlanStore) UpdateCropConfig(ctx context.Context, cfg domain.CropConfig) (affected int, err error) {
	err = s.mutate(ctx, "update_crop_config", fmt.Sprintf("Updated crop %q", cfg.Identifier), func(p *domain.Plan) error {
		if _, exists := p.Crops[cfg.Identifier]; !exists {
			return domain.NotFoundError{Entity: domain.EntityCropConfig, Ref: cfg.Identifier}
		}
		p.Crops[cfg.Identifier] = cfg
		affected = p.PlantingsForCrop(cfg.Identifier)
		return nil
	})
	return affected, err
}

// DeleteCropConfigs removes catalog entries by identifier. It reports how
// many identifiers actually existed and were removed, plus the number of
// plantings that referenced any of them.
func (s *PlanStore) DeleteCropConfigs(ctx context.Context, identifiers []string) (removed, affected int, err error) {
	err = s.mutate(ctx, "delete_crop_configs", fmt.Sprintf("Deleted %d crop(s)", len(identifiers)), func(p *domain.Plan) error {
		for _, id := range identifiers {
			if _, exists := p.Crops[id]; !exists {
				continue
			}
			delete(p.Crops, id)
			removed++
			affected += p.PlantingsForCrop(id)
		}
		return nil
	})
	return removed, affected, err
}
