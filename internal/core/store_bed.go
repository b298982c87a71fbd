package core

import (
	"context"
	"fmt"

	"cropplan/pkg/domain"
)

// DeletePolicy controls how deleting a bed treats plantings that reference it.
type DeletePolicy string

// DeleteUnassign moves referencing plantings to unassigned before deleting.
const DeleteUnassign DeletePolicy = "unassign"

// RenameBed changes a bed's display name.
func (s *PlanStore) RenameBed(ctx context.Context, bedID, name string) error {
	return s.mutate(ctx, "rename_bed", fmt.Sprintf("Renamed bed to %q", name), func(p *domain.Plan) error {
		for i := range p.Beds {
			if p.Beds[i].ID == bedID {
				p.Beds[i].Name = name
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityBed, Ref: bedID}
	})
}

// AddBed appends a bed to a group at the next display order and returns it.
func (s *PlanStore) AddBed(ctx context.Context, groupID, name string, lengthFeet float64) (domain.Bed, error) {
	var created domain.Bed
	err := s.mutate(ctx, "add_bed", fmt.Sprintf("Added bed %q", name), func(p *domain.Plan) error {
		if _, ok := p.FindBedGroup(groupID); !ok {
			return domain.NotFoundError{Entity: domain.EntityBedGroup, Ref: groupID}
		}
		if _, ok := p.FindBedByName(name); ok {
			return domain.ConflictError{Entity: domain.EntityBed, Ref: name, Reason: "a bed with this name already exists"}
		}
		created = domain.NewBed(name, groupID, lengthFeet, len(p.GroupBeds(groupID)))
		p.Beds = append(p.Beds, created)
		return nil
	})
	return created, err
}

// DeleteBed removes a bed. It fails with an error naming the blocking
// planting count when any planting starts on the bed.
func (s *PlanStore) DeleteBed(ctx context.Context, bedID string) error {
	return s.deleteBed(ctx, bedID, "")
}

// DeleteBedWithPlantings removes a bed after applying the given policy to
// referencing plantings. Only DeleteUnassign is supported.
func (s *PlanStore) DeleteBedWithPlantings(ctx context.Context, bedID string, policy DeletePolicy) error {
	if policy != DeleteUnassign {
		return fmt.Errorf("unsupported delete policy %q", policy)
	}
	return s.deleteBed(ctx, bedID, policy)
}

func (s *PlanStore) deleteBed(ctx context.Context, bedID string, policy DeletePolicy) error {
	return s.mutate(ctx, "delete_bed", "Deleted bed", func(p *domain.Plan) error {
		bed, ok := p.FindBed(bedID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityBed, Ref: bedID}
		}
		if blocking := p.PlantingsOnBed(bedID); len(blocking) > 0 {
			if policy != DeleteUnassign {
				return domain.ConflictError{
					Entity: domain.EntityBed,
					Ref:    bed.Name,
					Reason: fmt.Sprintf("%d planting(s) reference this bed", len(blocking)),
				}
			}
			for i := range p.Plantings {
				if p.Plantings[i].StartBedID != nil && *p.Plantings[i].StartBedID == bedID {
					p.Plantings[i].StartBedID = nil
				}
			}
		}
		for i := range p.Beds {
			if p.Beds[i].ID == bedID {
				p.Beds = append(p.Beds[:i], p.Beds[i+1:]...)
				break
			}
		}
		// Close the display-order gap in the source group.
		for i := range p.Beds {
			if p.Beds[i].GroupID == bed.GroupID && p.Beds[i].DisplayOrder > bed.DisplayOrder {
				p.Beds[i].DisplayOrder--
			}
		}
		return nil
	})
}

// ReorderBed moves a bed to a new position within its group, shifting the
// closed interval of siblings between the old and new position so display
// orders stay a dense 0-based sequence.
func (s *PlanStore) ReorderBed(ctx context.Context, bedID string, target int) error {
	return s.mutate(ctx, "reorder_bed", "Reordered bed", func(p *domain.Plan) error {
		bed, ok := p.FindBed(bedID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityBed, Ref: bedID}
		}
		siblings := len(p.GroupBeds(bed.GroupID))
		target = clamp(target, 0, siblings-1)
		from := bed.DisplayOrder
		if target == from {
			return nil
		}
		for i := range p.Beds {
			b := &p.Beds[i]
			if b.GroupID != bed.GroupID {
				continue
			}
			switch {
			case b.ID == bedID:
				b.DisplayOrder = target
			case from < target && b.DisplayOrder > from && b.DisplayOrder <= target:
				b.DisplayOrder--
			case from > target && b.DisplayOrder >= target && b.DisplayOrder < from:
				b.DisplayOrder++
			}
		}
		return nil
	})
}

// MoveBedToGroup relocates a bed into a different group at the target
// position, closing the gap left in the source group and opening one in the
// destination.
func (s *PlanStore) MoveBedToGroup(ctx context.Context, bedID, groupID string, target int) error {
	return s.mutate(ctx, "move_bed", "Moved bed to another group", func(p *domain.Plan) error {
		bed, ok := p.FindBed(bedID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityBed, Ref: bedID}
		}
		if _, ok := p.FindBedGroup(groupID); !ok {
			return domain.NotFoundError{Entity: domain.EntityBedGroup, Ref: groupID}
		}
		if bed.GroupID == groupID {
			return nil
		}
		target = clamp(target, 0, len(p.GroupBeds(groupID)))
		for i := range p.Beds {
			b := &p.Beds[i]
			switch {
			case b.GroupID == bed.GroupID && b.DisplayOrder > bed.DisplayOrder:
				b.DisplayOrder--
			case b.GroupID == groupID && b.DisplayOrder >= target:
				b.DisplayOrder++
			}
		}
		for i := range p.Beds {
			if p.Beds[i].ID == bedID {
				p.Beds[i].GroupID = groupID
				p.Beds[i].DisplayOrder = target
				break
			}
		}
		return nil
	})
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
