package core

import (
	"context"
	"fmt"

	"cropplan/pkg/domain"
)

// RenameBedGroup changes a group's display name.
func (s *PlanStore) RenameBedGroup(ctx context.Context, groupID, name string) error {
	return s.mutate(ctx, "rename_bed_group", fmt.Sprintf("Renamed bed group to %q", name), func(p *domain.Plan) error {
		for i := range p.BedGroups {
			if p.BedGroups[i].ID == groupID {
				p.BedGroups[i].Name = name
				return nil
			}
		}
		return domain.NotFoundError{Entity: domain.EntityBedGroup, Ref: groupID}
	})
}

// AddBedGroup creates an empty group at the next plan-wide display order.
func (s *PlanStore) AddBedGroup(ctx context.Context, name string) (domain.BedGroup, error) {
	var created domain.BedGroup
	err := s.mutate(ctx, "add_bed_group", fmt.Sprintf("Added bed group %q", name), func(p *domain.Plan) error {
		created = domain.NewBedGroup(name, len(p.BedGroups))
		p.BedGroups = append(p.BedGroups, created)
		return nil
	})
	return created, err
}

// DeleteBedGroup removes a group. It fails while the group still contains beds.
func (s *PlanStore) DeleteBedGroup(ctx context.Context, groupID string) error {
	return s.mutate(ctx, "delete_bed_group", "Deleted bed group", func(p *domain.Plan) error {
		group, ok := p.FindBedGroup(groupID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityBedGroup, Ref: groupID}
		}
		if n := len(p.GroupBeds(groupID)); n > 0 {
			return domain.ConflictError{
				Entity: domain.EntityBedGroup,
				Ref:    group.Name,
				Reason: fmt.Sprintf("group still contains %d bed(s)", n),
			}
		}
		for i := range p.BedGroups {
			if p.BedGroups[i].ID == groupID {
				p.BedGroups = append(p.BedGroups[:i], p.BedGroups[i+1:]...)
				break
			}
		}
		for i := range p.BedGroups {
			if p.BedGroups[i].DisplayOrder > group.DisplayOrder {
				p.BedGroups[i].DisplayOrder--
			}
		}
		return nil
	})
}

// ReorderBedGroup moves a group to a new plan-wide position using the same
// dense-shift algorithm as bed reordering.
func (s *PlanStore) ReorderBedGroup(ctx context.Context, groupID string, target int) error {
	return s.mutate(ctx, "reorder_bed_group", "Reordered bed group", func(p *domain.Plan) error {
		group, ok := p.FindBedGroup(groupID)
		if !ok {
			return domain.NotFoundError{Entity: domain.EntityBedGroup, Ref: groupID}
		}
		target = clamp(target, 0, len(p.BedGroups)-1)
		from := group.DisplayOrder
		if target == from {
			return nil
		}
		for i := range p.BedGroups {
			g := &p.BedGroups[i]
			switch {
			case g.ID == groupID:
				g.DisplayOrder = target
			case from < target && g.DisplayOrder > from && g.DisplayOrder <= target:
				g.DisplayOrder--
			case from > target && g.DisplayOrder >= target && g.DisplayOrder < from:
				g.DisplayOrder++
			}
		}
		return nil
	})
}
