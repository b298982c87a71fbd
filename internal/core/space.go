package core

import "cropplan/pkg/domain"

// FitResult reports whether a requested footage span fits starting at a
// candidate bed. On failure AvailableFeet is the footage actually accumulated
// walking forward from the start bed, not the whole group's capacity.
type FitResult struct {
	Fits          bool
	AvailableFeet float64
	// BedIDs lists the consecutive beds the span occupies when it fits,
	// in group display order starting at the candidate bed.
	BedIDs []string
}

// checkSpan walks the start bed's group in display order from the start bed,
// accumulating bed lengths until the requested footage is satisfied or the
// row runs out.
func checkSpan(plan *domain.Plan, startBedID string, feet float64) (FitResult, error) {
	start, ok := plan.FindBed(startBedID)
	if !ok {
		return FitResult{}, domain.NotFoundError{Entity: domain.EntityBed, Ref: startBedID}
	}
	beds := plan.GroupBeds(start.GroupID)
	from := 0
	for i, b := range beds {
		if b.ID == start.ID {
			from = i
			break
		}
	}
	var total float64
	var span []string
	for _, b := range beds[from:] {
		total += b.LengthFeet
		span = append(span, b.ID)
		if total >= feet {
			return FitResult{Fits: true, AvailableFeet: total, BedIDs: span}, nil
		}
	}
	return FitResult{Fits: false, AvailableFeet: total}, nil
}

// validatePlacement enforces the bed-capacity invariant for a requested
// placement. A nil startBedID (unassigned) is exempt from capacity checking
// entirely, for any footage.
func validatePlacement(plan *domain.Plan, startBedID *string, feet float64) error {
	if startBedID == nil {
		return nil
	}
	fit, err := checkSpan(plan, *startBedID, feet)
	if err != nil {
		return err
	}
	if fit.Fits {
		return nil
	}
	bed, _ := plan.FindBed(*startBedID)
	group, _ := plan.FindBedGroup(bed.GroupID)
	return domain.CapacityError{
		GroupName:     group.Name,
		StartBedName:  bed.Name,
		RequestedFeet: feet,
		AvailableFeet: fit.AvailableFeet,
	}
}

// SpanBeds returns the ordered bed ids a planting's committed placement
// occupies, or nil for unassigned plantings.
func SpanBeds(plan *domain.Plan, plantingID string) ([]string, error) {
	pl, ok := plan.FindPlanting(plantingID)
	if !ok {
		return nil, domain.NotFoundError{Entity: domain.EntityPlanting, Ref: plantingID}
	}
	if pl.StartBedID == nil {
		return nil, nil
	}
	fit, err := checkSpan(plan, *pl.StartBedID, pl.BedFeet)
	if err != nil {
		return nil, err
	}
	return fit.BedIDs, nil
}
