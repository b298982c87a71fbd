package core

import (
	"fmt"

	"cropplan/pkg/domain"
)

// MigratePlan brings a loaded document forward to the current schema version.
// Migrations run in order on a deep copy; the input is never mutated.
//
// Version history:
//
//	1: plantings referenced beds by display name
//	2: no change log; nil catalog maps allowed
//	3: current
func MigratePlan(p *domain.Plan) (*domain.Plan, error) {
	if p.SchemaVersion > domain.SchemaVersion {
		return nil, domain.FormatError{
			Reason: fmt.Sprintf("schema version %d is newer than supported version %d", p.SchemaVersion, domain.SchemaVersion),
		}
	}
	out := domain.ClonePlan(p)
	if out.SchemaVersion == 0 {
		out.SchemaVersion = 1
	}
	if out.SchemaVersion < 2 {
		migrateBedNameRefs(out)
		out.SchemaVersion = 2
	}
	if out.SchemaVersion < 3 {
		if out.ChangeLog == nil {
			out.ChangeLog = []domain.ChangeLogEntry{}
		}
		if out.Crops == nil {
			out.Crops = map[string]domain.CropConfig{}
		}
		out.SchemaVersion = 3
	}
	return out, nil
}

// migrateBedNameRefs rewrites v1 plantings whose start bed field held a
// display name instead of a bed id. Unresolvable references become
// unassigned rather than failing the load.
func migrateBedNameRefs(p *domain.Plan) {
	for i := range p.Plantings {
		ref := p.Plantings[i].StartBedID
		if ref == nil {
			continue
		}
		if _, ok := p.FindBed(*ref); ok {
			continue
		}
		if bed, ok := p.FindBedByName(*ref); ok {
			id := bed.ID
			p.Plantings[i].StartBedID = &id
			continue
		}
		p.Plantings[i].StartBedID = nil
	}
}
