package domain

import "fmt"

// Severity captures validation outcomes.
type Severity string

// Validation severities. Structural plan validation emits warnings only; the
// engine favors availability over strict validation for a single-user tool.
const (
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Violation reports one failed structural check.
type Violation struct {
	Rule     string     `json:"rule"`
	Severity Severity   `json:"severity"`
	Message  string     `json:"message"`
	Entity   EntityType `json:"entity"`
	EntityID string     `json:"entity_id"`
}

// Result aggregates violations from plan validation.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// OK reports whether the result carries no violations.
func (r Result) OK() bool { return len(r.Violations) == 0 }

func warn(rule, message string, entity EntityType, id string) Violation {
	return Violation{Rule: rule, Severity: SeverityWarn, Message: message, Entity: entity, EntityID: id}
}

// ValidatePlan checks the structural invariants of a plan document: every bed
// belongs to an existing group, bed names are unique, display orders are dense
// 0-based permutations, and plantings reference existing beds, crops, and seed
// sources.
func ValidatePlan(p *Plan) Result {
	var res Result
	groups := make(map[string]bool, len(p.BedGroups))
	groupOrders := map[int]int{}
	for _, g := range p.BedGroups {
		groups[g.ID] = true
		groupOrders[g.DisplayOrder]++
	}
	res.Merge(checkDense("bed_group_order", EntityBedGroup, groupOrders, len(p.BedGroups), "plan"))

	bedNames := map[string]int{}
	bedIDs := make(map[string]bool, len(p.Beds))
	perGroupOrders := map[string]map[int]int{}
	perGroupCount := map[string]int{}
	for _, b := range p.Beds {
		bedIDs[b.ID] = true
		bedNames[b.Name]++
		if !groups[b.GroupID] {
			res.Violations = append(res.Violations, warn("bed_group_ref",
				fmt.Sprintf("bed %q references missing group %s", b.Name, b.GroupID), EntityBed, b.ID))
			continue
		}
		if perGroupOrders[b.GroupID] == nil {
			perGroupOrders[b.GroupID] = map[int]int{}
		}
		perGroupOrders[b.GroupID][b.DisplayOrder]++
		perGroupCount[b.GroupID]++
	}
	for name, n := range bedNames {
		if n > 1 {
			res.Violations = append(res.Violations, warn("bed_name_unique",
				fmt.Sprintf("bed name %q used by %d beds", name, n), EntityBed, name))
		}
	}
	for gid, orders := range perGroupOrders {
		res.Merge(checkDense("bed_order", EntityBed, orders, perGroupCount[gid], gid))
	}

	seedSources := make(map[string]bool, len(p.Varieties)+len(p.SeedMixes))
	varieties := make(map[string]bool, len(p.Varieties))
	for _, v := range p.Varieties {
		seedSources[v.ID] = true
		varieties[v.ID] = true
	}
	for _, m := range p.SeedMixes {
		seedSources[m.ID] = true
		for _, c := range m.Components {
			if !varieties[c.VarietyID] {
				res.Violations = append(res.Violations, warn("seed_mix_component_ref",
					fmt.Sprintf("seed mix %q component references missing variety %s", m.Name, c.VarietyID), EntitySeedMix, m.ID))
			}
		}
	}

	for _, pl := range p.Plantings {
		if pl.StartBedID != nil && !bedIDs[*pl.StartBedID] {
			res.Violations = append(res.Violations, warn("planting_bed_ref",
				fmt.Sprintf("planting %s references missing bed %s", pl.ID, *pl.StartBedID), EntityPlanting, pl.ID))
		}
		if _, ok := p.Crops[pl.CropID]; !ok {
			res.Violations = append(res.Violations, warn("planting_crop_ref",
				fmt.Sprintf("planting %s references missing crop %s", pl.ID, pl.CropID), EntityPlanting, pl.ID))
		}
		if pl.SeedSourceID != nil && !seedSources[*pl.SeedSourceID] {
			res.Violations = append(res.Violations, warn("planting_seed_source_ref",
				fmt.Sprintf("planting %s references missing seed source %s", pl.ID, *pl.SeedSourceID), EntityPlanting, pl.ID))
		}
	}
	return res
}

func checkDense(rule string, entity EntityType, orders map[int]int, count int, scope string) Result {
	var res Result
	for order, n := range orders {
		if n > 1 {
			res.Violations = append(res.Violations, warn(rule,
				fmt.Sprintf("display order %d duplicated %d times in %s", order, n, scope), entity, scope))
		}
		if order < 0 || order >= count {
			res.Violations = append(res.Violations, warn(rule,
				fmt.Sprintf("display order %d out of range [0,%d) in %s", order, count, scope), entity, scope))
		}
	}
	return res
}
