// Package domain defines the persistent entities, value types, and
// validation primitives of the crop-planning engine.
package domain

import "time"

// SchemaVersion is the current plan document schema. Documents with a lower
// version are migrated forward on load.
const SchemaVersion = 3

// Plan is the root aggregate: one planning scenario/year containing all bed
// layout, scheduled plantings, and reference catalogs. Plans are loaded and
// saved wholesale as single documents.
type Plan struct {
	ID            string                `json:"id"`
	SchemaVersion int                   `json:"schema_version"`
	Metadata      PlanMetadata          `json:"metadata"`
	ChangeLog     []ChangeLogEntry      `json:"change_log"`
	BedGroups     []BedGroup            `json:"bed_groups"`
	Beds          []Bed                 `json:"beds"`
	Plantings     []Planting            `json:"plantings"`
	Crops         map[string]CropConfig `json:"crops"`
	Varieties     []Variety             `json:"varieties"`
	SeedMixes     []SeedMix             `json:"seed_mixes"`
	Products      []Product             `json:"products"`
}

// PlanMetadata carries naming, timing, and lineage information for a plan.
type PlanMetadata struct {
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastModified time.Time `json:"last_modified"`
	Year         int       `json:"year"`
	Version      int       `json:"version"`
	ParentPlanID *string   `json:"parent_plan_id,omitempty"`
}

// ChangeLogEntry is one human-readable audit record appended per mutation.
type ChangeLogEntry struct {
	At          time.Time `json:"at"`
	Description string    `json:"description"`
}

// BedGroup is a named ordered row/section of beds. DisplayOrder is dense and
// 0-based across the whole plan.
type BedGroup struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// Bed is a physical planting location. DisplayOrder is dense and 0-based
// within the owning group. Name is unique within a plan.
type Bed struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	GroupID      string  `json:"group_id"`
	LengthFeet   float64 `json:"length_feet"`
	DisplayOrder int     `json:"display_order"`
}

// SequenceRef marks succession-planting membership: this planting's field
// start follows the anchor planting by OffsetDays.
type SequenceRef struct {
	AnchorID   string `json:"anchor_id"`
	OffsetDays int    `json:"offset_days"`
}

// PlantingOverrides holds optional per-planting deviations from the crop
// configuration. Nil fields inherit from the catalog.
type PlantingOverrides struct {
	GreenhouseStartDate *string  `json:"greenhouse_start_date,omitempty"`
	FixedFieldStartDate *string  `json:"fixed_field_start_date,omitempty"`
	InRowSpacingInches  *float64 `json:"in_row_spacing_inches,omitempty"`
	RowsPerBed          *int     `json:"rows_per_bed,omitempty"`
	YieldFactor         *float64 `json:"yield_factor,omitempty"`
}

// PlantingActuals records realized dates. A planting with actuals is locked
// against date-only edits.
type PlantingActuals struct {
	GreenhouseDate *string `json:"greenhouse_date,omitempty"`
	FieldDate      *string `json:"field_date,omitempty"`
}

// Planting is a scheduled crop instance. StartBedID nil means unassigned;
// otherwise BedFeet is consumed starting at that bed and extending through
// subsequent beds of the same group in display order.
type Planting struct {
	ID             string             `json:"id"`
	CropID         string             `json:"crop_id"`
	StartBedID     *string            `json:"start_bed_id"`
	BedFeet        float64            `json:"bed_feet"`
	FieldStartDate string             `json:"field_start_date"`
	SeedSourceID   *string            `json:"seed_source_id,omitempty"`
	Sequence       *SequenceRef       `json:"sequence,omitempty"`
	Overrides      *PlantingOverrides `json:"overrides,omitempty"`
	Actuals        *PlantingActuals   `json:"actuals,omitempty"`
	Notes          string             `json:"notes,omitempty"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// HasActuals reports whether any realized date is recorded.
func (p Planting) HasActuals() bool {
	return p.Actuals != nil && (p.Actuals.GreenhouseDate != nil || p.Actuals.FieldDate != nil)
}

// Variety identifies a seed source: one named cultivar from one supplier.
type Variety struct {
	ID             string `json:"id"`
	Crop           string `json:"crop"`
	Name           string `json:"name"`
	Supplier       string `json:"supplier"`
	DaysToMaturity int    `json:"days_to_maturity,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// SeedMixComponent is one variety's share of a blended mix.
type SeedMixComponent struct {
	VarietyID string  `json:"variety_id"`
	Fraction  float64 `json:"fraction"`
}

// SeedMix is a blended seed source composed of varieties.
type SeedMix struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Crop       string             `json:"crop"`
	Components []SeedMixComponent `json:"components"`
}

// Product identifies a harvestable sales unit of a crop.
type Product struct {
	ID           string  `json:"id"`
	Crop         string  `json:"crop"`
	Product      string  `json:"product"`
	Unit         string  `json:"unit"`
	PricePerUnit float64 `json:"price_per_unit,omitempty"`
}

// CropConfig is the per-plan copy of one master crop configuration, keyed by
// Identifier in Plan.Crops. Editing it never touches the master catalog.
type CropConfig struct {
	Identifier          string  `json:"identifier"`
	Crop                string  `json:"crop"`
	Method              string  `json:"method"` // "transplant" or "direct_seed"
	DaysToMaturity      int     `json:"days_to_maturity"`
	GreenhouseDays      int     `json:"greenhouse_days,omitempty"`
	HarvestWindowDays   int     `json:"harvest_window_days,omitempty"`
	RowsPerBed          int     `json:"rows_per_bed,omitempty"`
	InRowSpacingInches  float64 `json:"in_row_spacing_inches,omitempty"`
	DefaultSeedSourceID string  `json:"default_seed_source_id,omitempty"`
	YieldPerBedFoot     float64 `json:"yield_per_bed_foot,omitempty"`
	YieldUnit           string  `json:"yield_unit,omitempty"`
}

// EntityType identifies the kind of record referenced in violations and errors.
type EntityType string

// Entity type identifiers used in violations, errors, and change reporting.
const (
	EntityPlan       EntityType = "plan"
	EntityBedGroup   EntityType = "bed_group"
	EntityBed        EntityType = "bed"
	EntityPlanting   EntityType = "planting"
	EntityCropConfig EntityType = "crop_config"
	EntityVariety    EntityType = "variety"
	EntitySeedMix    EntityType = "seed_mix"
	EntityProduct    EntityType = "product"
)

// FindBed returns the bed with the given id.
func (p *Plan) FindBed(id string) (Bed, bool) {
	for _, b := range p.Beds {
		if b.ID == id {
			return b, true
		}
	}
	return Bed{}, false
}

// FindBedByName returns the bed with the given display name.
func (p *Plan) FindBedByName(name string) (Bed, bool) {
	for _, b := range p.Beds {
		if b.Name == name {
			return b, true
		}
	}
	return Bed{}, false
}

// FindBedGroup returns the group with the given id.
func (p *Plan) FindBedGroup(id string) (BedGroup, bool) {
	for _, g := range p.BedGroups {
		if g.ID == id {
			return g, true
		}
	}
	return BedGroup{}, false
}

// FindPlanting returns the planting with the given id.
func (p *Plan) FindPlanting(id string) (Planting, bool) {
	for _, pl := range p.Plantings {
		if pl.ID == id {
			return pl, true
		}
	}
	return Planting{}, false
}

// GroupBeds returns the beds of one group sorted by display order.
func (p *Plan) GroupBeds(groupID string) []Bed {
	var out []Bed
	for _, b := range p.Beds {
		if b.GroupID == groupID {
			out = append(out, b)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1].DisplayOrder > out[j].DisplayOrder; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// PlantingsOnBed returns plantings whose start bed is the given bed.
func (p *Plan) PlantingsOnBed(bedID string) []Planting {
	var out []Planting
	for _, pl := range p.Plantings {
		if pl.StartBedID != nil && *pl.StartBedID == bedID {
			out = append(out, pl)
		}
	}
	return out
}

// PlantingsForCrop counts plantings referencing the crop identifier.
func (p *Plan) PlantingsForCrop(identifier string) int {
	n := 0
	for _, pl := range p.Plantings {
		if pl.CropID == identifier {
			n++
		}
	}
	return n
}
