package core

import (
	"fmt"

	"cropplan/pkg/domain"
)

// BedTemplate names a stock bed layout used when seeding a new plan or
// back-filling a legacy document that predates stored layouts.
type BedTemplate struct {
	Name   string
	Groups []BedTemplateGroup
}

// BedTemplateGroup describes one row of equal-length beds.
type BedTemplateGroup struct {
	Name       string
	BedCount   int
	LengthFeet float64
}

// DefaultTemplateName is used when a caller does not pick a layout.
const DefaultTemplateName = "standard"

var bedTemplates = map[string]BedTemplate{
	"standard": {
		Name: "standard",
		Groups: []BedTemplateGroup{
			{Name: "Row A", BedCount: 4, LengthFeet: 50},
			{Name: "Row B", BedCount: 4, LengthFeet: 50},
			{Name: "Row C", BedCount: 4, LengthFeet: 50},
		},
	},
	"market-garden": {
		Name: "market-garden",
		Groups: []BedTemplateGroup{
			{Name: "North Block", BedCount: 8, LengthFeet: 100},
			{Name: "South Block", BedCount: 8, LengthFeet: 100},
			{Name: "Greenhouse", BedCount: 2, LengthFeet: 30},
		},
	},
}

// Template returns a named bed layout, falling back to the default.
func Template(name string) BedTemplate {
	if t, ok := bedTemplates[name]; ok {
		return t
	}
	return bedTemplates[DefaultTemplateName]
}

// applyTemplate instantiates a template's groups and beds into the plan. Bed
// names follow "<group> <n>" so user-facing references stay readable.
func applyTemplate(p *domain.Plan, t BedTemplate) {
	for gi, tg := range t.Groups {
		group := domain.NewBedGroup(tg.Name, gi)
		p.BedGroups = append(p.BedGroups, group)
		for bi := 0; bi < tg.BedCount; bi++ {
			name := groupBedName(tg.Name, bi+1)
			p.Beds = append(p.Beds, domain.NewBed(name, group.ID, tg.LengthFeet, bi))
		}
	}
}

func groupBedName(group string, n int) string {
	return fmt.Sprintf("%s %d", group, n)
}

// MasterCropCatalog returns the stock crop configuration copied into each new
// plan. Per-plan edits never flow back to this catalog.
func MasterCropCatalog() map[string]domain.CropConfig {
	return map[string]domain.CropConfig{
		"lettuce-head": {
			Identifier: "lettuce-head", Crop: "Lettuce", Method: "transplant",
			DaysToMaturity: 50, GreenhouseDays: 21, HarvestWindowDays: 10,
			RowsPerBed: 3, InRowSpacingInches: 10, YieldPerBedFoot: 1.8, YieldUnit: "head",
		},
		"carrot-bunching": {
			Identifier: "carrot-bunching", Crop: "Carrot", Method: "direct_seed",
			DaysToMaturity: 65, HarvestWindowDays: 14,
			RowsPerBed: 5, InRowSpacingInches: 1, YieldPerBedFoot: 1.2, YieldUnit: "bunch",
		},
		"tomato-slicer": {
			Identifier: "tomato-slicer", Crop: "Tomato", Method: "transplant",
			DaysToMaturity: 75, GreenhouseDays: 42, HarvestWindowDays: 60,
			RowsPerBed: 1, InRowSpacingInches: 18, YieldPerBedFoot: 4.5, YieldUnit: "lb",
		},
		"salad-mix": {
			Identifier: "salad-mix", Crop: "Salad Mix", Method: "direct_seed",
			DaysToMaturity: 30, HarvestWindowDays: 7,
			RowsPerBed: 6, InRowSpacingInches: 0.5, YieldPerBedFoot: 0.5, YieldUnit: "lb",
		},
	}
}

// defaultReferenceData seeds a new plan's variety, seed mix, and product
// catalogs with a minimal starter set.
func defaultReferenceData(p *domain.Plan) {
	salanova := domain.NewVariety("Lettuce", "Salanova Green", "Johnny's")
	bolero := domain.NewVariety("Carrot", "Bolero", "Johnny's")
	p.Varieties = append(p.Varieties, salanova, bolero)

	mix := domain.NewSeedMix("Spring Salad", "Salad Mix")
	mix.Components = []domain.SeedMixComponent{{VarietyID: salanova.ID, Fraction: 1.0}}
	p.SeedMixes = append(p.SeedMixes, mix)

	p.Products = append(p.Products,
		domain.NewProduct("Lettuce", "Head Lettuce", "head"),
		domain.NewProduct("Carrot", "Bunched Carrots", "bunch"),
	)
}
