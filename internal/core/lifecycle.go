package core

import (
	"context"
	"fmt"
	"time"

	"cropplan/pkg/domain"
)

// yearCutoffMonth: plans created in or after September default to the next
// calendar year, matching how growers plan the coming season in the fall.
const yearCutoffMonth = time.September

// CreatePlanOptions configures new-plan creation.
type CreatePlanOptions struct {
	Name     string
	Year     int    // 0 = default from the calendar
	Template string // "" = DefaultTemplateName
	// Plantings seeds initial plantings; bed references may be display
	// names rather than ids.
	Plantings []PlantingInput
}

// CreatePlan assembles a new plan document from the master catalog and a bed
// template, makes it the active plan, and persists it. Validation failures
// are logged as warnings, never fatal.
func (s *PlanStore) CreatePlan(ctx context.Context, opts CreatePlanOptions) (*domain.Plan, error) {
	now := s.nowFn()
	year := opts.Year
	if year == 0 {
		year = defaultPlanYear(now)
	}
	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("Crop Plan %d", year)
	}

	plan := domain.NewPlan(name, year, now)
	plan.Crops = MasterCropCatalog()
	applyTemplate(plan, Template(opts.Template))
	defaultReferenceData(plan)

	seq := 0
	for _, in := range opts.Plantings {
		startBed, err := resolveBedRef(plan, in.Bed)
		if err != nil {
			return nil, err
		}
		seq++
		pl := domain.Planting{
			ID:             domain.PlantingID(seq),
			CropID:         in.CropID,
			StartBedID:     startBed,
			BedFeet:        in.BedFeet,
			FieldStartDate: in.FieldStartDate,
			Notes:          in.Notes,
			UpdatedAt:      now,
		}
		if in.SeedSourceID != "" {
			id := in.SeedSourceID
			pl.SeedSourceID = &id
		} else if cfg, ok := plan.Crops[in.CropID]; ok && cfg.DefaultSeedSourceID != "" {
			id := cfg.DefaultSeedSourceID
			pl.SeedSourceID = &id
		}
		plan.Plantings = append(plan.Plantings, pl)
	}

	s.warnOnViolations(plan, "create")

	if err := s.storage.SavePlan(ctx, plan.ID, plan); err != nil {
		return nil, fmt.Errorf("save new plan: %w", err)
	}

	s.mu.Lock()
	s.plan = plan
	s.plantingSeq = seq
	s.resetHistory()
	s.dirty = false
	s.saveErr = ""
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(broadcastUpdated(plan.ID))
	}
	s.logger.Info("plan created", "plan", plan.ID, "name", name, "year", year)
	return domain.ClonePlan(plan), nil
}

// LoadPlan fetches a plan by id, migrates it forward, and makes it the
// active document. The undo/redo history survives only when reloading the
// plan that was already active.
func (s *PlanStore) LoadPlan(ctx context.Context, id string) (*domain.Plan, error) {
	plan, err := s.storage.GetPlan(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch plan: %w", err)
	}
	if plan == nil {
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: id}
	}

	migrated, err := MigratePlan(plan)
	if err != nil {
		return nil, err
	}
	if len(migrated.Beds) == 0 && len(migrated.BedGroups) == 0 {
		// Legacy documents predate stored layouts.
		applyTemplate(migrated, Template(DefaultTemplateName))
	}
	s.warnOnViolations(migrated, "load")

	seq := 0
	for _, pl := range migrated.Plantings {
		if n, ok := domain.PlantingSeq(pl.ID); ok && n > seq {
			seq = n
		}
	}

	s.mu.Lock()
	sameActive := s.plan != nil && s.plan.ID == migrated.ID
	s.plan = migrated
	s.plantingSeq = seq
	if !sameActive {
		s.resetHistory()
	}
	s.dirty = false
	s.saveErr = ""
	s.mu.Unlock()

	s.logger.Info("plan loaded", "plan", migrated.ID, "reload", sameActive)
	return domain.ClonePlan(migrated), nil
}

// CopyPlanOptions configures plan duplication.
type CopyPlanOptions struct {
	Name        string // "" = source name, deduplicated
	ShiftYears  int
	ShiftMonths int
	// Unassign strips every planting's bed assignment in the copy.
	Unassign bool
}

// CopyPlan deep-clones the active plan into a new document: beds, groups, and
// catalogs keep their internal ids so cross-references stay valid, while
// plantings get fresh ids. Field start dates are optionally shifted;
// unparseable dates pass through unchanged with a warning.
func (s *PlanStore) CopyPlan(ctx context.Context, opts CopyPlanOptions) (*domain.Plan, error) {
	s.mu.Lock()
	if s.plan == nil {
		s.mu.Unlock()
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	source := domain.ClonePlan(s.plan)
	s.mu.Unlock()

	now := s.nowFn()
	copied := domain.ClonePlan(source)
	copied.ID = domain.NewPlanID()
	copied.SchemaVersion = domain.SchemaVersion
	copied.ChangeLog = nil

	parent := source.ID
	copied.Metadata.CreatedAt = now
	copied.Metadata.LastModified = now
	copied.Metadata.ParentPlanID = &parent
	copied.Metadata.Version = source.Metadata.Version + 1
	copied.Metadata.Year = source.Metadata.Year + opts.ShiftYears + opts.ShiftMonths/12

	seq := 0
	for i := range copied.Plantings {
		seq++
		copied.Plantings[i].ID = domain.PlantingID(seq)
		copied.Plantings[i].Actuals = nil
		copied.Plantings[i].UpdatedAt = now
		if opts.Unassign {
			copied.Plantings[i].StartBedID = nil
		}
		if opts.ShiftYears != 0 || opts.ShiftMonths != 0 {
			shifted, ok := shiftDate(copied.Plantings[i].FieldStartDate, opts.ShiftYears, opts.ShiftMonths)
			if !ok {
				s.logger.Warn("unparseable planting date left unchanged",
					"plan", copied.ID, "planting", copied.Plantings[i].ID, "date", copied.Plantings[i].FieldStartDate)
				continue
			}
			copied.Plantings[i].FieldStartDate = shifted
		}
	}

	summaries, err := s.storage.GetPlanList(ctx)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	base := opts.Name
	if base == "" {
		base = source.Metadata.Name
	}
	copied.Metadata.Name = dedupePlanName(base, summaries)

	s.warnOnViolations(copied, "copy")

	if err := s.storage.SavePlan(ctx, copied.ID, copied); err != nil {
		return nil, fmt.Errorf("save plan copy: %w", err)
	}
	if s.bus != nil {
		s.bus.Publish(broadcastUpdated(copied.ID))
	}
	s.logger.Info("plan copied", "source", source.ID, "plan", copied.ID, "name", copied.Metadata.Name)
	return copied, nil
}

// DeletePlan removes a stored plan. Deleting the active plan clears the
// in-memory document and history.
func (s *PlanStore) DeletePlan(ctx context.Context, id string) error {
	if err := s.storage.DeletePlan(ctx, id); err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	s.mu.Lock()
	if s.plan != nil && s.plan.ID == id {
		s.plan = nil
		s.resetHistory()
		s.dirty = false
	}
	s.mu.Unlock()
	if s.bus != nil {
		s.bus.Publish(broadcastDeleted(id))
	}
	return nil
}

// PlanList returns the stored plan summaries.
func (s *PlanStore) PlanList(ctx context.Context) ([]domain.PlanSummary, error) {
	return s.storage.GetPlanList(ctx)
}

func (s *PlanStore) warnOnViolations(plan *domain.Plan, phase string) {
	if res := domain.ValidatePlan(plan); !res.OK() {
		for _, v := range res.Violations {
			s.logger.Warn("plan validation", "phase", phase, "plan", plan.ID,
				"rule", v.Rule, "message", v.Message)
		}
	}
}

// defaultPlanYear picks the target year for a new plan.
func defaultPlanYear(now time.Time) int {
	if now.Month() >= yearCutoffMonth {
		return now.Year() + 1
	}
	return now.Year()
}

// shiftDate moves an ISO date by whole years and months. It reports false for
// values it cannot parse.
func shiftDate(date string, years, months int) (string, bool) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date, false
	}
	return t.AddDate(years, months, 0).Format("2006-01-02"), true
}

// dedupePlanName appends "(2)", "(3)", ... until the name is unused.
func dedupePlanName(base string, existing []domain.PlanSummary) string {
	taken := make(map[string]bool, len(existing))
	for _, s := range existing {
		taken[s.Name] = true
	}
	if !taken[base] {
		return base
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", base, n)
		if !taken[candidate] {
			return candidate
		}
	}
}
