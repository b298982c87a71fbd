package core

import (
	"context"
	"fmt"
	"strings"

	"cropplan/pkg/domain"
)

// SaveCheckpoint records the active plan under a named save point,
// independent of the undo history.
func (s *PlanStore) SaveCheckpoint(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ConflictError{Entity: domain.EntityPlan, Ref: "checkpoint", Reason: "name is empty"}
	}
	plan := s.Plan()
	if plan == nil {
		return domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	if err := s.storage.SaveCheckpoint(ctx, plan.ID, name, plan); err != nil {
		return fmt.Errorf("save checkpoint %q: %w", name, err)
	}
	s.logger.Info("checkpoint saved", "plan", plan.ID, "checkpoint", name)
	return nil
}

// ListCheckpoints returns the active plan's named save points.
func (s *PlanStore) ListCheckpoints(ctx context.Context) ([]domain.CheckpointInfo, error) {
	id := s.ActivePlanID()
	if id == "" {
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	return s.storage.ListCheckpoints(ctx, id)
}

// RestoreCheckpoint replaces the active plan with a named save point. The
// pre-restore state is stashed first so it stays recoverable, and the undo
// history is reset: a restore is a jump, not a mutation.
func (s *PlanStore) RestoreCheckpoint(ctx context.Context, name string) (*domain.Plan, error) {
	current := s.Plan()
	if current == nil {
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	restored, err := s.storage.GetCheckpoint(ctx, current.ID, name)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %q: %w", name, err)
	}
	if restored == nil {
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: name}
	}
	if err := s.storage.Stash(ctx, current.ID, current); err != nil {
		return nil, fmt.Errorf("stash current plan: %w", err)
	}
	if err := s.storage.SavePlan(ctx, restored.ID, restored); err != nil {
		return nil, fmt.Errorf("save restored plan: %w", err)
	}

	seq := 0
	for _, pl := range restored.Plantings {
		if n, ok := domain.PlantingSeq(pl.ID); ok && n > seq {
			seq = n
		}
	}

	s.mu.Lock()
	s.plan = restored
	s.plantingSeq = seq
	s.resetHistory()
	s.dirty = false
	s.saveErr = ""
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(broadcastUpdated(restored.ID))
	}
	s.logger.Info("checkpoint restored", "plan", restored.ID, "checkpoint", name)
	return domain.ClonePlan(restored), nil
}

// RecoverStash loads the safety copy written before the last destructive
// restore, or nil when none exists.
func (s *PlanStore) RecoverStash(ctx context.Context) (*domain.Plan, error) {
	id := s.ActivePlanID()
	if id == "" {
		return nil, domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
	}
	return s.storage.GetStash(ctx, id)
}

// SetFlag persists a small key/value setting.
func (s *PlanStore) SetFlag(ctx context.Context, key, value string) error {
	return s.storage.SetFlag(ctx, key, value)
}

// GetFlag reads a persisted setting; absent keys yield "".
func (s *PlanStore) GetFlag(ctx context.Context, key string) (string, error) {
	return s.storage.GetFlag(ctx, key)
}
