package core

import (
	"context"

	"cropplan/pkg/domain"
)

// Undo restores the most recent past snapshot, pushing the current document
// onto the future stack. It reports whether a snapshot was applied; an empty
// past stack is a no-op.
func (s *PlanStore) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.plan == nil || len(s.past) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	restored := s.past[len(s.past)-1]
	s.past = s.past[:len(s.past)-1]
	s.future = append(s.future, s.plan)
	s.plan = restored
	s.dirty = true
	snapshot := domain.ClonePlan(restored)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.logger.Debug("undo applied", "plan", snapshot.ID)
	return true, nil
}

// Redo restores the most recent future snapshot, symmetric to Undo.
func (s *PlanStore) Redo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.plan == nil || len(s.future) == 0 {
		s.mu.Unlock()
		return false, nil
	}
	restored := s.future[len(s.future)-1]
	s.future = s.future[:len(s.future)-1]
	s.past = append(s.past, s.plan)
	s.plan = restored
	s.dirty = true
	snapshot := domain.ClonePlan(restored)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.logger.Debug("redo applied", "plan", snapshot.ID)
	return true, nil
}

// resetHistory drops both stacks. Called when a different plan becomes active.
func (s *PlanStore) resetHistory() {
	s.past = nil
	s.future = nil
}
