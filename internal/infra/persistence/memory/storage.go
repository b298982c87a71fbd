// Package memory provides an in-process PlanStorage used by tests and
// ephemeral deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cropplan/pkg/domain"
)

// Storage keeps all documents in process memory. Stored plans are deep
// copied on the way in and out so callers can never alias internal state.
type Storage struct {
	mu          sync.RWMutex
	plans       map[string]*domain.Plan
	stash       map[string]*domain.Plan
	checkpoints map[string]map[string]checkpoint
	flags       map[string]string
}

type checkpoint struct {
	plan    *domain.Plan
	savedAt time.Time
}

var _ domain.PlanStorage = (*Storage)(nil)

// NewStorage constructs an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		plans:       make(map[string]*domain.Plan),
		stash:       make(map[string]*domain.Plan),
		checkpoints: make(map[string]map[string]checkpoint),
		flags:       make(map[string]string),
	}
}

func (s *Storage) GetPlanList(_ context.Context) ([]domain.PlanSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PlanSummary, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, Summarize(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Storage) GetPlan(_ context.Context, id string) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ClonePlan(s.plans[id]), nil
}

func (s *Storage) SavePlan(_ context.Context, id string, plan *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[id] = domain.ClonePlan(plan)
	return nil
}

func (s *Storage) DeletePlan(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.plans, id)
	delete(s.stash, id)
	delete(s.checkpoints, id)
	return nil
}

func (s *Storage) Stash(_ context.Context, id string, plan *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stash[id] = domain.ClonePlan(plan)
	return nil
}

func (s *Storage) GetStash(_ context.Context, id string) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ClonePlan(s.stash[id]), nil
}

func (s *Storage) SaveCheckpoint(_ context.Context, id, name string, plan *domain.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cps, ok := s.checkpoints[id]
	if !ok {
		cps = make(map[string]checkpoint)
		s.checkpoints[id] = cps
	}
	cps[name] = checkpoint{plan: domain.ClonePlan(plan), savedAt: time.Now().UTC()}
	return nil
}

func (s *Storage) ListCheckpoints(_ context.Context, id string) ([]domain.CheckpointInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cps := s.checkpoints[id]
	out := make([]domain.CheckpointInfo, 0, len(cps))
	for name, cp := range cps {
		out = append(out, domain.CheckpointInfo{Name: name, SavedAt: cp.savedAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (s *Storage) GetCheckpoint(_ context.Context, id, name string) (*domain.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp, ok := s.checkpoints[id][name]
	if !ok {
		return nil, nil
	}
	return domain.ClonePlan(cp.plan), nil
}

func (s *Storage) SetFlag(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	return nil
}

func (s *Storage) GetFlag(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key], nil
}

// Summarize builds the list-view projection for a stored plan.
func Summarize(p *domain.Plan) domain.PlanSummary {
	crops := make(map[string]struct{})
	for _, pl := range p.Plantings {
		crops[pl.CropID] = struct{}{}
	}
	return domain.PlanSummary{
		ID:           p.ID,
		Name:         p.Metadata.Name,
		Year:         p.Metadata.Year,
		CropCount:    len(crops),
		LastModified: p.Metadata.LastModified,
	}
}
