// Package core implements the plan mutation engine: a state container that
// applies structured edits to the active plan document, maintains a bounded
// undo/redo history of full-document snapshots, and persists every mutation
// through the storage collaborator.
package core

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cropplan/internal/broadcast"
	"cropplan/pkg/domain"
)

// historyLimit bounds the undo stack; the oldest snapshots are dropped.
const historyLimit = 50

// PlanStore owns the active plan document. All reads and writes go through
// its methods; snapshots handed out are deep copies.
type PlanStore struct {
	mu      sync.Mutex
	plan    *domain.Plan
	past    []*domain.Plan
	future  []*domain.Plan
	dirty   bool
	saving  bool
	saveErr string

	plantingSeq int

	storage domain.PlanStorage
	bus     broadcast.Broadcaster
	logger  *slog.Logger
	metrics Recorder
	nowFn   func() time.Time
}

// Option configures a PlanStore.
type Option func(*PlanStore)

// WithBroadcaster wires a cross-instance change broadcaster.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *PlanStore) { s.bus = b }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *PlanStore) { s.logger = l }
}

// WithMetrics sets the operation metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(s *PlanStore) { s.metrics = r }
}

// WithClock overrides the time source (tests).
func WithClock(fn func() time.Time) Option {
	return func(s *PlanStore) { s.nowFn = fn }
}

// NewPlanStore constructs a store backed by the given persistence collaborator.
func NewPlanStore(storage domain.PlanStorage, opts ...Option) *PlanStore {
	s := &PlanStore{
		storage: storage,
		logger:  slog.Default(),
		metrics: NoopRecorder{},
		nowFn:   func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Plan returns a deep copy of the active plan, or nil when none is loaded.
func (s *PlanStore) Plan() *domain.Plan {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.ClonePlan(s.plan)
}

// ActivePlanID returns the id of the loaded plan, or "".
func (s *PlanStore) ActivePlanID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plan == nil {
		return ""
	}
	return s.plan.ID
}

// CanUndo reports whether the past stack is non-empty.
func (s *PlanStore) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past) > 0
}

// CanRedo reports whether the future stack is non-empty.
func (s *PlanStore) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.future) > 0
}

// HistoryDepth returns the current past/future stack sizes.
func (s *PlanStore) HistoryDepth() (past, future int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.past), len(s.future)
}

// IsDirty reports whether the in-memory plan has mutations not yet confirmed
// persisted.
func (s *PlanStore) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SaveError returns the last persistence failure message, or "".
func (s *PlanStore) SaveError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// mutate runs one uniform mutation cycle: apply fn to a working copy of the
// plan, and on success push the previous document onto the past stack, clear
// the future stack, append a change-log entry, touch last-modified, and
// persist. Validation failures inside fn leave the document untouched.
// Persistence failures are recorded on the store but never roll back the
// in-memory mutation.
func (s *PlanStore) mutate(ctx context.Context, op, description string, fn func(p *domain.Plan) error) error {
	start := s.nowFn()
	s.mu.Lock()
	if s.plan == nil {
		s.mu.Unlock()
		err := domain.NotFoundError{Entity: domain.EntityPlan, Ref: "active"}
		s.metrics.Observe(ctx, op, false, s.nowFn().Sub(start))
		return err
	}
	working := domain.ClonePlan(s.plan)
	if err := fn(working); err != nil {
		s.mu.Unlock()
		s.metrics.Observe(ctx, op, false, s.nowFn().Sub(start))
		return err
	}
	now := s.nowFn()
	working.ChangeLog = append(working.ChangeLog, domain.ChangeLogEntry{At: now, Description: description})
	working.Metadata.LastModified = now
	s.pushPast(s.plan)
	s.future = nil
	s.plan = working
	s.dirty = true
	snapshot := domain.ClonePlan(working)
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	s.metrics.Observe(ctx, op, true, s.nowFn().Sub(start))
	s.logger.Debug("plan mutated", "op", op, "plan", snapshot.ID, "description", description)
	return nil
}

func (s *PlanStore) pushPast(snapshot *domain.Plan) {
	s.past = append(s.past, snapshot)
	if len(s.past) > historyLimit {
		s.past = s.past[len(s.past)-historyLimit:]
	}
}

// persist writes the snapshot through the storage collaborator. The in-memory
// mutation has already been committed; a failure here only surfaces an error
// flag for the caller/UI to act on.
func (s *PlanStore) persist(ctx context.Context, snapshot *domain.Plan) {
	s.mu.Lock()
	s.saving = true
	s.mu.Unlock()

	err := s.storage.SavePlan(ctx, snapshot.ID, snapshot)

	s.mu.Lock()
	s.saving = false
	if err != nil {
		s.saveErr = err.Error()
	} else {
		s.saveErr = ""
		s.dirty = false
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("plan save failed", "plan", snapshot.ID, "error", err)
		return
	}
	if s.bus != nil {
		s.bus.Publish(broadcastUpdated(snapshot.ID))
	}
}

func broadcastUpdated(planID string) broadcast.Message {
	return broadcast.Message{Type: broadcast.PlanUpdated, PlanID: planID}
}

func broadcastDeleted(planID string) broadcast.Message {
	return broadcast.Message{Type: broadcast.PlanDeleted, PlanID: planID}
}

// IsSaving reports whether a persistence call is in flight.
func (s *PlanStore) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// nextPlantingID allocates the next planting identifier from the in-process
// counter. The counter is reinitialized from loaded plantings by LoadPlan.
func (s *PlanStore) nextPlantingID() string {
	s.plantingSeq++
	return domain.PlantingID(s.plantingSeq)
}
