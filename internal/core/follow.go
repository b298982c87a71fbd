package core

import (
	"context"

	"cropplan/internal/broadcast"
)

// FollowBroadcasts subscribes the store to a bus and reacts to plan change
// notifications from other store instances: a plan-updated for the active
// plan reloads it from storage, and a plan-deleted for the active plan
// clears the in-memory document and history. Messages for other plans are
// passed through untouched so the caller can refresh its plan list.
//
// onMessage, when non-nil, is invoked after the store has reacted to each
// message. The returned stop function cancels the subscription and waits for
// the follower goroutine to drain.
func (s *PlanStore) FollowBroadcasts(ctx context.Context, bus *broadcast.Bus, onMessage func(broadcast.Message)) func() {
	ch, cancel := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				s.applyBroadcast(ctx, msg)
				if onMessage != nil {
					onMessage(msg)
				}
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}

func (s *PlanStore) applyBroadcast(ctx context.Context, msg broadcast.Message) {
	if msg.PlanID == "" || msg.PlanID != s.ActivePlanID() {
		return
	}
	switch msg.Type {
	case broadcast.PlanUpdated:
		if _, err := s.LoadPlan(ctx, msg.PlanID); err != nil {
			s.logger.Warn("reload after remote update failed", "plan", msg.PlanID, "error", err)
		}
	case broadcast.PlanDeleted:
		s.mu.Lock()
		s.plan = nil
		s.resetHistory()
		s.dirty = false
		s.saveErr = ""
		s.mu.Unlock()
		s.logger.Info("active plan deleted remotely", "plan", msg.PlanID)
	}
}
