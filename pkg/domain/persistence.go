package domain

import (
	"context"
	"time"
)

// PlanSummary is the list-view projection of a stored plan.
type PlanSummary struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Year         int       `json:"year"`
	CropCount    int       `json:"crop_count"`
	LastModified time.Time `json:"last_modified"`
}

// CheckpointInfo describes a named save point for a plan.
type CheckpointInfo struct {
	Name    string    `json:"name"`
	SavedAt time.Time `json:"saved_at"`
}

// PlanStorage is the persistence collaborator consumed by the mutation
// engine. Plans are saved and loaded wholesale; there is no partial update.
// GetPlan and GetStash return (nil, nil) when the document is absent.
type PlanStorage interface {
	GetPlanList(ctx context.Context) ([]PlanSummary, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
	SavePlan(ctx context.Context, id string, plan *Plan) error
	DeletePlan(ctx context.Context, id string) error

	// Stash keeps one safety copy per plan, written before destructive
	// restores so the previous state remains recoverable.
	Stash(ctx context.Context, id string, plan *Plan) error
	GetStash(ctx context.Context, id string) (*Plan, error)

	// Checkpoints are named save points, independent of the undo history.
	SaveCheckpoint(ctx context.Context, id, name string, plan *Plan) error
	ListCheckpoints(ctx context.Context, id string) ([]CheckpointInfo, error)
	GetCheckpoint(ctx context.Context, id, name string) (*Plan, error)

	// Flags are small persisted key/value settings.
	SetFlag(ctx context.Context, key, value string) error
	GetFlag(ctx context.Context, key string) (string, error)
}
