package activity

import "context"

// Store provides the activity operations of the remote store.
type Store interface {
	ListActivities(ctx context.Context, rangerID string) ([]Activity, error)
	GetActivity(ctx context.Context, id string) (Activity, error)
	StartActivity(ctx context.Context, id string, start Stamp) (Activity, error)
	FinishActivity(ctx context.Context, req FinishRequest) (Activity, error)
}

// Sessions manages the field session buffers of in-progress patrols.
type Sessions interface {
	Open(a Activity)
	Has(activityID string) bool
	Pending(activityID string) Pending
	Discard(activityID string)
}

// ListOptions filters activity listings.
type ListOptions struct {
	State State
	Kind  Kind
}
