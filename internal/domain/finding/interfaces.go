package finding

import (
	"context"
	"time"
)

// Store persists findings.
type Store interface {
	ReportFinding(ctx context.Context, f Finding) (Finding, error)
	GetFinding(ctx context.Context, id string) (Finding, error)
	ListIndependentFindings(ctx context.Context, rangerID string, day time.Time) ([]Finding, error)
	TransitionFinding(ctx context.Context, id string, to Status) (Finding, error)
	AddFollowUp(ctx context.Context, id string, entry FollowUp) (Finding, error)
}
