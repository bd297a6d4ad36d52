package session

import (
	"slices"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/field"
	"github.com/rpggio/fieldwork/internal/domain/finding"
)

// Buffer accumulates what a ranger collects while one activity is in progress.
type Buffer struct {
	Activity    activity.Activity
	Findings    []finding.Finding
	Evidence    []activity.Evidence
	RoutePoints []activity.RoutePoint
	Resumed     bool
	OpenedAt    time.Time
}

func (b *Buffer) clone() Buffer {
	out := *b
	out.Findings = slices.Clone(b.Findings)
	out.Evidence = slices.Clone(b.Evidence)
	out.RoutePoints = slices.Clone(b.RoutePoints)
	return out
}

// RoutePointInput is a GPS fix as captured on the device. ClientRef is optional; a retry that
// repeats it cannot store the fix twice.
type RoutePointInput struct {
	Position   field.Position
	RecordedAt time.Time
	Note       string
	ClientRef  string
}

// EvidenceInput is a photographic attachment as captured on the device.
type EvidenceInput struct {
	URL         string
	Description string
	Category    string
	CapturedAt  time.Time
}
