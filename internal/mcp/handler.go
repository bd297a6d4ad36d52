package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/domain/session"
	"github.com/rpggio/fieldwork/internal/fault"
)

// ActivityService defines lifecycle operations needed by MCP.
type ActivityService interface {
	List(ctx context.Context, rangerID string, opts activity.ListOptions) ([]activity.Activity, error)
	Get(ctx context.Context, id string) (activity.Activity, error)
	Start(ctx context.Context, in activity.StartInput) (activity.Activity, error)
	Finish(ctx context.Context, in activity.FinishInput) (activity.Activity, error)
}

// SessionService defines field session buffer operations needed by MCP.
type SessionService interface {
	AddRoutePoint(ctx context.Context, activityID string, in session.RoutePointInput) (activity.RoutePoint, error)
	RemoveRoutePoint(ctx context.Context, activityID, pointID string) error
	AddFinding(ctx context.Context, activityID string, draft finding.Draft) (finding.Finding, error)
	RemoveFinding(ctx context.Context, activityID, findingID string) error
	AddEvidence(activityID string, in session.EvidenceInput) (activity.Evidence, error)
	RemoveEvidence(activityID, ref string) error
	LoadFindings(ctx context.Context, activityID string) ([]finding.Finding, error)
	Snapshot(activityID string) (session.Buffer, bool)
	Active() []session.Buffer
	Abandon(activityID string) (int, error)
}

// FindingService defines finding operations needed by MCP.
type FindingService interface {
	Report(ctx context.Context, rangerID string, draft finding.Draft) (finding.Finding, error)
	ListIndependentToday(ctx context.Context, rangerID string) ([]finding.Finding, error)
	Transition(ctx context.Context, id string, to finding.Status) (finding.Finding, error)
	AddFollowUp(ctx context.Context, id, action, actor, notes string) (finding.Finding, error)
}

// Identity tracks who is signed in on this device.
type Identity interface {
	RangerID() string
	SessionExpired() bool
	SignIn(ctx context.Context, token string) (string, session.Buffer, bool, error)
}

// Handler implements the MCP tools on top of the domain services.
type Handler struct {
	activities ActivityService
	sessions   SessionService
	findings   FindingService
	identity   Identity
}

// NewHandler creates a new MCP handler.
func NewHandler(services Services) *Handler {
	return &Handler{
		activities: services.Activities,
		sessions:   services.Sessions,
		findings:   services.Findings,
		identity:   services.Identity,
	}
}

func (h *Handler) ListActivities(ctx context.Context, _ *sdkmcp.CallToolRequest, p ListActivitiesParams) (*sdkmcp.CallToolResult, ActivityListResult, error) {
	opts := activity.ListOptions{State: activity.State(p.State), Kind: activity.Kind(p.Kind)}
	if opts.State != "" && !opts.State.Valid() {
		return fail[ActivityListResult](fmt.Errorf("%w: unknown state %q", fault.ErrValidation, p.State))
	}
	list, err := h.activities.List(ctx, getRangerID(ctx), opts)
	if err != nil {
		return fail[ActivityListResult](err)
	}
	return nil, ActivityListResult{Activities: activityViews(list)}, nil
}

func (h *Handler) GetActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, p ActivityIDParams) (*sdkmcp.CallToolResult, ActivityView, error) {
	a, err := h.activities.Get(ctx, p.ActivityID)
	if err != nil {
		return fail[ActivityView](err)
	}
	return nil, activityView(a), nil
}

func (h *Handler) StartActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, p StartActivityParams) (*sdkmcp.CallToolResult, StartActivityResult, error) {
	a, err := h.activities.Start(ctx, activity.StartInput{
		ActivityID: p.ActivityID,
		Time:       p.Time,
		Position:   position(p.Lat, p.Lng),
	})
	if err != nil {
		return fail[StartActivityResult](err)
	}
	_, opened := h.sessions.Snapshot(a.ID)
	return nil, StartActivityResult{Activity: activityView(a), SessionOpened: opened}, nil
}

func (h *Handler) FinishActivity(ctx context.Context, _ *sdkmcp.CallToolRequest, p FinishActivityParams) (*sdkmcp.CallToolResult, ActivityView, error) {
	in, err := p.input(time.Now())
	if err != nil {
		return fail[ActivityView](err)
	}
	a, err := h.activities.Finish(ctx, in)
	if err != nil {
		return fail[ActivityView](err)
	}
	return nil, activityView(a), nil
}

func (h *Handler) AddRoutePoint(ctx context.Context, _ *sdkmcp.CallToolRequest, p AddRoutePointParams) (*sdkmcp.CallToolResult, RoutePointView, error) {
	recordedAt, err := parseTimestamp("recorded_at", p.RecordedAt)
	if err != nil {
		return fail[RoutePointView](err)
	}
	point, err := h.sessions.AddRoutePoint(ctx, p.ActivityID, session.RoutePointInput{
		Position:   position(p.Lat, p.Lng),
		RecordedAt: recordedAt,
		Note:       p.Note,
		ClientRef:  p.ClientRef,
	})
	if err != nil {
		return fail[RoutePointView](err)
	}
	return nil, routePointView(point), nil
}

func (h *Handler) RemoveRoutePoint(ctx context.Context, _ *sdkmcp.CallToolRequest, p RemoveRoutePointParams) (*sdkmcp.CallToolResult, RemovedResult, error) {
	if err := h.sessions.RemoveRoutePoint(ctx, p.ActivityID, p.PointID); err != nil {
		return fail[RemovedResult](err)
	}
	return nil, RemovedResult{Removed: p.PointID}, nil
}

func (h *Handler) AddFinding(ctx context.Context, _ *sdkmcp.CallToolRequest, p AddFindingParams) (*sdkmcp.CallToolResult, FindingView, error) {
	draft, err := p.finding().draft()
	if err != nil {
		return fail[FindingView](err)
	}
	f, err := h.sessions.AddFinding(ctx, p.ActivityID, draft)
	if err != nil {
		return fail[FindingView](err)
	}
	return nil, findingView(f), nil
}

func (h *Handler) RemoveFinding(ctx context.Context, _ *sdkmcp.CallToolRequest, p RemoveFindingParams) (*sdkmcp.CallToolResult, RemovedResult, error) {
	if err := h.sessions.RemoveFinding(ctx, p.ActivityID, p.FindingID); err != nil {
		return fail[RemovedResult](err)
	}
	return nil, RemovedResult{Removed: p.FindingID}, nil
}

func (h *Handler) AddEvidence(_ context.Context, _ *sdkmcp.CallToolRequest, p AddEvidenceParams) (*sdkmcp.CallToolResult, EvidenceView, error) {
	capturedAt, err := parseTimestamp("captured_at", p.CapturedAt)
	if err != nil {
		return fail[EvidenceView](err)
	}
	e, err := h.sessions.AddEvidence(p.ActivityID, session.EvidenceInput{
		URL:         p.URL,
		Description: p.Description,
		Category:    p.Category,
		CapturedAt:  capturedAt,
	})
	if err != nil {
		return fail[EvidenceView](err)
	}
	return nil, evidenceView(e), nil
}

func (h *Handler) RemoveEvidence(_ context.Context, _ *sdkmcp.CallToolRequest, p RemoveEvidenceParams) (*sdkmcp.CallToolResult, RemovedResult, error) {
	if err := h.sessions.RemoveEvidence(p.ActivityID, p.Ref); err != nil {
		return fail[RemovedResult](err)
	}
	return nil, RemovedResult{Removed: p.Ref}, nil
}

func (h *Handler) LoadSessionFindings(ctx context.Context, _ *sdkmcp.CallToolRequest, p ActivityIDParams) (*sdkmcp.CallToolResult, FindingListResult, error) {
	list, err := h.sessions.LoadFindings(ctx, p.ActivityID)
	if err != nil {
		return fail[FindingListResult](err)
	}
	return nil, FindingListResult{Findings: findingViews(list)}, nil
}

func (h *Handler) SessionState(ctx context.Context, _ *sdkmcp.CallToolRequest, _ NoParams) (*sdkmcp.CallToolResult, SessionStateResult, error) {
	buffers := h.sessions.Active()
	out := SessionStateResult{
		RangerID:       getRangerID(ctx),
		SessionExpired: h.identity.SessionExpired(),
		Sessions:       make([]SessionView, 0, len(buffers)),
	}
	for _, b := range buffers {
		out.Sessions = append(out.Sessions, sessionView(b))
	}
	return nil, out, nil
}

func (h *Handler) ReportFinding(ctx context.Context, _ *sdkmcp.CallToolRequest, p FindingDraftParams) (*sdkmcp.CallToolResult, FindingView, error) {
	draft, err := p.draft()
	if err != nil {
		return fail[FindingView](err)
	}
	f, err := h.findings.Report(ctx, getRangerID(ctx), draft)
	if err != nil {
		return fail[FindingView](err)
	}
	return nil, findingView(f), nil
}

func (h *Handler) ListIndependentFindings(ctx context.Context, _ *sdkmcp.CallToolRequest, _ NoParams) (*sdkmcp.CallToolResult, FindingListResult, error) {
	list, err := h.findings.ListIndependentToday(ctx, getRangerID(ctx))
	if err != nil {
		return fail[FindingListResult](err)
	}
	return nil, FindingListResult{Findings: findingViews(list)}, nil
}

func (h *Handler) TransitionFinding(ctx context.Context, _ *sdkmcp.CallToolRequest, p TransitionFindingParams) (*sdkmcp.CallToolResult, FindingView, error) {
	f, err := h.findings.Transition(ctx, p.FindingID, finding.Status(p.To))
	if err != nil {
		return fail[FindingView](err)
	}
	return nil, findingView(f), nil
}

func (h *Handler) AddFollowUp(ctx context.Context, _ *sdkmcp.CallToolRequest, p AddFollowUpParams) (*sdkmcp.CallToolResult, FindingView, error) {
	actor := p.Actor
	if strings.TrimSpace(actor) == "" {
		actor = getRangerID(ctx)
	}
	f, err := h.findings.AddFollowUp(ctx, p.FindingID, p.Action, actor, p.Notes)
	if err != nil {
		return fail[FindingView](err)
	}
	return nil, findingView(f), nil
}

func (h *Handler) SignIn(ctx context.Context, _ *sdkmcp.CallToolRequest, p SignInParams) (*sdkmcp.CallToolResult, SignInResult, error) {
	rangerID, buf, resumed, err := h.identity.SignIn(ctx, p.Token)
	if err != nil {
		return fail[SignInResult](err)
	}
	out := SignInResult{RangerID: rangerID, Resumed: resumed}
	if resumed {
		view := sessionView(buf)
		out.Session = &view
	}
	return nil, out, nil
}

func (h *Handler) AbandonSession(_ context.Context, _ *sdkmcp.CallToolRequest, p ActivityIDParams) (*sdkmcp.CallToolResult, AbandonResult, error) {
	lost, err := h.sessions.Abandon(p.ActivityID)
	if err != nil {
		return fail[AbandonResult](err)
	}
	return nil, AbandonResult{ActivityID: p.ActivityID, LostEvidence: lost}, nil
}

func (p FindingDraftParams) draft() (finding.Draft, error) {
	reportedAt, err := parseTimestamp("reported_at", p.ReportedAt)
	if err != nil {
		return finding.Draft{}, err
	}
	return finding.Draft{
		Title:       p.Title,
		Description: p.Description,
		Severity:    finding.Severity(p.Severity),
		Position:    position(p.Lat, p.Lng),
		ReportedAt:  reportedAt,
		ClientRef:   p.ClientRef,
	}, nil
}

// input builds the finish command with its bundled items. Missing capture times default to now.
func (p FinishActivityParams) input(now time.Time) (activity.FinishInput, error) {
	in := activity.FinishInput{
		ActivityID:   p.ActivityID,
		Time:         p.Time,
		Position:     position(p.Lat, p.Lng),
		Observations: p.Observations,
	}
	for i, fp := range p.Findings {
		draft, err := fp.draft()
		if err != nil {
			return activity.FinishInput{}, fmt.Errorf("findings[%d]: %w", i, err)
		}
		f, err := draft.Build(now)
		if err != nil {
			return activity.FinishInput{}, fmt.Errorf("findings[%d]: %w", i, err)
		}
		in.Findings = append(in.Findings, f)
	}
	for i, ep := range p.Evidence {
		capturedAt, err := parseTimestamp("captured_at", ep.CapturedAt)
		if err != nil {
			return activity.FinishInput{}, fmt.Errorf("evidence[%d]: %w", i, err)
		}
		if capturedAt.IsZero() {
			capturedAt = now
		}
		in.Evidence = append(in.Evidence, activity.Evidence{
			ClientRef:   strings.TrimSpace(ep.ClientRef),
			URL:         strings.TrimSpace(ep.URL),
			Description: ep.Description,
			Category:    ep.Category,
			CapturedAt:  capturedAt.UTC(),
		})
	}
	for i, rp := range p.RoutePoints {
		coords, err := position(rp.Lat, rp.Lng).Coordinates()
		if err != nil {
			return activity.FinishInput{}, fmt.Errorf("route_points[%d]: %w", i, err)
		}
		recordedAt, err := parseTimestamp("recorded_at", rp.RecordedAt)
		if err != nil {
			return activity.FinishInput{}, fmt.Errorf("route_points[%d]: %w", i, err)
		}
		if recordedAt.IsZero() {
			recordedAt = now
		}
		in.RoutePoints = append(in.RoutePoints, activity.RoutePoint{
			ClientRef:  strings.TrimSpace(rp.ClientRef),
			Latitude:   coords.Latitude,
			Longitude:  coords.Longitude,
			RecordedAt: recordedAt.UTC(),
			Note:       strings.TrimSpace(rp.Note),
		})
	}
	return in, nil
}

// parseTimestamp accepts an empty value as "now", left to the service to fill in.
func parseTimestamp(name, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be RFC 3339", fault.ErrValidation, name)
	}
	return t, nil
}

func fail[Out any](err error) (*sdkmcp.CallToolResult, Out, error) {
	var zero Out
	return nil, zero, MapError(err)
}
