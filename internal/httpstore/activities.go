package httpstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rpggio/fieldwork/internal/domain/activity"
	"github.com/rpggio/fieldwork/internal/store"
)

func (c *Client) ListActivities(ctx context.Context, rangerID string) ([]activity.Activity, error) {
	const op = "list activities"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/rangers/{rangerID}/activities",
		params: map[string]string{"rangerID": rangerID},
	})
	if err != nil {
		return nil, err
	}
	var body store.ActivityList
	if err := decode(op, raw, &body); err != nil {
		return nil, err
	}
	for _, a := range body.Activities {
		if err := a.Validate(); err != nil {
			return nil, invalid(op, err)
		}
	}
	if body.Activities == nil {
		body.Activities = []activity.Activity{}
	}
	return body.Activities, nil
}

func (c *Client) GetActivity(ctx context.Context, id string) (activity.Activity, error) {
	const op = "get activity"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/activities/{id}",
		params: map[string]string{"id": id},
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return decodeActivity(op, raw)
}

func (c *Client) FetchActiveInProgress(ctx context.Context, rangerID string) (*activity.Resumable, error) {
	const op = "fetch in-progress activity"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/rangers/{rangerID}/activities/in-progress",
		params: map[string]string{"rangerID": rangerID},
	})
	if err != nil {
		return nil, err
	}
	var body store.InProgressBody
	if err := decode(op, raw, &body); err != nil {
		return nil, err
	}
	if body.Activity == nil {
		return nil, nil
	}
	if err := body.Activity.Validate(); err != nil {
		return nil, invalid(op, err)
	}
	if body.Activity.State() != activity.StateInProgress {
		return nil, invalid(op, fmt.Errorf("activity %s is %s", body.Activity.ID, body.Activity.State()))
	}
	for _, p := range body.RoutePoints {
		if err := validPoint(p); err != nil {
			return nil, invalid(op, err)
		}
	}
	return &activity.Resumable{Activity: *body.Activity, RoutePoints: body.RoutePoints}, nil
}

func (c *Client) StartActivity(ctx context.Context, id string, start activity.Stamp) (activity.Activity, error) {
	const op = "start activity"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/activities/{id}/start",
		params:   map[string]string{"id": id},
		body:     start,
		mutating: true,
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return decodeActivity(op, raw)
}

func (c *Client) FinishActivity(ctx context.Context, req activity.FinishRequest) (activity.Activity, error) {
	const op = "finish activity"
	body := store.FinishBody{
		Stamp:        req.End,
		Observations: req.Observations,
		Findings:     req.Findings,
		Evidence:     req.Evidence,
		RoutePoints:  req.RoutePoints,
	}
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/activities/{id}/finish",
		params:   map[string]string{"id": req.ActivityID},
		body:     body,
		mutating: true,
	})
	if err != nil {
		return activity.Activity{}, err
	}
	return decodeActivity(op, raw)
}

func (c *Client) ListRoutePoints(ctx context.Context, activityID string) ([]activity.RoutePoint, error) {
	const op = "list route points"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/activities/{id}/route-points",
		params: map[string]string{"id": activityID},
	})
	if err != nil {
		return nil, err
	}
	var body store.RoutePointList
	if err := decode(op, raw, &body); err != nil {
		return nil, err
	}
	for _, p := range body.RoutePoints {
		if err := validPoint(p); err != nil {
			return nil, invalid(op, err)
		}
	}
	if body.RoutePoints == nil {
		body.RoutePoints = []activity.RoutePoint{}
	}
	return body.RoutePoints, nil
}

func (c *Client) AddRoutePoint(ctx context.Context, activityID string, p activity.RoutePoint) (activity.RoutePoint, error) {
	const op = "add route point"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/activities/{id}/route-points",
		params:   map[string]string{"id": activityID},
		body:     p,
		mutating: true,
	})
	if err != nil {
		return activity.RoutePoint{}, err
	}
	var saved activity.RoutePoint
	if err := decode(op, raw, &saved); err != nil {
		return activity.RoutePoint{}, err
	}
	if err := validPoint(saved); err != nil {
		return activity.RoutePoint{}, invalid(op, err)
	}
	return saved, nil
}

func (c *Client) RemoveRoutePoint(ctx context.Context, activityID, pointID string) error {
	_, err := c.do(ctx, call{
		op:       "remove route point",
		method:   http.MethodDelete,
		path:     "/activities/{id}/route-points/{pointID}",
		params:   map[string]string{"id": activityID, "pointID": pointID},
		mutating: true,
	})
	return err
}

func (c *Client) ListEvidence(ctx context.Context, activityID string) ([]activity.Evidence, error) {
	const op = "list evidence"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/activities/{id}/evidence",
		params: map[string]string{"id": activityID},
	})
	if err != nil {
		return nil, err
	}
	var body store.EvidenceList
	if err := decode(op, raw, &body); err != nil {
		return nil, err
	}
	for _, e := range body.Evidence {
		if e.ID == "" {
			return nil, invalid(op, errors.New("evidence without id"))
		}
		if err := e.Validate(); err != nil {
			return nil, invalid(op, err)
		}
	}
	if body.Evidence == nil {
		body.Evidence = []activity.Evidence{}
	}
	return body.Evidence, nil
}

func decodeActivity(op string, raw []byte) (activity.Activity, error) {
	var a activity.Activity
	if err := decode(op, raw, &a); err != nil {
		return activity.Activity{}, err
	}
	if err := a.Validate(); err != nil {
		return activity.Activity{}, invalid(op, err)
	}
	return a, nil
}

func validPoint(p activity.RoutePoint) error {
	if p.ID == "" {
		return errors.New("route point without id")
	}
	return p.Validate()
}
