package httpstore

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rpggio/fieldwork/internal/domain/finding"
	"github.com/rpggio/fieldwork/internal/store"
)

func (c *Client) ListActivityFindings(ctx context.Context, activityID string) ([]finding.Finding, error) {
	const op = "list activity findings"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/activities/{id}/findings",
		params: map[string]string{"id": activityID},
	})
	if err != nil {
		return nil, err
	}
	return decodeFindings(op, raw)
}

func (c *Client) AddFinding(ctx context.Context, activityID string, f finding.Finding) (finding.Finding, error) {
	const op = "add finding"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/activities/{id}/findings",
		params:   map[string]string{"id": activityID},
		body:     f,
		mutating: true,
	})
	if err != nil {
		return finding.Finding{}, err
	}
	return decodeFinding(op, raw)
}

func (c *Client) RemoveFinding(ctx context.Context, activityID, findingID string) error {
	_, err := c.do(ctx, call{
		op:       "remove finding",
		method:   http.MethodDelete,
		path:     "/activities/{id}/findings/{findingID}",
		params:   map[string]string{"id": activityID, "findingID": findingID},
		mutating: true,
	})
	return err
}

func (c *Client) ReportFinding(ctx context.Context, f finding.Finding) (finding.Finding, error) {
	const op = "report finding"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/findings",
		body:     f,
		mutating: true,
	})
	if err != nil {
		return finding.Finding{}, err
	}
	return decodeFinding(op, raw)
}

func (c *Client) GetFinding(ctx context.Context, id string) (finding.Finding, error) {
	const op = "get finding"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/findings/{id}",
		params: map[string]string{"id": id},
	})
	if err != nil {
		return finding.Finding{}, err
	}
	return decodeFinding(op, raw)
}

func (c *Client) ListIndependentFindings(ctx context.Context, rangerID string, day time.Time) ([]finding.Finding, error) {
	const op = "list independent findings"
	raw, err := c.do(ctx, call{
		op:     op,
		method: http.MethodGet,
		path:   "/rangers/{rangerID}/findings",
		params: map[string]string{"rangerID": rangerID},
		query:  map[string]string{"independent": "true", "date": day.Format(time.DateOnly)},
	})
	if err != nil {
		return nil, err
	}
	return decodeFindings(op, raw)
}

func (c *Client) TransitionFinding(ctx context.Context, id string, to finding.Status) (finding.Finding, error) {
	const op = "transition finding"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/findings/{id}/transition",
		params:   map[string]string{"id": id},
		body:     store.TransitionBody{To: to},
		mutating: true,
	})
	if err != nil {
		return finding.Finding{}, err
	}
	return decodeFinding(op, raw)
}

func (c *Client) AddFollowUp(ctx context.Context, id string, entry finding.FollowUp) (finding.Finding, error) {
	const op = "add follow-up"
	raw, err := c.do(ctx, call{
		op:       op,
		method:   http.MethodPost,
		path:     "/findings/{id}/follow-ups",
		params:   map[string]string{"id": id},
		body:     entry,
		mutating: true,
	})
	if err != nil {
		return finding.Finding{}, err
	}
	return decodeFinding(op, raw)
}

func decodeFinding(op string, raw []byte) (finding.Finding, error) {
	var f finding.Finding
	if err := decode(op, raw, &f); err != nil {
		return finding.Finding{}, err
	}
	if err := validFinding(f); err != nil {
		return finding.Finding{}, invalid(op, err)
	}
	return f, nil
}

func decodeFindings(op string, raw []byte) ([]finding.Finding, error) {
	var body store.FindingList
	if err := decode(op, raw, &body); err != nil {
		return nil, err
	}
	for _, f := range body.Findings {
		if err := validFinding(f); err != nil {
			return nil, invalid(op, err)
		}
	}
	if body.Findings == nil {
		body.Findings = []finding.Finding{}
	}
	return body.Findings, nil
}

func validFinding(f finding.Finding) error {
	if f.ID == "" {
		return errors.New("finding without id")
	}
	return f.Validate()
}
