package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/contesthub/contesthub/internal/models"
)

func contestPath(id string) string {
	return "/contests/" + url.PathEscape(id)
}

func (c *Client) ListContests(ctx context.Context, q models.ContestQuery) ([]models.Contest, error) {
	params := url.Values{}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/contests"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Contest](raw, "contests")
}

func (c *Client) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	var contest models.Contest
	if err := c.do(ctx, http.MethodGet, contestPath(id), nil, &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

func (c *Client) CreateContest(ctx context.Context, in models.ContestInput) (*models.Contest, error) {
	var contest models.Contest
	if err := c.do(ctx, http.MethodPost, "/contests", in, &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

func (c *Client) UpdateContest(ctx context.Context, id string, in models.ContestInput) (*models.Contest, error) {
	var contest models.Contest
	if err := c.do(ctx, http.MethodPut, contestPath(id), in, &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

func (c *Client) DeleteContest(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, contestPath(id), nil, nil)
}

// RegisterForContest records a paid registration; transactionID comes from the payment flow.
func (c *Client) RegisterForContest(ctx context.Context, id, transactionID string) (*models.Registration, error) {
	var reg models.Registration
	body := map[string]string{"transactionId": transactionID}
	if err := c.do(ctx, http.MethodPost, contestPath(id)+"/register", body, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *Client) SubmitEntry(ctx context.Context, id string, sub models.Submission) error {
	return c.do(ctx, http.MethodPost, contestPath(id)+"/submit", sub, nil)
}

func (c *Client) DeclareWinner(ctx context.Context, id, participantEmail string) (*models.Contest, error) {
	var contest models.Contest
	body := map[string]string{"participantEmail": participantEmail}
	if err := c.do(ctx, http.MethodPost, contestPath(id)+"/declare-winner", body, &contest); err != nil {
		return nil, err
	}
	return &contest, nil
}

func (c *Client) Winners(ctx context.Context) ([]models.Winner, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/winners", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Winner](raw, "winners")
}

func (c *Client) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/leaderboard", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.LeaderboardEntry](raw, "leaderboard")
}
