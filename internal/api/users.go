package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/contesthub/contesthub/internal/models"
)

// Profile is the backend's view of the signed-in user.
type Profile struct {
	ID       string      `json:"_id,omitempty"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	PhotoURL string      `json:"photoURL,omitempty"`
	Role     models.Role `json:"role"`
}

// decodeProfile accepts the profile bare or wrapped as {"user": {...}}.
func decodeProfile(data []byte) (*Profile, error) {
	var wrapped struct {
		User *Profile `json:"user"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.User != nil {
		return wrapped.User, nil
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users/profile", nil, &raw); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

func (c *Client) UpdateProfile(ctx context.Context, update models.ProfileUpdate) (*Profile, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPut, "/users/profile", update, &raw); err != nil {
		return nil, err
	}
	return decodeProfile(raw)
}

// ResolveRole asks the backend for the role of the holder of token. It does not read the
// Persisted Record, because it runs before a fresh token is stored.
func (c *Client) ResolveRole(ctx context.Context, token string) (models.Role, error) {
	var raw json.RawMessage
	if err := c.doWithToken(ctx, token, http.MethodGet, "/users/profile", nil, &raw); err != nil {
		return "", err
	}
	p, err := decodeProfile(raw)
	if err != nil {
		return "", err
	}
	return models.ParseRole(string(p.Role))
}

func (c *Client) MyRegistrations(ctx context.Context) ([]models.Registration, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/users/me/registrations", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.Registration](raw, "registrations")
}

func (c *Client) ListUsers(ctx context.Context) ([]models.PlatformUser, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/users", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.PlatformUser](raw, "users")
}

func (c *Client) UpdateUserRole(ctx context.Context, id string, role models.Role) error {
	body := map[string]models.Role{"role": role}
	return c.do(ctx, http.MethodPut, "/admin/users/"+url.PathEscape(id)+"/role", body, nil)
}

func (c *Client) ListCreatorRequests(ctx context.Context) ([]models.CreatorRequest, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/admin/creator-requests", nil, &raw); err != nil {
		return nil, err
	}
	return decodeList[models.CreatorRequest](raw, "requests")
}

func (c *Client) ReviewCreatorRequest(ctx context.Context, id string, status models.CreatorRequestStatus) error {
	body := map[string]string{"requestId": id, "status": string(status)}
	return c.do(ctx, http.MethodPut, "/admin/creator-requests", body, nil)
}
