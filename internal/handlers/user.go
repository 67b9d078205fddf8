package handlers

import (
	"fmt"
	"html"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type UserHandler struct {
	backendHandler
}

func NewUserHandler(backend BackendInterface, sessions SessionServiceInterface, logger *zap.Logger) *UserHandler {
	return &UserHandler{backendHandler: newBackendHandler(backend, sessions, logger)}
}

// Me returns the signed-in user as the session knows it.
func (h *UserHandler) Me(c *drift.Context) {
	user := currentUser(c, h.sessions)
	if user == nil {
		c.Unauthorized("not authenticated")
		return
	}
	h.ok(c, user)
}

// Profile returns the backend's record of the signed-in user.
func (h *UserHandler) Profile(c *drift.Context) {
	profile, err := h.backend.GetProfile(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, profile)
}

// UpdateProfile writes name and photo changes to the backend's profile record.
func (h *UserHandler) UpdateProfile(c *drift.Context) {
	var req dto.UpdateProfileRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	update := req.ToUpdate()
	if update.Empty() {
		c.BadRequest("nothing to update")
		return
	}

	profile, err := h.backend.UpdateProfile(c.Request.Context(), update)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, profile)
}

// Dashboard renders the landing page of a gated dashboard.
func (h *UserHandler) Dashboard(title string) drift.HandlerFunc {
	return func(c *drift.Context) {
		user := currentUser(c, h.sessions)
		if user == nil {
			c.Unauthorized("not authenticated")
			return
		}
		_ = c.HTML(200, dashboardPage(title, user))
	}
}

func dashboardPage(title string, user *models.User) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>%s</title>
</head>
<body>
    <h1>%s</h1>
    <img src="%s" alt="" width="48" height="48">
    <p>Signed in as %s (%s), role %s.</p>
</body>
</html>`,
		html.EscapeString(title),
		html.EscapeString(title),
		html.EscapeString(user.PhotoURL),
		html.EscapeString(user.Name),
		html.EscapeString(user.Email),
		html.EscapeString(string(user.Role)),
	)
}
