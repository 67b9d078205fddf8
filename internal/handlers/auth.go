package handlers

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/contesthub/contesthub/internal/middleware"
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/internal/oauth"
	"github.com/contesthub/contesthub/internal/session"
	"github.com/contesthub/contesthub/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type AuthHandler struct {
	sessions      SessionServiceInterface
	popups        PopupServiceInterface
	baseCtx       context.Context
	dashboardPath string
	logger        *zap.Logger
}

// NewAuthHandler builds the sign-in endpoints. ctx bounds the background half of the Google
// popup flow, which outlives the request that started it.
func NewAuthHandler(ctx context.Context, sessions SessionServiceInterface, popups PopupServiceInterface, dashboardPath string, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{
		sessions:      sessions,
		popups:        popups,
		baseCtx:       ctx,
		dashboardPath: dashboardPath,
		logger:        logger.Named("auth"),
	}
}

func (h *AuthHandler) SignIn(c *drift.Context) {
	var req dto.SignInRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	user, err := h.sessions.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	_ = c.JSON(200, dto.UserResponse{User: user})
}

func (h *AuthHandler) SignUp(c *drift.Context) {
	var req dto.SignUpRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	user, err := h.sessions.SignUp(c.Request.Context(), session.SignUpInput{
		Name:     strings.TrimSpace(req.Name),
		Email:    req.Email,
		Password: req.Password,
		PhotoURL: strings.TrimSpace(req.PhotoURL),
	})
	if err != nil {
		writeAuthError(c, err)
		return
	}

	_ = c.JSON(201, dto.UserResponse{User: user})
}

func (h *AuthHandler) SignOut(c *drift.Context) {
	h.sessions.SignOut(c.Request.Context())
	_ = c.JSON(200, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) UpdateProfile(c *drift.Context) {
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

	user, err := h.sessions.UpdateProfile(c.Request.Context(), update)
	if err != nil {
		writeAuthError(c, err)
		return
	}

	_ = c.JSON(200, dto.UserResponse{User: user})
}

// StartGoogle opens a consent popup and answers as soon as its URL is known. The sign-in
// itself finishes in the background once the callback arrives; its outcome reaches the
// browser on the event stream.
func (h *AuthHandler) StartGoogle(c *drift.Context) {
	opened := make(chan *oauth.Popup, 1)
	failed := make(chan error, 1)

	go func() {
		user, err := h.sessions.SignInWithOAuth(h.baseCtx, func(p *oauth.Popup) error {
			opened <- p
			return nil
		})
		if err != nil {
			h.logger.Info("google sign-in did not complete", zap.Error(err))
			failed <- err
			return
		}
		h.logger.Info("google sign-in completed", zap.String("user_id", user.ID))
	}()

	select {
	case p := <-opened:
		_ = c.JSON(202, dto.PopupResponse{URL: p.URL, State: p.State})
	case err := <-failed:
		select {
		case p := <-opened:
			_ = c.JSON(202, dto.PopupResponse{URL: p.URL, State: p.State})
		default:
			writeAuthError(c, err)
		}
	case <-c.Request.Context().Done():
	}
}

func (h *AuthHandler) CancelGoogle(c *drift.Context) {
	var req dto.CancelPopupRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.State == "" {
		c.BadRequest("state is required")
		return
	}

	if !h.popups.Cancel(req.State) {
		c.NotFound("no pending sign-in for this state")
		return
	}

	_ = c.JSON(200, dto.MessageResponse{Message: "sign-in cancelled"})
}

func (h *AuthHandler) GoogleCallback(c *drift.Context) {
	state := c.QueryParam("state")
	if state == "" {
		h.renderCallbackPage(c, "missing state parameter", false)
		return
	}

	err := h.popups.Complete(c.Request.Context(), state, c.QueryParam("code"), c.QueryParam("error"))
	switch {
	case err == nil:
		h.renderCallbackPage(c, "Finishing sign-in...", true)
	case errors.Is(err, oauth.ErrUnknownState):
		h.renderCallbackPage(c, "invalid or expired state", false)
	case errors.Is(err, oauth.ErrPopupClosed):
		h.renderCallbackPage(c, "Sign-in was cancelled", false)
	default:
		h.logger.Warn("google code exchange failed", zap.Error(err))
		h.renderCallbackPage(c, "failed to exchange code", false)
	}
}

func (h *AuthHandler) renderCallbackPage(c *drift.Context, subtitle string, ok bool) {
	title := "Sign-in Successful"
	heading := "You're signed in!"
	headingColor := "#111827"
	statusCode := 200

	if !ok {
		title = "Sign-in Failed"
		heading = "Sign-in failed"
		headingColor = "#991b1b"
		statusCode = 400
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        * { box-sizing: border-box; }
        body { font-family: system-ui, -apple-system, sans-serif; background: #f9fafb; color: #374151; margin: 0; padding: 40px 20px; min-height: 100vh; }
        .container { max-width: 400px; margin: 0 auto; background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; padding: 40px 32px; text-align: center; }
        h1 { font-size: 20px; font-weight: 600; color: %s; margin: 0 0 8px 0; }
        .subtitle { color: #6b7280; font-size: 14px; margin: 0 0 4px 0; }
        .close-hint { color: #9ca3af; font-size: 13px; margin: 0; }
        .close-hint a { color: #374151; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p class="subtitle">%s</p>
        <p class="close-hint">You can close this window or <a href="%s">continue to ContestHub</a>.</p>
    </div>
    <script>
        if (window.opener) { window.close(); }
    </script>
</body>
</html>`, title, headingColor, heading, html.EscapeString(subtitle), html.EscapeString(h.dashboardPath))

	_ = c.HTML(statusCode, page)
}

// authStatus maps an AuthError kind to the HTTP status the API answers with.
func authStatus(kind session.Kind) int {
	switch kind {
	case session.KindCredential, session.KindSession:
		return http.StatusUnauthorized
	case session.KindPopup:
		return http.StatusBadRequest
	case session.KindBusy:
		return http.StatusConflict
	case session.KindUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeAuthError(c *drift.Context, err error) {
	var authErr *session.AuthError
	if !errors.As(err, &authErr) {
		c.InternalServerError("authentication failed")
		return
	}

	_ = c.JSON(authStatus(authErr.Kind), dto.AuthErrorResponse{
		Error: authErr.Message,
		Title: authErr.Title,
		Kind:  string(authErr.Kind),
		Code:  string(authErr.Code),
	})
}

// currentUser is the user the session gate attached, or the live session user on routes
// without a gate.
func currentUser(c *drift.Context, sessions SessionServiceInterface) *models.User {
	if u := middleware.GetUser(c); u != nil {
		return u
	}
	return sessions.Snapshot().User
}
