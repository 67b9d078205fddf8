package handlers

import (
	"errors"
	"net/http"

	"github.com/contesthub/contesthub/internal/api"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

// backendHandler is shared by the handlers that proxy onto the ContestHub backend.
type backendHandler struct {
	backend  BackendInterface
	sessions SessionServiceInterface
	logger   *zap.Logger
}

func newBackendHandler(backend BackendInterface, sessions SessionServiceInterface, logger *zap.Logger) backendHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return backendHandler{
		backend:  backend,
		sessions: sessions,
		logger:   logger.Named("backend"),
	}
}

// fail answers with the status matching the error's category. A rejected token ends the local
// session, if there is one, so the next gated request is sent to the login page.
func (h *backendHandler) fail(c *drift.Context, err error) {
	message := "backend request failed"
	var apiErr *api.Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		message = apiErr.Message
	}

	switch api.CategoryOf(err) {
	case api.CategoryUnauthorized:
		if h.sessions.Snapshot().User == nil {
			c.Unauthorized("not authenticated")
			return
		}
		h.logger.Info("backend rejected the session token, signing out")
		h.sessions.SignOut(c.Request.Context())
		c.Unauthorized("session expired")
	case api.CategoryForbidden:
		c.Forbidden(message)
	case api.CategoryNotFound:
		c.NotFound(message)
	case api.CategoryServer:
		h.logger.Warn("backend error", zap.Error(err))
		c.BadGateway(message)
	case api.CategoryNetwork:
		h.logger.Warn("backend unreachable", zap.Error(err))
		c.GatewayTimeout("backend unreachable")
	case api.CategoryRequest:
		c.BadRequest(message)
	default:
		h.logger.Error("backend call failed", zap.Error(err))
		c.InternalServerError("internal error")
	}
}

func (h *backendHandler) ok(c *drift.Context, v any) {
	_ = c.JSON(http.StatusOK, v)
}
