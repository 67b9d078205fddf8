package handlers

import (
	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type AdminHandler struct {
	backendHandler
}

func NewAdminHandler(backend BackendInterface, sessions SessionServiceInterface, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{backendHandler: newBackendHandler(backend, sessions, logger)}
}

func (h *AdminHandler) ListUsers(c *drift.Context) {
	users, err := h.backend.ListUsers(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, users)
}

func (h *AdminHandler) UpdateUserRole(c *drift.Context) {
	var req dto.UpdateRoleRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		c.BadRequest(err.Error())
		return
	}

	if err := h.backend.UpdateUserRole(c.Request.Context(), c.Param("id"), role); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, dto.MessageResponse{Message: "role updated"})
}

func (h *AdminHandler) ListCreatorRequests(c *drift.Context) {
	requests, err := h.backend.ListCreatorRequests(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, requests)
}

func (h *AdminHandler) ReviewCreatorRequest(c *drift.Context) {
	var req dto.ReviewCreatorRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.RequestID == "" {
		c.BadRequest("requestId is required")
		return
	}

	status := models.CreatorRequestStatus(req.Status)
	switch status {
	case models.CreatorRequestApproved, models.CreatorRequestRejected:
	default:
		c.BadRequest("status must be approved or rejected")
		return
	}

	if err := h.backend.ReviewCreatorRequest(c.Request.Context(), req.RequestID, status); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, dto.MessageResponse{Message: "request " + req.Status})
}
