package handlers

import (
	"github.com/contesthub/contesthub/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

// PaymentHandler relays checkout to the backend; card handling stays with the backend's
// payment processor.
type PaymentHandler struct {
	backendHandler
}

func NewPaymentHandler(backend BackendInterface, sessions SessionServiceInterface, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{backendHandler: newBackendHandler(backend, sessions, logger)}
}

func (h *PaymentHandler) Checkout(c *drift.Context) {
	var req dto.CheckoutRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.ContestID == "" {
		c.BadRequest("contestId is required")
		return
	}

	checkout, err := h.backend.CreateCheckoutSession(c.Request.Context(), req.ContestID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, checkout)
}

func (h *PaymentHandler) Confirm(c *drift.Context) {
	var req dto.ConfirmPaymentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.SessionID == "" || req.ContestID == "" {
		c.BadRequest("sessionId and contestId are required")
		return
	}

	reg, err := h.backend.ConfirmPayment(c.Request.Context(), req.SessionID, req.ContestID)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, reg)
}
