package handlers

import (
	"strconv"
	"strings"

	"github.com/contesthub/contesthub/internal/models"
	"github.com/contesthub/contesthub/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
	"go.uber.org/zap"
)

type ContestHandler struct {
	backendHandler
}

func NewContestHandler(backend BackendInterface, sessions SessionServiceInterface, logger *zap.Logger) *ContestHandler {
	return &ContestHandler{backendHandler: newBackendHandler(backend, sessions, logger)}
}

func (h *ContestHandler) List(c *drift.Context) {
	q := models.ContestQuery{
		Type:   strings.TrimSpace(c.QueryParam("type")),
		Search: strings.TrimSpace(c.QueryParam("search")),
	}
	if v := c.QueryParam("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			c.BadRequest("invalid page")
			return
		}
		q.Page = page
	}
	if v := c.QueryParam("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			c.BadRequest("invalid limit")
			return
		}
		q.Limit = limit
	}

	contests, err := h.backend.ListContests(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, contests)
}

func (h *ContestHandler) Get(c *drift.Context) {
	contest, err := h.backend.GetContest(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, contest)
}

func (h *ContestHandler) Create(c *drift.Context) {
	var in models.ContestInput
	if err := c.BindJSON(&in); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		c.BadRequest("name is required")
		return
	}

	contest, err := h.backend.CreateContest(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	_ = c.JSON(201, contest)
}

func (h *ContestHandler) Update(c *drift.Context) {
	var in models.ContestInput
	if err := c.BindJSON(&in); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	contest, err := h.backend.UpdateContest(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, contest)
}

func (h *ContestHandler) Delete(c *drift.Context) {
	if err := h.backend.DeleteContest(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, dto.MessageResponse{Message: "contest deleted"})
}

func (h *ContestHandler) Register(c *drift.Context) {
	var req dto.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.TransactionID == "" {
		c.BadRequest("transactionId is required")
		return
	}

	reg, err := h.backend.RegisterForContest(c.Request.Context(), c.Param("id"), req.TransactionID)
	if err != nil {
		h.fail(c, err)
		return
	}
	_ = c.JSON(201, reg)
}

func (h *ContestHandler) Submit(c *drift.Context) {
	var sub models.Submission
	if err := c.BindJSON(&sub); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(sub.TaskLink) == "" {
		c.BadRequest("taskLink is required")
		return
	}

	if err := h.backend.SubmitEntry(c.Request.Context(), c.Param("id"), sub); err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, dto.MessageResponse{Message: "submission received"})
}

func (h *ContestHandler) DeclareWinner(c *drift.Context) {
	var req dto.DeclareWinnerRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.ParticipantEmail == "" {
		c.BadRequest("participantEmail is required")
		return
	}

	contest, err := h.backend.DeclareWinner(c.Request.Context(), c.Param("id"), req.ParticipantEmail)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, contest)
}

func (h *ContestHandler) Winners(c *drift.Context) {
	winners, err := h.backend.Winners(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, winners)
}

func (h *ContestHandler) Leaderboard(c *drift.Context) {
	entries, err := h.backend.Leaderboard(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, entries)
}

func (h *ContestHandler) MyRegistrations(c *drift.Context) {
	regs, err := h.backend.MyRegistrations(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	h.ok(c, regs)
}
