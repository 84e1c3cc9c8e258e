package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/response"
)

type Handler struct {
	service availability.Service
}

func NewHandler(service availability.Service) *Handler {
	return &Handler{service: service}
}

// GET /v1/analysts/:id/availability
func (h *Handler) List(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid analyst id", err)
		return
	}
	var q ListRulesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	rules, err := h.service.List(c.Request.Context(), id, uri.ID, q.IncludeDisabled)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RuleResponse, len(rules))
	for i, r := range rules {
		items[i] = NewRuleResponse(r)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// POST /v1/analysts/:id/availability
func (h *Handler) Create(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid analyst id", err)
		return
	}
	var body CreateRuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	rule, err := h.service.Create(c.Request.Context(), id, availability.CreateRequest{
		AnalystID:   uri.ID,
		Weekday:     time.Weekday(*body.Weekday),
		StartMinute: *body.StartMinute,
		EndMinute:   *body.EndMinute,
		SlotMinutes: body.SlotMinutes,
		AutoConfirm: body.AutoConfirm,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewRuleResponse(rule))
}

// PATCH /v1/availability/:id
// Disabling a rule is done here with {"enabled": false}; rules are never deleted.
func (h *Handler) Update(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid rule id", err)
		return
	}
	var body UpdateRuleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	req := availability.UpdateRequest{
		StartMinute: body.StartMinute,
		EndMinute:   body.EndMinute,
		SlotMinutes: body.SlotMinutes,
		Enabled:     body.Enabled,
		AutoConfirm: body.AutoConfirm,
	}
	if body.Weekday != nil {
		wd := time.Weekday(*body.Weekday)
		req.Weekday = &wd
	}

	id, _ := auth.GetIdentity(c)
	rule, err := h.service.Update(c.Request.Context(), id, uri.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewRuleResponse(rule))
}
