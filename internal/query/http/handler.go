package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/analyst-scheduler/internal/query"
)

type Handler struct {
	service query.Service
}

func NewHandler(service query.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) bindList(c *gin.Context) (ListBookingsRequest, bool) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return req, false
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return req, false
	}
	return req, true
}

func (h *Handler) writePage(c *gin.Context, id auth.Identity, page query.Page) {
	items := make([]BookingViewResponse, len(page.Items))
	for i, v := range page.Items {
		showHost := id.IsAdmin() || id.Is(auth.RoleAnalyst, v.Booking.AnalystID)
		items[i] = NewBookingViewResponse(v, showHost)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, page.Page, page.PageSize, page.Total))
}

func (h *Handler) ListForAnalyst(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid analyst id", err)
		return
	}
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	id, _ := auth.GetIdentity(c)
	page, err := h.service.ListForAnalyst(c.Request.Context(), id, uri.ID, req.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writePage(c, id, page)
}

func (h *Handler) ListForInvestor(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid investor id", err)
		return
	}
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	id, _ := auth.GetIdentity(c)
	page, err := h.service.ListForInvestor(c.Request.Context(), id, uri.ID, req.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writePage(c, id, page)
}

func (h *Handler) ListUpcoming(c *gin.Context) {
	req, ok := h.bindList(c)
	if !ok {
		return
	}

	id, _ := auth.GetIdentity(c)
	page, err := h.service.ListUpcoming(c.Request.Context(), id, req.Filter())
	if err != nil {
		response.Error(c, err)
		return
	}
	h.writePage(c, id, page)
}

func (h *Handler) AvailableSlots(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid analyst id", err)
		return
	}

	var req SlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "invalid query parameters", err)
		return
	}

	slots, err := h.service.AvailableSlots(c.Request.Context(), uri.ID, req.From, req.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}
