package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/response"
)

type Handler struct {
	service booking.Service
	now     func() time.Time
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{
		service: service,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) respond(c *gin.Context, status int, id auth.Identity, b *booking.Booking) {
	showHost := id.IsAdmin() || id.Is(auth.RoleAnalyst, b.AnalystID)
	c.JSON(status, NewBookingResponse(b, booking.EffectiveStatus(b, h.now()), showHost))
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	id, _ := auth.GetIdentity(c)
	investorID := body.InvestorID
	if investorID == "" && id.Role == auth.RoleInvestor {
		investorID = id.UserID
	}

	b, err := h.service.CreateBooking(c.Request.Context(), id, booking.CreateRequest{
		InvestorID: investorID,
		AnalystID:  body.AnalystID,
		StartUTC:   body.StartUTC,
		EndUTC:     body.EndUTC,
		PriceQuote: body.PriceQuote,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusCreated, id, b)
}

func (h *Handler) Get(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	b, err := h.service.GetBooking(c.Request.Context(), id, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusOK, id, b)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var body UpdateStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	b, err := h.service.UpdateStatus(c.Request.Context(), id, uri.ID, booking.Status(body.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusOK, id, b)
}

func (h *Handler) AttachRecording(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var body AttachRecordingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	id, _ := auth.GetIdentity(c)
	b, err := h.service.AttachRecordingURL(c.Request.Context(), id, uri.ID, body.RecordingURL)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.respond(c, http.StatusOK, id, b)
}
