package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/response"
)

type Handler struct {
	service feedback.Service
}

func NewHandler(service feedback.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) SubmitFeedback(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var body SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	f, err := h.service.SubmitFeedback(c.Request.Context(), id, uri.ID, *body.Rating, body.Comment)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewFeedbackResponse(f))
}

func (h *Handler) AddNote(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	var body AddNoteRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	n, err := h.service.AddNote(c.Request.Context(), id, uri.ID, body.Text)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewNoteResponse(n))
}

func (h *Handler) ListNotes(c *gin.Context) {
	var uri request.ByIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		response.BadRequest(c, "invalid booking id", err)
		return
	}

	id, _ := auth.GetIdentity(c)
	notes, err := h.service.ListNotes(c.Request.Context(), id, uri.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]NoteResponse, len(notes))
	for i, n := range notes {
		items[i] = NewNoteResponse(n)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Backfill runs the legacy feedback conversion synchronously and returns its report.
func (h *Handler) Backfill(c *gin.Context) {
	report, err := h.service.BackfillFromLegacyNotes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
