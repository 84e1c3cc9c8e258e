package http

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	bookingHttp "github.com/nekogravitycat/analyst-scheduler/internal/booking/http"
	feedbackHttp "github.com/nekogravitycat/analyst-scheduler/internal/feedback/http"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/request"
	"github.com/nekogravitycat/analyst-scheduler/internal/query"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	request.TimeWindow
	Status       string `form:"status" binding:"omitempty,oneof=requested confirmed completed cancelled"`
	IncludeNotes bool   `form:"include_notes"`
}

func (r *ListBookingsRequest) Filter() query.Filter {
	return query.Filter{
		From:         r.From,
		To:           r.To,
		Status:       booking.Status(r.Status),
		IncludeNotes: r.IncludeNotes,
		Page:         r.Page,
		PageSize:     r.PageSize,
	}
}

// BookingViewResponse omits notes unless they were requested; requested
// notes render as [] when there are none.
type BookingViewResponse struct {
	bookingHttp.BookingResponse
	Feedback []feedbackHttp.FeedbackResponse `json:"feedback"`
	Notes    *[]feedbackHttp.NoteResponse    `json:"notes,omitempty"`
}

// NewBookingViewResponse reports the effective status computed by the query,
// the same one its status filter used.
func NewBookingViewResponse(v query.BookingView, showHostURL bool) BookingViewResponse {
	resp := BookingViewResponse{
		BookingResponse: bookingHttp.NewBookingResponse(v.Booking, v.EffectiveStatus, showHostURL),
		Feedback:        make([]feedbackHttp.FeedbackResponse, len(v.Feedback)),
	}
	for i, f := range v.Feedback {
		resp.Feedback[i] = feedbackHttp.NewFeedbackResponse(f)
	}
	if v.Notes != nil {
		notes := make([]feedbackHttp.NoteResponse, len(v.Notes))
		for i, n := range v.Notes {
			notes[i] = feedbackHttp.NewNoteResponse(n)
		}
		resp.Notes = &notes
	}
	return resp
}

type SlotsRequest struct {
	request.TimeWindow
}

type SlotResponse struct {
	StartUTC    time.Time `json:"start_utc"`
	EndUTC      time.Time `json:"end_utc"`
	RuleID      string    `json:"rule_id"`
	AutoConfirm bool      `json:"auto_confirm"`
}

func NewSlotResponse(s booking.TimeSlot) SlotResponse {
	return SlotResponse{
		StartUTC:    s.StartUTC,
		EndUTC:      s.EndUTC,
		RuleID:      s.RuleID,
		AutoConfirm: s.AutoConfirm,
	}
}
