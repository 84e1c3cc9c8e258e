package http

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

type BookingResponse struct {
	ID                string    `json:"id"`
	InvestorID        string    `json:"investor_id"`
	AnalystID         string    `json:"analyst_id"`
	StartUTC          time.Time `json:"start_utc"`
	EndUTC            time.Time `json:"end_utc"`
	Status            string    `json:"status"`
	PriceQuote        *int64    `json:"price_quote,omitempty"`
	VideoJoinURL      *string   `json:"video_join_url"`
	VideoHostURL      *string   `json:"video_host_url,omitempty"`
	ProviderMeetingID *string   `json:"provider_meeting_id,omitempty"`
	VideoPending      bool      `json:"video_pending"`
	RecordingURL      *string   `json:"recording_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// NewBookingResponse renders b with the given effective status. The host link is
// only shown to the analyst and admins.
func NewBookingResponse(b *booking.Booking, status booking.Status, showHostURL bool) BookingResponse {
	resp := BookingResponse{
		ID:                b.ID,
		InvestorID:        b.InvestorID,
		AnalystID:         b.AnalystID,
		StartUTC:          b.StartUTC,
		EndUTC:            b.EndUTC,
		Status:            string(status),
		PriceQuote:        b.PriceQuote,
		VideoJoinURL:      b.VideoJoinURL,
		ProviderMeetingID: b.ProviderMeetingID,
		VideoPending:      b.VideoPending,
		RecordingURL:      b.RecordingURL,
		CreatedAt:         b.CreatedAt,
		UpdatedAt:         b.UpdatedAt,
	}
	if showHostURL {
		resp.VideoHostURL = b.VideoHostURL
	}
	return resp
}

type CreateBookingRequest struct {
	// InvestorID defaults to the caller; admins must set it.
	InvestorID string    `json:"investor_id" binding:"omitempty,uuid"`
	AnalystID  string    `json:"analyst_id" binding:"required,uuid"`
	StartUTC   time.Time `json:"start_utc" binding:"required"`
	EndUTC     time.Time `json:"end_utc" binding:"required"`
	PriceQuote *int64    `json:"price_quote" binding:"omitempty,min=0"`
}

// Validate performs custom validation for CreateBookingRequest.
func (r *CreateBookingRequest) Validate() error {
	if !r.StartUTC.Before(r.EndUTC) {
		return booking.ErrInvalidTimeRange
	}
	return nil
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=confirmed cancelled"`
}

type AttachRecordingRequest struct {
	RecordingURL string `json:"recording_url" binding:"required,url"`
}

func (r *AttachRecordingRequest) Validate() error {
	if len(r.RecordingURL) > 2048 {
		return apperror.Validation("recording_url is too long")
	}
	return nil
}
