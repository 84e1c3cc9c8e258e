package http

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
)

type FeedbackResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	InvestorID string    `json:"investor_id"`
	AnalystID  string    `json:"analyst_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewFeedbackResponse(f *feedback.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:         f.ID,
		BookingID:  f.BookingID,
		InvestorID: f.InvestorID,
		AnalystID:  f.AnalystID,
		Rating:     f.Rating,
		Comment:    f.Comment,
		CreatedAt:  f.CreatedAt,
	}
}

type NoteResponse struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	AuthorID   string    `json:"author_id"`
	AuthorRole string    `json:"author_role"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

func NewNoteResponse(n *feedback.Note) NoteResponse {
	return NoteResponse{
		ID:         n.ID,
		BookingID:  n.BookingID,
		AuthorID:   n.AuthorID,
		AuthorRole: n.AuthorRole,
		Text:       n.Text,
		CreatedAt:  n.CreatedAt,
	}
}

// SubmitFeedbackRequest leaves the rating range check to the service so
// out-of-range values surface as invalid_rating.
type SubmitFeedbackRequest struct {
	Rating  *int   `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type AddNoteRequest struct {
	Text string `json:"text" binding:"required"`
}
