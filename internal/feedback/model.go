package feedback

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

const (
	MinRating = 1
	MaxRating = 5

	MaxCommentRunes = 2000
	MaxNoteRunes    = 4000
)

var (
	ErrInvalidRating       = apperror.New(http.StatusBadRequest, apperror.CodeInvalidRating, "rating must be between 1 and 5")
	ErrDuplicateFeedback   = apperror.New(http.StatusConflict, apperror.CodeDuplicateFeedback, "feedback already submitted for this booking")
	ErrBookingNotCompleted = apperror.New(http.StatusConflict, apperror.CodeBookingNotCompleted, "feedback is only accepted after the session has completed")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, apperror.CodePermissionDenied, "permission denied")
	ErrCommentTooLong      = apperror.Validation("comment is too long")
	ErrNoteEmpty           = apperror.Validation("note text is required")
	ErrNoteTooLong         = apperror.Validation("note text is too long")
	ErrLegacyMarker        = apperror.Validation("feedback must be submitted through the feedback endpoint, not as a note")
)

type Feedback struct {
	ID         string
	BookingID  string
	InvestorID string
	AnalystID  string
	Rating     int
	Comment    string
	CreatedAt  time.Time
}

type Note struct {
	ID         string
	BookingID  string
	AuthorID   string
	AuthorRole string
	Text       string
	CreatedAt  time.Time
}

// BackfillReport summarizes one legacy feedback backfill run.
type BackfillReport struct {
	Scanned   int `json:"scanned"`
	Created   int `json:"created"`
	Skipped   int `json:"skipped"`
	Malformed int `json:"malformed"`
}
