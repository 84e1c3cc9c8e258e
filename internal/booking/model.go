package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

var (
	ErrNotFound            = apperror.New(http.StatusNotFound, apperror.CodeNotFound, "booking not found")
	ErrSlotUnavailable     = apperror.New(http.StatusUnprocessableEntity, apperror.CodeSlotUnavailable, "requested time is not an available slot for this analyst")
	ErrSlotAlreadyBooked   = apperror.New(http.StatusConflict, apperror.CodeSlotAlreadyBooked, "time slot already booked")
	ErrInvalidTransition   = apperror.New(http.StatusConflict, apperror.CodeInvalidTransition, "status transition not allowed")
	ErrTooLateToCancel     = apperror.New(http.StatusConflict, apperror.CodeTooLateToCancel, "booking can no longer be cancelled")
	ErrRecordingAlreadySet = apperror.New(http.StatusConflict, apperror.CodeRecordingAlreadySet, "a different recording url is already attached")
	ErrPermissionDenied    = apperror.New(http.StatusForbidden, apperror.CodePermissionDenied, "permission denied")
	ErrInvalidTimeRange    = apperror.Validation("start time must be before end time")
	ErrStartTimePast       = apperror.Validation("cannot create booking in the past")
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	// StatusCompleted is never stored. See EffectiveStatus.
	StatusCompleted Status = "completed"
)

// ParseStatus accepts any status a client may filter on, including the derived one.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusRequested, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

type Booking struct {
	ID                string
	InvestorID        string
	AnalystID         string
	StartUTC          time.Time
	EndUTC            time.Time
	Status            Status
	PriceQuote        *int64
	VideoJoinURL      *string
	VideoHostURL      *string
	ProviderMeetingID *string
	VideoPending      bool
	RecordingURL      *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EffectiveStatus is the status every read path reports: a confirmed booking
// whose end has passed is completed.
func EffectiveStatus(b *Booking, now time.Time) Status {
	if b.Status == StatusConfirmed && now.After(b.EndUTC) {
		return StatusCompleted
	}
	return b.Status
}

// IsParticipant reports whether userID is the investor or analyst of the booking.
func (b *Booking) IsParticipant(userID string) bool {
	return userID != "" && (b.InvestorID == userID || b.AnalystID == userID)
}

// Filter selects bookings for listing. Status is an effective status.
type Filter struct {
	InvestorID string
	AnalystID  string
	Status     Status
	From       *time.Time // bookings ending after From
	To         *time.Time // bookings starting before To
	// EndAfter restricts to bookings whose end is still ahead of this instant.
	EndAfter       *time.Time
	ExcludeStatus  []Status
	Now            time.Time
	Page           int
	PageSize       int
	SortDescending bool
}
