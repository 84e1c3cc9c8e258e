package apperror

import "net/http"

// Stable machine-readable error codes returned alongside the message.
const (
	CodeValidation          = "validation_error"
	CodeNotFound            = "not_found"
	CodePermissionDenied    = "permission_denied"
	CodeSlotUnavailable     = "slot_unavailable"
	CodeSlotAlreadyBooked   = "slot_already_booked"
	CodeInvalidTransition   = "invalid_transition"
	CodeTooLateToCancel     = "too_late_to_cancel"
	CodeDuplicateFeedback   = "duplicate_feedback"
	CodeInvalidRating       = "invalid_rating"
	CodeBookingNotCompleted = "booking_not_completed"
	CodeRecordingAlreadySet = "recording_already_set"
	CodeInternal            = "internal_error"
)

// AppError is a custom error type that includes an HTTP status code and a stable error code.
type AppError struct {
	Status  int    // HTTP Status Code (e.g., 400, 404)
	Code    string // Stable code for clients (e.g., "slot_already_booked")
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with a status code, code and message.
func New(status int, code, message string) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new AppError wrapping an existing error.
// errors.Is(wrapped, sentinel) holds when err is itself the sentinel.
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Validation builds a 400 validation error carrying a specific message.
// The result still matches ErrValidation with errors.Is.
func Validation(message string) *AppError {
	return Wrap(ErrValidation, http.StatusBadRequest, CodeValidation, message)
}

// ErrValidation is the root of every malformed-input error.
var ErrValidation = New(http.StatusBadRequest, CodeValidation, "invalid input")
