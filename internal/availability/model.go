package availability

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

const MinutesPerDay = 24 * 60

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, apperror.CodeNotFound, "availability rule not found")
	ErrPermissionDenied = apperror.New(http.StatusForbidden, apperror.CodePermissionDenied, "permission denied")
	ErrOverlappingRule  = apperror.New(http.StatusConflict, apperror.CodeValidation, "rule overlaps an enabled rule on the same weekday")
)

// Rule is one recurring weekly availability window of an analyst.
// Minutes are offsets from 00:00 UTC of the weekday; windows never span midnight.
type Rule struct {
	ID          string
	AnalystID   string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	SlotMinutes int
	Enabled     bool
	AutoConfirm bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks the window invariants: 0 <= start < end <= 1440 and at
// least one whole slot fits. A partial trailing slot is allowed; it is simply
// never generated.
func (r *Rule) Validate() error {
	if r.Weekday < time.Sunday || r.Weekday > time.Saturday {
		return apperror.Validation("weekday must be between 0 and 6")
	}
	if r.StartMinute < 0 || r.EndMinute > MinutesPerDay {
		return apperror.Validation("window must lie within a single day (0..1440 minutes)")
	}
	if r.StartMinute >= r.EndMinute {
		return apperror.Validation("start_minute must be before end_minute")
	}
	if r.SlotMinutes <= 0 {
		return apperror.Validation("slot_minutes must be positive")
	}
	if r.SlotMinutes > r.EndMinute-r.StartMinute {
		return apperror.Validation("window is shorter than one slot")
	}
	return nil
}

// SlotCount is the number of whole slots in the window.
func (r *Rule) SlotCount() int {
	if r.SlotMinutes <= 0 || r.EndMinute <= r.StartMinute {
		return 0
	}
	return (r.EndMinute - r.StartMinute) / r.SlotMinutes
}

// Overlaps reports whether two rules share a weekday and intersecting windows.
func (r *Rule) Overlaps(o *Rule) bool {
	return r.Weekday == o.Weekday && r.StartMinute < o.EndMinute && o.StartMinute < r.EndMinute
}
