package request

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

// ByIDRequest is a common struct for endpoints that require an ID path parameter.
type ByIDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ListParams holds the paging parameters shared by every list endpoint.
type ListParams struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1"`
}

// TimeWindow holds an optional [from, to) query window.
type TimeWindow struct {
	From *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To   *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
}

// Validate ensures from is before to when both are present.
func (w *TimeWindow) Validate() error {
	if w.From != nil && w.To != nil && !w.From.Before(*w.To) {
		return apperror.Validation("from must be before to")
	}
	return nil
}
