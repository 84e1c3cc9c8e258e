package http

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
)

type RuleResponse struct {
	ID          string    `json:"id"`
	AnalystID   string    `json:"analyst_id"`
	Weekday     int       `json:"weekday"`
	StartMinute int       `json:"start_minute"`
	EndMinute   int       `json:"end_minute"`
	SlotMinutes int       `json:"slot_minutes"`
	SlotCount   int       `json:"slot_count"`
	Enabled     bool      `json:"enabled"`
	AutoConfirm bool      `json:"auto_confirm"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func NewRuleResponse(r *availability.Rule) RuleResponse {
	return RuleResponse{
		ID:          r.ID,
		AnalystID:   r.AnalystID,
		Weekday:     int(r.Weekday),
		StartMinute: r.StartMinute,
		EndMinute:   r.EndMinute,
		SlotMinutes: r.SlotMinutes,
		SlotCount:   r.SlotCount(),
		Enabled:     r.Enabled,
		AutoConfirm: r.AutoConfirm,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// CreateRuleRequest uses pointers so that 0 (Sunday, midnight) is distinguishable from absent.
type CreateRuleRequest struct {
	Weekday     *int `json:"weekday" binding:"required,min=0,max=6"`
	StartMinute *int `json:"start_minute" binding:"required,min=0,max=1440"`
	EndMinute   *int `json:"end_minute" binding:"required,min=0,max=1440"`
	SlotMinutes int  `json:"slot_minutes" binding:"required,min=1"`
	AutoConfirm bool `json:"auto_confirm"`
}

type UpdateRuleRequest struct {
	Weekday     *int  `json:"weekday" binding:"omitempty,min=0,max=6"`
	StartMinute *int  `json:"start_minute" binding:"omitempty,min=0,max=1440"`
	EndMinute   *int  `json:"end_minute" binding:"omitempty,min=0,max=1440"`
	SlotMinutes *int  `json:"slot_minutes" binding:"omitempty,min=1"`
	Enabled     *bool `json:"enabled"`
	AutoConfirm *bool `json:"auto_confirm"`
}

type ListRulesQuery struct {
	IncludeDisabled bool `form:"include_disabled"`
}
