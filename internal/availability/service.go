package availability

import (
	"context"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

type CreateRequest struct {
	AnalystID   string
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
	SlotMinutes int
	AutoConfirm bool
}

type UpdateRequest struct {
	Weekday     *time.Weekday
	StartMinute *int
	EndMinute   *int
	SlotMinutes *int
	Enabled     *bool
	AutoConfirm *bool
}

type Service interface {
	Create(ctx context.Context, id auth.Identity, req CreateRequest) (*Rule, error)
	GetByID(ctx context.Context, ruleID string) (*Rule, error)
	List(ctx context.Context, id auth.Identity, analystID string, includeDisabled bool) ([]*Rule, error)
	Update(ctx context.Context, id auth.Identity, ruleID string, req UpdateRequest) (*Rule, error)
	// ActiveRules returns the analyst's enabled rules for slot generation.
	ActiveRules(ctx context.Context, analystID string) ([]*Rule, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

// canManage: the analyst themselves or an admin acting on their behalf.
func canManage(id auth.Identity, analystID string) bool {
	return id.IsAdmin() || id.Is(auth.RoleAnalyst, analystID)
}

func (s *service) Create(ctx context.Context, id auth.Identity, req CreateRequest) (*Rule, error) {
	if !canManage(id, req.AnalystID) {
		return nil, ErrPermissionDenied
	}

	rule := &Rule{
		AnalystID:   req.AnalystID,
		Weekday:     req.Weekday,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		SlotMinutes: req.SlotMinutes,
		Enabled:     true,
		AutoConfirm: req.AutoConfirm,
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkOverlap(ctx, rule); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) GetByID(ctx context.Context, ruleID string) (*Rule, error) {
	return s.repo.GetByID(ctx, ruleID)
}

func (s *service) List(ctx context.Context, id auth.Identity, analystID string, includeDisabled bool) ([]*Rule, error) {
	if !canManage(id, analystID) {
		return nil, ErrPermissionDenied
	}
	return s.repo.ListByAnalyst(ctx, analystID, includeDisabled)
}

func (s *service) Update(ctx context.Context, id auth.Identity, ruleID string, req UpdateRequest) (*Rule, error) {
	rule, err := s.repo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if !canManage(id, rule.AnalystID) {
		return nil, ErrPermissionDenied
	}

	if req.Weekday != nil {
		rule.Weekday = *req.Weekday
	}
	if req.StartMinute != nil {
		rule.StartMinute = *req.StartMinute
	}
	if req.EndMinute != nil {
		rule.EndMinute = *req.EndMinute
	}
	if req.SlotMinutes != nil {
		rule.SlotMinutes = *req.SlotMinutes
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.AutoConfirm != nil {
		rule.AutoConfirm = *req.AutoConfirm
	}

	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.Enabled {
		if err := s.checkOverlap(ctx, rule); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *service) ActiveRules(ctx context.Context, analystID string) ([]*Rule, error) {
	return s.repo.ListByAnalyst(ctx, analystID, false)
}

// checkOverlap rejects a window that intersects another enabled rule of the
// same analyst. This keeps rule sets tidy; slot generation stays correct even
// if overlapping rules slip through concurrently.
func (s *service) checkOverlap(ctx context.Context, rule *Rule) error {
	existing, err := s.repo.ListByAnalyst(ctx, rule.AnalystID, false)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == rule.ID {
			continue
		}
		if rule.Overlaps(other) {
			return ErrOverlappingRule
		}
	}
	return nil
}
