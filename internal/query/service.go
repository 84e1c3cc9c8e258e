package query

import (
	"context"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200

	// MaxSlotWindow bounds AvailableSlots ranges.
	MaxSlotWindow     = 62 * 24 * time.Hour
	DefaultSlotWindow = 14 * 24 * time.Hour
)

var (
	ErrPermissionDenied = booking.ErrPermissionDenied
	ErrWindowTooLarge   = apperror.Validation("slot window must not exceed 62 days")
	ErrInvalidWindow    = apperror.Validation("from must be before to")
)

type Filter struct {
	From         *time.Time
	To           *time.Time
	Status       booking.Status
	IncludeNotes bool
	Page         int
	PageSize     int
}

// BookingView is a booking as dashboards see it.
type BookingView struct {
	Booking         *booking.Booking
	EffectiveStatus booking.Status
	Feedback        []*feedback.Feedback
	// Notes is nil unless requested.
	Notes []*feedback.Note
}

type Page struct {
	Items    []BookingView
	Page     int
	PageSize int
	Total    int
}

// BookingReader lists stored bookings.
type BookingReader interface {
	List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, int, error)
}

// SlotSource produces free slots for an analyst.
type SlotSource interface {
	Slots(ctx context.Context, analystID string, from, to time.Time) ([]booking.TimeSlot, error)
}

// ArtifactReader loads feedback and notes for a set of bookings.
type ArtifactReader interface {
	FeedbackForBookings(ctx context.Context, bookingIDs []string) (map[string][]*feedback.Feedback, error)
	NotesForBookings(ctx context.Context, bookingIDs []string) (map[string][]*feedback.Note, error)
}

type Service interface {
	ListForAnalyst(ctx context.Context, id auth.Identity, analystID string, f Filter) (Page, error)
	ListForInvestor(ctx context.Context, id auth.Identity, investorID string, f Filter) (Page, error)
	// ListUpcoming lists non-cancelled bookings that have not ended yet,
	// scoped to the caller unless the caller is an admin.
	ListUpcoming(ctx context.Context, id auth.Identity, f Filter) (Page, error)
	// AvailableSlots returns free slots in [from, to) that start in the future.
	AvailableSlots(ctx context.Context, analystID string, from, to *time.Time) ([]booking.TimeSlot, error)
}

type service struct {
	bookings  BookingReader
	slots     SlotSource
	artifacts ArtifactReader
	now       func() time.Time
}

func NewService(bookings BookingReader, slots SlotSource, artifacts ArtifactReader) Service {
	return &service{
		bookings:  bookings,
		slots:     slots,
		artifacts: artifacts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) ListForAnalyst(ctx context.Context, id auth.Identity, analystID string, f Filter) (Page, error) {
	if !id.IsAdmin() && !id.Is(auth.RoleAnalyst, analystID) {
		return Page{}, ErrPermissionDenied
	}
	return s.list(ctx, booking.Filter{AnalystID: analystID}, f)
}

func (s *service) ListForInvestor(ctx context.Context, id auth.Identity, investorID string, f Filter) (Page, error) {
	if !id.IsAdmin() && !id.Is(auth.RoleInvestor, investorID) {
		return Page{}, ErrPermissionDenied
	}
	return s.list(ctx, booking.Filter{InvestorID: investorID}, f)
}

func (s *service) ListUpcoming(ctx context.Context, id auth.Identity, f Filter) (Page, error) {
	now := s.now()
	scope := booking.Filter{
		EndAfter:      &now,
		ExcludeStatus: []booking.Status{booking.StatusCancelled},
	}
	switch id.Role {
	case auth.RoleAdmin:
	case auth.RoleAnalyst:
		scope.AnalystID = id.UserID
	case auth.RoleInvestor:
		scope.InvestorID = id.UserID
	default:
		return Page{}, ErrPermissionDenied
	}
	return s.list(ctx, scope, f)
}

func (s *service) list(ctx context.Context, scope booking.Filter, f Filter) (Page, error) {
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return Page{}, ErrInvalidWindow
	}

	page, size := normalizePaging(f.Page, f.PageSize)
	scope.From = f.From
	scope.To = f.To
	scope.Status = f.Status
	scope.Now = s.now()
	scope.Page = page
	scope.PageSize = size

	bookings, total, err := s.bookings.List(ctx, scope)
	if err != nil {
		return Page{}, err
	}

	ids := make([]string, len(bookings))
	for i, b := range bookings {
		ids[i] = b.ID
	}

	fb, err := s.artifacts.FeedbackForBookings(ctx, ids)
	if err != nil {
		return Page{}, err
	}
	var notes map[string][]*feedback.Note
	if f.IncludeNotes {
		if notes, err = s.artifacts.NotesForBookings(ctx, ids); err != nil {
			return Page{}, err
		}
	}

	items := make([]BookingView, len(bookings))
	for i, b := range bookings {
		items[i] = BookingView{
			Booking:         b,
			EffectiveStatus: booking.EffectiveStatus(b, scope.Now),
			Feedback:        fb[b.ID],
		}
		if f.IncludeNotes {
			items[i].Notes = notes[b.ID]
			if items[i].Notes == nil {
				items[i].Notes = []*feedback.Note{}
			}
		}
	}

	return Page{Items: items, Page: page, PageSize: size, Total: total}, nil
}

func normalizePaging(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

func (s *service) AvailableSlots(ctx context.Context, analystID string, from, to *time.Time) ([]booking.TimeSlot, error) {
	now := s.now()

	start := now
	if from != nil {
		start = from.UTC()
	}
	end := start.Add(DefaultSlotWindow)
	if to != nil {
		end = to.UTC()
	}
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}
	if end.Sub(start) > MaxSlotWindow {
		return nil, ErrWindowTooLarge
	}

	slots, err := s.slots.Slots(ctx, analystID, start, end)
	if err != nil {
		return nil, err
	}

	out := slots[:0]
	for _, slot := range slots {
		if slot.StartUTC.Before(now) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}
