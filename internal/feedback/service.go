package feedback

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/metrics"
)

// BookingLookup resolves the booking feedback and notes belong to.
type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*booking.Booking, error)
}

type Service interface {
	SubmitFeedback(ctx context.Context, id auth.Identity, bookingID string, rating int, comment string) (*Feedback, error)
	AddNote(ctx context.Context, id auth.Identity, bookingID, text string) (*Note, error)
	ListNotes(ctx context.Context, id auth.Identity, bookingID string) ([]*Note, error)
	// BackfillFromLegacyNotes converts legacy "[FEEDBACK rating=N]" notes into
	// feedback rows. It is safe to re-run.
	BackfillFromLegacyNotes(ctx context.Context) (BackfillReport, error)

	FeedbackForBookings(ctx context.Context, bookingIDs []string) (map[string][]*Feedback, error)
	NotesForBookings(ctx context.Context, bookingIDs []string) (map[string][]*Note, error)
}

type service struct {
	repo      Repository
	bookings  BookingLookup
	logger    *slog.Logger
	batchSize int
	now       func() time.Time
}

func NewService(repo Repository, bookings BookingLookup, logger *slog.Logger) Service {
	return &service{
		repo:      repo,
		bookings:  bookings,
		logger:    logger,
		batchSize: 200,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) SubmitFeedback(ctx context.Context, id auth.Identity, bookingID string, rating int, comment string) (*Feedback, error) {
	if rating < MinRating || rating > MaxRating {
		return nil, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if utf8.RuneCountInString(comment) > MaxCommentRunes {
		return nil, ErrCommentTooLong
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.Is(auth.RoleInvestor, b.InvestorID) {
		return nil, ErrPermissionDenied
	}
	if booking.EffectiveStatus(b, s.now()) != booking.StatusCompleted {
		return nil, ErrBookingNotCompleted
	}

	f := &Feedback{
		BookingID:  b.ID,
		InvestorID: b.InvestorID,
		AnalystID:  b.AnalystID,
		Rating:     rating,
		Comment:    comment,
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return nil, err
	}
	metrics.ObserveFeedbackSubmitted()
	return f, nil
}

func (s *service) AddNote(ctx context.Context, id auth.Identity, bookingID, text string) (*Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrNoteEmpty
	}
	if utf8.RuneCountInString(text) > MaxNoteRunes {
		return nil, ErrNoteTooLong
	}
	if HasLegacyMarker(text) {
		return nil, ErrLegacyMarker
	}

	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && !b.IsParticipant(id.UserID) {
		return nil, ErrPermissionDenied
	}

	n := &Note{
		BookingID:  b.ID,
		AuthorID:   id.UserID,
		AuthorRole: string(id.Role),
		Text:       text,
	}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *service) ListNotes(ctx context.Context, id auth.Identity, bookingID string) ([]*Note, error) {
	b, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && !b.IsParticipant(id.UserID) {
		return nil, ErrPermissionDenied
	}

	byBooking, err := s.repo.ListNotesByBookingIDs(ctx, []string{b.ID})
	if err != nil {
		return nil, err
	}
	return byBooking[b.ID], nil
}

func (s *service) BackfillFromLegacyNotes(ctx context.Context) (BackfillReport, error) {
	var report BackfillReport
	var cursor NoteCursor

	for {
		notes, err := s.repo.ListLegacyNotes(ctx, cursor, s.batchSize)
		if err != nil {
			return report, err
		}
		if len(notes) == 0 {
			break
		}

		for _, n := range notes {
			report.Scanned++
			result, err := s.backfillNote(ctx, n)
			if err != nil {
				return report, err
			}
			switch result {
			case backfillCreated:
				report.Created++
			case backfillSkipped:
				report.Skipped++
			case backfillMalformed:
				report.Malformed++
			}
			metrics.ObserveBackfillNote(string(result))
		}

		last := notes[len(notes)-1]
		cursor = NoteCursor{CreatedAt: last.CreatedAt, ID: last.ID}
		if len(notes) < s.batchSize {
			break
		}
	}

	s.logger.InfoContext(ctx, "legacy feedback backfill finished",
		"scanned", report.Scanned,
		"created", report.Created,
		"skipped", report.Skipped,
		"malformed", report.Malformed,
	)
	return report, nil
}

type backfillResult string

const (
	backfillCreated   backfillResult = "created"
	backfillSkipped   backfillResult = "skipped"
	backfillMalformed backfillResult = "malformed"
)

func (s *service) backfillNote(ctx context.Context, n *Note) (backfillResult, error) {
	parsed := ParseLegacyNote(n.Text)
	switch parsed.Kind {
	case LegacyNone:
		return backfillSkipped, nil
	case LegacyMalformed:
		s.logger.WarnContext(ctx, "skipping malformed legacy feedback note",
			"note_id", n.ID,
			"booking_id", n.BookingID,
			"reason", parsed.Reason,
		)
		return backfillMalformed, nil
	}

	b, err := s.bookings.GetByID(ctx, n.BookingID)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			s.logger.WarnContext(ctx, "skipping legacy feedback note without booking", "note_id", n.ID, "booking_id", n.BookingID)
			return backfillMalformed, nil
		}
		return "", err
	}

	created, err := s.repo.InsertIfAbsent(ctx, &Feedback{
		BookingID:  b.ID,
		InvestorID: b.InvestorID,
		AnalystID:  b.AnalystID,
		Rating:     parsed.Rating,
		Comment:    parsed.Comment,
		CreatedAt:  n.CreatedAt,
	})
	if err != nil {
		return "", err
	}
	if !created {
		return backfillSkipped, nil
	}
	return backfillCreated, nil
}

func (s *service) FeedbackForBookings(ctx context.Context, bookingIDs []string) (map[string][]*Feedback, error) {
	return s.repo.ListByBookingIDs(ctx, bookingIDs)
}

func (s *service) NotesForBookings(ctx context.Context, bookingIDs []string) (map[string][]*Note, error) {
	return s.repo.ListNotesByBookingIDs(ctx, bookingIDs)
}
