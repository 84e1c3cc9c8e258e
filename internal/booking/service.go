package booking

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	"github.com/nekogravitycat/analyst-scheduler/internal/metrics"
	"github.com/nekogravitycat/analyst-scheduler/internal/notify"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/analyst-scheduler/internal/video"
)

// RuleSource supplies an analyst's enabled availability rules.
type RuleSource interface {
	ActiveRules(ctx context.Context, analystID string) ([]*availability.Rule, error)
}

type CreateRequest struct {
	InvestorID string
	AnalystID  string
	StartUTC   time.Time
	EndUTC     time.Time
	PriceQuote *int64
}

type Service interface {
	CreateBooking(ctx context.Context, id auth.Identity, req CreateRequest) (*Booking, error)
	GetBooking(ctx context.Context, id auth.Identity, bookingID string) (*Booking, error)
	UpdateStatus(ctx context.Context, id auth.Identity, bookingID string, status Status) (*Booking, error)
	AttachRecordingURL(ctx context.Context, id auth.Identity, bookingID, recordingURL string) (*Booking, error)
	// RetryPendingVideoLinks provisions links for up to limit bookings still
	// waiting on the video provider and returns how many succeeded. Bookings
	// created within twice the provider timeout are left alone.
	RetryPendingVideoLinks(ctx context.Context, limit int) (int, error)
	// Slots returns the free slots of an analyst within [from, to), past ones included.
	Slots(ctx context.Context, analystID string, from, to time.Time) ([]TimeSlot, error)
}

type service struct {
	repo         Repository
	rules        RuleSource
	video        video.Provider
	notifier     notify.Dispatcher
	logger       *slog.Logger
	videoTimeout time.Duration
	now          func() time.Time
}

func NewService(
	repo Repository,
	rules RuleSource,
	videoProvider video.Provider,
	notifier notify.Dispatcher,
	logger *slog.Logger,
	videoTimeout time.Duration,
) Service {
	if videoTimeout <= 0 {
		videoTimeout = 5 * time.Second
	}
	return &service{
		repo:         repo,
		rules:        rules,
		video:        videoProvider,
		notifier:     notifier,
		logger:       logger,
		videoTimeout: videoTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) CreateBooking(ctx context.Context, id auth.Identity, req CreateRequest) (*Booking, error) {
	if req.InvestorID == "" || req.AnalystID == "" {
		return nil, apperror.Validation("investor_id and analyst_id are required")
	}
	// Investors book for themselves; admins book on an investor's behalf.
	if !id.IsAdmin() && !id.Is(auth.RoleInvestor, req.InvestorID) {
		return nil, ErrPermissionDenied
	}

	start, end := req.StartUTC.UTC(), req.EndUTC.UTC()
	if !start.Before(end) {
		metrics.ObserveBookingCreate(metrics.OutcomeRejected)
		return nil, ErrInvalidTimeRange
	}
	if start.Before(s.now()) {
		metrics.ObserveBookingCreate(metrics.OutcomeRejected)
		return nil, ErrStartTimePast
	}

	slot, err := s.matchSlot(ctx, req.AnalystID, start, end)
	if err != nil {
		if errors.Is(err, ErrSlotUnavailable) {
			metrics.ObserveBookingCreate(metrics.OutcomeUnavailable)
		} else {
			metrics.ObserveBookingCreate(metrics.OutcomeError)
		}
		return nil, err
	}

	b := &Booking{
		InvestorID:   req.InvestorID,
		AnalystID:    req.AnalystID,
		StartUTC:     start,
		EndUTC:       end,
		Status:       StatusRequested,
		PriceQuote:   req.PriceQuote,
		VideoPending: true,
	}
	if slot.AutoConfirm {
		b.Status = StatusConfirmed
	}

	// The unique index on live bookings is the only guard against double booking.
	if err := s.repo.Create(ctx, b); err != nil {
		if errors.Is(err, ErrSlotAlreadyBooked) {
			metrics.ObserveBookingCreate(metrics.OutcomeAlreadyBooked)
		} else {
			metrics.ObserveBookingCreate(metrics.OutcomeError)
		}
		return nil, err
	}
	metrics.ObserveBookingCreate(metrics.OutcomeCreated)
	s.logger.InfoContext(ctx, "booking created",
		"booking_id", b.ID,
		"analyst_id", b.AnalystID,
		"investor_id", b.InvestorID,
		"status", b.Status,
	)

	s.provisionVideo(ctx, b)

	s.emit(notify.EventBookingCreated, b)
	if b.Status == StatusConfirmed {
		s.emit(notify.EventBookingConfirmed, b)
	}
	return b, nil
}

// matchSlot requires [start, end) to be a generated slot of the analyst on
// that UTC day. Existing bookings are deliberately not consulted here; the
// insert reports a taken slot.
func (s *service) matchSlot(ctx context.Context, analystID string, start, end time.Time) (TimeSlot, error) {
	rules, err := s.rules.ActiveRules(ctx, analystID)
	if err != nil {
		return TimeSlot{}, err
	}

	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(analystID, day, day.AddDate(0, 0, 1), rules, nil)
	slot, ok := FindSlot(slots, start, end)
	if !ok {
		return TimeSlot{}, ErrSlotUnavailable
	}
	return slot, nil
}

// provisionVideo never fails the booking. On any error the booking keeps
// video_pending and the retry job picks it up.
func (s *service) provisionVideo(ctx context.Context, b *Booking) bool {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.videoTimeout)
	defer cancel()

	started := time.Now()
	meeting, err := s.video.CreateMeeting(callCtx, b.ID)
	elapsed := time.Since(started)
	if err != nil {
		metrics.ObserveVideoProvision(elapsed, metrics.VideoFailed)
		s.logger.WarnContext(ctx, "video provisioning failed", "booking_id", b.ID, "error", err)
		return false
	}

	outcome := metrics.VideoProvisioned
	links := VideoLinks{
		JoinURL:           meeting.JoinURL,
		HostURL:           meeting.HostURL,
		ProviderMeetingID: meeting.ProviderMeetingID,
	}
	if links.JoinURL == "" || links.HostURL == "" {
		outcome = metrics.VideoPlaceholder
		if links.JoinURL == "" {
			links.JoinURL = "/sessions/" + b.ID + "/join"
		}
		if links.HostURL == "" {
			links.HostURL = "/sessions/" + b.ID + "/host"
		}
	}

	applied, err := s.repo.SetVideoLinks(callCtx, b.ID, links)
	if err != nil {
		metrics.ObserveVideoProvision(elapsed, metrics.VideoFailed)
		s.logger.WarnContext(ctx, "persist video links failed", "booking_id", b.ID, "error", err)
		return false
	}
	if !applied {
		// Another call stored links first; report those, not ours.
		s.logger.InfoContext(ctx, "video links already provisioned", "booking_id", b.ID)
		if stored, err := s.repo.GetByID(callCtx, b.ID); err == nil {
			b.VideoJoinURL = stored.VideoJoinURL
			b.VideoHostURL = stored.VideoHostURL
			b.ProviderMeetingID = stored.ProviderMeetingID
			b.VideoPending = stored.VideoPending
		}
		return false
	}
	metrics.ObserveVideoProvision(elapsed, outcome)

	b.VideoJoinURL = &links.JoinURL
	b.VideoHostURL = &links.HostURL
	if links.ProviderMeetingID != "" {
		b.ProviderMeetingID = &links.ProviderMeetingID
	}
	b.VideoPending = false
	return true
}

func (s *service) GetBooking(ctx context.Context, id auth.Identity, bookingID string) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && !b.IsParticipant(id.UserID) {
		return nil, ErrPermissionDenied
	}
	return b, nil
}

func (s *service) UpdateStatus(ctx context.Context, id auth.Identity, bookingID string, status Status) (*Booking, error) {
	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := CheckTransition(b, id, status, s.now()); err != nil {
		return nil, err
	}

	// Conditional on the status just read; a concurrent change loses here.
	updated, err := s.repo.UpdateStatus(ctx, b.ID, b.Status, status)
	if err != nil {
		return nil, err
	}
	metrics.ObserveTransition(string(status))
	s.logger.InfoContext(ctx, "booking status changed",
		"booking_id", b.ID,
		"from", b.Status,
		"to", status,
		"actor_id", id.UserID,
		"actor_role", id.Role,
	)

	switch status {
	case StatusConfirmed:
		s.emit(notify.EventBookingConfirmed, updated)
	case StatusCancelled:
		s.emit(notify.EventBookingCancelled, updated)
	}
	return updated, nil
}

func (s *service) AttachRecordingURL(ctx context.Context, id auth.Identity, bookingID, recordingURL string) (*Booking, error) {
	if err := validateRecordingURL(recordingURL); err != nil {
		return nil, err
	}

	b, err := s.repo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() && !id.Is(auth.RoleAnalyst, b.AnalystID) {
		return nil, ErrPermissionDenied
	}

	if b.RecordingURL != nil {
		if *b.RecordingURL == recordingURL {
			return b, nil
		}
		return nil, ErrRecordingAlreadySet
	}

	set, err := s.repo.AttachRecordingURL(ctx, b.ID, recordingURL)
	if err != nil {
		return nil, err
	}
	if !set {
		// Someone attached a url between our read and write.
		current, err := s.repo.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if current.RecordingURL != nil && *current.RecordingURL == recordingURL {
			return current, nil
		}
		return nil, ErrRecordingAlreadySet
	}

	b.RecordingURL = &recordingURL
	s.emit(notify.EventRecordingReady, b)
	return b, nil
}

func validateRecordingURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperror.Validation("recording url must be an absolute http(s) url")
	}
	return nil
}

func (s *service) RetryPendingVideoLinks(ctx context.Context, limit int) (int, error) {
	// Younger bookings may still be inside their own create call.
	cutoff := s.now().Add(-2 * s.videoTimeout)
	pending, err := s.repo.ListPendingVideo(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}

	provisioned := 0
	for _, b := range pending {
		if ctx.Err() != nil {
			return provisioned, ctx.Err()
		}
		if s.provisionVideo(ctx, b) {
			provisioned++
		}
	}
	if len(pending) > 0 {
		s.logger.InfoContext(ctx, "video link retry finished", "pending", len(pending), "provisioned", provisioned)
	}
	return provisioned, nil
}

func (s *service) Slots(ctx context.Context, analystID string, from, to time.Time) ([]TimeSlot, error) {
	rules, err := s.rules.ActiveRules(ctx, analystID)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.ListActiveInRange(ctx, analystID, from, to)
	if err != nil {
		return nil, err
	}
	return GenerateSlots(analystID, from, to, rules, existing), nil
}

func (s *service) emit(eventType string, b *Booking) {
	s.notifier.Dispatch(notify.Event{
		Type:       eventType,
		BookingID:  b.ID,
		InvestorID: b.InvestorID,
		AnalystID:  b.AnalystID,
		StartUTC:   b.StartUTC,
		EndUTC:     b.EndUTC,
		Status:     string(b.Status),
		OccurredAt: s.now(),
	})
}
