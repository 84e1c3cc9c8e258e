package booking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	"github.com/nekogravitycat/analyst-scheduler/internal/notify"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/apperror"
	"github.com/nekogravitycat/analyst-scheduler/internal/video"
)

type fixture struct {
	svc      *service
	repo     *memRepository
	video    *stubVideo
	notifier *recordingDispatcher
	now      time.Time
}

func newFixture(t *testing.T, rules ...*availability.Rule) *fixture {
	t.Helper()
	if len(rules) == 0 {
		rules = []*availability.Rule{mondayRule("r1", 540, 660, 30)}
	}
	f := &fixture{
		repo:     newMemRepository(),
		video:    &stubVideo{meeting: video.Meeting{JoinURL: "https://v.example.com/j", HostURL: "https://v.example.com/h", ProviderMeetingID: "m-1"}},
		notifier: &recordingDispatcher{},
		// Sunday noon, the day before the test Monday.
		now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = NewService(f.repo, staticRules(rules), f.video, f.notifier, logger, time.Second).(*service)
	f.svc.now = func() time.Time { return f.now }
	f.repo.now = f.svc.now
	return f
}

var (
	investorA   = auth.Identity{UserID: "inv-a", Role: auth.RoleInvestor}
	investorB   = auth.Identity{UserID: "inv-b", Role: auth.RoleInvestor}
	analystUser = auth.Identity{UserID: testAnalyst, Role: auth.RoleAnalyst}
	adminID     = auth.Identity{UserID: "admin", Role: auth.RoleAdmin}
)

func slotRequest(investor string) CreateRequest {
	return CreateRequest{
		InvestorID: investor,
		AnalystID:  testAnalyst,
		StartUTC:   at(monday, 9, 30),
		EndUTC:     at(monday, 10, 0),
	}
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Create: Success (Investor)", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		assert.NotEmpty(t, b.ID)
		assert.Equal(t, StatusRequested, b.Status)
		assert.False(t, b.VideoPending)
		require.NotNil(t, b.VideoJoinURL)
		assert.Equal(t, "https://v.example.com/j", *b.VideoJoinURL)
		assert.Equal(t, []string{notify.EventBookingCreated}, f.notifier.types())

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, stored.VideoPending)
		assert.Equal(t, "m-1", *stored.ProviderMeetingID)
	})

	t.Run("Create: Auto Confirm From Rule", func(t *testing.T) {
		rule := mondayRule("r1", 540, 660, 30)
		rule.AutoConfirm = true
		f := newFixture(t, rule)

		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, []string{notify.EventBookingCreated, notify.EventBookingConfirmed}, f.notifier.types())
	})

	t.Run("Create: Success (Admin On Behalf)", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, adminID, slotRequest(investorA.UserID))
		require.NoError(t, err)
		assert.Equal(t, investorA.UserID, b.InvestorID)
	})

	t.Run("Create: Permission Denied", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateBooking(ctx, investorB, slotRequest(investorA.UserID))
		assert.ErrorIs(t, err, ErrPermissionDenied)

		_, err = f.svc.CreateBooking(ctx, analystUser, slotRequest(investorA.UserID))
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("Create: Validation", func(t *testing.T) {
		f := newFixture(t)

		req := slotRequest(investorA.UserID)
		req.EndUTC = req.StartUTC
		_, err := f.svc.CreateBooking(ctx, investorA, req)
		assert.ErrorIs(t, err, apperror.ErrValidation)

		f.now = at(monday, 10, 0)
		_, err = f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		assert.ErrorIs(t, err, apperror.ErrValidation)
	})

	t.Run("Create: Slot Unavailable", func(t *testing.T) {
		f := newFixture(t)

		req := slotRequest(investorA.UserID)
		req.StartUTC = at(monday, 9, 15)
		req.EndUTC = at(monday, 9, 45)
		_, err := f.svc.CreateBooking(ctx, investorA, req)
		assert.ErrorIs(t, err, ErrSlotUnavailable)

		req.StartUTC = at(monday, 11, 0)
		req.EndUTC = at(monday, 11, 30)
		_, err = f.svc.CreateBooking(ctx, investorA, req)
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("Create: Slot Already Booked", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		_, err = f.svc.CreateBooking(ctx, investorB, slotRequest(investorB.UserID))
		assert.ErrorIs(t, err, ErrSlotAlreadyBooked)
	})
}

func TestCreateBookingConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	var created []*Booking
	var conflicts int

	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		id := investorA
		if i%2 == 1 {
			id = investorB
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			b, err := f.svc.CreateBooking(ctx, id, slotRequest(id.UserID))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created = append(created, b)
			case errors.Is(err, ErrSlotAlreadyBooked):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Len(t, created, 1)
	assert.Equal(t, attempts-1, conflicts)
}

func TestCancelFreesSlotForRebooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, investorA, b.ID, StatusCancelled)
	require.NoError(t, err)

	slots, err := f.svc.Slots(ctx, testAnalyst, monday, monday.AddDate(0, 0, 1))
	require.NoError(t, err)
	_, free := FindSlot(slots, b.StartUTC, b.EndUTC)
	assert.True(t, free)

	again, err := f.svc.CreateBooking(ctx, investorB, slotRequest(investorB.UserID))
	require.NoError(t, err)
	assert.NotEqual(t, b.ID, again.ID)
}

func TestVideoProvisioning(t *testing.T) {
	ctx := context.Background()

	t.Run("Provider Failure Keeps Booking Pending", func(t *testing.T) {
		f := newFixture(t)
		f.video.set(video.Meeting{}, errors.New("provider down"))

		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err, "provider failure must not fail the booking")
		assert.True(t, b.VideoPending)
		assert.Nil(t, b.VideoJoinURL)

		f.video.set(video.Meeting{JoinURL: "https://v.example.com/j2", HostURL: "https://v.example.com/h2"}, nil)
		n, err := f.svc.RetryPendingVideoLinks(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, n, "a fresh booking is left to its create call")

		f.now = f.now.Add(time.Minute)
		n, err = f.svc.RetryPendingVideoLinks(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.False(t, stored.VideoPending)
		assert.Equal(t, "https://v.example.com/j2", *stored.VideoJoinURL)

		n, err = f.svc.RetryPendingVideoLinks(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Empty Links Become Placeholders", func(t *testing.T) {
		f := newFixture(t)
		f.video.set(video.Meeting{}, nil)

		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)
		assert.Equal(t, "/sessions/"+b.ID+"/join", *b.VideoJoinURL)
		assert.Equal(t, "/sessions/"+b.ID+"/host", *b.VideoHostURL)
		assert.Nil(t, b.ProviderMeetingID)
	})

	t.Run("Slow Provider Is Bounded", func(t *testing.T) {
		f := newFixture(t)
		f.svc.video = slowVideo{}
		f.svc.videoTimeout = 20 * time.Millisecond

		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)
		assert.True(t, b.VideoPending)
	})
}

func TestVideoProvisioningRace(t *testing.T) {
	ctx := context.Background()

	t.Run("Retry Skips Booking Still Being Created", func(t *testing.T) {
		f := newFixture(t)
		blocking := newBlockingVideo()
		f.svc.video = blocking

		type result struct {
			b   *Booking
			err error
		}
		done := make(chan result, 1)
		go func() {
			b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
			done <- result{b, err}
		}()

		<-blocking.started
		n, err := f.svc.RetryPendingVideoLinks(ctx, 10)
		require.NoError(t, err)
		assert.Zero(t, n)

		close(blocking.release)
		res := <-done
		require.NoError(t, res.err)

		assert.Equal(t, 1, blocking.callCount())
		require.NotNil(t, res.b.VideoJoinURL)
		stored, err := f.repo.GetByID(ctx, res.b.ID)
		require.NoError(t, err)
		assert.Equal(t, *stored.VideoJoinURL, *res.b.VideoJoinURL)
		assert.False(t, stored.VideoPending)
	})

	t.Run("Late Writer Keeps Stored Links", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)
		require.Equal(t, "m-1", *b.ProviderMeetingID)

		// A copy read while the booking was still pending.
		stale := clone(b)
		stale.VideoPending = true
		stale.VideoJoinURL, stale.VideoHostURL, stale.ProviderMeetingID = nil, nil, nil

		f.video.set(video.Meeting{JoinURL: "https://v.example.com/j2", HostURL: "https://v.example.com/h2", ProviderMeetingID: "m-2"}, nil)
		assert.False(t, f.svc.provisionVideo(ctx, stale))

		require.NotNil(t, stale.ProviderMeetingID)
		assert.Equal(t, "m-1", *stale.ProviderMeetingID)
		assert.Equal(t, "https://v.example.com/j", *stale.VideoJoinURL)
		assert.False(t, stale.VideoPending)

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, "m-1", *stored.ProviderMeetingID)
	})
}

// blockingVideo holds every call until release is closed.
type blockingVideo struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingVideo() *blockingVideo {
	return &blockingVideo{started: make(chan struct{}), release: make(chan struct{})}
}

func (v *blockingVideo) CreateMeeting(ctx context.Context, bookingID string) (video.Meeting, error) {
	v.mu.Lock()
	v.calls++
	v.mu.Unlock()
	v.once.Do(func() { close(v.started) })

	select {
	case <-v.release:
		return video.Meeting{JoinURL: "https://v.example.com/j/" + bookingID, HostURL: "https://v.example.com/h/" + bookingID}, nil
	case <-ctx.Done():
		return video.Meeting{}, ctx.Err()
	}
}

func (v *blockingVideo) callCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}

type slowVideo struct{}

func (slowVideo) CreateMeeting(ctx context.Context, _ string) (video.Meeting, error) {
	<-ctx.Done()
	return video.Meeting{}, ctx.Err()
}

func TestUpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("Confirm Then Cancel", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		confirmed, err := f.svc.UpdateStatus(ctx, analystUser, b.ID, StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, confirmed.Status)

		cancelled, err := f.svc.UpdateStatus(ctx, investorA, b.ID, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, cancelled.Status)

		_, err = f.svc.UpdateStatus(ctx, adminID, b.ID, StatusConfirmed)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		assert.Equal(t, []string{
			notify.EventBookingCreated,
			notify.EventBookingConfirmed,
			notify.EventBookingCancelled,
		}, f.notifier.types())
	})

	t.Run("Too Late To Cancel", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		f.now = at(monday, 9, 45)
		_, err = f.svc.UpdateStatus(ctx, investorA, b.ID, StatusCancelled)
		assert.ErrorIs(t, err, ErrTooLateToCancel)
	})

	t.Run("Cancel Completed Is Too Late", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)
		_, err = f.svc.UpdateStatus(ctx, analystUser, b.ID, StatusConfirmed)
		require.NoError(t, err)

		f.now = at(monday, 11, 0)
		_, err = f.svc.UpdateStatus(ctx, adminID, b.ID, StatusCancelled)
		assert.ErrorIs(t, err, ErrTooLateToCancel)
	})

	t.Run("Confirm After End Is Rejected", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		f.now = at(monday, 10, 0)
		_, err = f.svc.UpdateStatus(ctx, analystUser, b.ID, StatusConfirmed)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		stored, err := f.repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, StatusRequested, stored.Status)
	})

	t.Run("Lost Race Is Invalid Transition", func(t *testing.T) {
		f := newFixture(t)
		b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
		require.NoError(t, err)

		// Another writer cancels between our read and write.
		_, err = f.repo.UpdateStatus(ctx, b.ID, StatusRequested, StatusCancelled)
		require.NoError(t, err)
		_, err = f.repo.UpdateStatus(ctx, b.ID, StatusRequested, StatusConfirmed)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("Not Found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.UpdateStatus(ctx, adminID, "missing", StatusConfirmed)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestAttachRecordingURL(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
	require.NoError(t, err)

	_, err = f.svc.AttachRecordingURL(ctx, analystUser, b.ID, "not a url")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.AttachRecordingURL(ctx, analystUser, b.ID, "ftp://files.example.com/rec.mp4")
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = f.svc.AttachRecordingURL(ctx, investorA, b.ID, "https://cdn.example.com/rec.mp4")
	assert.ErrorIs(t, err, ErrPermissionDenied)

	updated, err := f.svc.AttachRecordingURL(ctx, analystUser, b.ID, "https://cdn.example.com/rec.mp4")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/rec.mp4", *updated.RecordingURL)

	again, err := f.svc.AttachRecordingURL(ctx, adminID, b.ID, "https://cdn.example.com/rec.mp4")
	require.NoError(t, err, "same url is idempotent")
	assert.Equal(t, "https://cdn.example.com/rec.mp4", *again.RecordingURL)

	_, err = f.svc.AttachRecordingURL(ctx, adminID, b.ID, "https://cdn.example.com/other.mp4")
	assert.ErrorIs(t, err, ErrRecordingAlreadySet)
}

func TestGetBookingPermissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, err := f.svc.CreateBooking(ctx, investorA, slotRequest(investorA.UserID))
	require.NoError(t, err)

	for _, id := range []auth.Identity{investorA, analystUser, adminID} {
		got, err := f.svc.GetBooking(ctx, id, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
	}

	_, err = f.svc.GetBooking(ctx, investorB, b.ID)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}
