package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
	"github.com/nekogravitycat/analyst-scheduler/internal/notify"
	"github.com/nekogravitycat/analyst-scheduler/internal/video"
)

// memRepository emulates the bookings table, including the partial unique
// index on live (analyst_id, start_utc, end_utc).
type memRepository struct {
	mu       sync.Mutex
	seq      int
	bookings map[string]*Booking
	now      func() time.Time
}

func newMemRepository() *memRepository {
	return &memRepository{bookings: map[string]*Booking{}, now: time.Now}
}

func clone(b *Booking) *Booking {
	cp := *b
	return &cp
}

func (m *memRepository) Create(_ context.Context, b *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.bookings {
		if other.Status != StatusCancelled && other.AnalystID == b.AnalystID &&
			other.StartUTC.Equal(b.StartUTC) && other.EndUTC.Equal(b.EndUTC) {
			return ErrSlotAlreadyBooked
		}
	}
	m.seq++
	b.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", m.seq)
	b.CreatedAt = m.now()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = clone(b)
	return nil
}

func (m *memRepository) GetByID(_ context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(b), nil
}

func (m *memRepository) List(_ context.Context, f Filter) ([]*Booking, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Booking
	for _, b := range m.bookings {
		if f.InvestorID != "" && b.InvestorID != f.InvestorID {
			continue
		}
		if f.AnalystID != "" && b.AnalystID != f.AnalystID {
			continue
		}
		if f.Status != "" && EffectiveStatus(b, f.Now) != f.Status {
			continue
		}
		all = append(all, clone(b))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartUTC.Before(all[j].StartUTC) })
	return all, len(all), nil
}

func (m *memRepository) ListActiveInRange(_ context.Context, analystID string, from, to time.Time) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.AnalystID == analystID && b.Status != StatusCancelled && b.StartUTC.Before(to) && b.EndUTC.After(from) {
			out = append(out, clone(b))
		}
	}
	return out, nil
}

func (m *memRepository) UpdateStatus(_ context.Context, id string, from, to Status) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrInvalidTransition
	}
	b.Status = to
	b.UpdatedAt = m.now()
	return clone(b), nil
}

func (m *memRepository) SetVideoLinks(_ context.Context, id string, links VideoLinks) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || !b.VideoPending {
		return false, nil
	}
	b.VideoJoinURL = &links.JoinURL
	b.VideoHostURL = &links.HostURL
	if links.ProviderMeetingID != "" {
		b.ProviderMeetingID = &links.ProviderMeetingID
	}
	b.VideoPending = false
	return true, nil
}

func (m *memRepository) ListPendingVideo(_ context.Context, createdBefore time.Time, limit int) ([]*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Booking
	for _, b := range m.bookings {
		if b.VideoPending && b.Status != StatusCancelled && b.CreatedAt.Before(createdBefore) {
			out = append(out, clone(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memRepository) AttachRecordingURL(_ context.Context, id, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.RecordingURL != nil {
		return false, nil
	}
	b.RecordingURL = &url
	return true, nil
}

type staticRules []*availability.Rule

func (r staticRules) ActiveRules(_ context.Context, analystID string) ([]*availability.Rule, error) {
	var out []*availability.Rule
	for _, rule := range r {
		if rule.AnalystID == analystID && rule.Enabled {
			out = append(out, rule)
		}
	}
	return out, nil
}

type stubVideo struct {
	mu      sync.Mutex
	meeting video.Meeting
	err     error
	calls   int
}

func (s *stubVideo) CreateMeeting(ctx context.Context, bookingID string) (video.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return video.Meeting{}, s.err
	}
	return s.meeting, nil
}

func (s *stubVideo) set(m video.Meeting, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meeting, s.err = m, err
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *recordingDispatcher) Dispatch(e notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, e)
}

func (d *recordingDispatcher) Close() {}

func (d *recordingDispatcher) types() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.events))
	for i, e := range d.events {
		out[i] = e.Type
	}
	return out
}
