package booking

import (
	"sort"
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/availability"
)

// TimeSlot is one bookable window produced from an availability rule.
type TimeSlot struct {
	StartUTC    time.Time
	EndUTC      time.Time
	RuleID      string
	AutoConfirm bool
}

// GenerateSlots expands the analyst's enabled weekly rules into concrete UTC
// slots fully contained in [rangeStart, rangeEnd). Slots that exactly match a
// requested or confirmed booking are removed. The result is sorted by start
// and never overlaps: when rules overlap, the earlier candidate wins (ties by
// end, then rule id). It performs no I/O and reads no clock.
func GenerateSlots(analystID string, rangeStart, rangeEnd time.Time, rules []*availability.Rule, existing []*Booking) []TimeSlot {
	rangeStart = rangeStart.UTC()
	rangeEnd = rangeEnd.UTC()
	if !rangeStart.Before(rangeEnd) {
		return nil
	}

	byWeekday := make(map[time.Weekday][]*availability.Rule)
	for _, r := range rules {
		if r == nil || !r.Enabled || r.AnalystID != analystID || r.SlotMinutes <= 0 {
			continue
		}
		byWeekday[r.Weekday] = append(byWeekday[r.Weekday], r)
	}
	if len(byWeekday) == 0 {
		return nil
	}

	type key struct{ start, end int64 }
	taken := make(map[key]struct{}, len(existing))
	for _, b := range existing {
		if b == nil || b.AnalystID != analystID {
			continue
		}
		if b.Status == StatusRequested || b.Status == StatusConfirmed {
			taken[key{b.StartUTC.UnixNano(), b.EndUTC.UnixNano()}] = struct{}{}
		}
	}

	var candidates []TimeSlot
	day := time.Date(rangeStart.Year(), rangeStart.Month(), rangeStart.Day(), 0, 0, 0, 0, time.UTC)
	for ; day.Before(rangeEnd); day = day.AddDate(0, 0, 1) {
		for _, r := range byWeekday[day.Weekday()] {
			step := time.Duration(r.SlotMinutes) * time.Minute
			windowEnd := day.Add(time.Duration(r.EndMinute) * time.Minute)
			for start := day.Add(time.Duration(r.StartMinute) * time.Minute); !start.Add(step).After(windowEnd); start = start.Add(step) {
				end := start.Add(step)
				if start.Before(rangeStart) || end.After(rangeEnd) {
					continue
				}
				candidates = append(candidates, TimeSlot{
					StartUTC:    start,
					EndUTC:      end,
					RuleID:      r.ID,
					AutoConfirm: r.AutoConfirm,
				})
			}
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.StartUTC.Equal(b.StartUTC) {
			return a.StartUTC.Before(b.StartUTC)
		}
		if !a.EndUTC.Equal(b.EndUTC) {
			return a.EndUTC.Before(b.EndUTC)
		}
		return a.RuleID < b.RuleID
	})

	// Overlap resolution runs before booked slots are removed so a booking
	// never lets a losing candidate from another rule resurface.
	var slots []TimeSlot
	var lastEnd time.Time
	for _, s := range candidates {
		if !lastEnd.IsZero() && s.StartUTC.Before(lastEnd) {
			continue
		}
		lastEnd = s.EndUTC
		if _, ok := taken[key{s.StartUTC.UnixNano(), s.EndUTC.UnixNano()}]; ok {
			continue
		}
		slots = append(slots, s)
	}
	return slots
}

// FindSlot returns the slot matching [start, end) exactly.
func FindSlot(slots []TimeSlot, start, end time.Time) (TimeSlot, bool) {
	for _, s := range slots {
		if s.StartUTC.Equal(start) && s.EndUTC.Equal(end) {
			return s, true
		}
	}
	return TimeSlot{}, false
}
