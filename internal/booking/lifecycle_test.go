package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

func TestEffectiveStatus(t *testing.T) {
	b := &Booking{StartUTC: at(monday, 9, 0), EndUTC: at(monday, 9, 30), Status: StatusConfirmed}

	assert.Equal(t, StatusConfirmed, EffectiveStatus(b, at(monday, 9, 10)))
	assert.Equal(t, StatusConfirmed, EffectiveStatus(b, b.EndUTC), "end instant itself is not yet past")
	assert.Equal(t, StatusCompleted, EffectiveStatus(b, at(monday, 9, 31)))

	b.Status = StatusRequested
	assert.Equal(t, StatusRequested, EffectiveStatus(b, at(monday, 12, 0)), "only confirmed bookings complete")

	b.Status = StatusCancelled
	assert.Equal(t, StatusCancelled, EffectiveStatus(b, at(monday, 12, 0)))
}

func TestCheckTransition(t *testing.T) {
	investor := auth.Identity{UserID: "inv-1", Role: auth.RoleInvestor}
	analyst := auth.Identity{UserID: testAnalyst, Role: auth.RoleAnalyst}
	admin := auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}
	stranger := auth.Identity{UserID: "inv-2", Role: auth.RoleInvestor}
	// Same user id as the investor but acting with another role.
	wrongRole := auth.Identity{UserID: "inv-1", Role: auth.RoleAnalyst}

	before := at(monday, 8, 0)
	during := at(monday, 9, 10)
	after := at(monday, 10, 0)

	newBooking := func(st Status) *Booking {
		return &Booking{
			InvestorID: "inv-1",
			AnalystID:  testAnalyst,
			StartUTC:   at(monday, 9, 0),
			EndUTC:     at(monday, 9, 30),
			Status:     st,
		}
	}

	tests := []struct {
		name    string
		status  Status
		actor   auth.Identity
		target  Status
		now     time.Time
		wantErr error
	}{
		{"Confirm: Success (Analyst)", StatusRequested, analyst, StatusConfirmed, before, nil},
		{"Confirm: Success (Admin)", StatusRequested, admin, StatusConfirmed, before, nil},
		{"Confirm: Permission Denied (Investor)", StatusRequested, investor, StatusConfirmed, before, ErrPermissionDenied},
		{"Confirm: Already Confirmed", StatusConfirmed, analyst, StatusConfirmed, before, ErrInvalidTransition},
		{"Confirm: Success (In Progress)", StatusRequested, analyst, StatusConfirmed, during, nil},
		{"Confirm: Session Ended", StatusRequested, analyst, StatusConfirmed, after, ErrInvalidTransition},
		{"Confirm: Session Ended (Admin)", StatusRequested, admin, StatusConfirmed, at(monday, 9, 30), ErrInvalidTransition},
		{"Cancel Requested: Success (Investor)", StatusRequested, investor, StatusCancelled, before, nil},
		{"Cancel Confirmed: Success (Analyst)", StatusConfirmed, analyst, StatusCancelled, before, nil},
		{"Cancel Confirmed: Success (Admin)", StatusConfirmed, admin, StatusCancelled, before, nil},
		{"Cancel: Too Late (Started)", StatusConfirmed, investor, StatusCancelled, during, ErrTooLateToCancel},
		{"Cancel: Too Late (Requested, Ended)", StatusRequested, investor, StatusCancelled, after, ErrTooLateToCancel},
		{"Cancel: Too Late (Completed)", StatusConfirmed, admin, StatusCancelled, after, ErrTooLateToCancel},
		{"Cancel: Already Cancelled", StatusCancelled, investor, StatusCancelled, before, ErrInvalidTransition},
		{"Cancel: Already Cancelled After Start", StatusCancelled, investor, StatusCancelled, after, ErrInvalidTransition},
		{"Cancelled Is Terminal", StatusCancelled, admin, StatusConfirmed, before, ErrInvalidTransition},
		{"Cancelled To Requested", StatusCancelled, investor, StatusRequested, before, ErrInvalidTransition},
		{"Confirmed Back To Requested", StatusConfirmed, analyst, StatusRequested, before, ErrInvalidTransition},
		{"Completed Cannot Be Set", StatusConfirmed, admin, StatusCompleted, before, ErrInvalidTransition},
		{"Stranger: Permission Denied", StatusRequested, stranger, StatusCancelled, before, ErrPermissionDenied},
		{"Role Must Match: Permission Denied", StatusRequested, wrongRole, StatusCancelled, before, ErrPermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckTransition(newBooking(tt.status), tt.actor, tt.target, tt.now)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
