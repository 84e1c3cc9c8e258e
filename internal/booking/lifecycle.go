package booking

import (
	"time"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
)

// CheckTransition validates moving b to target on behalf of actor at now.
//
//	requested -> confirmed            analyst of the booking or admin, before end
//	requested|confirmed -> cancelled  investor, analyst or admin, before start
//
// A cancel at or after start is ErrTooLateToCancel whatever the effective
// status. Every other move is ErrInvalidTransition. Completed is derived and
// can neither be entered nor left.
func CheckTransition(b *Booking, actor auth.Identity, target Status, now time.Time) error {
	isInvestor := actor.Is(auth.RoleInvestor, b.InvestorID)
	isAnalyst := actor.Is(auth.RoleAnalyst, b.AnalystID)
	if !actor.IsAdmin() && !isInvestor && !isAnalyst {
		return ErrPermissionDenied
	}

	switch {
	case b.Status == StatusRequested && target == StatusConfirmed:
		if !actor.IsAdmin() && !isAnalyst {
			return ErrPermissionDenied
		}
		// Confirming an ended session would complete it on the spot.
		if !now.Before(b.EndUTC) {
			return ErrInvalidTransition
		}
		return nil

	case (b.Status == StatusRequested || b.Status == StatusConfirmed) && target == StatusCancelled:
		if !now.Before(b.StartUTC) {
			return ErrTooLateToCancel
		}
		return nil
	}

	return ErrInvalidTransition
}
