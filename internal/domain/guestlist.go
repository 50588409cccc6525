package domain

// Guestlist window policy:
// Guest signups for a night open 7 days ahead and run until noon Pacific on
// the Wednesday preceding the stay. After that cutoff signups switch to
// first-come-first-served until the night itself starts (midnight UTC), then
// close for good.
//
// Pacific is modeled as a fixed UTC-8 offset, deliberately not DST-adjusted.

import "time"

type GuestlistState string

const (
	GuestlistNotOpen GuestlistState = "notOpen"
	GuestlistOpen    GuestlistState = "open"
	GuestlistFCFS    GuestlistState = "fcfs"
	GuestlistClosed  GuestlistState = "closed"
)

const (
	guestSignupLead = 7 * 24 * time.Hour

	// 8h from UTC midnight to Pacific midnight, 12h more to Pacific noon.
	wednesdayNoonPacific = 20 * time.Hour
)

// PreviousWednesday returns midnight UTC of the Wednesday on or before the
// given date. A Wednesday maps to itself.
func PreviousWednesday(d Date) time.Time {
	day := d.UTC()
	dow := int(day.Weekday()) // Sunday=0 .. Saturday=6
	offset := dow + 7 - 3
	if dow >= 3 {
		offset = dow - 3
	}
	return day.AddDate(0, 0, -offset)
}

// GuestlistCutoff is the instant the open window ends: noon Pacific on the
// Wednesday preceding the stay.
func GuestlistCutoff(d Date) time.Time {
	return PreviousWednesday(d).Add(wednesdayNoonPacific)
}

// GuestlistStateAt classifies the signup window for a night at a reference
// instant. Transitions are one-directional in time:
// notOpen -> open -> fcfs -> closed.
func GuestlistStateAt(d Date, ref time.Time) GuestlistState {
	night := d.UTC()
	switch {
	case ref.Before(night.Add(-guestSignupLead)):
		return GuestlistNotOpen
	case !ref.Before(night):
		return GuestlistClosed
	case ref.Before(GuestlistCutoff(d)):
		return GuestlistOpen
	default:
		return GuestlistFCFS
	}
}

// ValidateGuestlistOpen returns a user-facing error when guest signups for
// the night are not currently accepted. Both open and fcfs accept signups.
func ValidateGuestlistOpen(d Date, ref time.Time) error {
	switch GuestlistStateAt(d, ref) {
	case GuestlistNotOpen:
		return ErrGuestlistNotOpen
	case GuestlistClosed:
		return ErrGuestlistClosed
	default:
		return nil
	}
}
