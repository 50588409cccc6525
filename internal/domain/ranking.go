package domain

import (
	"sort"
	"time"
)

// RankGuestStays orders competing guest reservations for a night.
//
// Reservations requested before the guestlist cutoff are ranked by their
// sponsoring host's prior guest-night count (fewer nights first, rewarding
// hosts who have sponsored less), ties broken by earliest request.
// Reservations requested at or after the cutoff queue behind that cohort in
// pure first-come-first-served order, priority ignored.
//
// Both sorts are stable: equal keys keep their input order.
func RankGuestStays(stays []GuestStay, cutoff time.Time) []GuestStay {
	pre := make([]GuestStay, 0, len(stays))
	var post []GuestStay
	for _, s := range stays {
		if s.DateCreated.Before(cutoff) {
			pre = append(pre, s)
		} else {
			post = append(post, s)
		}
	}

	sort.SliceStable(pre, func(i, j int) bool {
		if pre[i].Priority != pre[j].Priority {
			return pre[i].Priority < pre[j].Priority
		}
		return pre[i].DateCreated.Before(pre[j].DateCreated)
	})
	sort.SliceStable(post, func(i, j int) bool {
		return post[i].DateCreated.Before(post[j].DateCreated)
	})

	return append(pre, post...)
}
