package domain

import (
	"context"
	"errors"
	"time"
)

// Advisory capacity numbers for a single night. They travel with DayStats so
// callers can render them; nothing in this service enforces them.
const (
	MaxOccupancy         = 18
	MaxHosts             = 13
	MaxGuestReservations = 5
)

var (
	ErrNotHost         = errors.New("only hosts can create stays, ask your host to sponsor you on this day")
	ErrUnknownStayUser = errors.New("unknown user specified for stay")
	ErrSponsorIsHost   = errors.New("cannot create a stay for another host, they must create their own stay")

	ErrGuestlistNotOpen = errors.New("guest signups are not open yet, try again 7 days before the stay")
	ErrGuestlistClosed  = errors.New("that date is in the past, no more guest signups are accepted")

	ErrUserNotFound = errors.New("user not found")

	// ErrStayNotConfirmed means the confirmation re-read after a write came
	// back empty. That is a storage bug, not a user mistake.
	ErrStayNotConfirmed = errors.New("could not find newly created stay")

	ErrCacheMiss = errors.New("cache miss")
)

type User struct {
	UserID  string
	Name    string
	IsHost  bool
	IsAdmin bool
}

// Stay is one night's reservation for one person. HostID is nil when a host
// stays on their own account; for guests it names the sponsoring host.
// IsHost is snapshotted at creation time, not re-derived on reads.
type Stay struct {
	StayDate    DateInt
	UserID      string
	HostID      *string
	IsHost      bool
	DateCreated time.Time
	DateUpdated time.Time
}

// GuestStay is a guest reservation annotated with its sponsoring host's prior
// guest-night count, which drives the fairness ranking.
type GuestStay struct {
	Stay
	Priority int
}

type DayStats struct {
	HostStays         []Stay
	GuestStays        []GuestStay
	GuestNightsByHost map[string]int
	GuestlistState    GuestlistState
	Occupancy         int

	MaxOccupancy         int
	MaxHosts             int
	MaxGuestReservations int
}

// StayQuery filters stays by date and/or user. A full Y/M/D is an exact-key
// lookup; Y alone or Y+M become range scans over the integer date key.
type StayQuery struct {
	Y, M, D int
	UserID  string
}

type NewStay struct {
	UserID string
	HostID *string
	IsHost bool
}

// StayRepository is the storage contract for reservations. GetStays returns
// rows ordered by date key then insertion. CountHostGuestNights counts a
// host's sponsored guest-nights strictly before the given date.
type StayRepository interface {
	CreateStay(ctx context.Context, traceID string, date Date, stay NewStay) error
	GetStays(ctx context.Context, q StayQuery) ([]Stay, error)
	CountHostGuestNights(ctx context.Context, hostID string, before Date) (int, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (User, error)
}

type CacheRepository interface {
	GetUser(ctx context.Context, userID string) (User, error)
	SetUser(ctx context.Context, user User) error

	AllowRequest(ctx context.Context, ip string, limit int, window time.Duration) (bool, error)
}
