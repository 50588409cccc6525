package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hearthshare/stay-service/internal/audit"
	"github.com/hearthshare/stay-service/internal/domain"
	"golang.org/x/sync/errgroup"
)

type StayService struct {
	stays domain.StayRepository
	users domain.UserDirectory
	cache domain.CacheRepository
	audit *audit.Logger
}

func NewStayService(stays domain.StayRepository, users domain.UserDirectory, cache domain.CacheRepository, auditLog *audit.Logger) *StayService {
	return &StayService{stays: stays, users: users, cache: cache, audit: auditLog}
}

// StayRequest asks for one night. UserID names the sponsored guest; leave it
// empty (or equal to the requester) to reserve for the requester themself.
type StayRequest struct {
	Date   domain.Date
	UserID string
}

// CreateStay enforces the sponsorship rules and, for guest reservations, the
// guestlist window, then persists the stay and returns the stored record.
// now is the reference instant for the window check; callers supply it
// explicitly so the business logic never reads the clock.
func (s *StayService) CreateStay(ctx context.Context, traceID string, requester domain.User, req StayRequest, now time.Time) (domain.Stay, error) {
	if err := req.Date.Validate(); err != nil {
		return domain.Stay{}, err
	}

	// Only hosts create stays, even for themselves. A guest needs their
	// host to sponsor the night.
	if !requester.IsHost {
		if s.audit != nil {
			s.audit.StayRejected(ctx, requester.UserID, "not_host")
		}
		return domain.Stay{}, domain.ErrNotHost
	}

	forSelf := req.UserID == "" || req.UserID == requester.UserID

	stayUser := requester
	if !forSelf {
		u, err := s.lookupUser(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrUserNotFound) {
				return domain.Stay{}, domain.ErrUnknownStayUser
			}
			return domain.Stay{}, err
		}
		if u.IsHost {
			return domain.Stay{}, domain.ErrSponsorIsHost
		}
		if err := domain.ValidateGuestlistOpen(req.Date, now); err != nil {
			return domain.Stay{}, err
		}
		stayUser = u
	}

	newStay := domain.NewStay{UserID: stayUser.UserID, IsHost: stayUser.IsHost}
	if !forSelf {
		hostID := requester.UserID
		newStay.HostID = &hostID
	}

	if err := s.stays.CreateStay(ctx, traceID, req.Date, newStay); err != nil {
		return domain.Stay{}, err
	}

	// Read the row back so the caller gets the canonical stored record,
	// timestamps included.
	stored, err := s.stays.GetStays(ctx, domain.StayQuery{
		Y: req.Date.Y, M: req.Date.M, D: req.Date.D,
		UserID: stayUser.UserID,
	})
	if err != nil {
		return domain.Stay{}, err
	}
	if len(stored) == 0 {
		return domain.Stay{}, domain.ErrStayNotConfirmed
	}

	if s.audit != nil {
		s.audit.StayCreated(ctx, stored[0])
	}
	return stored[0], nil
}

// DayStaysAndStats aggregates one night: host stays ordered by creation time,
// guest stays in fairness order, per-host prior guest-night counts, occupancy
// and the guestlist state at now.
func (s *StayService) DayStaysAndStats(ctx context.Context, date domain.Date, now time.Time) (domain.DayStats, error) {
	if err := date.Validate(); err != nil {
		return domain.DayStats{}, err
	}

	stays, err := s.stays.GetStays(ctx, domain.StayQuery{Y: date.Y, M: date.M, D: date.D})
	if err != nil {
		return domain.DayStats{}, err
	}

	hostStays := make([]domain.Stay, 0, len(stays))
	guestStays := make([]domain.GuestStay, 0, len(stays))
	for _, stay := range stays {
		if stay.IsHost {
			hostStays = append(hostStays, stay)
		} else {
			guestStays = append(guestStays, domain.GuestStay{Stay: stay})
		}
	}
	sort.SliceStable(hostStays, func(i, j int) bool {
		return hostStays[i].DateCreated.Before(hostStays[j].DateCreated)
	})

	guestNights, err := s.guestNightsByHost(ctx, guestStays, date)
	if err != nil {
		return domain.DayStats{}, err
	}

	for i := range guestStays {
		if guestStays[i].HostID != nil {
			guestStays[i].Priority = guestNights[*guestStays[i].HostID]
		}
	}
	guestStays = domain.RankGuestStays(guestStays, domain.GuestlistCutoff(date))

	return domain.DayStats{
		HostStays:         hostStays,
		GuestStays:        guestStays,
		GuestNightsByHost: guestNights,
		GuestlistState:    domain.GuestlistStateAt(date, now),
		Occupancy:         len(hostStays) + len(guestStays),

		MaxOccupancy:         domain.MaxOccupancy,
		MaxHosts:             domain.MaxHosts,
		MaxGuestReservations: domain.MaxGuestReservations,
	}, nil
}

// MonthStays lists every stay in a calendar month, ordered by date key.
func (s *StayService) MonthStays(ctx context.Context, year, month int) ([]domain.Stay, error) {
	if err := (domain.Date{Y: year, M: month, D: 1}).Validate(); err != nil {
		return nil, err
	}
	return s.stays.GetStays(ctx, domain.StayQuery{Y: year, M: month})
}

func (s *StayService) GuestlistState(date domain.Date, now time.Time) (domain.GuestlistState, error) {
	if err := date.Validate(); err != nil {
		return "", err
	}
	return domain.GuestlistStateAt(date, now), nil
}

func (s *StayService) ValidateGuestlistOpen(date domain.Date, now time.Time) error {
	if err := date.Validate(); err != nil {
		return err
	}
	return domain.ValidateGuestlistOpen(date, now)
}

// guestNightsByHost fans out one count query per distinct sponsoring host and
// collects the results. The counts are backward-looking: the night being
// aggregated never counts toward its own ranking. The first failed sub-query
// cancels the rest and aborts the aggregate.
func (s *StayService) guestNightsByHost(ctx context.Context, guestStays []domain.GuestStay, date domain.Date) (map[string]int, error) {
	hosts := make([]string, 0, len(guestStays))
	seen := make(map[string]bool, len(guestStays))
	for _, gs := range guestStays {
		if gs.HostID == nil || seen[*gs.HostID] {
			continue
		}
		seen[*gs.HostID] = true
		hosts = append(hosts, *gs.HostID)
	}

	counts := make(map[string]int, len(hosts))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, hostID := range hosts {
		hostID := hostID
		g.Go(func() error {
			n, err := s.stays.CountHostGuestNights(gctx, hostID, date)
			if err != nil {
				return err
			}
			mu.Lock()
			counts[hostID] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return counts, nil
}

// lookupUser prefers the cache and falls back to the directory; cache errors
// never fail the lookup.
func (s *StayService) lookupUser(ctx context.Context, userID string) (domain.User, error) {
	if s.cache != nil {
		if u, err := s.cache.GetUser(ctx, userID); err == nil {
			return u, nil
		}
	}
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if s.cache != nil {
		_ = s.cache.SetUser(ctx, u)
	}
	return u, nil
}
