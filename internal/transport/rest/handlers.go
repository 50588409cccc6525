package rest

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/hearthshare/stay-service/internal/domain"
	appCtx "github.com/hearthshare/stay-service/internal/pkg/context"
	"github.com/hearthshare/stay-service/internal/service"
	"github.com/hearthshare/stay-service/internal/transport/rest/response"
)

type Handler struct {
	svc *service.StayService

	// now feeds the guestlist window checks; swapped out in tests.
	now func() time.Time
}

func NewHandler(svc *service.StayService) *Handler {
	return &Handler{
		svc: svc,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateStay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Y      int    `json:"y"`
		M      int    `json:"m"`
		D      int    `json:"d"`
		UserID string `json:"user_id"`
	}
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "invalid body", nil)
		return
	}

	auth, ok := GetAuth(r.Context())
	if !ok {
		fail(w, r, http.StatusUnauthorized, "auth.unauthorized", "unauthorized", nil)
		return
	}

	traceID := appCtx.GetRequestID(r.Context())
	if traceID == "" {
		traceID = "no-request-id"
	}

	stay, err := h.svc.CreateStay(r.Context(), traceID, auth.User, service.StayRequest{
		Date:   domain.Date{Y: req.Y, M: req.M, D: req.D},
		UserID: req.UserID,
	}, h.now())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusCreated, toStayDTO(stay))
}

func (h *Handler) DayStaysAndStats(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.DayStaysAndStats(r.Context(), date, h.now())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	hostStays := make([]stayDTO, 0, len(stats.HostStays))
	for _, s := range stats.HostStays {
		hostStays = append(hostStays, toStayDTO(s))
	}
	guestStays := make([]guestStayDTO, 0, len(stats.GuestStays))
	for _, gs := range stats.GuestStays {
		guestStays = append(guestStays, guestStayDTO{
			stayDTO:  toStayDTO(gs.Stay),
			Priority: gs.Priority,
		})
	}

	response.Data(w, http.StatusOK, dayStatsDTO{
		HostStays:         hostStays,
		GuestStays:        guestStays,
		GuestNightsByHost: stats.GuestNightsByHost,
		GuestlistState:    string(stats.GuestlistState),
		Occupancy:         stats.Occupancy,

		MaxOccupancy:         stats.MaxOccupancy,
		MaxHosts:             stats.MaxHosts,
		MaxGuestReservations: stats.MaxGuestReservations,
	})
}

func (h *Handler) GuestlistState(w http.ResponseWriter, r *http.Request) {
	date, ok := datePath(w, r)
	if !ok {
		return
	}

	state, err := h.svc.GuestlistState(date, h.now())
	if err != nil {
		handleErr(w, r, err)
		return
	}

	response.Data(w, http.StatusOK, map[string]any{
		"date":  int(date.Int()),
		"state": string(state),
	})
}

func (h *Handler) MonthStays(w http.ResponseWriter, r *http.Request) {
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "year and month must be numeric", nil)
		return
	}

	stays, err := h.svc.MonthStays(r.Context(), year, month)
	if err != nil {
		handleErr(w, r, err)
		return
	}

	items := make([]stayDTO, 0, len(stays))
	for _, s := range stays {
		items = append(items, toStayDTO(s))
	}

	response.Data(w, http.StatusOK, map[string]any{"items": items})
}

// datePath pulls {year}/{month}/{day} out of the URL. Range checks happen in
// the domain; this only rejects non-numeric segments.
func datePath(w http.ResponseWriter, r *http.Request) (domain.Date, bool) {
	y, errY := strconv.Atoi(chi.URLParam(r, "year"))
	m, errM := strconv.Atoi(chi.URLParam(r, "month"))
	d, errD := strconv.Atoi(chi.URLParam(r, "day"))
	if errY != nil || errM != nil || errD != nil {
		fail(w, r, http.StatusBadRequest, "request.invalid", "year, month and day must be numeric", nil)
		return domain.Date{}, false
	}
	return domain.Date{Y: y, M: m, D: d}, true
}

type stayDTO struct {
	StayDate    int       `json:"stay_date"`
	UserID      string    `json:"user_id"`
	HostID      *string   `json:"host_id,omitempty"`
	IsHost      bool      `json:"is_host"`
	DateCreated time.Time `json:"date_created"`
	DateUpdated time.Time `json:"date_updated"`
}

type guestStayDTO struct {
	stayDTO
	Priority int `json:"priority"`
}

type dayStatsDTO struct {
	HostStays         []stayDTO      `json:"host_stays"`
	GuestStays        []guestStayDTO `json:"guest_stays"`
	GuestNightsByHost map[string]int `json:"guest_nights_by_host"`
	GuestlistState    string         `json:"guestlist_state"`
	Occupancy         int            `json:"occupancy"`

	MaxOccupancy         int `json:"max_occupancy"`
	MaxHosts             int `json:"max_hosts"`
	MaxGuestReservations int `json:"max_guest_reservations"`
}

func toStayDTO(s domain.Stay) stayDTO {
	return stayDTO{
		StayDate:    int(s.StayDate),
		UserID:      s.UserID,
		HostID:      s.HostID,
		IsHost:      s.IsHost,
		DateCreated: s.DateCreated,
		DateUpdated: s.DateUpdated,
	}
}

func handleErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrYearInvalid),
		errors.Is(err, domain.ErrMonthInvalid),
		errors.Is(err, domain.ErrDayInvalid):
		fail(w, r, http.StatusBadRequest, "date.invalid", err.Error(), nil)

	case errors.Is(err, domain.ErrNotHost):
		fail(w, r, http.StatusForbidden, "stay.not_host", err.Error(), nil)

	case errors.Is(err, domain.ErrUnknownStayUser):
		fail(w, r, http.StatusBadRequest, "stay.unknown_user", err.Error(), nil)

	case errors.Is(err, domain.ErrSponsorIsHost):
		fail(w, r, http.StatusConflict, "stay.sponsor_is_host", err.Error(), nil)

	case errors.Is(err, domain.ErrGuestlistNotOpen):
		fail(w, r, http.StatusConflict, "guestlist.not_open", err.Error(), nil)

	case errors.Is(err, domain.ErrGuestlistClosed):
		// The night has started; 410 fits better than 409.
		fail(w, r, http.StatusGone, "guestlist.closed", err.Error(), nil)

	default:
		// ErrStayNotConfirmed and storage failures land here. Do not leak
		// internals.
		fail(w, r, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func fail(w http.ResponseWriter, r *http.Request, status int, code, message string, meta map[string]string) {
	reqID := appCtx.GetRequestID(r.Context())
	if reqID == "" {
		reqID = "no-request-id"
	}
	response.Fail(w, status, code, message, meta, reqID)
}
