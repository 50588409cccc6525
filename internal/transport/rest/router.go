package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hearthshare/stay-service/internal/domain"
	"github.com/hearthshare/stay-service/internal/security"
)

type RouterDeps struct {
	Cache     domain.CacheRepository
	Handler   *Handler
	Verifier  security.AccessTokenVerifier
	JWTIssuer string

	RateLimit       int
	RateLimitWindow time.Duration
}

func NewRouter(d RouterDeps) http.Handler {
	if d.Cache == nil {
		panic("rest.NewRouter: nil cache")
	}
	if d.Handler == nil {
		panic("rest.NewRouter: nil handler")
	}
	if d.Verifier == nil {
		panic("rest.NewRouter: nil verifier")
	}
	if d.RateLimit <= 0 {
		d.RateLimit = 100
	}
	if d.RateLimitWindow <= 0 {
		d.RateLimitWindow = time.Minute
	}

	r := chi.NewRouter()

	// Request ID + structured access log
	r.Use(RequestID)
	r.Use(HTTPLogger)

	// Panic recovery
	r.Use(middleware.Recoverer)

	// Cross-cutting
	r.Use(RateLimitMiddleware(d.Cache, d.RateLimit, d.RateLimitWindow))
	r.Use(SecurityHeaders)

	r.Get("/healthz", d.Handler.Healthz)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(AuthMiddleware(d.Verifier, AuthOptions{ExpectedIssuer: d.JWTIssuer}))

		// writes
		r.Post("/stays", d.Handler.CreateStay)

		// reads
		r.Get("/stays/{year}/{month}", d.Handler.MonthStays)
		r.Get("/days/{year}/{month}/{day}", d.Handler.DayStaysAndStats)
		r.Get("/days/{year}/{month}/{day}/guestlist", d.Handler.GuestlistState)
	})

	return r
}
