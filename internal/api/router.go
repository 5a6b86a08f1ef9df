package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hapsayrizal/barangay-booking/internal/cache"
	"github.com/hapsayrizal/barangay-booking/internal/gateway"
	"github.com/hapsayrizal/barangay-booking/internal/notify"
	"github.com/hapsayrizal/barangay-booking/internal/store"
)

// RouterConfig carries the dependencies the HTTP surface needs. Cache and
// Notifier may be nil; the routes that use them degrade accordingly.
type RouterConfig struct {
	Sessions *Sessions
	Gateway  *gateway.Client
	Store    store.AppointmentStore
	Cache    *cache.Cache
	Notifier *notify.Notifier
	Logger   *zap.Logger
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.Store, cfg.Cache, cfg.Gateway, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Kiosk wizard: every route below is scoped to one walk-up session.
	r.Route("/booking/sessions", func(r chi.Router) {
		r.Post("/", createSessionHandler(cfg.Sessions))
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", sessionStateHandler(cfg.Sessions))
			r.Delete("/", deleteSessionHandler(cfg.Sessions))
			r.Get("/time-slots", sessionTimeSlotsHandler(cfg.Sessions))
			r.Get("/services", sessionServicesHandler(cfg.Sessions))
			r.Post("/slot", selectSlotHandler(cfg.Sessions))
			r.Post("/identity", submitIdentityHandler(cfg.Sessions))
			r.Post("/schedule", submitScheduleHandler(cfg.Sessions, cfg.Notifier))
			r.Post("/back", backHandler(cfg.Sessions))
			r.Post("/reset", resetHandler(cfg.Sessions))
			r.Post("/notices/{noticeID}/dismiss", dismissNoticeHandler(cfg.Sessions))
		})
	})

	// Staff screens, proxied to the remote service.
	r.Get("/appointments", listAppointmentsHandler(cfg.Gateway, cfg.Logger))
	r.Put("/appointments/{appointmentID}/status", updateStatusHandler(cfg.Gateway, cfg.Logger))
	r.Get("/time-slots", listTimeSlotsHandler(cfg.Gateway, cfg.Logger))
	r.Post("/time-slots", createTimeSlotHandler(cfg.Gateway, cfg.Logger))

	// Fallback store inspection.
	r.Get("/local/appointments", listLocalAppointmentsHandler(cfg.Store, cfg.Logger))

	return r
}
