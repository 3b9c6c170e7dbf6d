package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/clinicore/clinic-scheduling/internal/oncall"
	"github.com/clinicore/clinic-scheduling/internal/schedule"
)

type RouterConfig struct {
	Booker       *schedule.Booker
	Allocator    *schedule.WalkInAllocator
	Availability *schedule.Availability
	Queries      *schedule.Queries
	OnCall       *oncall.Registry

	// Health probes; either may be nil when the dependency is not used.
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/appointments", createAppointmentHandler(cfg.Booker))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Queries))
	r.Put("/appointments/{id}", transitionAppointmentHandler(cfg.Booker))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Booker))

	r.Post("/walk-ins", walkInHandler(cfg.Allocator))

	r.Get("/schedule/master", masterScheduleHandler(cfg.Queries))
	r.Get("/schedule/practitioner", practitionerScheduleHandler(cfg.Queries))
	r.Get("/schedule/slots", listSlotsHandler(cfg.Availability))

	r.Route("/on-call-assignments", func(r chi.Router) {
		r.Post("/", createOnCallHandler(cfg.OnCall))
		r.Get("/", listOnCallHandler(cfg.OnCall))
		r.Get("/active", activeOnCallHandler(cfg.OnCall))
		r.Put("/{id}", updateOnCallHandler(cfg.OnCall))
		r.Delete("/{id}", deleteOnCallHandler(cfg.OnCall))
	})

	return r
}
