package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

// AppointmentService is the part of appointment.Service the API uses.
type AppointmentService interface {
	Create(ctx context.Context, actor directory.Actor, in appointment.CreateInput) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, actor directory.Actor, id uuid.UUID) (*appointment.Appointment, error)
	ListAuditEvents(ctx context.Context, actor directory.Actor, id uuid.UUID) ([]appointment.AuditEvent, error)
	RequestPostpone(ctx context.Context, actor directory.Actor, id uuid.UUID, in appointment.PostponeInput) (*appointment.Appointment, error)
	RespondToPostponeRequest(ctx context.Context, actor directory.Actor, id uuid.UUID, in appointment.PostponeResponse) (*appointment.Appointment, error)
	RespondToCounterPostpone(ctx context.Context, actor directory.Actor, id uuid.UUID, decision appointment.CounterDecision) (*appointment.Appointment, error)
	Cancel(ctx context.Context, actor directory.Actor, id uuid.UUID, reason string) (*appointment.Appointment, error)
	UpdateAttendance(ctx context.Context, actor directory.Actor, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error)
	GetAvailableSlots(ctx context.Context, actor directory.Actor, doctorID, clinicID uuid.UUID, date time.Time) (*appointment.SlotsResult, error)
}

type AvailabilityService interface {
	GetRules(ctx context.Context, actor directory.Actor, doctorID uuid.UUID) (availability.Rules, error)
	ReplaceRules(ctx context.Context, actor directory.Actor, doctorID uuid.UUID, rules availability.Rules) (availability.Rules, error)
}

type RouterConfig struct {
	Appointments AppointmentService
	Availability AvailabilityService
	Health       *HealthHandler
	Metrics      http.Handler
	Logger       zerolog.Logger
	JWTSecret    string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(ActorJWT(cfg.JWTSecret))

		// Appointment endpoints
		r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Appointments))
		r.Get("/appointments/{id}/audit", auditTrailHandler(cfg.Appointments))
		r.Post("/appointments/{id}/postpone", requestPostponeHandler(cfg.Appointments))
		r.Post("/appointments/{id}/postpone/response", respondToPostponeHandler(cfg.Appointments))
		r.Post("/appointments/{id}/postpone/counter-response", respondToCounterHandler(cfg.Appointments))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
		r.Post("/appointments/{id}/attendance", attendanceHandler(cfg.Appointments))

		// Doctor endpoints
		r.Get("/doctors/{id}/slots", availableSlotsHandler(cfg.Appointments))
		r.Get("/doctors/{id}/availability", getAvailabilityHandler(cfg.Availability))
		r.Put("/doctors/{id}/availability", replaceAvailabilityHandler(cfg.Availability))
	})

	return r
}
