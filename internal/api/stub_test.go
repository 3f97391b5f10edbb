package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

const testSecret = "test-secret"

// stubAppointments answers every call with appt and err, recording the last
// actor and inputs it saw.
type stubAppointments struct {
	appt  *appointment.Appointment
	slots *appointment.SlotsResult
	err   error

	actor       directory.Actor
	create      appointment.CreateInput
	postpone    appointment.PostponeResponse
	counter     appointment.CounterDecision
	attendance  appointment.Status
	cancelNote  string
	slotsDate   time.Time
	slotsClinic uuid.UUID
}

func (s *stubAppointments) Create(_ context.Context, actor directory.Actor, in appointment.CreateInput) (*appointment.Appointment, error) {
	s.actor, s.create = actor, in
	return s.appt, s.err
}

func (s *stubAppointments) GetAppointment(_ context.Context, actor directory.Actor, _ uuid.UUID) (*appointment.Appointment, error) {
	s.actor = actor
	return s.appt, s.err
}

func (s *stubAppointments) ListAuditEvents(_ context.Context, actor directory.Actor, _ uuid.UUID) ([]appointment.AuditEvent, error) {
	s.actor = actor
	return nil, s.err
}

func (s *stubAppointments) RequestPostpone(_ context.Context, actor directory.Actor, _ uuid.UUID, _ appointment.PostponeInput) (*appointment.Appointment, error) {
	s.actor = actor
	return s.appt, s.err
}

func (s *stubAppointments) RespondToPostponeRequest(_ context.Context, actor directory.Actor, _ uuid.UUID, in appointment.PostponeResponse) (*appointment.Appointment, error) {
	s.actor, s.postpone = actor, in
	return s.appt, s.err
}

func (s *stubAppointments) RespondToCounterPostpone(_ context.Context, actor directory.Actor, _ uuid.UUID, d appointment.CounterDecision) (*appointment.Appointment, error) {
	s.actor, s.counter = actor, d
	return s.appt, s.err
}

func (s *stubAppointments) Cancel(_ context.Context, actor directory.Actor, _ uuid.UUID, reason string) (*appointment.Appointment, error) {
	s.actor, s.cancelNote = actor, reason
	return s.appt, s.err
}

func (s *stubAppointments) UpdateAttendance(_ context.Context, actor directory.Actor, _ uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	s.actor, s.attendance = actor, status
	return s.appt, s.err
}

func (s *stubAppointments) GetAvailableSlots(_ context.Context, actor directory.Actor, _, clinicID uuid.UUID, date time.Time) (*appointment.SlotsResult, error) {
	s.actor, s.slotsClinic, s.slotsDate = actor, clinicID, date
	return s.slots, s.err
}

type stubAvailability struct {
	rules availability.Rules
	err   error
}

func (s *stubAvailability) GetRules(context.Context, directory.Actor, uuid.UUID) (availability.Rules, error) {
	return s.rules, s.err
}

func (s *stubAvailability) ReplaceRules(_ context.Context, _ directory.Actor, _ uuid.UUID, rules availability.Rules) (availability.Rules, error) {
	if s.err != nil {
		return availability.Rules{}, s.err
	}
	s.rules = rules
	return rules, nil
}

func newTestRouter(appts *stubAppointments, avail *stubAvailability) http.Handler {
	return NewRouter(RouterConfig{
		Appointments: appts,
		Availability: avail,
		Logger:       zerolog.Nop(),
		JWTSecret:    testSecret,
	})
}

func testActor(role directory.Role) directory.Actor {
	return directory.Actor{UserID: uuid.New(), Role: role, ClinicID: uuid.New()}
}

// do sends an authenticated request as actor.
func do(t *testing.T, h http.Handler, actor directory.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := SignActorToken(testSecret, actor, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
