package api

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

func sampleAppointment() *appointment.Appointment {
	return &appointment.Appointment{
		ID:             uuid.New(),
		DoctorID:       uuid.New(),
		PatientID:      uuid.New(),
		ClinicID:       uuid.New(),
		DateTimeUTC:    time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC),
		Status:         appointment.StatusScheduled,
		PostponeStatus: appointment.PostponeNone,
	}
}

func TestCreateAppointment(t *testing.T) {
	appts := &stubAppointments{appt: sampleAppointment()}
	h := newTestRouter(appts, &stubAvailability{})
	actor := testActor(directory.RolePatient)
	doctorID, clinicID := uuid.New(), uuid.New()

	body := `{"doctor_id":"` + doctorID.String() + `","clinic_id":"` + clinicID.String() + `","start_utc":"2026-06-02T14:00:00Z"}`
	rec := do(t, h, actor, http.MethodPost, "/appointments", body)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, actor.UserID, appts.actor.UserID)
	assert.Equal(t, doctorID, appts.create.DoctorID)
	assert.Equal(t, clinicID, appts.create.ClinicID)
	assert.True(t, appts.create.StartUTC.Equal(time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC)))

	var resp AppointmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, appts.appt.ID, resp.ID)
	assert.Equal(t, "Scheduled", resp.Status)
}

func TestCreateAppointmentBadInput(t *testing.T) {
	h := newTestRouter(&stubAppointments{appt: sampleAppointment()}, &stubAvailability{})
	actor := testActor(directory.RolePatient)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"not json", `{`, "invalid_request_body"},
		{"bad doctor", `{"doctor_id":"x","clinic_id":"` + uuid.NewString() + `"}`, "invalid_doctor_id"},
		{"bad clinic", `{"doctor_id":"` + uuid.NewString() + `","clinic_id":"x"}`, "invalid_clinic_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, actor, http.MethodPost, "/appointments", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{apperrors.Validation("bad"), http.StatusBadRequest, "validation"},
		{apperrors.Forbidden("no"), http.StatusForbidden, "forbidden"},
		{apperrors.NotFound("gone"), http.StatusNotFound, "not_found"},
		{apperrors.Conflict("taken"), http.StatusConflict, "conflict"},
		{apperrors.Precondition("late"), http.StatusUnprocessableEntity, "precondition_failed"},
		{apperrors.Internal("boom", assert.AnError), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := newTestRouter(&stubAppointments{err: tt.err}, &stubAvailability{})
			rec := do(t, h, testActor(directory.RoleDoctor), http.MethodGet, "/appointments/"+uuid.NewString(), "")

			assert.Equal(t, tt.status, rec.Code)
			var resp ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestInternalErrorHidesCause(t *testing.T) {
	h := newTestRouter(&stubAppointments{err: apperrors.Internal("query appointment", assert.AnError)}, &stubAvailability{})
	rec := do(t, h, testActor(directory.RoleAdmin), http.MethodGet, "/appointments/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}

func TestInvalidAppointmentID(t *testing.T) {
	h := newTestRouter(&stubAppointments{}, &stubAvailability{})
	rec := do(t, h, testActor(directory.RolePatient), http.MethodPost, "/appointments/not-a-uuid/cancel", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_id")
}

func TestPostponeResponseDecisions(t *testing.T) {
	appts := &stubAppointments{appt: sampleAppointment()}
	h := newTestRouter(appts, &stubAvailability{})
	path := "/appointments/" + uuid.NewString() + "/postpone/response"

	rec := do(t, h, testActor(directory.RoleDoctor), http.MethodPost, path,
		`{"decision":"CounterPropose","note":"later please","counter_utc":"2026-06-04T15:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.DecisionCounterPropose, appts.postpone.Decision)
	assert.Equal(t, "later please", appts.postpone.Note)
	require.NotNil(t, appts.postpone.CounterUTC)
	assert.True(t, appts.postpone.CounterUTC.Equal(time.Date(2026, 6, 4, 15, 0, 0, 0, time.UTC)))

	rec = do(t, h, testActor(directory.RoleDoctor), http.MethodPost, path, `{"decision":"Maybe"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation")
}

func TestCounterResponse(t *testing.T) {
	appts := &stubAppointments{appt: sampleAppointment()}
	h := newTestRouter(appts, &stubAvailability{})

	rec := do(t, h, testActor(directory.RolePatient), http.MethodPost,
		"/appointments/"+uuid.NewString()+"/postpone/counter-response", `{"decision":"accept"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.CounterAccept, appts.counter)
}

func TestCancelWithAndWithoutBody(t *testing.T) {
	appts := &stubAppointments{appt: sampleAppointment()}
	h := newTestRouter(appts, &stubAvailability{})
	path := "/appointments/" + uuid.NewString() + "/cancel"

	rec := do(t, h, testActor(directory.RolePatient), http.MethodPost, path, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, appts.cancelNote)

	rec = do(t, h, testActor(directory.RolePatient), http.MethodPost, path, `{"reason":"travelling"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "travelling", appts.cancelNote)
}

func TestAttendance(t *testing.T) {
	appts := &stubAppointments{appt: sampleAppointment()}
	h := newTestRouter(appts, &stubAvailability{})
	path := "/appointments/" + uuid.NewString() + "/attendance"

	rec := do(t, h, testActor(directory.RoleDoctor), http.MethodPost, path, `{"status":"NoShow"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appointment.StatusNoShow, appts.attendance)

	rec = do(t, h, testActor(directory.RoleDoctor), http.MethodPost, path, `{"status":"Scheduled"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailableSlots(t *testing.T) {
	appts := &stubAppointments{slots: &appointment.SlotsResult{
		Timezone:            "America/New_York",
		SlotDurationMinutes: 30,
	}}
	h := newTestRouter(appts, &stubAvailability{})
	clinicID := uuid.New()
	base := "/doctors/" + uuid.NewString() + "/slots"

	rec := do(t, h, testActor(directory.RolePatient), http.MethodGet, base+"?clinic_id="+clinicID.String()+"&date=2026-06-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clinicID, appts.slotsClinic)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), appts.slotsDate)
	assert.Contains(t, rec.Body.String(), `"timezone":"America/New_York"`)

	rec = do(t, h, testActor(directory.RolePatient), http.MethodGet, base+"?clinic_id="+clinicID.String()+"&date=06/02/2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_date")

	rec = do(t, h, testActor(directory.RolePatient), http.MethodGet, base+"?date=2026-06-02", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid_clinic_id")
}

func TestReplaceAvailability(t *testing.T) {
	avail := &stubAvailability{}
	h := newTestRouter(&stubAppointments{}, avail)
	path := "/doctors/" + uuid.NewString() + "/availability"

	body := `{
		"windows": [{"day_of_week": 1, "start": "09:00", "end": "12:00"}],
		"breaks": [{"day_of_week": 1, "start": "10:00", "end": "10:30", "active": false}],
		"overrides": [{"date": "2026-06-08", "is_available": false}]
	}`
	rec := do(t, h, testActor(directory.RoleDoctor), http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, avail.rules.Windows, 1)
	assert.Equal(t, time.Monday, avail.rules.Windows[0].DayOfWeek)
	assert.Equal(t, timezone.TimeOfDay(9*time.Hour), avail.rules.Windows[0].Start)
	assert.True(t, avail.rules.Windows[0].Active)
	require.Len(t, avail.rules.Breaks, 1)
	assert.False(t, avail.rules.Breaks[0].Active)
	require.Len(t, avail.rules.Overrides, 1)
	assert.Equal(t, time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC), avail.rules.Overrides[0].Date)
	assert.Nil(t, avail.rules.Overrides[0].Start)

	var resp AvailabilityBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "2026-06-08", resp.Overrides[0].Date)

	rec = do(t, h, testActor(directory.RoleDoctor), http.MethodPut, path, `{"overrides":[{"date":"June 8"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAvailability(t *testing.T) {
	avail := &stubAvailability{rules: availability.Rules{
		Windows: []availability.WeeklyRule{{DayOfWeek: time.Tuesday, Start: timezone.TimeOfDay(8 * time.Hour), End: timezone.TimeOfDay(17 * time.Hour), Active: true}},
	}}
	h := newTestRouter(&stubAppointments{}, avail)

	rec := do(t, h, testActor(directory.RoleAdmin), http.MethodGet, "/doctors/"+uuid.NewString()+"/availability", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"start":"08:00"`)
	assert.Contains(t, rec.Body.String(), `"breaks":[]`)
}

func TestAuditTrailEmpty(t *testing.T) {
	h := newTestRouter(&stubAppointments{}, &stubAvailability{})
	rec := do(t, h, testActor(directory.RolePatient), http.MethodGet, "/appointments/"+uuid.NewString()+"/audit", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
