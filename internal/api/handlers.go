package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

// requestContext pulls the authenticated actor and the {id} path param.
func requestContext(w http.ResponseWriter, r *http.Request) (directory.Actor, uuid.UUID, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
		return directory.Actor{}, uuid.Nil, false
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_id", "id must be a valid UUID")
		return directory.Actor{}, uuid.Nil, false
	}
	return actor, id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return false
	}
	return true
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing_token", "authentication required")
			return
		}

		var req CreateAppointmentRequest
		if !decodeBody(w, r, &req) {
			return
		}

		doctorID, err := uuid.Parse(req.DoctorID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
			return
		}

		clinicID, err := uuid.Parse(req.ClinicID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		appt, err := svc.Create(r.Context(), actor, appointment.CreateInput{
			DoctorID: doctorID,
			ClinicID: clinicID,
			StartUTC: req.StartUTC,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		appt, err := svc.GetAppointment(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func auditTrailHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		events, err := svc.ListAuditEvents(r.Context(), actor, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		if events == nil {
			events = []appointment.AuditEvent{}
		}

		writeJSON(w, http.StatusOK, events)
	}
}

func requestPostponeHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		var req PostponeRequest
		if !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.RequestPostpone(r.Context(), actor, id, appointment.PostponeInput{
			ProposedUTC: req.ProposedUTC,
			Reason:      req.Reason,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func respondToPostponeHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		var req PostponeResponseRequest
		if !decodeBody(w, r, &req) {
			return
		}

		decision, err := appointment.ParsePostponeDecision(req.Decision)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		appt, err := svc.RespondToPostponeRequest(r.Context(), actor, id, appointment.PostponeResponse{
			Decision:   decision,
			Note:       req.Note,
			CounterUTC: req.CounterUTC,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func respondToCounterHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		var req CounterResponseRequest
		if !decodeBody(w, r, &req) {
			return
		}

		decision, err := appointment.ParseCounterDecision(req.Decision)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		appt, err := svc.RespondToCounterPostpone(r.Context(), actor, id, decision)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		// The body is optional.
		var req CancelRequest
		if r.ContentLength != 0 && !decodeBody(w, r, &req) {
			return
		}

		appt, err := svc.Cancel(r.Context(), actor, id, req.Reason)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func attendanceHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, id, ok := requestContext(w, r)
		if !ok {
			return
		}

		var req AttendanceRequest
		if !decodeBody(w, r, &req) {
			return
		}

		status, err := appointment.ParseAttendance(req.Status)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		appt, err := svc.UpdateAttendance(r.Context(), actor, id, status)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func availableSlotsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, doctorID, ok := requestContext(w, r)
		if !ok {
			return
		}

		clinicID, err := uuid.Parse(r.URL.Query().Get("clinic_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_clinic_id", "clinic_id must be a valid UUID")
			return
		}

		date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		res, err := svc.GetAvailableSlots(r.Context(), actor, doctorID, clinicID, date)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, res)
	}
}

func getAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, doctorID, ok := requestContext(w, r)
		if !ok {
			return
		}

		rules, err := svc.GetRules(r.Context(), actor, doctorID)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityBody(rules))
	}
}

func replaceAvailabilityHandler(svc AvailabilityService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, doctorID, ok := requestContext(w, r)
		if !ok {
			return
		}

		var req AvailabilityBody
		if !decodeBody(w, r, &req) {
			return
		}

		rules, err := req.toRules()
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "override dates must be YYYY-MM-DD")
			return
		}

		saved, err := svc.ReplaceRules(r.Context(), actor, doctorID, rules)
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAvailabilityBody(saved))
	}
}
