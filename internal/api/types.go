package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/appointment"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

const dateLayout = "2006-01-02"

type CreateAppointmentRequest struct {
	DoctorID string    `json:"doctor_id"`
	ClinicID string    `json:"clinic_id"`
	StartUTC time.Time `json:"start_utc"`
}

type PostponeRequest struct {
	ProposedUTC time.Time `json:"proposed_utc"`
	Reason      string    `json:"reason"`
}

type PostponeResponseRequest struct {
	Decision   string     `json:"decision"`
	Note       string     `json:"note"`
	CounterUTC *time.Time `json:"counter_utc,omitempty"`
}

type CounterResponseRequest struct {
	Decision string `json:"decision"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type AttendanceRequest struct {
	Status string `json:"status"`
}

type AppointmentResponse struct {
	ID                    uuid.UUID  `json:"id"`
	Status                string     `json:"status"`
	DoctorID              uuid.UUID  `json:"doctor_id"`
	PatientID             uuid.UUID  `json:"patient_id"`
	ClinicID              uuid.UUID  `json:"clinic_id"`
	StartUTC              time.Time  `json:"start_utc"`
	PostponeStatus        string     `json:"postpone_status"`
	ProposedUTC           *time.Time `json:"proposed_utc,omitempty"`
	PostponeReason        *string    `json:"postpone_reason,omitempty"`
	DoctorResponseNote    *string    `json:"doctor_response_note,omitempty"`
	DoctorRespondedAtUTC  *time.Time `json:"doctor_responded_at_utc,omitempty"`
	PatientRespondedAtUTC *time.Time `json:"patient_responded_at_utc,omitempty"`
	CancelledAtUTC        *time.Time `json:"cancelled_at_utc,omitempty"`
	CancelledBy           *uuid.UUID `json:"cancelled_by,omitempty"`
	CancellationReason    *string    `json:"cancellation_reason,omitempty"`
}

func toAppointmentResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:                    a.ID,
		Status:                string(a.Status),
		DoctorID:              a.DoctorID,
		PatientID:             a.PatientID,
		ClinicID:              a.ClinicID,
		StartUTC:              a.DateTimeUTC,
		PostponeStatus:        string(a.PostponeStatus),
		ProposedUTC:           a.ProposedDateTimeUTC,
		PostponeReason:        a.PostponeReason,
		DoctorResponseNote:    a.DoctorResponseNote,
		DoctorRespondedAtUTC:  a.DoctorRespondedAtUTC,
		PatientRespondedAtUTC: a.PatientRespondedAtUTC,
		CancelledAtUTC:        a.CancelledAtUTC,
		CancelledBy:           a.CancelledBy,
		CancellationReason:    a.CancellationReason,
	}
}

// WeeklyRuleBody is a window or break on the wire. Active defaults to true.
type WeeklyRuleBody struct {
	ID        uuid.UUID          `json:"id,omitempty"`
	DayOfWeek int                `json:"day_of_week"`
	Start     timezone.TimeOfDay `json:"start"`
	End       timezone.TimeOfDay `json:"end"`
	Active    *bool              `json:"active,omitempty"`
}

// OverrideBody is a date override on the wire, dated YYYY-MM-DD.
type OverrideBody struct {
	ID          uuid.UUID           `json:"id,omitempty"`
	Date        string              `json:"date"`
	Start       *timezone.TimeOfDay `json:"start,omitempty"`
	End         *timezone.TimeOfDay `json:"end,omitempty"`
	IsAvailable bool                `json:"is_available"`
	Active      *bool               `json:"active,omitempty"`
}

type AvailabilityBody struct {
	Windows   []WeeklyRuleBody `json:"windows"`
	Breaks    []WeeklyRuleBody `json:"breaks"`
	Overrides []OverrideBody   `json:"overrides"`
}

func (b AvailabilityBody) toRules() (availability.Rules, error) {
	rules := availability.Rules{
		Windows: weeklyRules(b.Windows),
		Breaks:  weeklyRules(b.Breaks),
	}
	for _, o := range b.Overrides {
		date, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			return availability.Rules{}, err
		}
		rules.Overrides = append(rules.Overrides, availability.Override{
			ID:          o.ID,
			Date:        date,
			Start:       o.Start,
			End:         o.End,
			IsAvailable: o.IsAvailable,
			Active:      o.Active == nil || *o.Active,
		})
	}
	return rules, nil
}

func weeklyRules(in []WeeklyRuleBody) []availability.WeeklyRule {
	out := make([]availability.WeeklyRule, 0, len(in))
	for _, w := range in {
		out = append(out, availability.WeeklyRule{
			ID:        w.ID,
			DayOfWeek: time.Weekday(w.DayOfWeek),
			Start:     w.Start,
			End:       w.End,
			Active:    w.Active == nil || *w.Active,
		})
	}
	return out
}

func toAvailabilityBody(rules availability.Rules) AvailabilityBody {
	body := AvailabilityBody{
		Windows:   weeklyBodies(rules.Windows),
		Breaks:    weeklyBodies(rules.Breaks),
		Overrides: make([]OverrideBody, 0, len(rules.Overrides)),
	}
	for _, o := range rules.Overrides {
		active := o.Active
		body.Overrides = append(body.Overrides, OverrideBody{
			ID:          o.ID,
			Date:        o.Date.Format(dateLayout),
			Start:       o.Start,
			End:         o.End,
			IsAvailable: o.IsAvailable,
			Active:      &active,
		})
	}
	return body
}

func weeklyBodies(in []availability.WeeklyRule) []WeeklyRuleBody {
	out := make([]WeeklyRuleBody, 0, len(in))
	for _, w := range in {
		active := w.Active
		out = append(out, WeeklyRuleBody{
			ID:        w.ID,
			DayOfWeek: int(w.DayOfWeek),
			Start:     w.Start,
			End:       w.End,
			Active:    &active,
		})
	}
	return out
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
