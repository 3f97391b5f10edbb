package appointment

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/slots"
)

type Status string

const (
	StatusScheduled Status = "Scheduled"
	StatusCancelled Status = "Cancelled"
	StatusCompleted Status = "Completed"
	StatusNoShow    Status = "NoShow"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

type PostponeStatus string

const (
	PostponeNone            PostponeStatus = "None"
	PostponePending         PostponeStatus = "Pending"
	PostponeApproved        PostponeStatus = "Approved"
	PostponeRejected        PostponeStatus = "Rejected"
	PostponeCounterProposed PostponeStatus = "CounterProposed"
)

type Appointment struct {
	ID                    uuid.UUID      `json:"id"`
	DoctorID              uuid.UUID      `json:"doctor_id"`
	PatientID             uuid.UUID      `json:"patient_id"`
	ClinicID              uuid.UUID      `json:"clinic_id"`
	DateTimeUTC           time.Time      `json:"date_time_utc"`
	Status                Status         `json:"status"`
	PostponeStatus        PostponeStatus `json:"postpone_status"`
	ProposedDateTimeUTC   *time.Time     `json:"proposed_date_time_utc,omitempty"`
	PostponeReason        *string        `json:"postpone_reason,omitempty"`
	DoctorResponseNote    *string        `json:"doctor_response_note,omitempty"`
	DoctorRespondedAtUTC  *time.Time     `json:"doctor_responded_at_utc,omitempty"`
	PatientRespondedAtUTC *time.Time     `json:"patient_responded_at_utc,omitempty"`
	CancelledAtUTC        *time.Time     `json:"cancelled_at_utc,omitempty"`
	CancelledBy           *uuid.UUID     `json:"cancelled_by,omitempty"`
	CancellationReason    *string        `json:"cancellation_reason,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// EndUTC is the exclusive end of the fixed-length appointment.
func (a Appointment) EndUTC() time.Time {
	return a.DateTimeUTC.Add(slots.Duration)
}

func (a Appointment) booking() slots.Booking {
	return slots.Booking{
		ID:       a.ID,
		Start:    a.DateTimeUTC,
		End:      a.EndUTC(),
		Blocking: a.Status == StatusScheduled,
	}
}

func bookings(appts []Appointment) []slots.Booking {
	out := make([]slots.Booking, 0, len(appts))
	for _, a := range appts {
		out = append(out, a.booking())
	}
	return out
}

type EventType string

const (
	EventCreated                          EventType = "Created"
	EventPostponeRequested                EventType = "PostponeRequested"
	EventPostponeApprovedByDoctor         EventType = "PostponeApprovedByDoctor"
	EventPostponeRejectedByDoctor         EventType = "PostponeRejectedByDoctor"
	EventPostponeCounterProposedByDoctor  EventType = "PostponeCounterProposedByDoctor"
	EventPostponeCounterAcceptedByPatient EventType = "PostponeCounterAcceptedByPatient"
	EventPostponeCounterRejectedByPatient EventType = "PostponeCounterRejectedByPatient"
	EventCancelled                        EventType = "Cancelled"
	EventAttendanceMarkedCompleted        EventType = "AttendanceMarkedCompleted"
	EventAttendanceMarkedNoShow           EventType = "AttendanceMarkedNoShow"
)

// AuditEvent is the append-only record of one transition.
type AuditEvent struct {
	ID            int64           `json:"id"`
	AppointmentID uuid.UUID       `json:"appointment_id"`
	ClinicID      uuid.UUID       `json:"clinic_id"`
	ActorUserID   *uuid.UUID      `json:"actor_user_id,omitempty"`
	ActorRole     directory.Role  `json:"actor_role"`
	EventType     EventType       `json:"event_type"`
	Details       json.RawMessage `json:"details,omitempty"`
	OccurredAtUTC time.Time       `json:"occurred_at_utc"`
}

type Notification struct {
	ID              uuid.UUID  `json:"id"`
	RecipientUserID uuid.UUID  `json:"recipient_user_id"`
	AppointmentID   *uuid.UUID `json:"appointment_id,omitempty"`
	ActorUserID     *uuid.UUID `json:"actor_user_id,omitempty"`
	Type            string     `json:"type"`
	Title           string     `json:"title"`
	Message         string     `json:"message"`
	IsRead          bool       `json:"is_read"`
	CreatedAtUTC    time.Time  `json:"created_at_utc"`
	ReadAtUTC       *time.Time `json:"read_at_utc,omitempty"`
}

// PostponeDecision is the doctor's answer to a pending postpone request.
type PostponeDecision int

const (
	DecisionApprove PostponeDecision = iota + 1
	DecisionReject
	DecisionCounterPropose
)

func (d PostponeDecision) String() string {
	switch d {
	case DecisionApprove:
		return "Approve"
	case DecisionReject:
		return "Reject"
	case DecisionCounterPropose:
		return "CounterPropose"
	}
	return "Unknown"
}

func ParsePostponeDecision(s string) (PostponeDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve":
		return DecisionApprove, nil
	case "reject":
		return DecisionReject, nil
	case "counterpropose":
		return DecisionCounterPropose, nil
	}
	return 0, apperrors.Validation("decision must be Approve, Reject or CounterPropose")
}

// CounterDecision is the patient's answer to a doctor's counter proposal.
type CounterDecision int

const (
	CounterAccept CounterDecision = iota + 1
	CounterReject
)

func (d CounterDecision) String() string {
	switch d {
	case CounterAccept:
		return "Accept"
	case CounterReject:
		return "Reject"
	}
	return "Unknown"
}

func ParseCounterDecision(s string) (CounterDecision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return CounterAccept, nil
	case "reject":
		return CounterReject, nil
	}
	return 0, apperrors.Validation("decision must be Accept or Reject")
}

// ParseAttendance accepts the two statuses attendance can be recorded as.
func ParseAttendance(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed":
		return StatusCompleted, nil
	case "noshow":
		return StatusNoShow, nil
	}
	return "", apperrors.Validation("status must be Completed or NoShow")
}
