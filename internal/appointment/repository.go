package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	// ErrBookingOverlap is returned when storage rejects a write because two
	// scheduled appointments of one doctor or patient would overlap.
	ErrBookingOverlap = errors.New("booking overlaps an existing appointment")
)

// Reader holds the read queries used outside and inside transactions.
type Reader interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	// Scheduled appointments overlapping [from, to)
	ListScheduledByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListScheduledByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error)
}

// TxRepository is the view of storage inside one transition.
type TxRepository interface {
	Reader

	// LockAppointment re-reads the row and holds it until the transaction ends.
	LockAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)

	InsertAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointment(ctx context.Context, a *Appointment) error

	// Side effects written with the appointment
	InsertAuditEvent(ctx context.Context, ev AuditEvent) error
	InsertNotification(ctx context.Context, n Notification) error
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	Reader

	// RunInTx commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(tx TxRepository) error) error

	ListAuditEvents(ctx context.Context, appointmentID uuid.UUID) ([]AuditEvent, error)
}
