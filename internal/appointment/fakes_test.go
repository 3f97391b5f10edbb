package appointment

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memState is everything the fake repository stores.
type memState struct {
	appts  map[uuid.UUID]Appointment
	events []AuditEvent
	notes  []Notification
}

func (s memState) clone() memState {
	return memState{
		appts:  maps.Clone(s.appts),
		events: slices.Clone(s.events),
		notes:  slices.Clone(s.notes),
	}
}

// memRepo is a Repository that serializes transactions and enforces the same
// no-overlap rule as the database constraints.
type memRepo struct {
	mu    sync.Mutex
	state memState

	// failAudit makes every audit insert fail.
	failAudit error
}

func newMemRepo() *memRepo {
	return &memRepo{state: memState{appts: make(map[uuid.UUID]Appointment)}}
}

func (r *memRepo) RunInTx(ctx context.Context, fn func(tx TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &memTx{state: r.state.clone(), failAudit: r.failAudit}
	if err := fn(tx); err != nil {
		return err
	}
	r.state = tx.state
	return nil
}

func (r *memRepo) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return getAppointment(r.state, id)
}

func (r *memRepo) ListScheduledByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return listScheduled(r.state, func(a Appointment) bool { return a.DoctorID == doctorID }, from, to), nil
}

func (r *memRepo) ListScheduledByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return listScheduled(r.state, func(a Appointment) bool { return a.PatientID == patientID }, from, to), nil
}

func (r *memRepo) ListAuditEvents(ctx context.Context, appointmentID uuid.UUID) ([]AuditEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []AuditEvent
	for _, ev := range r.state.events {
		if ev.AppointmentID == appointmentID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (r *memRepo) notifications() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.state.notes)
}

func (r *memRepo) eventTypes(appointmentID uuid.UUID) []EventType {
	events, _ := r.ListAuditEvents(context.Background(), appointmentID)
	out := make([]EventType, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.EventType)
	}
	return out
}

type memTx struct {
	state     memState
	failAudit error
}

func (t *memTx) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getAppointment(t.state, id)
}

func (t *memTx) LockAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return getAppointment(t.state, id)
}

func (t *memTx) ListScheduledByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return listScheduled(t.state, func(a Appointment) bool { return a.DoctorID == doctorID }, from, to), nil
}

func (t *memTx) ListScheduledByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	return listScheduled(t.state, func(a Appointment) bool { return a.PatientID == patientID }, from, to), nil
}

func (t *memTx) InsertAppointment(ctx context.Context, a *Appointment) error {
	if err := t.checkOverlap(*a); err != nil {
		return err
	}
	t.state.appts[a.ID] = *a
	return nil
}

func (t *memTx) UpdateAppointment(ctx context.Context, a *Appointment) error {
	if _, ok := t.state.appts[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	if err := t.checkOverlap(*a); err != nil {
		return err
	}
	t.state.appts[a.ID] = *a
	return nil
}

func (t *memTx) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	if t.failAudit != nil {
		return t.failAudit
	}
	ev.ID = int64(len(t.state.events) + 1)
	t.state.events = append(t.state.events, ev)
	return nil
}

func (t *memTx) InsertNotification(ctx context.Context, n Notification) error {
	t.state.notes = append(t.state.notes, n)
	return nil
}

func (t *memTx) ListAuditEvents(ctx context.Context, appointmentID uuid.UUID) ([]AuditEvent, error) {
	return nil, errors.New("not used in transactions")
}

func (t *memTx) checkOverlap(a Appointment) error {
	if a.Status != StatusScheduled {
		return nil
	}
	for _, other := range t.state.appts {
		if other.ID == a.ID || other.Status != StatusScheduled {
			continue
		}
		if other.DoctorID != a.DoctorID && other.PatientID != a.PatientID {
			continue
		}
		if other.DateTimeUTC.Before(a.EndUTC()) && a.DateTimeUTC.Before(other.EndUTC()) {
			return ErrBookingOverlap
		}
	}
	return nil
}

func getAppointment(s memState, id uuid.UUID) (*Appointment, error) {
	a, ok := s.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func listScheduled(s memState, match func(Appointment) bool, from, to time.Time) []Appointment {
	var out []Appointment
	for _, a := range s.appts {
		if a.Status == StatusScheduled && match(a) && a.DateTimeUTC.Before(to) && a.EndUTC().After(from) {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(x, y Appointment) int { return x.DateTimeUTC.Compare(y.DateTimeUTC) })
	return out
}
