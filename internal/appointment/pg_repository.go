package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
)

// SQLSTATE raised by the appointments exclusion constraints.
const exclusionViolation = "23P01"

type PgRepository struct {
	pgQueries
	pool db.Pool
}

func NewPgRepository(pool db.Pool) *PgRepository {
	return &PgRepository{pgQueries: pgQueries{q: pool}, pool: pool}
}

func (r *PgRepository) RunInTx(ctx context.Context, fn func(tx TxRepository) error) error {
	return db.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(pgQueries{q: tx})
	})
}

// pgQueries runs every statement against either the pool or an open tx.
type pgQueries struct {
	q db.Querier
}

const appointmentColumns = `
	id, doctor_id, patient_id, clinic_id, date_time_utc, status, postpone_status,
	proposed_date_time_utc, postpone_reason, doctor_response_note,
	doctor_responded_at_utc, patient_responded_at_utc,
	cancelled_at_utc, cancelled_by, cancellation_reason,
	created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.ClinicID,
		&a.DateTimeUTC,
		&a.Status,
		&a.PostponeStatus,
		&a.ProposedDateTimeUTC,
		&a.PostponeReason,
		&a.DoctorResponseNote,
		&a.DoctorRespondedAtUTC,
		&a.PatientRespondedAtUTC,
		&a.CancelledAtUTC,
		&a.CancelledBy,
		&a.CancellationReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.DateTimeUTC = a.DateTimeUTC.UTC()
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	a.ProposedDateTimeUTC = utcPtr(a.ProposedDateTimeUTC)
	a.DoctorRespondedAtUTC = utcPtr(a.DoctorRespondedAtUTC)
	a.PatientRespondedAtUTC = utcPtr(a.PatientRespondedAtUTC)
	a.CancelledAtUTC = utcPtr(a.CancelledAtUTC)
	return &a, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return fmt.Errorf("%w: %s", ErrBookingOverlap, pgErr.ConstraintName)
	}
	return err
}

// Interface methods

func (r pgQueries) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r pgQueries) LockAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.q.QueryRow(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanAppointment(row)
}

func (r pgQueries) ListScheduledByDoctor(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status = 'Scheduled'
		  AND date_time_utc < $3
		  AND end_time_utc > $2
		ORDER BY date_time_utc
	`, doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list doctor appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r pgQueries) ListScheduledByPatient(ctx context.Context, patientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.q.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		  AND status = 'Scheduled'
		  AND date_time_utc < $3
		  AND end_time_utc > $2
		ORDER BY date_time_utc
	`, patientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return collectAppointments(rows)
}

func (r pgQueries) InsertAppointment(ctx context.Context, a *Appointment) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO appointments (
			id, doctor_id, patient_id, clinic_id, date_time_utc, end_time_utc,
			status, postpone_status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
	`, a.ID, a.DoctorID, a.PatientID, a.ClinicID, a.DateTimeUTC, a.EndUTC(),
		a.Status, a.PostponeStatus, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert appointment: %w", mapWriteError(err))
	}
	return nil
}

func (r pgQueries) UpdateAppointment(ctx context.Context, a *Appointment) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE appointments
		SET date_time_utc = $2,
		    end_time_utc = $3,
		    status = $4,
		    postpone_status = $5,
		    proposed_date_time_utc = $6,
		    postpone_reason = $7,
		    doctor_response_note = $8,
		    doctor_responded_at_utc = $9,
		    patient_responded_at_utc = $10,
		    cancelled_at_utc = $11,
		    cancelled_by = $12,
		    cancellation_reason = $13,
		    updated_at = $14
		WHERE id = $1
	`, a.ID, a.DateTimeUTC, a.EndUTC(), a.Status, a.PostponeStatus,
		a.ProposedDateTimeUTC, a.PostponeReason, a.DoctorResponseNote,
		a.DoctorRespondedAtUTC, a.PatientRespondedAtUTC,
		a.CancelledAtUTC, a.CancelledBy, a.CancellationReason, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment: %w", mapWriteError(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r pgQueries) InsertAuditEvent(ctx context.Context, ev AuditEvent) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO appointment_audit_events (appointment_id, clinic_id, actor_user_id, actor_role, event_type, details, occurred_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.AppointmentID, ev.ClinicID, ev.ActorUserID, string(ev.ActorRole), string(ev.EventType), []byte(ev.Details), ev.OccurredAtUTC)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}

	return nil
}

func (r pgQueries) InsertNotification(ctx context.Context, n Notification) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO notifications (id, recipient_user_id, appointment_id, actor_user_id, type, title, message, is_read, created_at_utc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, n.ID, n.RecipientUserID, n.AppointmentID, n.ActorUserID, n.Type, n.Title, n.Message, n.CreatedAtUTC)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (r pgQueries) ListAuditEvents(ctx context.Context, appointmentID uuid.UUID) ([]AuditEvent, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, appointment_id, clinic_id, actor_user_id, actor_role, event_type, details, occurred_at_utc
		FROM appointment_audit_events
		WHERE appointment_id = $1
		ORDER BY id
	`, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var result []AuditEvent
	for rows.Next() {
		var (
			ev      AuditEvent
			role    string
			details []byte
		)
		if err := rows.Scan(&ev.ID, &ev.AppointmentID, &ev.ClinicID, &ev.ActorUserID, &role, &ev.EventType, &details, &ev.OccurredAtUTC); err != nil {
			return nil, err
		}
		ev.ActorRole = directory.Role(role)
		ev.Details = details
		result = append(result, ev)
	}

	return result, rows.Err()
}
