package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

type PgDirectory struct {
	q db.Querier
}

func NewPgDirectory(q db.Querier) *PgDirectory {
	return &PgDirectory{q: q}
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.ClinicID, &d.Name, &d.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("scan doctor: %w", err)
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.ClinicID, &p.Name, &p.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (d *PgDirectory) GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	var c Clinic
	err := d.q.QueryRow(ctx, `
		SELECT id, name, timezone, active
		FROM clinics
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Timezone, &c.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("scan clinic: %w", err)
	}
	return &c, nil
}

func (d *PgDirectory) GetOperatingHours(ctx context.Context, clinicID uuid.UUID) ([]OperatingHour, error) {
	rows, err := d.q.Query(ctx, `
		SELECT clinic_id, day_of_week, open_time, close_time, is_closed
		FROM clinic_operating_hours
		WHERE clinic_id = $1
		ORDER BY day_of_week
	`, clinicID)
	if err != nil {
		return nil, fmt.Errorf("query operating hours: %w", err)
	}
	defer rows.Close()

	var hours []OperatingHour
	for rows.Next() {
		var (
			h           OperatingHour
			day         int16
			openAt, closeAt pgtype.Time
		)
		if err := rows.Scan(&h.ClinicID, &day, &openAt, &closeAt, &h.IsClosed); err != nil {
			return nil, fmt.Errorf("scan operating hour: %w", err)
		}
		h.DayOfWeek = time.Weekday(day)
		h.Open = timeOfDayPtr(openAt)
		h.Close = timeOfDayPtr(closeAt)
		hours = append(hours, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return hours, nil
}

// ReplaceOperatingHours rewrites every weekday row of a clinic. Run it on a
// transaction when other clinic rows are written alongside.
func (d *PgDirectory) ReplaceOperatingHours(ctx context.Context, clinicID uuid.UUID, hours []OperatingHour) error {
	if _, err := d.q.Exec(ctx, `DELETE FROM clinic_operating_hours WHERE clinic_id = $1`, clinicID); err != nil {
		return fmt.Errorf("clear operating hours: %w", err)
	}
	for _, h := range hours {
		if _, err := d.q.Exec(ctx, `
			INSERT INTO clinic_operating_hours (clinic_id, day_of_week, open_time, close_time, is_closed)
			VALUES ($1, $2, $3, $4, $5)
		`, clinicID, int16(h.DayOfWeek), pgTime(h.Open), pgTime(h.Close), h.IsClosed); err != nil {
			return fmt.Errorf("insert operating hour: %w", err)
		}
	}
	return nil
}

func (d *PgDirectory) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	return scanDoctor(d.q.QueryRow(ctx, `
		SELECT id, user_id, clinic_id, name, active
		FROM doctors
		WHERE id = $1
	`, id))
}

func (d *PgDirectory) GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	return scanDoctor(d.q.QueryRow(ctx, `
		SELECT id, user_id, clinic_id, name, active
		FROM doctors
		WHERE user_id = $1
	`, userID))
}

func (d *PgDirectory) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(d.q.QueryRow(ctx, `
		SELECT id, user_id, clinic_id, name, active
		FROM patients
		WHERE id = $1
	`, id))
}

func (d *PgDirectory) GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	return scanPatient(d.q.QueryRow(ctx, `
		SELECT id, user_id, clinic_id, name, active
		FROM patients
		WHERE user_id = $1
	`, userID))
}

func timeOfDayPtr(t pgtype.Time) *timezone.TimeOfDay {
	if !t.Valid {
		return nil
	}
	v := timezone.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
	return &v
}

func pgTime(t *timezone.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return pgtype.Time{Microseconds: time.Duration(*t).Microseconds(), Valid: true}
}
