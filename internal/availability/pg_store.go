package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hackgods/clinic-appointment-scheduling/internal/db"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

type PgStore struct {
	pool db.Pool
}

func NewPgStore(pool db.Pool) *PgStore {
	return &PgStore{pool: pool}
}

const (
	selectWindows = `
		SELECT id, doctor_id, day_of_week, start_time, end_time, active
		FROM doctor_availability_windows`
	selectBreaks = `
		SELECT id, doctor_id, day_of_week, start_time, end_time, active
		FROM doctor_availability_breaks`
	selectOverrides = `
		SELECT id, doctor_id, date, start_time, end_time, is_available, active
		FROM doctor_availability_overrides`
)

// DayRules reads everything in one snapshot so a concurrent ReplaceRules is
// seen either fully or not at all.
func (s *PgStore) DayRules(ctx context.Context, doctorID uuid.UUID, date time.Time) (DayRules, error) {
	date = timezone.Date(date)
	weekday := int16(date.Weekday())

	var out DayRules
	err := db.InTxWithOptions(ctx, s.pool, db.SnapshotRead, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM doctor_availability_windows
				WHERE doctor_id = $1 AND active
			)
		`, doctorID).Scan(&out.HasWeeklyWindows)
		if err != nil {
			return fmt.Errorf("check weekly windows: %w", err)
		}

		out.Windows, err = queryWeekly(ctx, tx, selectWindows+`
			WHERE doctor_id = $1 AND day_of_week = $2 AND active
			ORDER BY start_time`, doctorID, weekday)
		if err != nil {
			return fmt.Errorf("load windows: %w", err)
		}

		out.Breaks, err = queryWeekly(ctx, tx, selectBreaks+`
			WHERE doctor_id = $1 AND day_of_week = $2 AND active
			ORDER BY start_time`, doctorID, weekday)
		if err != nil {
			return fmt.Errorf("load breaks: %w", err)
		}

		out.Overrides, err = queryOverrides(ctx, tx, selectOverrides+`
			WHERE doctor_id = $1 AND date = $2 AND active`, doctorID, pgtype.Date{Time: date, Valid: true})
		if err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
		return nil
	})
	if err != nil {
		return DayRules{}, err
	}
	return out, nil
}

func (s *PgStore) Rules(ctx context.Context, doctorID uuid.UUID) (Rules, error) {
	var out Rules
	err := db.InTxWithOptions(ctx, s.pool, db.SnapshotRead, func(tx pgx.Tx) error {
		var err error
		out.Windows, err = queryWeekly(ctx, tx, selectWindows+`
			WHERE doctor_id = $1
			ORDER BY day_of_week, start_time`, doctorID)
		if err != nil {
			return fmt.Errorf("load windows: %w", err)
		}

		out.Breaks, err = queryWeekly(ctx, tx, selectBreaks+`
			WHERE doctor_id = $1
			ORDER BY day_of_week, start_time`, doctorID)
		if err != nil {
			return fmt.Errorf("load breaks: %w", err)
		}

		out.Overrides, err = queryOverrides(ctx, tx, selectOverrides+`
			WHERE doctor_id = $1
			ORDER BY date, start_time NULLS FIRST`, doctorID)
		if err != nil {
			return fmt.Errorf("load overrides: %w", err)
		}
		return nil
	})
	if err != nil {
		return Rules{}, err
	}
	return out, nil
}

func (s *PgStore) ReplaceRules(ctx context.Context, doctorID uuid.UUID, rules Rules) error {
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		for _, table := range []string{
			"doctor_availability_windows",
			"doctor_availability_breaks",
			"doctor_availability_overrides",
		} {
			if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE doctor_id = $1", doctorID); err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}

		for _, w := range rules.Windows {
			if err := insertWeekly(ctx, tx, "doctor_availability_windows", doctorID, w); err != nil {
				return err
			}
		}
		for _, b := range rules.Breaks {
			if err := insertWeekly(ctx, tx, "doctor_availability_breaks", doctorID, b); err != nil {
				return err
			}
		}
		for _, o := range rules.Overrides {
			_, err := tx.Exec(ctx, `
				INSERT INTO doctor_availability_overrides (id, doctor_id, date, start_time, end_time, is_available, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, ensureID(o.ID), doctorID, pgtype.Date{Time: timezone.Date(o.Date), Valid: true},
				toPGTimePtr(o.Start), toPGTimePtr(o.End), o.IsAvailable, o.Active)
			if err != nil {
				return fmt.Errorf("insert override: %w", err)
			}
		}
		return nil
	})
}

func insertWeekly(ctx context.Context, q db.Querier, table string, doctorID uuid.UUID, r WeeklyRule) error {
	_, err := q.Exec(ctx, `
		INSERT INTO `+table+` (id, doctor_id, day_of_week, start_time, end_time, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, ensureID(r.ID), doctorID, int16(r.DayOfWeek), toPGTime(r.Start), toPGTime(r.End), r.Active)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

func queryWeekly(ctx context.Context, q db.Querier, sql string, args ...any) ([]WeeklyRule, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WeeklyRule
	for rows.Next() {
		var (
			r          WeeklyRule
			day        int16
			start, end pgtype.Time
		)
		if err := rows.Scan(&r.ID, &r.DoctorID, &day, &start, &end, &r.Active); err != nil {
			return nil, err
		}
		r.DayOfWeek = time.Weekday(day)
		r.Start = fromPGTime(start)
		r.End = fromPGTime(end)
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryOverrides(ctx context.Context, q db.Querier, sql string, args ...any) ([]Override, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Override
	for rows.Next() {
		var (
			o          Override
			date       pgtype.Date
			start, end pgtype.Time
		)
		if err := rows.Scan(&o.ID, &o.DoctorID, &date, &start, &end, &o.IsAvailable, &o.Active); err != nil {
			return nil, err
		}
		o.Date = timezone.Date(date.Time)
		if start.Valid && end.Valid {
			s, e := fromPGTime(start), fromPGTime(end)
			o.Start, o.End = &s, &e
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id == uuid.Nil {
		return uuid.New()
	}
	return id
}

func toPGTime(t timezone.TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(time.Duration(t) / time.Microsecond), Valid: true}
}

func toPGTimePtr(t *timezone.TimeOfDay) pgtype.Time {
	if t == nil {
		return pgtype.Time{}
	}
	return toPGTime(*t)
}

func fromPGTime(t pgtype.Time) timezone.TimeOfDay {
	return timezone.TimeOfDay(time.Duration(t.Microseconds) * time.Microsecond)
}
