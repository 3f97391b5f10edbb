package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/slots"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// SlotsResult is one day of bookable starts for a doctor.
type SlotsResult struct {
	Timezone            string       `json:"timezone"`
	SlotDurationMinutes int          `json:"slot_duration_minutes"`
	Slots               []slots.Slot `json:"slots"`
}

// GetAvailableSlots lists the free starts of a doctor on a clinic-local date.
// Patients only see starts that are free for them too.
func (s *Service) GetAvailableSlots(ctx context.Context, actor directory.Actor, doctorID, clinicID uuid.UUID, date time.Time) (*SlotsResult, error) {
	started := time.Now()

	if doctorID == uuid.Nil || clinicID == uuid.Nil {
		return nil, apperrors.Validation("doctor_id and clinic_id are required")
	}
	if date.IsZero() {
		return nil, apperrors.Validation("date is required")
	}
	date = timezone.Date(date)

	var patient *directory.Patient
	switch actor.Role {
	case directory.RolePatient:
		p, err := s.dir.GetPatientByUserID(ctx, actor.UserID)
		if err != nil || !p.Active {
			return nil, lookupError(err, "patient profile not found")
		}
		if p.ClinicID != clinicID {
			return nil, apperrors.Forbidden("patients can only view slots of their own clinic")
		}
		patient = p
	case directory.RoleDoctor:
		d, err := s.dir.GetDoctorByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, lookupError(err, "doctor profile not found")
		}
		if d.ID != doctorID {
			return nil, apperrors.Forbidden("doctors can only view their own availability")
		}
	case directory.RoleAdmin:
		if actor.ClinicID != clinicID {
			return nil, apperrors.Forbidden("admins can only view slots of their own clinic")
		}
	default:
		return nil, apperrors.Forbidden("role %s cannot view slots", actor.Role)
	}

	clinic, err := s.activeClinic(ctx, clinicID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.dir.GetDoctor(ctx, doctorID)
	if err != nil || !doctor.Active || doctor.ClinicID != clinic.ID {
		return nil, lookupError(err, "doctor not found in this clinic")
	}

	intervals, err := s.dayIntervals(ctx, clinic, doctor.ID, date)
	if err != nil {
		return nil, err
	}

	// Any instant of the local date lies within a day of its naive midnight.
	from, to := date.Add(-24*time.Hour), date.Add(48*time.Hour)
	q := slots.Query{
		Intervals: intervals,
		Location:  timezone.Resolve(clinic.Timezone),
		Now:       s.now().UTC(),
	}
	if len(intervals) > 0 {
		doctorAppts, err := s.repo.ListScheduledByDoctor(ctx, doctor.ID, from, to)
		if err != nil {
			return nil, apperrors.Internal("list doctor appointments", err)
		}
		q.DoctorBusy = bookings(doctorAppts)

		if patient != nil {
			patientAppts, err := s.repo.ListScheduledByPatient(ctx, patient.ID, from, to)
			if err != nil {
				return nil, apperrors.Internal("list patient appointments", err)
			}
			q.PatientBusy = bookings(patientAppts)
		}
	}

	found := slots.Generate(q)
	if found == nil {
		found = []slots.Slot{}
	}
	s.metrics.ObserveSlotQuery(time.Since(started).Seconds(), len(found))

	return &SlotsResult{
		Timezone:            q.Location.String(),
		SlotDurationMinutes: int(slots.Duration / time.Minute),
		Slots:               found,
	}, nil
}

// IsDoctorBookableAt reports whether a new appointment of the doctor may start
// at startUTC as far as clinic hours and availability rules go. Existing
// appointments are not considered.
func (s *Service) IsDoctorBookableAt(ctx context.Context, doctorID, clinicID uuid.UUID, startUTC time.Time) (bool, error) {
	clinic, err := s.activeClinic(ctx, clinicID)
	if err != nil {
		return false, err
	}
	doctor, err := s.dir.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return false, nil
		}
		return false, apperrors.Internal("load doctor", err)
	}
	if !doctor.Active || doctor.ClinicID != clinic.ID {
		return false, nil
	}
	return s.bookable(ctx, clinic, doctor.ID, startUTC.UTC())
}

func (s *Service) requireBookable(ctx context.Context, p parties, start time.Time, message string) error {
	ok, err := s.bookable(ctx, p.clinic, p.doctor.ID, start)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.Precondition("%s", message)
	}
	return nil
}

func (s *Service) bookable(ctx context.Context, clinic *directory.Clinic, doctorID uuid.UUID, start time.Time) (bool, error) {
	loc := timezone.Resolve(clinic.Timezone)
	local := timezone.UTCToLocalIn(start, loc)

	// A repeated wall clock hour is bookable at its first occurrence only.
	if canonical, ok := timezone.LocalToUTCIn(local, loc); !ok || !canonical.Equal(start) {
		return false, nil
	}
	date := timezone.Date(local)

	intervals, err := s.dayIntervals(ctx, clinic, doctorID, date)
	if err != nil {
		return false, err
	}
	return slots.Fits(intervals, loc, start, slots.Duration), nil
}

// dayIntervals resolves the doctor's bookable local intervals on date.
func (s *Service) dayIntervals(ctx context.Context, clinic *directory.Clinic, doctorID uuid.UUID, date time.Time) ([]availability.Interval, error) {
	hours, err := s.clinicHours(ctx, clinic.ID, date.Weekday())
	if err != nil {
		return nil, err
	}
	if hours.Closed {
		return nil, nil
	}

	rules, err := s.rules.DayRules(ctx, doctorID, date)
	if err != nil {
		return nil, apperrors.Internal("load availability rules", err)
	}
	return availability.Resolve(date, hours, rules), nil
}

// clinicHours picks the weekday's row. A clinic without any rows is a setup
// error; a missing weekday is a closed day.
func (s *Service) clinicHours(ctx context.Context, clinicID uuid.UUID, day time.Weekday) (availability.ClinicHours, error) {
	rows, err := s.dir.GetOperatingHours(ctx, clinicID)
	if err != nil {
		return availability.ClinicHours{}, apperrors.Internal("load operating hours", err)
	}
	if len(rows) == 0 {
		return availability.ClinicHours{}, apperrors.Internal("clinic has no operating hours configured", nil)
	}

	for _, row := range rows {
		if row.DayOfWeek != day {
			continue
		}
		if row.IsClosed || row.Open == nil || row.Close == nil {
			return availability.ClinicHours{Closed: true}, nil
		}
		return availability.ClinicHours{Open: *row.Open, Close: *row.Close}, nil
	}
	return availability.ClinicHours{Closed: true}, nil
}
