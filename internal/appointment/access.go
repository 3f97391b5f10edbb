package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// access is the set of roles a transition accepts.
type access uint8

const (
	allowPatient access = 1 << iota
	allowDoctor
	allowAdmin
)

func (a access) permits(role directory.Role) bool {
	switch role {
	case directory.RolePatient:
		return a&allowPatient != 0
	case directory.RoleDoctor:
		return a&allowDoctor != 0
	case directory.RoleAdmin:
		return a&allowAdmin != 0
	}
	return false
}

// parties are the directory records an appointment refers to.
type parties struct {
	clinic  *directory.Clinic
	doctor  *directory.Doctor
	patient *directory.Patient
}

func (p parties) location() *time.Location {
	return timezone.Resolve(p.clinic.Timezone)
}

// local formats an instant on the clinic's wall clock for messages.
func (p parties) local(t time.Time) string {
	return timezone.UTCToLocalIn(t, p.location()).Format("Mon 2 Jan 2006 15:04")
}

// load reads an appointment and checks the actor may act on it. Role is
// checked before any data is read.
func (s *Service) load(ctx context.Context, actor directory.Actor, id uuid.UUID, allowed access) (*Appointment, parties, error) {
	if !allowed.permits(actor.Role) {
		return nil, parties{}, apperrors.Forbidden("role %s cannot perform this action", actor.Role)
	}

	appt, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, parties{}, apperrors.NotFound("appointment not found")
		}
		return nil, parties{}, apperrors.Internal("load appointment", err)
	}

	p, err := s.parties(ctx, appt)
	if err != nil {
		return nil, parties{}, err
	}

	switch actor.Role {
	case directory.RolePatient:
		if p.patient.UserID != actor.UserID {
			return nil, parties{}, apperrors.Forbidden("patients can only act on their own appointments")
		}
	case directory.RoleDoctor:
		if p.doctor.UserID != actor.UserID {
			return nil, parties{}, apperrors.Forbidden("doctors can only act on their own appointments")
		}
	case directory.RoleAdmin:
		if appt.ClinicID != actor.ClinicID {
			return nil, parties{}, apperrors.NotFound("appointment not found")
		}
	}

	return appt, p, nil
}

func (s *Service) parties(ctx context.Context, appt *Appointment) (parties, error) {
	clinic, err := s.dir.GetClinic(ctx, appt.ClinicID)
	if err != nil {
		return parties{}, apperrors.Internal("load appointment clinic", err)
	}
	doctor, err := s.dir.GetDoctor(ctx, appt.DoctorID)
	if err != nil {
		return parties{}, apperrors.Internal("load appointment doctor", err)
	}
	patient, err := s.dir.GetPatient(ctx, appt.PatientID)
	if err != nil {
		return parties{}, apperrors.Internal("load appointment patient", err)
	}
	return parties{clinic: clinic, doctor: doctor, patient: patient}, nil
}

func (s *Service) activeClinic(ctx context.Context, clinicID uuid.UUID) (*directory.Clinic, error) {
	clinic, err := s.dir.GetClinic(ctx, clinicID)
	if err != nil || !clinic.Active {
		return nil, lookupError(err, "clinic not found")
	}
	return clinic, nil
}
