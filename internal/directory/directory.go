// Package directory is the read model of clinics, their opening hours,
// doctors and patients.
package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrClinicNotFound  = errors.New("clinic not found")
	ErrDoctorNotFound  = errors.New("doctor not found")
	ErrPatientNotFound = errors.New("patient not found")
)

type Directory interface {
	GetClinic(ctx context.Context, id uuid.UUID) (*Clinic, error)
	// GetOperatingHours returns every configured weekday row of the clinic.
	GetOperatingHours(ctx context.Context, clinicID uuid.UUID) ([]OperatingHour, error)

	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	GetDoctorByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error)

	GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPatientByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error)
}
