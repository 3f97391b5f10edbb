package directory

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Directory for tests and local tooling.
type Memory struct {
	mu       sync.RWMutex
	clinics  map[uuid.UUID]Clinic
	hours    map[uuid.UUID][]OperatingHour
	doctors  map[uuid.UUID]Doctor
	patients map[uuid.UUID]Patient
}

func NewMemory() *Memory {
	return &Memory{
		clinics:  make(map[uuid.UUID]Clinic),
		hours:    make(map[uuid.UUID][]OperatingHour),
		doctors:  make(map[uuid.UUID]Doctor),
		patients: make(map[uuid.UUID]Patient),
	}
}

// PutClinic stores a clinic together with its opening hours.
func (m *Memory) PutClinic(c Clinic, hours ...OperatingHour) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clinics[c.ID] = c
	m.hours[c.ID] = append([]OperatingHour(nil), hours...)
}

func (m *Memory) PutDoctor(d Doctor) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doctors[d.ID] = d
}

func (m *Memory) PutPatient(p Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[p.ID] = p
}

func (m *Memory) GetClinic(_ context.Context, id uuid.UUID) (*Clinic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.clinics[id]
	if !ok {
		return nil, ErrClinicNotFound
	}
	return &c, nil
}

func (m *Memory) GetOperatingHours(_ context.Context, clinicID uuid.UUID) ([]OperatingHour, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]OperatingHour(nil), m.hours[clinicID]...), nil
}

func (m *Memory) GetDoctor(_ context.Context, id uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.doctors[id]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *Memory) GetDoctorByUserID(_ context.Context, userID uuid.UUID) (*Doctor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.doctors {
		if d.UserID == userID {
			d := d
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (m *Memory) GetPatient(_ context.Context, id uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *Memory) GetPatientByUserID(_ context.Context, userID uuid.UUID) (*Patient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.patients {
		if p.UserID == userID {
			p := p
			return &p, nil
		}
	}
	return nil, ErrPatientNotFound
}
