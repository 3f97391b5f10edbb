package directory

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

type Role string

const (
	RolePatient Role = "Patient"
	RoleDoctor  Role = "Doctor"
	RoleAdmin   Role = "Admin"
)

// ParseRole matches role names case-insensitively.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "patient":
		return RolePatient, true
	case "doctor":
		return RoleDoctor, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

// Actor identifies the caller of a scheduling operation.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	ClinicID uuid.UUID
}

type Clinic struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Timezone string    `json:"timezone"`
	Active   bool      `json:"active"`
}

// OperatingHour is a clinic's opening hours for one weekday.
type OperatingHour struct {
	ClinicID  uuid.UUID           `json:"clinic_id"`
	DayOfWeek time.Weekday        `json:"day_of_week"`
	Open      *timezone.TimeOfDay `json:"open,omitempty"`
	Close     *timezone.TimeOfDay `json:"close,omitempty"`
	IsClosed  bool                `json:"is_closed"`
}

type Doctor struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	ClinicID uuid.UUID
	Name     string
	Active   bool
}

type Patient struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	ClinicID uuid.UUID
	Name     string
	Active   bool
}
