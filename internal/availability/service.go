package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/timezone"
)

// Service manages doctors' availability rule sets.
type Service struct {
	store Store
	dir   directory.Directory
	log   zerolog.Logger
}

func NewService(store Store, dir directory.Directory, log zerolog.Logger) *Service {
	return &Service{store: store, dir: dir, log: log}
}

// GetRules returns a doctor's full rule set. Doctors may read their own
// rules, admins those of any doctor in their clinic.
func (s *Service) GetRules(ctx context.Context, actor directory.Actor, doctorID uuid.UUID) (Rules, error) {
	if _, err := s.authorize(ctx, actor, doctorID); err != nil {
		return Rules{}, err
	}

	rules, err := s.store.Rules(ctx, doctorID)
	if err != nil {
		return Rules{}, apperrors.Internal("load availability rules", err)
	}
	return rules, nil
}

// ReplaceRules validates and swaps a doctor's whole rule set.
func (s *Service) ReplaceRules(ctx context.Context, actor directory.Actor, doctorID uuid.UUID, rules Rules) (Rules, error) {
	if err := ValidateRules(rules); err != nil {
		return Rules{}, err
	}
	if _, err := s.authorize(ctx, actor, doctorID); err != nil {
		return Rules{}, err
	}

	normalized := normalize(doctorID, rules)
	if err := s.store.ReplaceRules(ctx, doctorID, normalized); err != nil {
		return Rules{}, apperrors.Internal("replace availability rules", err)
	}

	s.log.Info().
		Str("doctor_id", doctorID.String()).
		Str("actor_role", string(actor.Role)).
		Int("windows", len(normalized.Windows)).
		Int("breaks", len(normalized.Breaks)).
		Int("overrides", len(normalized.Overrides)).
		Msg("availability rules replaced")

	return normalized, nil
}

func (s *Service) authorize(ctx context.Context, actor directory.Actor, doctorID uuid.UUID) (*directory.Doctor, error) {
	if actor.Role != directory.RoleDoctor && actor.Role != directory.RoleAdmin {
		return nil, apperrors.Forbidden("only doctors and admins can manage availability")
	}

	doctor, err := s.dir.GetDoctor(ctx, doctorID)
	if err != nil {
		if errors.Is(err, directory.ErrDoctorNotFound) {
			return nil, apperrors.NotFound("doctor not found")
		}
		return nil, apperrors.Internal("load doctor", err)
	}

	switch actor.Role {
	case directory.RoleDoctor:
		if doctor.UserID != actor.UserID {
			return nil, apperrors.Forbidden("doctors can only manage their own availability")
		}
	case directory.RoleAdmin:
		if doctor.ClinicID != actor.ClinicID {
			return nil, apperrors.NotFound("doctor not found")
		}
	}
	return doctor, nil
}

// ValidateRules checks every rule's shape before anything is stored.
func ValidateRules(rules Rules) error {
	for i, w := range rules.Windows {
		if err := validateWeekly(w); err != nil {
			return apperrors.Validation("window %d: %s", i, err)
		}
	}
	for i, b := range rules.Breaks {
		if err := validateWeekly(b); err != nil {
			return apperrors.Validation("break %d: %s", i, err)
		}
	}
	for i, o := range rules.Overrides {
		if err := validateOverride(o); err != nil {
			return apperrors.Validation("override %d: %s", i, err)
		}
	}
	return nil
}

func validateWeekly(r WeeklyRule) error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return fmt.Errorf("day_of_week must be between 0 and 6")
	}
	if err := validateSpan(r.Start, r.End); err != nil {
		return err
	}
	return nil
}

func validateOverride(o Override) error {
	if o.Date.IsZero() {
		return fmt.Errorf("date is required")
	}
	if (o.Start == nil) != (o.End == nil) {
		return fmt.Errorf("start and end must be given together")
	}
	if o.IsAvailable && o.Start == nil {
		return fmt.Errorf("available overrides require start and end")
	}
	if o.Start != nil {
		return validateSpan(*o.Start, *o.End)
	}
	return nil
}

func validateSpan(start, end timezone.TimeOfDay) error {
	if start < 0 || time.Duration(end) > 24*time.Hour {
		return fmt.Errorf("times must fall within the day")
	}
	if end <= start {
		return fmt.Errorf("end must be after start")
	}
	return nil
}

func normalize(doctorID uuid.UUID, rules Rules) Rules {
	out := Rules{
		Windows:   make([]WeeklyRule, 0, len(rules.Windows)),
		Breaks:    make([]WeeklyRule, 0, len(rules.Breaks)),
		Overrides: make([]Override, 0, len(rules.Overrides)),
	}
	for _, w := range rules.Windows {
		w.ID, w.DoctorID = ensureID(w.ID), doctorID
		out.Windows = append(out.Windows, w)
	}
	for _, b := range rules.Breaks {
		b.ID, b.DoctorID = ensureID(b.ID), doctorID
		out.Breaks = append(out.Breaks, b)
	}
	for _, o := range rules.Overrides {
		o.ID, o.DoctorID, o.Date = ensureID(o.ID), doctorID, timezone.Date(o.Date)
		out.Overrides = append(out.Overrides, o)
	}
	return out
}
