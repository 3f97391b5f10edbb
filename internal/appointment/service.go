package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/clinic-appointment-scheduling/internal/apperrors"
	"github.com/hackgods/clinic-appointment-scheduling/internal/availability"
	"github.com/hackgods/clinic-appointment-scheduling/internal/directory"
	"github.com/hackgods/clinic-appointment-scheduling/internal/metrics"
	redisclient "github.com/hackgods/clinic-appointment-scheduling/internal/redis"
	"github.com/hackgods/clinic-appointment-scheduling/internal/slots"
)

// Attendance may be recorded this long before the appointment starts.
const attendanceLeadTime = 5 * time.Minute

const minRejectNoteLength = 5

type Service struct {
	repo    Repository
	dir     directory.Directory
	rules   availability.Store
	locker  redisclient.Locker
	metrics *metrics.Lifecycle
	log     zerolog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithMetrics(m *metrics.Lifecycle) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(repo Repository, dir directory.Directory, rules availability.Store, locker redisclient.Locker, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		dir:    dir,
		rules:  rules,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type CreateInput struct {
	DoctorID uuid.UUID
	ClinicID uuid.UUID
	StartUTC time.Time
}

// Create books a new appointment for the calling patient.
func (s *Service) Create(ctx context.Context, actor directory.Actor, in CreateInput) (*Appointment, error) {
	const transition = "create"

	if actor.Role != directory.RolePatient {
		return nil, s.fail(transition, apperrors.Forbidden("only patients can book appointments"))
	}
	if in.DoctorID == uuid.Nil || in.ClinicID == uuid.Nil {
		return nil, s.fail(transition, apperrors.Validation("doctor_id and clinic_id are required"))
	}
	if in.StartUTC.IsZero() {
		return nil, s.fail(transition, apperrors.Validation("start time is required"))
	}

	now := s.now().UTC()
	start := in.StartUTC.UTC()
	if !start.After(now) {
		return nil, s.fail(transition, apperrors.Precondition("appointment time must be in the future"))
	}

	patient, err := s.dir.GetPatientByUserID(ctx, actor.UserID)
	if err != nil || !patient.Active {
		return nil, s.fail(transition, lookupError(err, "patient profile not found"))
	}
	if patient.ClinicID != in.ClinicID {
		return nil, s.fail(transition, apperrors.Forbidden("patients can only book within their own clinic"))
	}

	clinic, err := s.activeClinic(ctx, in.ClinicID)
	if err != nil {
		return nil, s.fail(transition, err)
	}
	doctor, err := s.dir.GetDoctor(ctx, in.DoctorID)
	if err != nil || !doctor.Active || doctor.ClinicID != clinic.ID {
		return nil, s.fail(transition, lookupError(err, "doctor not found in this clinic"))
	}

	p := parties{clinic: clinic, doctor: doctor, patient: patient}
	if err := s.requireBookable(ctx, p, start, "doctor is not available at the requested time"); err != nil {
		return nil, s.fail(transition, err)
	}

	appt := &Appointment{
		ID:             uuid.New(),
		DoctorID:       doctor.ID,
		PatientID:      patient.ID,
		ClinicID:       clinic.ID,
		DateTimeUTC:    start,
		Status:         StatusScheduled,
		PostponeStatus: PostponeNone,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.locker.WithDoctorLock(ctx, doctor.ID, func(lockCtx context.Context) error {
		return s.repo.RunInTx(lockCtx, func(tx TxRepository) error {
			if err := s.checkConflicts(lockCtx, tx, appt.DoctorID, appt.PatientID, start, uuid.Nil); err != nil {
				return err
			}
			if err := tx.InsertAppointment(lockCtx, appt); err != nil {
				return err
			}
			return s.record(lockCtx, tx, actor, appt, now, outcome{
				event:   EventCreated,
				details: map[string]any{"date_time_utc": start, "doctor_id": doctor.ID, "patient_id": patient.ID},
			})
		})
	})
	if err != nil {
		return nil, s.fail(transition, err)
	}

	s.succeed(transition, actor, appt)
	return appt, nil
}

type PostponeInput struct {
	ProposedUTC time.Time
	Reason      string
}

// RequestPostpone lets the owning patient ask the doctor for a new time.
func (s *Service) RequestPostpone(ctx context.Context, actor directory.Actor, id uuid.UUID, in PostponeInput) (*Appointment, error) {
	if in.ProposedUTC.IsZero() {
		return nil, s.fail("postpone_request", apperrors.Validation("proposed date is required"))
	}
	proposed := in.ProposedUTC.UTC()
	reason := optionalText(in.Reason)

	return s.transition(ctx, actor, id, "postpone_request", allowPatient, false,
		func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error) {
			if a.Status != StatusScheduled {
				return outcome{}, apperrors.Precondition("only scheduled appointments can be postponed")
			}
			if a.PostponeStatus == PostponeCounterProposed {
				return outcome{}, apperrors.Precondition("respond to the doctor's counter proposal first")
			}
			if !a.DateTimeUTC.After(now) {
				return outcome{}, apperrors.Precondition("past appointments cannot be postponed")
			}
			if err := s.checkNewTime(ctx, tx, p, a, proposed, now); err != nil {
				return outcome{}, err
			}

			a.PostponeStatus = PostponePending
			a.ProposedDateTimeUTC = &proposed
			a.PostponeReason = reason
			a.DoctorResponseNote = nil
			a.DoctorRespondedAtUTC = nil
			a.PatientRespondedAtUTC = nil

			return outcome{
				event:   EventPostponeRequested,
				details: map[string]any{"from": a.DateTimeUTC, "to": proposed, "reason": reason},
				notify: []Notification{s.notification(a, p.doctor.UserID, EventPostponeRequested,
					"Postpone requested",
					fmt.Sprintf("%s asked to move the appointment on %s to %s.", p.patient.Name, p.local(a.DateTimeUTC), p.local(proposed)))},
			}, nil
		})
}

type PostponeResponse struct {
	Decision   PostponeDecision
	Note       string
	CounterUTC *time.Time
}

// RespondToPostponeRequest is the owning doctor's answer to a pending request.
func (s *Service) RespondToPostponeRequest(ctx context.Context, actor directory.Actor, id uuid.UUID, in PostponeResponse) (*Appointment, error) {
	transition := "postpone_" + strings.ToLower(in.Decision.String())
	note := optionalText(in.Note)

	switch in.Decision {
	case DecisionApprove:
	case DecisionReject:
		if note == nil || len([]rune(*note)) < minRejectNoteLength {
			return nil, s.fail(transition, apperrors.Validation("a note of at least %d characters is required to reject", minRejectNoteLength))
		}
	case DecisionCounterPropose:
		if in.CounterUTC == nil || in.CounterUTC.IsZero() {
			return nil, s.fail(transition, apperrors.Validation("counter proposal requires a date"))
		}
	default:
		return nil, s.fail(transition, apperrors.Validation("unknown decision"))
	}

	return s.transition(ctx, actor, id, transition, allowDoctor, in.Decision == DecisionApprove,
		func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error) {
			if a.Status != StatusScheduled {
				return outcome{}, apperrors.Precondition("only scheduled appointments can be postponed")
			}
			if a.PostponeStatus != PostponePending || a.ProposedDateTimeUTC == nil {
				return outcome{}, apperrors.Precondition("there is no pending postpone request")
			}

			var out outcome
			switch in.Decision {
			case DecisionApprove:
				proposed := *a.ProposedDateTimeUTC
				if !proposed.After(now) {
					return outcome{}, apperrors.Precondition("proposed date is no longer in the future")
				}
				if err := s.requireBookable(ctx, p, proposed, "doctor is not available at the proposed time"); err != nil {
					return outcome{}, err
				}
				if err := s.checkConflicts(ctx, tx, a.DoctorID, a.PatientID, proposed, a.ID); err != nil {
					return outcome{}, err
				}
				out = outcome{
					event:   EventPostponeApprovedByDoctor,
					details: map[string]any{"from": a.DateTimeUTC, "to": proposed, "note": note},
					notify: []Notification{s.notification(a, p.patient.UserID, EventPostponeApprovedByDoctor,
						"Postpone approved",
						fmt.Sprintf("Your appointment was moved to %s.", p.local(proposed)))},
				}
				a.DateTimeUTC = proposed
				a.PostponeStatus = PostponeApproved

			case DecisionReject:
				out = outcome{
					event:   EventPostponeRejectedByDoctor,
					details: map[string]any{"proposed": *a.ProposedDateTimeUTC, "note": note},
					notify: []Notification{s.notification(a, p.patient.UserID, EventPostponeRejectedByDoctor,
						"Postpone rejected",
						fmt.Sprintf("Your appointment stays on %s. Note: %s", p.local(a.DateTimeUTC), *note))},
				}
				a.PostponeStatus = PostponeRejected

			case DecisionCounterPropose:
				counter := in.CounterUTC.UTC()
				if err := s.checkNewTime(ctx, tx, p, a, counter, now); err != nil {
					return outcome{}, err
				}
				out = outcome{
					event:   EventPostponeCounterProposedByDoctor,
					details: map[string]any{"requested": *a.ProposedDateTimeUTC, "counter": counter, "note": note},
					notify: []Notification{s.notification(a, p.patient.UserID, EventPostponeCounterProposedByDoctor,
						"New time proposed",
						fmt.Sprintf("%s proposed %s instead.", p.doctor.Name, p.local(counter)))},
				}
				a.ProposedDateTimeUTC = &counter
				a.PostponeStatus = PostponeCounterProposed
			}

			a.DoctorResponseNote = note
			a.DoctorRespondedAtUTC = &now
			return out, nil
		})
}

// RespondToCounterPostpone is the owning patient's answer to a counter proposal.
func (s *Service) RespondToCounterPostpone(ctx context.Context, actor directory.Actor, id uuid.UUID, decision CounterDecision) (*Appointment, error) {
	transition := "counter_" + strings.ToLower(decision.String())
	if decision != CounterAccept && decision != CounterReject {
		return nil, s.fail(transition, apperrors.Validation("unknown decision"))
	}

	return s.transition(ctx, actor, id, transition, allowPatient, decision == CounterAccept,
		func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error) {
			if a.Status != StatusScheduled {
				return outcome{}, apperrors.Precondition("only scheduled appointments can be postponed")
			}
			if a.PostponeStatus != PostponeCounterProposed || a.ProposedDateTimeUTC == nil {
				return outcome{}, apperrors.Precondition("there is no counter proposal to respond to")
			}
			proposed := *a.ProposedDateTimeUTC

			var out outcome
			if decision == CounterAccept {
				if !proposed.After(now) {
					return outcome{}, apperrors.Precondition("proposed date is no longer in the future")
				}
				if err := s.requireBookable(ctx, p, proposed, "doctor is not available at the proposed time"); err != nil {
					return outcome{}, err
				}
				if err := s.checkConflicts(ctx, tx, a.DoctorID, a.PatientID, proposed, a.ID); err != nil {
					return outcome{}, err
				}
				out = outcome{
					event:   EventPostponeCounterAcceptedByPatient,
					details: map[string]any{"from": a.DateTimeUTC, "to": proposed},
					notify: []Notification{s.notification(a, p.doctor.UserID, EventPostponeCounterAcceptedByPatient,
						"Counter proposal accepted",
						fmt.Sprintf("%s accepted %s.", p.patient.Name, p.local(proposed)))},
				}
				a.DateTimeUTC = proposed
				a.PostponeStatus = PostponeApproved
			} else {
				out = outcome{
					event:   EventPostponeCounterRejectedByPatient,
					details: map[string]any{"counter": proposed},
					notify: []Notification{s.notification(a, p.doctor.UserID, EventPostponeCounterRejectedByPatient,
						"Counter proposal rejected",
						fmt.Sprintf("%s kept the appointment on %s.", p.patient.Name, p.local(a.DateTimeUTC)))},
				}
				a.PostponeStatus = PostponeRejected
			}

			a.PatientRespondedAtUTC = &now
			return out, nil
		})
}

// Cancel cancels a future appointment. Both parties other than the actor are
// notified.
func (s *Service) Cancel(ctx context.Context, actor directory.Actor, id uuid.UUID, reason string) (*Appointment, error) {
	why := optionalText(reason)

	return s.transition(ctx, actor, id, "cancel", allowPatient|allowDoctor|allowAdmin, false,
		func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error) {
			if a.Status.Terminal() {
				return outcome{}, apperrors.Precondition("appointment is already %s", strings.ToLower(string(a.Status)))
			}
			if !a.DateTimeUTC.After(now) {
				return outcome{}, apperrors.Precondition("past appointments cannot be cancelled")
			}

			a.Status = StatusCancelled
			a.CancelledAtUTC = &now
			cancelledBy := actor.UserID
			a.CancelledBy = &cancelledBy
			a.CancellationReason = why
			a.PostponeStatus = PostponeNone
			a.ProposedDateTimeUTC = nil
			a.PostponeReason = nil
			a.DoctorResponseNote = nil
			a.DoctorRespondedAtUTC = nil
			a.PatientRespondedAtUTC = nil

			msg := fmt.Sprintf("The appointment on %s was cancelled.", p.local(a.DateTimeUTC))
			if why != nil {
				msg += " Reason: " + *why
			}
			var notify []Notification
			for _, userID := range []uuid.UUID{p.patient.UserID, p.doctor.UserID} {
				if userID != actor.UserID {
					notify = append(notify, s.notification(a, userID, EventCancelled, "Appointment cancelled", msg))
				}
			}

			return outcome{
				event:   EventCancelled,
				details: map[string]any{"reason": why},
				notify:  notify,
			}, nil
		})
}

// UpdateAttendance records whether the patient showed up. It is write-once.
func (s *Service) UpdateAttendance(ctx context.Context, actor directory.Actor, id uuid.UUID, status Status) (*Appointment, error) {
	var event EventType
	switch status {
	case StatusCompleted:
		event = EventAttendanceMarkedCompleted
	case StatusNoShow:
		event = EventAttendanceMarkedNoShow
	default:
		return nil, s.fail("attendance", apperrors.Validation("status must be Completed or NoShow"))
	}

	return s.transition(ctx, actor, id, "attendance", allowDoctor|allowAdmin, false,
		func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error) {
			if a.Status != StatusScheduled {
				return outcome{}, apperrors.Precondition("attendance can only be recorded for scheduled appointments")
			}
			if a.DateTimeUTC.After(now.Add(attendanceLeadTime)) {
				return outcome{}, apperrors.Precondition("attendance cannot be recorded before the appointment starts")
			}

			a.Status = status
			return outcome{event: event}, nil
		})
}

// GetAppointment returns a snapshot visible to its patient, its doctor or an
// admin of its clinic.
func (s *Service) GetAppointment(ctx context.Context, actor directory.Actor, id uuid.UUID) (*Appointment, error) {
	appt, _, err := s.load(ctx, actor, id, allowPatient|allowDoctor|allowAdmin)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// ListAuditEvents returns the audit trail of an appointment in write order.
func (s *Service) ListAuditEvents(ctx context.Context, actor directory.Actor, id uuid.UUID) ([]AuditEvent, error) {
	if _, _, err := s.load(ctx, actor, id, allowDoctor|allowAdmin); err != nil {
		return nil, err
	}
	events, err := s.repo.ListAuditEvents(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("list audit events", err)
	}
	return events, nil
}

// outcome is what a successful transition writes besides the appointment row.
type outcome struct {
	event   EventType
	details map[string]any
	notify  []Notification
}

type mutation func(ctx context.Context, tx TxRepository, p parties, a *Appointment, now time.Time) (outcome, error)

// transition loads and authorizes the appointment, then applies fn to the
// locked row inside one transaction. lock additionally takes the doctor lock.
func (s *Service) transition(ctx context.Context, actor directory.Actor, id uuid.UUID, name string, allowed access, lock bool, fn mutation) (*Appointment, error) {
	appt, p, err := s.load(ctx, actor, id, allowed)
	if err != nil {
		return nil, s.fail(name, err)
	}

	now := s.now().UTC()
	var updated *Appointment

	run := func(ctx context.Context) error {
		return s.repo.RunInTx(ctx, func(tx TxRepository) error {
			cur, err := tx.LockAppointment(ctx, id)
			if err != nil {
				return fmt.Errorf("lock appointment: %w", err)
			}

			out, err := fn(ctx, tx, p, cur, now)
			if err != nil {
				return err
			}

			cur.UpdatedAt = now
			if err := tx.UpdateAppointment(ctx, cur); err != nil {
				return err
			}
			if err := s.record(ctx, tx, actor, cur, now, out); err != nil {
				return err
			}
			updated = cur
			return nil
		})
	}

	if lock {
		err = s.locker.WithDoctorLock(ctx, appt.DoctorID, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, s.fail(name, err)
	}

	s.succeed(name, actor, updated)
	return updated, nil
}

// record writes the audit event and notifications of a transition.
func (s *Service) record(ctx context.Context, tx TxRepository, actor directory.Actor, a *Appointment, now time.Time, out outcome) error {
	var details []byte
	if len(out.details) > 0 {
		data, err := json.Marshal(out.details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		details = data
	}

	actorID := actor.UserID
	ev := AuditEvent{
		AppointmentID: a.ID,
		ClinicID:      a.ClinicID,
		ActorUserID:   &actorID,
		ActorRole:     actor.Role,
		EventType:     out.event,
		Details:       details,
		OccurredAtUTC: now,
	}
	if err := tx.InsertAuditEvent(ctx, ev); err != nil {
		return err
	}

	for _, n := range out.notify {
		n.ActorUserID = &actorID
		n.CreatedAtUTC = now
		if err := tx.InsertNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) notification(a *Appointment, recipient uuid.UUID, event EventType, title, message string) Notification {
	apptID := a.ID
	return Notification{
		ID:              uuid.New(),
		RecipientUserID: recipient,
		AppointmentID:   &apptID,
		Type:            string(event),
		Title:           title,
		Message:         message,
	}
}

// checkNewTime validates a proposed replacement time for a.
func (s *Service) checkNewTime(ctx context.Context, tx TxRepository, p parties, a *Appointment, proposed, now time.Time) error {
	if !proposed.After(now) {
		return apperrors.Precondition("proposed date must be in the future")
	}
	if proposed.Equal(a.DateTimeUTC) {
		return apperrors.Precondition("proposed date must differ from the current date")
	}
	if err := s.requireBookable(ctx, p, proposed, "doctor is not available at the proposed time"); err != nil {
		return err
	}
	return s.checkConflicts(ctx, tx, a.DoctorID, a.PatientID, proposed, a.ID)
}

// checkConflicts rejects start when the doctor or the patient already has a
// scheduled appointment overlapping it.
func (s *Service) checkConflicts(ctx context.Context, r Reader, doctorID, patientID uuid.UUID, start time.Time, exclude uuid.UUID) error {
	end := start.Add(slots.Duration)

	doctorAppts, err := r.ListScheduledByDoctor(ctx, doctorID, start, end)
	if err != nil {
		return err
	}
	if slots.HasConflict(bookings(doctorAppts), start, slots.Duration, exclude) {
		return apperrors.Conflict("doctor already has an appointment at this time")
	}

	patientAppts, err := r.ListScheduledByPatient(ctx, patientID, start, end)
	if err != nil {
		return err
	}
	if slots.HasConflict(bookings(patientAppts), start, slots.Duration, exclude) {
		return apperrors.Conflict("patient already has an appointment at this time")
	}
	return nil
}

func (s *Service) fail(transition string, err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		err = apperrors.Conflict("the doctor's calendar is being updated, please retry")
	case errors.Is(err, ErrBookingOverlap):
		err = apperrors.Conflict("the requested time overlaps an existing appointment")
	case errors.Is(err, ErrAppointmentNotFound):
		err = apperrors.NotFound("appointment not found")
	default:
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			err = apperrors.Internal(transition+" failed", err)
		}
	}

	kind := apperrors.KindOf(err)
	s.metrics.ObserveTransition(transition, string(kind))
	if kind == apperrors.KindInternal {
		s.log.Error().Err(err).Str("transition", transition).Msg("appointment transition failed")
	} else {
		s.log.Debug().Str("transition", transition).Str("kind", string(kind)).Msg(apperrors.MessageOf(err))
	}
	return err
}

func (s *Service) succeed(transition string, actor directory.Actor, a *Appointment) {
	s.metrics.ObserveTransition(transition, "ok")
	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("transition", transition).
		Str("actor_role", string(actor.Role)).
		Str("status", string(a.Status)).
		Str("postpone_status", string(a.PostponeStatus)).
		Msg("appointment transition committed")
}

// optionalText trims s and returns nil when nothing is left.
func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// lookupError turns a failed or inactive directory lookup into NotFound,
// keeping storage failures internal.
func lookupError(err error, notFound string) error {
	if err == nil ||
		errors.Is(err, directory.ErrClinicNotFound) ||
		errors.Is(err, directory.ErrDoctorNotFound) ||
		errors.Is(err, directory.ErrPatientNotFound) {
		return apperrors.NotFound("%s", notFound)
	}
	return apperrors.Internal("directory lookup", err)
}
