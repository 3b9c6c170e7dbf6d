package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/clinicore/clinic-scheduling/internal/billing"
	"github.com/clinicore/clinic-scheduling/internal/interval"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

// BookingRequest is a proposed appointment.
type BookingRequest struct {
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Date           string
	Start          interval.TimeOfDay
	End            interval.TimeOfDay
	Kind           AppointmentKind
}

// Booker is the single write path for appointments. It guarantees at most one
// committed appointment per practitioner covering any instant: all inserts for
// a (practitioner, date) pair serialize through the locker and re-validate
// against the committed set inside the critical section.
type Booker struct {
	repo          Repository
	practitioners PractitionerDirectory
	patients      PatientDirectory
	locker        redisclient.Locker
	trigger       billing.Trigger

	now func() time.Time
	loc *time.Location
}

func NewBooker(repo Repository, practitioners PractitionerDirectory, patients PatientDirectory, locker redisclient.Locker, trigger billing.Trigger) *Booker {
	return &Booker{
		repo:          repo,
		practitioners: practitioners,
		patients:      patients,
		locker:        locker,
		trigger:       trigger,
		now:           time.Now,
		loc:           time.Local,
	}
}

// WithClock overrides the time source. Intended for tests.
func (b *Booker) WithClock(now func() time.Time, loc *time.Location) *Booker {
	b.now = now
	b.loc = loc
	return b
}

// Book validates the request, then atomically checks-and-inserts the
// appointment. Conflicts are never retried here; the caller decides whether
// to pick another slot.
func (b *Booker) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	if !ValidDate(req.Date) {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, req.Date)
	}
	if req.Start >= req.End {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidInterval)
	}
	if req.Kind != KindScheduled && req.Kind != KindWalkIn {
		req.Kind = KindScheduled
	}

	if err := b.checkDirectories(ctx, req.PractitionerID, req.PatientID); err != nil {
		return nil, err
	}

	shift, err := b.repo.GetShift(ctx, req.PractitionerID, req.Date)
	if err != nil {
		return nil, err
	}

	if err := validateAgainstShift(shift, req.Start, req.End); err != nil {
		return nil, err
	}

	var created *Appointment

	err = b.locker.WithScheduleLock(ctx, req.PractitionerID, req.Date, func(lockCtx context.Context) error {
		// Re-check against the committed set inside the critical section
		// so a concurrently inserted overlapping row is always seen.
		existing, err := b.repo.ListOccupying(lockCtx, req.PractitionerID, req.Date)
		if err != nil {
			return fmt.Errorf("list committed appointments: %w", err)
		}
		for i := range existing {
			if interval.Overlaps(req.Start, req.End, existing[i].Start, existing[i].End) {
				return ErrAppointmentConflict
			}
		}

		appt, err := b.repo.CreateAppointment(lockCtx, Appointment{
			ID:             uuid.New(),
			PractitionerID: req.PractitionerID,
			PatientID:      req.PatientID,
			Date:           req.Date,
			Start:          req.Start,
			End:            req.End,
			Kind:           req.Kind,
			Status:         InitialStatus(req.Kind),
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		eventType := EventAppointmentBooked
		if req.Kind == KindWalkIn {
			eventType = EventWalkInAssigned
		}
		b.logEvent(lockCtx, appt.ID, eventType, map[string]any{
			"practitioner_id": req.PractitionerID.String(),
			"patient_id":      req.PatientID.String(),
			"date":            req.Date,
			"start_time":      req.Start.String(),
			"end_time":        req.End.String(),
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrScheduleBusy
		}
		return nil, err
	}

	return created, nil
}

func (b *Booker) checkDirectories(ctx context.Context, practitionerID, patientID uuid.UUID) error {
	exists, err := b.practitioners.Exists(ctx, practitionerID)
	if err != nil {
		return fmt.Errorf("look up practitioner: %w", err)
	}
	if !exists {
		return ErrPractitionerNotFound
	}

	active, err := b.practitioners.IsActive(ctx, practitionerID)
	if err != nil {
		return fmt.Errorf("look up practitioner status: %w", err)
	}
	if !active {
		return ErrPractitionerInactive
	}

	exists, err = b.patients.Exists(ctx, patientID)
	if err != nil {
		return fmt.Errorf("look up patient: %w", err)
	}
	if !exists {
		return ErrPatientNotFound
	}

	return nil
}

// validateAgainstShift enforces granularity alignment and shift containment
// before any store write. Break overlap is a conflict, not a malformed
// interval: the caller fixes it by re-querying availability.
func validateAgainstShift(shift *Shift, start, end interval.TimeOfDay) error {
	gran := interval.TimeOfDay(shift.Granularity())

	if (start-shift.Start)%gran != 0 {
		return fmt.Errorf("%w: start %s does not align to the %dm grid from %s", ErrInvalidInterval, start, gran, shift.Start)
	}
	if (end-start)%gran != 0 {
		return fmt.Errorf("%w: length %dm is not a multiple of %dm", ErrInvalidInterval, end-start, gran)
	}
	if !interval.Contains(shift.Window(), interval.Span{Start: start, End: end}) {
		return fmt.Errorf("%w: interval %s-%s is outside the shift %s-%s", ErrInvalidInterval, start, end, shift.Start, shift.End)
	}

	for _, br := range shift.Breaks {
		if interval.Overlaps(start, end, br.Start, br.End) {
			return fmt.Errorf("%w: interval overlaps a break", ErrAppointmentConflict)
		}
	}

	return nil
}

// Transition applies one status change. Terminal states never transition
// again, and no_show is only reachable once the scheduled start has passed.
func (b *Booker) Transition(ctx context.Context, id uuid.UUID, to AppointmentStatus) (*Appointment, error) {
	appt, err := b.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !TransitionAllowed(appt.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	if to == StatusNoShow {
		startAt, err := appt.StartInstant(b.loc)
		if err != nil {
			return nil, fmt.Errorf("resolve appointment start: %w", err)
		}
		if b.now().Before(startAt) {
			return nil, fmt.Errorf("%w: cannot mark no-show before the scheduled start", ErrInvalidTransition)
		}
	}

	updated, err := b.repo.UpdateAppointmentStatus(ctx, id, []AppointmentStatus{appt.Status}, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			// The status moved under us; the transition we validated no
			// longer applies.
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	b.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	if to == StatusCompleted {
		b.notifyBilling(ctx, updated)
	}

	return updated, nil
}

// Cancel soft-cancels the appointment, freeing its interval. Cancelling an
// already terminal appointment reports ErrInvalidTransition rather than
// succeeding silently.
func (b *Booker) Cancel(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return b.Transition(ctx, id, StatusCancelled)
}

// MarkNoShows transitions every still-open appointment whose start is more
// than grace in the past to no_show. Run periodically by the sweeper.
func (b *Booker) MarkNoShows(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := b.now().Add(-grace)

	overdue, err := b.repo.FindOverdue(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find overdue appointments: %w", err)
	}

	marked := 0
	for i := range overdue {
		_, err := b.repo.UpdateAppointmentStatus(ctx, overdue[i].ID, []AppointmentStatus{StatusScheduled, StatusWalkIn}, StatusNoShow)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				continue // checked in or cancelled since the query
			}
			log.Error().Err(err).Str("appointment_id", overdue[i].ID.String()).Msg("failed to mark no-show")
			continue
		}
		marked++
		b.logEvent(ctx, overdue[i].ID, EventAppointmentNoShow, map[string]any{
			"reason": "sweeper",
		})
	}

	return marked, nil
}

// notifyBilling is fire and forget: a billing outage never fails the
// completion.
func (b *Booker) notifyBilling(ctx context.Context, appt *Appointment) {
	ev := billing.CompletedEvent{
		AppointmentID:  appt.ID,
		PractitionerID: appt.PractitionerID,
		PatientID:      appt.PatientID,
		Date:           appt.Date,
		CompletedAt:    b.now(),
	}

	if err := b.trigger.AppointmentCompleted(ctx, ev); err != nil {
		log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("billing notification failed")
		return
	}

	b.logEvent(ctx, appt.ID, EventAppointmentComplete, map[string]any{
		"practitioner_id": appt.PractitionerID.String(),
		"patient_id":      appt.PatientID.String(),
	})
}

func (b *Booker) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     b.now(),
	}

	if err := b.repo.InsertEvent(ctx, ev); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("appointment_id", appointmentID.String()).Msg("failed to insert event log")
	}
}
