package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrPractitionerInactive = errors.New("practitioner is not active")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")

	// ErrNoSchedule means the practitioner has no shift for the requested
	// date. Distinct from a fully booked day.
	ErrNoSchedule = errors.New("practitioner has no shift for this date")

	// ErrInvalidInterval covers malformed ranges and ranges that do not
	// align to the shift's slot granularity.
	ErrInvalidInterval = errors.New("invalid or misaligned time interval")

	// ErrAppointmentConflict means the proposed interval overlaps a break
	// or a committed appointment. The caller should re-query availability.
	ErrAppointmentConflict = errors.New("time interval conflicts with the practitioner's schedule")

	// ErrScheduleBusy means the per-practitioner lock could not be taken.
	ErrScheduleBusy = errors.New("schedule is currently being modified, please retry")

	// ErrNoAvailability means a walk-in search exhausted every candidate.
	ErrNoAvailability = errors.New("no walk-in availability")

	ErrInvalidTransition = errors.New("invalid appointment status transition")

	// ErrStorage wraps infrastructure failures so the transport layer can
	// distinguish them from caller errors.
	ErrStorage = errors.New("storage unavailable")
)

// Repository contains all store interactions needed by the scheduling core.
type Repository interface {
	// Shifts are written by roster management; the core only reads them.
	GetShift(ctx context.Context, practitionerID uuid.UUID, date string) (*Shift, error)
	ListWalkInShifts(ctx context.Context, date string) ([]Shift, error)

	// Committed appointments.
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListOccupying(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error)
	ListByDate(ctx context.Context, date string) ([]Appointment, error)
	ListPractitionerDay(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error)
	CountWalkIns(ctx context.Context, practitionerID uuid.UUID, date string) (int, error)

	CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error)
	// UpdateAppointmentStatus applies a compare-and-set status change; it
	// returns ErrAppointmentNotFound when no row matches id with a status
	// in from.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error)

	// No-show sweeper.
	FindOverdue(ctx context.Context, before time.Time) ([]Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}

// PractitionerDirectory resolves practitioner ids owned by the staff system.
type PractitionerDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	IsActive(ctx context.Context, id uuid.UUID) (bool, error)
}

// PatientDirectory resolves patient ids owned by the patient record system.
type PatientDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
