package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

// DateLayout is the wire and storage format for schedule dates.
const DateLayout = "2006-01-02"

// DefaultSlotGranularity is applied when a shift does not set one.
const DefaultSlotGranularity = 10

type AppointmentKind string

const (
	KindScheduled AppointmentKind = "scheduled"
	KindWalkIn    AppointmentKind = "walk_in"
)

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusWalkIn    AppointmentStatus = "walk_in"
	StatusCheckedIn AppointmentStatus = "checked_in"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no_show"
)

// OccupyingStatuses are the statuses that hold a practitioner's calendar for
// conflict checks. Cancelled, no-show and completed appointments free their
// interval.
var OccupyingStatuses = []AppointmentStatus{StatusScheduled, StatusWalkIn, StatusCheckedIn}

// allowedTransitions encodes the appointment lifecycle. Completed, cancelled
// and no_show are terminal.
var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusScheduled: {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusWalkIn:    {StatusCheckedIn, StatusCancelled, StatusNoShow},
	StatusCheckedIn: {StatusCompleted},
}

// TransitionAllowed reports whether from -> to is a legal status change.
func TransitionAllowed(from, to AppointmentStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus maps an appointment kind to the status it is created in.
func InitialStatus(kind AppointmentKind) AppointmentStatus {
	if kind == KindWalkIn {
		return StatusWalkIn
	}
	return StatusScheduled
}

// Shift is a practitioner's configured working window for one date. It is
// owned by roster management; the scheduling core only reads it.
type Shift struct {
	PractitionerID  uuid.UUID
	Date            string
	Start           interval.TimeOfDay
	End             interval.TimeOfDay
	SlotGranularity int // minutes between slot starts
	WalkInEnabled   bool
	WalkInCapacity  int // 0 means unlimited
	Breaks          []interval.Span
}

// Granularity returns the shift's slot granularity, falling back to the
// default when unset.
func (s *Shift) Granularity() int {
	if s.SlotGranularity > 0 {
		return s.SlotGranularity
	}
	return DefaultSlotGranularity
}

// Window returns the shift's working span.
func (s *Shift) Window() interval.Span {
	return interval.Span{Start: s.Start, End: s.End}
}

type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	PatientID      uuid.UUID
	Date           string
	Start          interval.TimeOfDay
	End            interval.TimeOfDay
	Kind           AppointmentKind
	Status         AppointmentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Span returns the appointment's occupied interval.
func (a *Appointment) Span() interval.Span {
	return interval.Span{Start: a.Start, End: a.End}
}

// Occupies reports whether the appointment holds its interval on the
// practitioner's calendar.
func (a *Appointment) Occupies() bool {
	for _, st := range OccupyingStatuses {
		if a.Status == st {
			return true
		}
	}
	return false
}

// StartInstant resolves the appointment's start as an absolute time in loc.
func (a *Appointment) StartInstant(loc *time.Location) (time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, a.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(a.Start) * time.Minute), nil
}

// TimeSlot is an ephemeral candidate booking interval derived from a shift.
// It is never persisted; every query recomputes it.
type TimeSlot struct {
	PractitionerID uuid.UUID          `json:"practitioner_id"`
	Date           string             `json:"date"`
	Start          interval.TimeOfDay `json:"start_time"`
	End            interval.TimeOfDay `json:"end_time"`
	Available      bool               `json:"available"`
}

// Event types written to the scheduling audit trail.
const (
	EventAppointmentBooked   = "APPOINTMENT_BOOKED"
	EventStatusChanged       = "APPOINTMENT_STATUS_CHANGED"
	EventWalkInAssigned      = "WALK_IN_ASSIGNED"
	EventAppointmentNoShow   = "APPOINTMENT_NO_SHOW"
	EventAppointmentComplete = "APPOINTMENT_COMPLETED"
)

// EventLog is one row of the scheduling audit trail.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// ValidDate reports whether s is a well-formed schedule date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
