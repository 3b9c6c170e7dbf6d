// Package billing carries the completed-appointment event from scheduling to
// the billing subsystem. Scheduling publishes and moves on; it never waits on
// billing.
package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CompletedEvent is emitted once per appointment that reaches completed.
type CompletedEvent struct {
	AppointmentID  uuid.UUID `json:"appointment_id"`
	PractitionerID uuid.UUID `json:"practitioner_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	Date           string    `json:"date"`
	CompletedAt    time.Time `json:"completed_at"`
}

// Trigger is the fire-and-forget notification into billing. Implementations
// must be safe for concurrent use.
type Trigger interface {
	AppointmentCompleted(ctx context.Context, ev CompletedEvent) error
}

// LogTrigger records events to the log only. Used when no broker is
// configured and in tests.
type LogTrigger struct {
	Log zerolog.Logger
}

func (t *LogTrigger) AppointmentCompleted(_ context.Context, ev CompletedEvent) error {
	t.Log.Info().
		Str("appointment_id", ev.AppointmentID.String()).
		Str("practitioner_id", ev.PractitionerID.String()).
		Str("patient_id", ev.PatientID.String()).
		Str("date", ev.Date).
		Msg("appointment completed, billing notified via log only")
	return nil
}
