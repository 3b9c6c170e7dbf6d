package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Queries exposes read-only schedule projections. No business rules live
// here beyond filtering and ordering; sorting is delegated to the store.
type Queries struct {
	repo Repository
}

func NewQueries(repo Repository) *Queries {
	return &Queries{repo: repo}
}

// DailyMasterSchedule returns every appointment for the date across all
// practitioners, ordered by start time then practitioner id.
func (q *Queries) DailyMasterSchedule(ctx context.Context, date string) ([]Appointment, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, date)
	}
	return q.repo.ListByDate(ctx, date)
}

// PractitionerDay returns one practitioner's appointments for the date,
// ordered by start time.
func (q *Queries) PractitionerDay(ctx context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, date)
	}
	return q.repo.ListPractitionerDay(ctx, practitionerID, date)
}

// Appointment returns a single appointment by id.
func (q *Queries) Appointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return q.repo.GetAppointmentByID(ctx, id)
}
