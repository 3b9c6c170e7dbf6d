package schedule

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

// Availability derives bookable slots from a shift, its breaks and the
// committed appointments for that practitioner/date. It holds no state of its
// own; every call is a fresh recomputation, so identical snapshots always
// produce identical output.
type Availability struct {
	repo Repository
}

func NewAvailability(repo Repository) *Availability {
	return &Availability{repo: repo}
}

// ListSlots returns every candidate slot of durationMinutes for the
// practitioner on date, ordered by start time ascending. Candidates step
// through the shift window at the shift's slot granularity; a candidate is
// unavailable when it overlaps a break or an occupying appointment.
//
// durationMinutes <= 0 selects one granularity unit. A duration that is not a
// positive multiple of the granularity is rejected with ErrInvalidInterval.
func (a *Availability) ListSlots(ctx context.Context, practitionerID uuid.UUID, date string, durationMinutes int) ([]TimeSlot, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, date)
	}

	shift, err := a.repo.GetShift(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}

	gran := shift.Granularity()
	if durationMinutes <= 0 {
		durationMinutes = gran
	}
	if durationMinutes%gran != 0 {
		return nil, fmt.Errorf("%w: duration %dm is not a multiple of the %dm granularity", ErrInvalidInterval, durationMinutes, gran)
	}

	booked, err := a.repo.ListOccupying(ctx, practitionerID, date)
	if err != nil {
		return nil, err
	}

	return buildSlots(shift, booked, durationMinutes), nil
}

// buildSlots is the pure core of the availability computation.
func buildSlots(shift *Shift, booked []Appointment, durationMinutes int) []TimeSlot {
	var slots []TimeSlot

	step := interval.TimeOfDay(shift.Granularity())
	duration := interval.TimeOfDay(durationMinutes)

	for start := shift.Start; start+duration <= shift.End; start += step {
		end := start + duration

		slots = append(slots, TimeSlot{
			PractitionerID: shift.PractitionerID,
			Date:           shift.Date,
			Start:          start,
			End:            end,
			Available:      spanIsOpen(interval.Span{Start: start, End: end}, shift, booked),
		})
	}

	return slots
}

func spanIsOpen(span interval.Span, shift *Shift, booked []Appointment) bool {
	for _, br := range shift.Breaks {
		if interval.SpansOverlap(span, br) {
			return false
		}
	}
	for i := range booked {
		if !booked[i].Occupies() {
			continue
		}
		if interval.SpansOverlap(span, booked[i].Span()) {
			return false
		}
	}
	return true
}
