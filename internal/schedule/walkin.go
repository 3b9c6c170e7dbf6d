package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

// WalkInAllocator assigns an unscheduled arrival to the next open walk-in
// slot, searching practitioners in ascending id order. The earliest slot
// start wins across candidates; on a tie the lowest practitioner id wins.
type WalkInAllocator struct {
	availability *Availability
	booker       *Booker
	repo         Repository

	now func() time.Time
	loc *time.Location
}

func NewWalkInAllocator(availability *Availability, booker *Booker, repo Repository) *WalkInAllocator {
	return &WalkInAllocator{
		availability: availability,
		booker:       booker,
		repo:         repo,
		now:          time.Now,
		loc:          time.Local,
	}
}

// WithClock overrides the time source. Intended for tests.
func (w *WalkInAllocator) WithClock(now func() time.Time, loc *time.Location) *WalkInAllocator {
	w.now = now
	w.loc = loc
	return w
}

// Assign books the first open walk-in slot for the patient. A lost race
// against another allocator triggers exactly one re-search against fresh
// availability before ErrNoAvailability is surfaced.
func (w *WalkInAllocator) Assign(ctx context.Context, patientID uuid.UUID, date string, preferred *uuid.UUID) (*Appointment, error) {
	if !ValidDate(date) {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidInterval, date)
	}

	const attempts = 2 // initial try plus one retry after a lost race

	for attempt := 0; attempt < attempts; attempt++ {
		slot, err := w.findSlot(ctx, date, preferred)
		if err != nil {
			return nil, err
		}
		if slot == nil {
			return nil, ErrNoAvailability
		}

		appt, err := w.booker.Book(ctx, BookingRequest{
			PractitionerID: slot.PractitionerID,
			PatientID:      patientID,
			Date:           date,
			Start:          slot.Start,
			End:            slot.End,
			Kind:           KindWalkIn,
		})
		if err == nil {
			return appt, nil
		}
		if errors.Is(err, ErrAppointmentConflict) || errors.Is(err, ErrScheduleBusy) {
			continue
		}
		return nil, err
	}

	return nil, ErrNoAvailability
}

// findSlot returns the best open walk-in slot, or nil when every candidate is
// exhausted.
func (w *WalkInAllocator) findSlot(ctx context.Context, date string, preferred *uuid.UUID) (*TimeSlot, error) {
	shifts, err := w.candidateShifts(ctx, date, preferred)
	if err != nil {
		return nil, err
	}

	cutoff := w.searchCutoff(date)

	var best *TimeSlot
	for i := range shifts {
		shift := &shifts[i]

		if shift.WalkInCapacity > 0 {
			count, err := w.repo.CountWalkIns(ctx, shift.PractitionerID, date)
			if err != nil {
				return nil, fmt.Errorf("count walk-ins: %w", err)
			}
			if count >= shift.WalkInCapacity {
				continue
			}
		}

		slots, err := w.availability.ListSlots(ctx, shift.PractitionerID, date, shift.Granularity())
		if err != nil {
			if errors.Is(err, ErrNoSchedule) {
				continue
			}
			return nil, err
		}

		for j := range slots {
			s := slots[j]
			if !s.Available || s.Start < cutoff {
				continue
			}
			// Shifts arrive in ascending practitioner id order, so a
			// strictly earlier start is the only way to displace the
			// current best.
			if best == nil || s.Start < best.Start {
				best = &s
			}
			break // slots are ordered; the first open one is this shift's best
		}
	}

	return best, nil
}

func (w *WalkInAllocator) candidateShifts(ctx context.Context, date string, preferred *uuid.UUID) ([]Shift, error) {
	if preferred != nil {
		shift, err := w.repo.GetShift(ctx, *preferred, date)
		if err != nil {
			if errors.Is(err, ErrNoSchedule) {
				return nil, ErrNoAvailability
			}
			return nil, err
		}
		if !shift.WalkInEnabled {
			return nil, ErrNoAvailability
		}
		return []Shift{*shift}, nil
	}

	return w.repo.ListWalkInShifts(ctx, date)
}

// searchCutoff keeps walk-ins from being assigned to slots already in the
// past when the requested date is today.
func (w *WalkInAllocator) searchCutoff(date string) interval.TimeOfDay {
	now := w.now().In(w.loc)
	if now.Format(DateLayout) != date {
		return 0
	}
	return interval.TimeOfDay(now.Hour()*60 + now.Minute())
}
