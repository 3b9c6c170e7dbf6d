package schedule

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is a mutex-guarded in-memory store. It backs tests and
// single-node development runs; semantics match PgRepository.
type MemoryRepository struct {
	mu           sync.RWMutex
	shifts       map[string]Shift // practitionerID:date
	appointments map[uuid.UUID]Appointment
	events       []EventLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		shifts:       make(map[string]Shift),
		appointments: make(map[uuid.UUID]Appointment),
	}
}

func shiftKey(practitionerID uuid.UUID, date string) string {
	return practitionerID.String() + ":" + date
}

// PutShift adds or replaces the shift for its practitioner and date.
func (r *MemoryRepository) PutShift(shift Shift) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shifts[shiftKey(shift.PractitionerID, shift.Date)] = shift
}

func (r *MemoryRepository) GetShift(_ context.Context, practitionerID uuid.UUID, date string) (*Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	shift, ok := r.shifts[shiftKey(practitionerID, date)]
	if !ok {
		return nil, ErrNoSchedule
	}
	return &shift, nil
}

func (r *MemoryRepository) ListWalkInShifts(_ context.Context, date string) ([]Shift, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Shift
	for _, s := range r.shifts {
		if s.Date == date && s.WalkInEnabled {
			result = append(result, s)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return lessUUID(result[i].PractitionerID, result[j].PractitionerID)
	})

	return result, nil
}

func (r *MemoryRepository) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	return &appt, nil
}

func (r *MemoryRepository) ListOccupying(_ context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date == date && a.Occupies() {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})

	return result, nil
}

func (r *MemoryRepository) ListByDate(_ context.Context, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.Date == date {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Start != result[j].Start {
			return result[i].Start < result[j].Start
		}
		return lessUUID(result[i].PractitionerID, result[j].PractitionerID)
	})

	return result, nil
}

func (r *MemoryRepository) ListPractitionerDay(_ context.Context, practitionerID uuid.UUID, date string) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.PractitionerID == practitionerID && a.Date == date {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})

	return result, nil
}

func (r *MemoryRepository) CountWalkIns(_ context.Context, practitionerID uuid.UUID, date string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, a := range r.appointments {
		if a.PractitionerID != practitionerID || a.Date != date || a.Kind != KindWalkIn {
			continue
		}
		if a.Status == StatusCancelled || a.Status == StatusNoShow {
			continue
		}
		count++
	}
	return count, nil
}

func (r *MemoryRepository) CreateAppointment(_ context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now()
	appt.CreatedAt = now
	appt.UpdatedAt = now

	r.appointments[appt.ID] = appt
	return &appt, nil
}

func (r *MemoryRepository) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}

	matched := false
	for _, st := range from {
		if appt.Status == st {
			matched = true
			break
		}
	}
	if !matched {
		return nil, ErrAppointmentNotFound
	}

	appt.Status = to
	appt.UpdatedAt = time.Now()
	r.appointments[id] = appt
	return &appt, nil
}

func (r *MemoryRepository) FindOverdue(_ context.Context, before time.Time) ([]Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Appointment
	for _, a := range r.appointments {
		if a.Status != StatusScheduled && a.Status != StatusWalkIn {
			continue
		}
		startAt, err := a.StartInstant(before.Location())
		if err != nil {
			continue
		}
		if startAt.Before(before) {
			result = append(result, a)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})

	return result, nil
}

func (r *MemoryRepository) InsertEvent(_ context.Context, ev EventLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev.ID = int64(len(r.events) + 1)
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of the recorded audit trail.
func (r *MemoryRepository) Events() []EventLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EventLog, len(r.events))
	copy(out, r.events)
	return out
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

// MemoryDirectory is an in-memory practitioner and patient directory.
type MemoryDirectory struct {
	mu       sync.RWMutex
	known    map[uuid.UUID]bool // id -> active
	patients map[uuid.UUID]struct{}
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		known:    make(map[uuid.UUID]bool),
		patients: make(map[uuid.UUID]struct{}),
	}
}

func (d *MemoryDirectory) AddPractitioner(id uuid.UUID, active bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.known[id] = active
}

func (d *MemoryDirectory) AddPatient(id uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.patients[id] = struct{}{}
}

func (d *MemoryDirectory) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.known[id]
	return ok, nil
}

func (d *MemoryDirectory) IsActive(_ context.Context, id uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.known[id], nil
}

// Patients returns the patient half of the directory, which has its own
// Exists semantics.
func (d *MemoryDirectory) Patients() PatientDirectory {
	return memoryPatients{d: d}
}

type memoryPatients struct {
	d *MemoryDirectory
}

func (p memoryPatients) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	p.d.mu.RLock()
	defer p.d.mu.RUnlock()
	_, ok := p.d.patients[id]
	return ok, nil
}
