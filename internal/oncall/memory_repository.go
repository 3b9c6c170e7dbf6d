package oncall

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is the in-memory assignment store used by tests.
type MemoryRepository struct {
	mu          sync.RWMutex
	assignments map[uuid.UUID]Assignment
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{assignments: make(map[uuid.UUID]Assignment)}
}

func (r *MemoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return &a, nil
}

func (r *MemoryRepository) ListRange(_ context.Context, from, to string) ([]Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Assignment
	for _, a := range r.assignments {
		if a.Date >= from && a.Date < to {
			result = append(result, a)
		}
	}

	sortAssignments(result)
	return result, nil
}

func (r *MemoryRepository) ListByDate(_ context.Context, date string) ([]Assignment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Assignment
	for _, a := range r.assignments {
		if a.Date == date {
			result = append(result, a)
		}
	}

	sortAssignments(result)
	return result, nil
}

func (r *MemoryRepository) Create(_ context.Context, a Assignment) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	a.CreatedAt = now
	a.UpdatedAt = now

	r.assignments[a.ID] = a
	return &a, nil
}

func (r *MemoryRepository) Update(_ context.Context, id uuid.UUID, upd AssignmentUpdate) (*Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}

	if upd.Date != nil {
		a.Date = *upd.Date
	}
	if upd.StaffName != nil {
		a.StaffName = *upd.StaffName
	}
	if upd.Start != nil {
		a.Start = *upd.Start
	}
	if upd.End != nil {
		a.End = *upd.End
	}
	if upd.Phone != nil {
		a.Phone = *upd.Phone
	}
	a.UpdatedAt = time.Now()

	r.assignments[id] = a
	return &a, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.assignments[id]; !ok {
		return ErrAssignmentNotFound
	}
	delete(r.assignments, id)
	return nil
}

func sortAssignments(list []Assignment) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Date != list[j].Date {
			return list[i].Date < list[j].Date
		}
		return list[i].Start < list[j].Start
	})
}
