package oncall

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

const dateLayout = "2006-01-02"

// Registry validates and queries the coverage roster.
type Registry struct {
	repo Repository
}

func NewRegistry(repo Repository) *Registry {
	return &Registry{repo: repo}
}

// Create stores a new assignment. Only the window invariant is enforced;
// overlap with other assignments is permitted.
func (r *Registry) Create(ctx context.Context, a Assignment) (*Assignment, error) {
	if _, err := time.Parse(dateLayout, a.Date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidWindow, a.Date)
	}
	if a.Start >= a.End {
		return nil, ErrInvalidWindow
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.repo.Create(ctx, a)
}

// Update applies a partial update, re-validating the resulting window.
func (r *Registry) Update(ctx context.Context, id uuid.UUID, upd AssignmentUpdate) (*Assignment, error) {
	current, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	start, end := current.Start, current.End
	if upd.Start != nil {
		start = *upd.Start
	}
	if upd.End != nil {
		end = *upd.End
	}
	if start >= end {
		return nil, ErrInvalidWindow
	}
	if upd.Date != nil {
		if _, err := time.Parse(dateLayout, *upd.Date); err != nil {
			return nil, fmt.Errorf("%w: bad date %q", ErrInvalidWindow, *upd.Date)
		}
	}

	return r.repo.Update(ctx, id, upd)
}

func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	return r.repo.Delete(ctx, id)
}

func (r *Registry) Get(ctx context.Context, id uuid.UUID) (*Assignment, error) {
	return r.repo.GetByID(ctx, id)
}

// OnCallAt returns everyone whose window covers the instant on the date.
// Zero results simply means nobody is on call then.
func (r *Registry) OnCallAt(ctx context.Context, date string, at interval.TimeOfDay) ([]Assignment, error) {
	assignments, err := r.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	var covering []Assignment
	for _, a := range assignments {
		if a.Start <= at && at < a.End {
			covering = append(covering, a)
		}
	}
	return covering, nil
}

// ListWeek returns the seven days starting at weekStart, ordered by date
// then window start.
func (r *Registry) ListWeek(ctx context.Context, weekStart string) ([]Assignment, error) {
	start, err := time.Parse(dateLayout, weekStart)
	if err != nil {
		return nil, fmt.Errorf("%w: bad week start %q", ErrInvalidWindow, weekStart)
	}
	end := start.AddDate(0, 0, 7)

	return r.repo.ListRange(ctx, weekStart, end.Format(dateLayout))
}
