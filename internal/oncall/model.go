// Package oncall manages the weekly after-hours coverage roster: who can be
// phoned at a given instant. Windows for different staff may overlap; several
// people sharing on-call duty is allowed.
package oncall

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

var (
	ErrAssignmentNotFound = errors.New("on-call assignment not found")

	// ErrInvalidWindow rejects assignments whose window is empty or
	// reversed.
	ErrInvalidWindow = errors.New("on-call window start must be before end")

	ErrStorage = errors.New("storage unavailable")
)

// Assignment is one staff member's coverage window on one date.
type Assignment struct {
	ID        uuid.UUID
	Date      string
	StaffName string
	Start     interval.TimeOfDay
	End       interval.TimeOfDay
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Window returns the assignment's coverage span.
func (a *Assignment) Window() interval.Span {
	return interval.Span{Start: a.Start, End: a.End}
}

// AssignmentUpdate carries the mutable fields of an assignment; nil fields
// are left unchanged.
type AssignmentUpdate struct {
	Date      *string
	StaffName *string
	Start     *interval.TimeOfDay
	End       *interval.TimeOfDay
	Phone     *string
}

// Repository persists on-call assignments.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Assignment, error)
	// ListRange returns assignments with from <= date < to, ordered by
	// (date, start).
	ListRange(ctx context.Context, from, to string) ([]Assignment, error)
	ListByDate(ctx context.Context, date string) ([]Assignment, error)
	Create(ctx context.Context, a Assignment) (*Assignment, error)
	Update(ctx context.Context, id uuid.UUID, upd AssignmentUpdate) (*Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
