package oncall

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/interval"
)

func tod(t *testing.T, s string) interval.TimeOfDay {
	t.Helper()
	v, err := interval.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func newRegistry() *Registry {
	return NewRegistry(NewMemoryRepository())
}

func mustCreate(t *testing.T, r *Registry, date, staff, start, end, phone string) *Assignment {
	t.Helper()
	a, err := r.Create(context.Background(), Assignment{
		Date:      date,
		StaffName: staff,
		Start:     tod(t, start),
		End:       tod(t, end),
		Phone:     phone,
	})
	require.NoError(t, err)
	return a
}

func TestCreate_AssignsID(t *testing.T) {
	r := newRegistry()

	a := mustCreate(t, r, "2026-03-02", "Dr. Osei", "18:00", "23:00", "555-0101")
	assert.NotEqual(t, uuid.Nil, a.ID)

	got, err := r.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dr. Osei", got.StaffName)
}

func TestCreate_RejectsBadWindow(t *testing.T) {
	r := newRegistry()

	_, err := r.Create(context.Background(), Assignment{
		Date:  "2026-03-02",
		Start: tod(t, "20:00"),
		End:   tod(t, "18:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = r.Create(context.Background(), Assignment{
		Date:  "2026-03-02",
		Start: tod(t, "18:00"),
		End:   tod(t, "18:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	_, err = r.Create(context.Background(), Assignment{
		Date:  "March 2nd",
		Start: tod(t, "18:00"),
		End:   tod(t, "20:00"),
	})
	assert.ErrorIs(t, err, ErrInvalidWindow)
}

func TestCreate_OverlapPermitted(t *testing.T) {
	r := newRegistry()

	// Two people sharing the same evening is a valid roster.
	mustCreate(t, r, "2026-03-02", "Dr. Osei", "18:00", "23:00", "555-0101")
	mustCreate(t, r, "2026-03-02", "Dr. Lindqvist", "20:00", "23:59", "555-0102")

	both, err := r.OnCallAt(context.Background(), "2026-03-02", tod(t, "21:00"))
	require.NoError(t, err)
	assert.Len(t, both, 2)
}

func TestOnCallAt_HalfOpenWindow(t *testing.T) {
	r := newRegistry()
	mustCreate(t, r, "2026-03-02", "Dr. Osei", "18:00", "23:00", "555-0101")

	covering, err := r.OnCallAt(context.Background(), "2026-03-02", tod(t, "18:00"))
	require.NoError(t, err)
	assert.Len(t, covering, 1, "window start is inclusive")

	covering, err = r.OnCallAt(context.Background(), "2026-03-02", tod(t, "23:00"))
	require.NoError(t, err)
	assert.Empty(t, covering, "window end is exclusive")

	covering, err = r.OnCallAt(context.Background(), "2026-03-02", tod(t, "12:00"))
	require.NoError(t, err)
	assert.Empty(t, covering)

	covering, err = r.OnCallAt(context.Background(), "2026-03-03", tod(t, "19:00"))
	require.NoError(t, err)
	assert.Empty(t, covering, "other dates are not covered")
}

func TestUpdate_PartialAndWindowRevalidation(t *testing.T) {
	r := newRegistry()
	a := mustCreate(t, r, "2026-03-02", "Dr. Osei", "18:00", "23:00", "555-0101")

	phone := "555-0999"
	updated, err := r.Update(context.Background(), a.ID, AssignmentUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "555-0999", updated.Phone)
	assert.Equal(t, tod(t, "18:00"), updated.Start, "untouched fields survive")

	// Moving only the end below the current start must fail.
	badEnd := tod(t, "17:00")
	_, err = r.Update(context.Background(), a.ID, AssignmentUpdate{End: &badEnd})
	assert.ErrorIs(t, err, ErrInvalidWindow)

	// Moving both ends together is fine.
	newStart, newEnd := tod(t, "08:00"), tod(t, "12:00")
	updated, err = r.Update(context.Background(), a.ID, AssignmentUpdate{Start: &newStart, End: &newEnd})
	require.NoError(t, err)
	assert.Equal(t, tod(t, "08:00"), updated.Start)
	assert.Equal(t, tod(t, "12:00"), updated.End)

	_, err = r.Update(context.Background(), uuid.New(), AssignmentUpdate{Phone: &phone})
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestDelete(t *testing.T) {
	r := newRegistry()
	a := mustCreate(t, r, "2026-03-02", "Dr. Osei", "18:00", "23:00", "555-0101")

	require.NoError(t, r.Delete(context.Background(), a.ID))

	_, err := r.Get(context.Background(), a.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)

	assert.ErrorIs(t, r.Delete(context.Background(), a.ID), ErrAssignmentNotFound)
}

func TestListWeek_SevenDayRange(t *testing.T) {
	r := newRegistry()

	mustCreate(t, r, "2026-03-01", "Before", "18:00", "22:00", "555-0001")
	mustCreate(t, r, "2026-03-02", "Monday late", "20:00", "23:00", "555-0002")
	mustCreate(t, r, "2026-03-02", "Monday early", "08:00", "12:00", "555-0003")
	mustCreate(t, r, "2026-03-08", "Sunday", "18:00", "22:00", "555-0004")
	mustCreate(t, r, "2026-03-09", "Next week", "18:00", "22:00", "555-0005")

	week, err := r.ListWeek(context.Background(), "2026-03-02")
	require.NoError(t, err)
	require.Len(t, week, 3)

	assert.Equal(t, "Monday early", week[0].StaffName)
	assert.Equal(t, "Monday late", week[1].StaffName)
	assert.Equal(t, "Sunday", week[2].StaffName)
}

func TestListWeek_BadStart(t *testing.T) {
	r := newRegistry()

	_, err := r.ListWeek(context.Background(), "next monday")
	assert.ErrorIs(t, err, ErrInvalidWindow)
}
