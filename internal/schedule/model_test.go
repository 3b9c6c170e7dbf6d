package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to AppointmentStatus }{
		{StatusScheduled, StatusCheckedIn},
		{StatusScheduled, StatusCancelled},
		{StatusScheduled, StatusNoShow},
		{StatusWalkIn, StatusCheckedIn},
		{StatusWalkIn, StatusCancelled},
		{StatusWalkIn, StatusNoShow},
		{StatusCheckedIn, StatusCompleted},
	}
	for _, tc := range allowed {
		assert.True(t, TransitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	terminal := []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow}
	all := []AppointmentStatus{StatusScheduled, StatusWalkIn, StatusCheckedIn, StatusCompleted, StatusCancelled, StatusNoShow}
	for _, from := range terminal {
		for _, to := range all {
			assert.False(t, TransitionAllowed(from, to), "%s -> %s", from, to)
		}
	}

	assert.False(t, TransitionAllowed(StatusCheckedIn, StatusCancelled))
	assert.False(t, TransitionAllowed(StatusScheduled, StatusCompleted))
}

func TestInitialStatus(t *testing.T) {
	assert.Equal(t, StatusScheduled, InitialStatus(KindScheduled))
	assert.Equal(t, StatusWalkIn, InitialStatus(KindWalkIn))
}

func TestShift_GranularityFallback(t *testing.T) {
	s := Shift{}
	assert.Equal(t, DefaultSlotGranularity, s.Granularity())

	s.SlotGranularity = 15
	assert.Equal(t, 15, s.Granularity())
}

func TestAppointment_Occupies(t *testing.T) {
	a := Appointment{}
	for _, st := range OccupyingStatuses {
		a.Status = st
		assert.True(t, a.Occupies(), "%s", st)
	}
	for _, st := range []AppointmentStatus{StatusCompleted, StatusCancelled, StatusNoShow} {
		a.Status = st
		assert.False(t, a.Occupies(), "%s", st)
	}
}

func TestAppointment_StartInstant(t *testing.T) {
	a := Appointment{Date: "2026-03-02", Start: tod("10:30")}

	at, err := a.StartInstant(time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC), at)

	a.Date = "not-a-date"
	_, err = a.StartInstant(time.UTC)
	assert.Error(t, err)
}

func TestValidDate(t *testing.T) {
	assert.True(t, ValidDate("2026-03-02"))
	assert.False(t, ValidDate("2026-3-2"))
	assert.False(t, ValidDate("02-03-2026"))
	assert.False(t, ValidDate(""))
}
