package schedule

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyMasterSchedule_OrderedByStartThenPractitioner(t *testing.T) {
	env := newTestEnv(t)
	first := seqID(1)
	second := seqID(2)
	env.addShift(t, standardShift(first))
	env.addShift(t, standardShift(second))

	env.book(t, second, env.addPatient(t), "09:00", "09:30")
	env.book(t, first, env.addPatient(t), "10:00", "10:30")
	env.book(t, first, env.addPatient(t), "09:00", "09:30")
	env.book(t, second, env.addPatient(t), "09:30", "10:00")

	day, err := env.queries.DailyMasterSchedule(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, day, 4)

	assert.Equal(t, tod("09:00"), day[0].Start)
	assert.Equal(t, first, day[0].PractitionerID)
	assert.Equal(t, tod("09:00"), day[1].Start)
	assert.Equal(t, second, day[1].PractitionerID)
	assert.Equal(t, tod("09:30"), day[2].Start)
	assert.Equal(t, tod("10:00"), day[3].Start)
}

func TestDailyMasterSchedule_IncludesCancelled(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, standardShift(practitioner))

	appt := env.book(t, practitioner, env.addPatient(t), "09:00", "09:30")
	_, err := env.booker.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	day, err := env.queries.DailyMasterSchedule(context.Background(), testDate)
	require.NoError(t, err)
	require.Len(t, day, 1, "the master schedule shows history, not just open bookings")
	assert.Equal(t, StatusCancelled, day[0].Status)
}

func TestDailyMasterSchedule_EmptyDay(t *testing.T) {
	env := newTestEnv(t)

	day, err := env.queries.DailyMasterSchedule(context.Background(), testDate)
	require.NoError(t, err)
	assert.Empty(t, day)
}

func TestDailyMasterSchedule_BadDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.queries.DailyMasterSchedule(context.Background(), "yesterday")
	assert.ErrorIs(t, err, ErrInvalidInterval)
}

func TestPractitionerDay_OnlyTheirAppointments(t *testing.T) {
	env := newTestEnv(t)
	first := seqID(1)
	second := seqID(2)
	env.addShift(t, standardShift(first))
	env.addShift(t, standardShift(second))

	env.book(t, first, env.addPatient(t), "11:00", "11:30")
	env.book(t, first, env.addPatient(t), "09:00", "09:30")
	env.book(t, second, env.addPatient(t), "10:00", "10:30")

	day, err := env.queries.PractitionerDay(context.Background(), first, testDate)
	require.NoError(t, err)
	require.Len(t, day, 2)

	assert.Equal(t, tod("09:00"), day[0].Start)
	assert.Equal(t, tod("11:00"), day[1].Start)
	for _, a := range day {
		assert.Equal(t, first, a.PractitionerID)
	}
}

func TestAppointmentByID(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, standardShift(practitioner))

	appt := env.book(t, practitioner, env.addPatient(t), "09:00", "09:30")

	got, err := env.queries.Appointment(context.Background(), appt.ID)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)

	_, err = env.queries.Appointment(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}
