package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func walkInShift(practitioner uuid.UUID, start, end string) Shift {
	return Shift{
		PractitionerID:  practitioner,
		Start:           tod(start),
		End:             tod(end),
		SlotGranularity: 10,
		WalkInEnabled:   true,
	}
}

func TestAssign_PicksFirstOpenSlot(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))
	patient := env.addPatient(t)

	appt, err := env.alloc.Assign(context.Background(), patient, testDate, nil)
	require.NoError(t, err)

	assert.Equal(t, KindWalkIn, appt.Kind)
	assert.Equal(t, StatusWalkIn, appt.Status)
	assert.Equal(t, practitioner, appt.PractitionerID)
	assert.Equal(t, tod("09:00"), appt.Start)
	assert.Equal(t, tod("09:10"), appt.End)
}

func TestAssign_SkipsBookedSlots(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))

	env.book(t, practitioner, env.addPatient(t), "09:00", "09:20")

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)
	assert.Equal(t, tod("09:20"), appt.Start)
}

func TestAssign_EarliestStartAcrossPractitioners(t *testing.T) {
	env := newTestEnv(t)
	late := seqID(1)
	early := seqID(2)
	env.addShift(t, walkInShift(late, "10:00", "12:00"))
	env.addShift(t, walkInShift(early, "09:00", "12:00"))

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)

	assert.Equal(t, early, appt.PractitionerID, "the later-starting shift loses despite its lower id")
	assert.Equal(t, tod("09:00"), appt.Start)
}

func TestAssign_TieGoesToLowestID(t *testing.T) {
	env := newTestEnv(t)
	first := seqID(1)
	second := seqID(2)
	env.addShift(t, walkInShift(first, "09:00", "12:00"))
	env.addShift(t, walkInShift(second, "09:00", "12:00"))

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)

	assert.Equal(t, first, appt.PractitionerID)
	assert.Equal(t, tod("09:00"), appt.Start)
}

func TestAssign_PreferredPractitioner(t *testing.T) {
	env := newTestEnv(t)
	first := seqID(1)
	second := seqID(2)
	env.addShift(t, walkInShift(first, "09:00", "12:00"))
	env.addShift(t, walkInShift(second, "09:00", "12:00"))

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, &second)
	require.NoError(t, err)
	assert.Equal(t, second, appt.PractitionerID)
}

func TestAssign_PreferredWithoutWalkIns(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	shift := walkInShift(practitioner, "09:00", "12:00")
	shift.WalkInEnabled = false
	env.addShift(t, shift)

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, &practitioner)
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestAssign_PreferredWithoutShift(t *testing.T) {
	env := newTestEnv(t)
	unknown := seqID(7)

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, &unknown)
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestAssign_NoWalkInShifts(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	shift := walkInShift(practitioner, "09:00", "12:00")
	shift.WalkInEnabled = false
	env.addShift(t, shift)

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestAssign_CapacityExhausted(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	shift := walkInShift(practitioner, "09:00", "12:00")
	shift.WalkInCapacity = 2
	env.addShift(t, shift)

	for i := 0; i < 2; i++ {
		_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
		require.NoError(t, err)
	}

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.ErrorIs(t, err, ErrNoAvailability)
}

func TestAssign_CancelledWalkInReleasesCapacity(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	shift := walkInShift(practitioner, "09:00", "12:00")
	shift.WalkInCapacity = 1
	env.addShift(t, shift)

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)

	_, err = env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.ErrorIs(t, err, ErrNoAvailability)

	_, err = env.booker.Cancel(context.Background(), appt.ID)
	require.NoError(t, err)

	_, err = env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.NoError(t, err)
}

func TestAssign_SkipsPastSlotsToday(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))

	// 10:05 on the requested date: slots before then are gone.
	env.setClock(time.Date(2026, 3, 2, 10, 5, 0, 0, time.UTC))

	appt, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)
	assert.Equal(t, tod("10:10"), appt.Start)
}

func TestAssign_ShiftOverForToday(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))

	env.setClock(time.Date(2026, 3, 2, 12, 30, 0, 0, time.UTC))

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.ErrorIs(t, err, ErrNoAvailability)
}

// conflictOnceRepo makes the first insert lose, as if a concurrent writer got
// the slot between the search and the commit.
type conflictOnceRepo struct {
	Repository
	mu      sync.Mutex
	inserts int
	losses  int
}

func (r *conflictOnceRepo) CreateAppointment(ctx context.Context, appt Appointment) (*Appointment, error) {
	r.mu.Lock()
	r.inserts++
	lose := r.losses > 0
	if lose {
		r.losses--
	}
	r.mu.Unlock()

	if lose {
		return nil, ErrAppointmentConflict
	}
	return r.Repository.CreateAppointment(ctx, appt)
}

func TestAssign_RetriesOnceAfterLostRace(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))

	racy := &conflictOnceRepo{Repository: env.repo, losses: 1}
	booker := NewBooker(racy, env.dir, env.dir.Patients(), newTestLocker(), env.trigger).
		WithClock(func() time.Time { return testNow }, time.UTC)
	alloc := NewWalkInAllocator(NewAvailability(racy), booker, racy).
		WithClock(func() time.Time { return testNow }, time.UTC)

	appt, err := alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	require.NoError(t, err)
	assert.Equal(t, tod("09:00"), appt.Start)
	assert.Equal(t, 2, racy.inserts)
}

func TestAssign_GivesUpAfterSecondLoss(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "12:00"))

	racy := &conflictOnceRepo{Repository: env.repo, losses: 10}
	booker := NewBooker(racy, env.dir, env.dir.Patients(), newTestLocker(), env.trigger).
		WithClock(func() time.Time { return testNow }, time.UTC)
	alloc := NewWalkInAllocator(NewAvailability(racy), booker, racy).
		WithClock(func() time.Time { return testNow }, time.UTC)

	_, err := alloc.Assign(context.Background(), env.addPatient(t), testDate, nil)
	assert.ErrorIs(t, err, ErrNoAvailability)
	assert.Equal(t, 2, racy.inserts, "one initial try plus one retry")
}

func TestAssign_ConcurrentSingleSlot(t *testing.T) {
	env := newTestEnv(t)
	practitioner := seqID(1)
	env.addShift(t, walkInShift(practitioner, "09:00", "09:10"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		patient := env.addPatient(t)
		wg.Add(1)
		go func(i int, patient uuid.UUID) {
			defer wg.Done()
			_, errs[i] = env.alloc.Assign(context.Background(), patient, testDate, nil)
		}(i, patient)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, ErrNoAvailability)
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestAssign_BadDate(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.alloc.Assign(context.Background(), env.addPatient(t), "03/02/2026", nil)
	assert.ErrorIs(t, err, ErrInvalidInterval)
}
