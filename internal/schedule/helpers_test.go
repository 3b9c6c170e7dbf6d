package schedule

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/clinicore/clinic-scheduling/internal/billing"
	"github.com/clinicore/clinic-scheduling/internal/interval"
	redisclient "github.com/clinicore/clinic-scheduling/internal/redis"
)

const testDate = "2026-03-02"

// testNow is the evening before testDate, so booking-day cutoffs and the
// no-show guard stay out of the way unless a test overrides the clock.
var testNow = time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)

func tod(s string) interval.TimeOfDay {
	v, err := interval.ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return v
}

// seqID builds uuids with a known byte ordering, so practitioner-order
// assertions are deterministic.
func seqID(n byte) uuid.UUID {
	var u uuid.UUID
	u[15] = n
	return u
}

// captureTrigger records billing events instead of publishing them.
type captureTrigger struct {
	mu     sync.Mutex
	events []billing.CompletedEvent
}

func (t *captureTrigger) AppointmentCompleted(_ context.Context, ev billing.CompletedEvent) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

func (t *captureTrigger) captured() []billing.CompletedEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]billing.CompletedEvent, len(t.events))
	copy(out, t.events)
	return out
}

func newTestLocker() redisclient.Locker {
	return redisclient.NewMutexLocker()
}

type testEnv struct {
	repo    *MemoryRepository
	dir     *MemoryDirectory
	trigger *captureTrigger

	booker  *Booker
	avail   *Availability
	alloc   *WalkInAllocator
	queries *Queries
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	zerolog.SetGlobalLevel(zerolog.Disabled)

	repo := NewMemoryRepository()
	dir := NewMemoryDirectory()
	trigger := &captureTrigger{}

	clock := func() time.Time { return testNow }

	booker := NewBooker(repo, dir, dir.Patients(), redisclient.NewMutexLocker(), trigger).
		WithClock(clock, time.UTC)
	avail := NewAvailability(repo)
	alloc := NewWalkInAllocator(avail, booker, repo).WithClock(clock, time.UTC)

	return &testEnv{
		repo:    repo,
		dir:     dir,
		trigger: trigger,
		booker:  booker,
		avail:   avail,
		alloc:   alloc,
		queries: NewQueries(repo),
	}
}

// setClock points both the booker and the allocator at the given instant.
func (e *testEnv) setClock(at time.Time) {
	clock := func() time.Time { return at }
	e.booker.WithClock(clock, time.UTC)
	e.alloc.WithClock(clock, time.UTC)
}

// addShift registers an active practitioner with a working window on testDate.
func (e *testEnv) addShift(t *testing.T, shift Shift) {
	t.Helper()
	if shift.Date == "" {
		shift.Date = testDate
	}
	e.dir.AddPractitioner(shift.PractitionerID, true)
	e.repo.PutShift(shift)
}

func (e *testEnv) addPatient(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	e.dir.AddPatient(id)
	return id
}

// book is a shorthand for a scheduled booking that must succeed.
func (e *testEnv) book(t *testing.T, practitionerID, patientID uuid.UUID, start, end string) *Appointment {
	t.Helper()
	appt, err := e.booker.Book(context.Background(), BookingRequest{
		PractitionerID: practitionerID,
		PatientID:      patientID,
		Date:           testDate,
		Start:          tod(start),
		End:            tod(end),
		Kind:           KindScheduled,
	})
	require.NoError(t, err)
	require.NotNil(t, appt)
	return appt
}
