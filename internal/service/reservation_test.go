package service_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaMinhyeok/reservation-management/internal/model"
	"github.com/NaMinhyeok/reservation-management/internal/repository"
	"github.com/NaMinhyeok/reservation-management/internal/service"
)

// Fixed reference time so lead-time boundaries are exact.
var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock(t time.Time) service.Clock {
	return func() time.Time { return t }
}

func newEngine(t *testing.T) (*service.ReservationService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return service.NewReservationService(store, fixedClock(testNow)), store
}

// examWindow returns a two-hour window starting the given number of
// days after testNow.
func examWindow(days int) (time.Time, time.Time) {
	start := testNow.Add(time.Duration(days) * 24 * time.Hour)
	return start, start.Add(2 * time.Hour)
}

var (
	admin = service.Actor{ID: 1, Role: model.RoleAdmin}
	alice = service.Actor{ID: 2, Role: model.RoleUser}
	bob   = service.Actor{ID: 3, Role: model.RoleUser}
)

func TestCreateAdmitsPending(t *testing.T) {
	svc, _ := newEngine(t)
	start, end := examWindow(10)

	r, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 30000,
	}, alice)
	require.NoError(t, err)
	require.NotZero(t, r.ID)
	assert.Equal(t, model.StatusPending, r.Status)
	assert.Equal(t, alice.ID, r.UserID)
	assert.EqualValues(t, 30000, r.RequestedSeats)
}

func TestCreateReusesScheduleForSameWindow(t *testing.T) {
	svc, _ := newEngine(t)
	start, end := examWindow(10)

	first, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 10,
	}, alice)
	require.NoError(t, err)

	second, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 20,
	}, bob)
	require.NoError(t, err)
	assert.Equal(t, first.ScheduleID, second.ScheduleID)
}

func TestConcurrentCreatesResolveToOneSchedule(t *testing.T) {
	svc, _ := newEngine(t)
	start, end := examWindow(10)

	// Racing creates for an identical window must converge on a single
	// lazily created schedule.
	const callers = 8
	var wg sync.WaitGroup
	scheduleIDs := make([]uint64, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := svc.Create(context.Background(), service.CreateParams{
				StartTime: start, EndTime: end, RequestedSeats: 10,
			}, service.Actor{ID: uint64(100 + i), Role: model.RoleUser})
			errs[i] = err
			if err == nil {
				scheduleIDs[i] = r.ScheduleID
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, scheduleIDs[0], scheduleIDs[i])
	}
}

func TestCreateLeadTimeBoundary(t *testing.T) {
	svc, _ := newEngine(t)

	// Exactly three days out is already too soon.
	start := testNow.Add(3 * 24 * time.Hour)
	_, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: start.Add(time.Hour), RequestedSeats: 1,
	}, alice)
	require.Error(t, err)
	assert.Equal(t, service.KindWindowTooSoon, service.KindOf(err))

	// One second past the boundary is fine.
	start = start.Add(time.Second)
	_, err = svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: start.Add(time.Hour), RequestedSeats: 1,
	}, alice)
	require.NoError(t, err)
}

func TestCreateRejectsMalformedRequests(t *testing.T) {
	svc, _ := newEngine(t)
	start, end := examWindow(10)

	_, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 0,
	}, alice)
	assert.Equal(t, service.KindInvalidArgument, service.KindOf(err))

	_, err = svc.Create(context.Background(), service.CreateParams{
		StartTime: end, EndTime: start, RequestedSeats: 1,
	}, alice)
	assert.Equal(t, service.KindInvalidArgument, service.KindOf(err))

	_, err = svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: start, RequestedSeats: 1,
	}, alice)
	assert.Equal(t, service.KindInvalidArgument, service.KindOf(err))
}

func TestCreatePendingSeatsDoNotBlock(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	store.SeedSchedule(start, end, 100)

	// Pending demand far beyond capacity is admitted; only confirmed
	// seats count at create time.
	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), service.CreateParams{
			StartTime: start, EndTime: end, RequestedSeats: 90,
		}, alice)
		require.NoError(t, err)
	}
}

func TestCreateBlockedByConfirmedSeats(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	store.SeedReservation(bob.ID, schedID, 95, model.StatusConfirmed)

	_, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 10,
	}, alice)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	// Still room for a smaller request.
	_, err = svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 5,
	}, alice)
	require.NoError(t, err)
}

func TestCapacityGateSumDoesNotWrap(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	store.SeedReservation(bob.ID, schedID, 40, model.StatusConfirmed)

	// With 40 already confirmed, a near-maximal request would wrap a
	// uint32 sum below the 100-seat cap. All three gates must reject it.
	_, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: math.MaxUint32,
	}, alice)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	huge := store.SeedReservation(alice.ID, schedID, math.MaxUint32, model.StatusPending)
	_, err = svc.Confirm(context.Background(), huge, admin)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	srcStart, srcEnd := examWindow(20)
	srcID := store.SeedSchedule(srcStart, srcEnd, math.MaxUint32)
	moving := store.SeedReservation(alice.ID, srcID, math.MaxUint32, model.StatusPending)
	_, err = svc.Update(context.Background(), moving, service.UpdateParams{
		StartTime: &start, EndTime: &end,
	}, alice)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))
}

func TestConfirmRequiresAdmin(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)

	// Even the owner cannot confirm.
	_, err := svc.Confirm(context.Background(), resID, alice)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))

	r, err := svc.Confirm(context.Background(), resID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, r.Status)
}

func TestConfirmOnlyPending(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)

	confirmed := store.SeedReservation(alice.ID, schedID, 10, model.StatusConfirmed)
	_, err := svc.Confirm(context.Background(), confirmed, admin)
	assert.Equal(t, service.KindInvalidState, service.KindOf(err))

	cancelled := store.SeedReservation(alice.ID, schedID, 10, model.StatusCancelled)
	_, err = svc.Confirm(context.Background(), cancelled, admin)
	assert.Equal(t, service.KindInvalidState, service.KindOf(err))
}

func TestConfirmEnforcesCapacity(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	store.SeedReservation(bob.ID, schedID, 70, model.StatusConfirmed)
	resID := store.SeedReservation(alice.ID, schedID, 40, model.StatusPending)

	_, err := svc.Confirm(context.Background(), resID, admin)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	// The reservation stays pending after the failed confirmation.
	r, err := svc.Get(context.Background(), resID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, r.Status)
}

func TestConfirmRaceAdmitsOnlyOne(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	first := store.SeedReservation(alice.ID, schedID, 40, model.StatusPending)
	second := store.SeedReservation(bob.ID, schedID, 70, model.StatusPending)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uint64{first, second} {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			_, errs[i] = svc.Confirm(context.Background(), id, admin)
		}(i, id)
	}
	wg.Wait()

	// 40 + 70 cannot both fit in 100: exactly one confirmation wins.
	var ok, capacity int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case service.KindOf(err) == service.KindCapacityExceeded:
			capacity++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, capacity)
}

func TestUpdateOwnership(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)

	seats := uint32(20)
	_, err := svc.Update(context.Background(), resID, service.UpdateParams{RequestedSeats: &seats}, bob)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))

	r, err := svc.Update(context.Background(), resID, service.UpdateParams{RequestedSeats: &seats}, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 20, r.RequestedSeats)

	// Admins may patch anyone's reservation.
	seats = 25
	r, err = svc.Update(context.Background(), resID, service.UpdateParams{RequestedSeats: &seats}, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 25, r.RequestedSeats)
}

func TestUpdateConfirmedAndCancelled(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	seats := uint32(5)

	confirmed := store.SeedReservation(alice.ID, schedID, seats, model.StatusConfirmed)
	_, err := svc.Update(context.Background(), confirmed, service.UpdateParams{RequestedSeats: &seats}, alice)
	assert.Equal(t, service.KindInvalidState, service.KindOf(err))

	// Admins may still adjust a confirmed reservation.
	_, err = svc.Update(context.Background(), confirmed, service.UpdateParams{RequestedSeats: &seats}, admin)
	require.NoError(t, err)

	cancelled := store.SeedReservation(alice.ID, schedID, seats, model.StatusCancelled)
	_, err = svc.Update(context.Background(), cancelled, service.UpdateParams{RequestedSeats: &seats}, alice)
	assert.Equal(t, service.KindInvalidState, service.KindOf(err))
	_, err = svc.Update(context.Background(), cancelled, service.UpdateParams{RequestedSeats: &seats}, admin)
	assert.Equal(t, service.KindInvalidState, service.KindOf(err))
}

func TestUpdateLeadTimeOnNewStart(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)

	tooSoon := testNow.Add(2 * 24 * time.Hour)
	_, err := svc.Update(context.Background(), resID, service.UpdateParams{StartTime: &tooSoon}, alice)
	assert.Equal(t, service.KindWindowTooSoon, service.KindOf(err))

	// The same patch from an admin is allowed.
	_, err = svc.Update(context.Background(), resID, service.UpdateParams{StartTime: &tooSoon}, admin)
	require.NoError(t, err)
}

func TestUpdateRepointsToNewSchedule(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)
	other := store.SeedReservation(bob.ID, schedID, 20, model.StatusConfirmed)

	newStart, newEnd := examWindow(15)
	r, err := svc.Update(context.Background(), resID, service.UpdateParams{
		StartTime: &newStart, EndTime: &newEnd,
	}, alice)
	require.NoError(t, err)
	assert.NotEqual(t, schedID, r.ScheduleID)

	// The old schedule and its other reservation are untouched.
	o, err := svc.Get(context.Background(), other, admin)
	require.NoError(t, err)
	assert.Equal(t, schedID, o.ScheduleID)
	assert.Equal(t, model.StatusConfirmed, o.Status)
}

func TestUpdateWindowCapacityCountsOverlaps(t *testing.T) {
	svc, store := newEngine(t)

	// Destination window with capacity 80 and another schedule inside
	// it holding 60 confirmed seats.
	destStart, destEnd := examWindow(15)
	store.SeedSchedule(destStart, destEnd, 80)
	innerID := store.SeedSchedule(destStart.Add(30*time.Minute), destStart.Add(90*time.Minute), 80)
	store.SeedReservation(bob.ID, innerID, 60, model.StatusConfirmed)

	srcStart, srcEnd := examWindow(10)
	srcID := store.SeedSchedule(srcStart, srcEnd, 100)
	resID := store.SeedReservation(alice.ID, srcID, 30, model.StatusPending)

	// 60 overlapping + 30 moved > 80.
	_, err := svc.Update(context.Background(), resID, service.UpdateParams{
		StartTime: &destStart, EndTime: &destEnd,
	}, alice)
	require.Error(t, err)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	// Shrinking the request in the same patch lets it through.
	seats := uint32(20)
	r, err := svc.Update(context.Background(), resID, service.UpdateParams{
		StartTime: &destStart, EndTime: &destEnd, RequestedSeats: &seats,
	}, alice)
	require.NoError(t, err)
	assert.EqualValues(t, 20, r.RequestedSeats)
}

func TestUpdateHalfPatchedWindow(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)

	// Patching only the start past the current end inverts the window.
	badStart := end.Add(time.Hour)
	_, err := svc.Update(context.Background(), resID, service.UpdateParams{StartTime: &badStart}, alice)
	assert.Equal(t, service.KindInvalidArgument, service.KindOf(err))

	// Patching only the end keeps the current start.
	newEnd := end.Add(time.Hour)
	r, err := svc.Update(context.Background(), resID, service.UpdateParams{EndTime: &newEnd}, alice)
	require.NoError(t, err)
	assert.NotEqual(t, schedID, r.ScheduleID)
}

func TestUpdateNotFound(t *testing.T) {
	svc, _ := newEngine(t)
	seats := uint32(5)
	_, err := svc.Update(context.Background(), 999, service.UpdateParams{RequestedSeats: &seats}, admin)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestCancelRules(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)

	pending := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)
	require.Equal(t, service.KindForbidden, service.KindOf(svc.Cancel(context.Background(), pending, bob)))
	require.NoError(t, svc.Cancel(context.Background(), pending, alice))

	// Cancelling twice is an invalid transition, admins included.
	assert.Equal(t, service.KindInvalidState, service.KindOf(svc.Cancel(context.Background(), pending, alice)))
	assert.Equal(t, service.KindInvalidState, service.KindOf(svc.Cancel(context.Background(), pending, admin)))

	confirmed := store.SeedReservation(alice.ID, schedID, 10, model.StatusConfirmed)
	assert.Equal(t, service.KindInvalidState, service.KindOf(svc.Cancel(context.Background(), confirmed, alice)))
	require.NoError(t, svc.Cancel(context.Background(), confirmed, admin))

	assert.Equal(t, service.KindNotFound, service.KindOf(svc.Cancel(context.Background(), 999, admin)))
}

func TestCancelledSeatsFreeCapacity(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	held := store.SeedReservation(bob.ID, schedID, 95, model.StatusConfirmed)
	waiting := store.SeedReservation(alice.ID, schedID, 40, model.StatusPending)

	_, err := svc.Confirm(context.Background(), waiting, admin)
	assert.Equal(t, service.KindCapacityExceeded, service.KindOf(err))

	require.NoError(t, svc.Cancel(context.Background(), held, admin))

	_, err = svc.Confirm(context.Background(), waiting, admin)
	require.NoError(t, err)
}

func TestGetVisibility(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	resID := store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)

	_, err := svc.Get(context.Background(), resID, bob)
	assert.Equal(t, service.KindForbidden, service.KindOf(err))

	r, err := svc.Get(context.Background(), resID, alice)
	require.NoError(t, err)
	assert.Equal(t, resID, r.ID)

	_, err = svc.Get(context.Background(), resID, admin)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), 999, alice)
	assert.Equal(t, service.KindNotFound, service.KindOf(err))
}

func TestCreateThenListRoundTrip(t *testing.T) {
	svc, _ := newEngine(t)
	start, end := examWindow(10)

	created, err := svc.Create(context.Background(), service.CreateParams{
		StartTime: start, EndTime: end, RequestedSeats: 7,
	}, alice)
	require.NoError(t, err)

	list, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)
	assert.Equal(t, created.ScheduleID, list[0].ScheduleID)
	assert.EqualValues(t, 7, list[0].RequestedSeats)
	assert.Equal(t, model.StatusPending, list[0].Status)
}

func TestListScopedByRole(t *testing.T) {
	svc, store := newEngine(t)
	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	store.SeedReservation(alice.ID, schedID, 10, model.StatusPending)
	store.SeedReservation(alice.ID, schedID, 20, model.StatusCancelled)
	store.SeedReservation(bob.ID, schedID, 30, model.StatusConfirmed)

	mine, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	for _, r := range mine {
		assert.Equal(t, alice.ID, r.UserID)
	}

	all, err := svc.List(context.Background(), admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
