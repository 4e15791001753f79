package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaMinhyeok/reservation-management/internal/model"
	"github.com/NaMinhyeok/reservation-management/internal/repository"
	"github.com/NaMinhyeok/reservation-management/internal/service"
)

func TestAvailableFiltersByLeadTime(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.NewScheduleService(store, fixedClock(testNow))

	// Inside the lead time: not listed.
	soon := testNow.Add(2 * 24 * time.Hour)
	store.SeedSchedule(soon, soon.Add(2*time.Hour), 100)

	farStart, farEnd := examWindow(10)
	farID := store.SeedSchedule(farStart, farEnd, 100)

	out, err := svc.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, farID, out[0].Schedule.ID)
}

func TestAvailableCountsConfirmedOnly(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.NewScheduleService(store, fixedClock(testNow))

	start, end := examWindow(10)
	schedID := store.SeedSchedule(start, end, 100)
	store.SeedReservation(2, schedID, 30, model.StatusConfirmed)
	store.SeedReservation(3, schedID, 25, model.StatusPending)
	store.SeedReservation(3, schedID, 25, model.StatusCancelled)

	out, err := svc.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.EqualValues(t, 70, out[0].AvailableSeats)
}

func TestAvailableSortedAndClamped(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := service.NewScheduleService(store, fixedClock(testNow))

	lateStart, lateEnd := examWindow(20)
	lateID := store.SeedSchedule(lateStart, lateEnd, 100)

	earlyStart, earlyEnd := examWindow(10)
	earlyID := store.SeedSchedule(earlyStart, earlyEnd, 50)
	// Admin overrides can push confirmed seats past capacity; the
	// listing clamps at zero instead of wrapping.
	store.SeedReservation(2, earlyID, 60, model.StatusConfirmed)

	out, err := svc.Available(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, earlyID, out[0].Schedule.ID)
	assert.Equal(t, lateID, out[1].Schedule.ID)
	assert.Zero(t, out[0].AvailableSeats)
	assert.EqualValues(t, 100, out[1].AvailableSeats)
}
