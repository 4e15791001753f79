package service

import (
    "context"
    "errors"
    "time"

    "github.com/NaMinhyeok/reservation-management/internal/model"
)

// Sentinel errors returned by Tx implementations. The engine translates
// them into client-facing rejections; anything else is treated as a
// storage fault and passed through unchanged.
var (
    ErrReservationNotFound = errors.New("reservation not found")
    ErrScheduleNotFound    = errors.New("exam schedule not found")
)

// Store is the persistence collaborator. InTx runs fn inside a single
// transaction: if fn returns nil the transaction commits, otherwise it
// rolls back and the error is returned. Implementations must make the
// transaction strong enough that a capacity check-then-write sequence
// guarded by LockSchedule cannot interleave with another transaction's
// writes against the same schedule, and may transparently retry fn on
// transient contention, so fn must be safe to re-run.
type Store interface {
    InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a Store transaction.
type Tx interface {
    // FindOrCreateSchedule returns the schedule with exactly the given
    // window, creating it with the default capacity when absent. The
    // storage layer's unique key on (start_time, end_time) is the
    // serialization point: two racing calls with an identical window
    // must resolve to the same single row.
    FindOrCreateSchedule(ctx context.Context, start, end time.Time) (*model.ExamSchedule, error)

    // ScheduleByID loads a schedule or returns ErrScheduleNotFound.
    ScheduleByID(ctx context.Context, id uint64) (*model.ExamSchedule, error)

    // LockSchedule acquires the per-schedule mutual exclusion used to
    // make a capacity check-then-write atomic. The lock is held until
    // the transaction ends.
    LockSchedule(ctx context.Context, id uint64) error

    // ConfirmedSeats sums requested_seats over CONFIRMED reservations
    // on the schedule; zero when there are none.
    ConfirmedSeats(ctx context.Context, scheduleID uint64) (uint32, error)

    // ConfirmedSeatsOverlapping sums requested_seats over CONFIRMED
    // reservations whose schedule window strictly overlaps [start, end),
    // excluding one reservation by id so a reservation being moved does
    // not count against itself.
    ConfirmedSeatsOverlapping(ctx context.Context, start, end time.Time, excludeReservationID uint64) (uint32, error)

    // CreateReservation inserts r and populates its generated fields.
    CreateReservation(ctx context.Context, r *model.Reservation) error

    // ReservationByID loads a reservation or returns
    // ErrReservationNotFound.
    ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error)

    // SaveReservation persists r's mutable fields (schedule, seats,
    // status) and refreshes UpdatedAt.
    SaveReservation(ctx context.Context, r *model.Reservation) error

    // ListReservations returns every reservation, newest first.
    ListReservations(ctx context.Context) ([]model.Reservation, error)

    // ListReservationsByUser returns the user's reservations, newest
    // first.
    ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)

    // SchedulesWithConfirmedSeats returns schedules starting at or after
    // minStart together with their confirmed seat totals.
    SchedulesWithConfirmedSeats(ctx context.Context, minStart time.Time) ([]ScheduleSeats, error)
}

// ScheduleSeats pairs a schedule with its confirmed seat total; used by
// the availability listing.
type ScheduleSeats struct {
    Schedule  model.ExamSchedule
    Confirmed uint32
}
