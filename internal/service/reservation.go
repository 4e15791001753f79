package service

import (
    "context"
    "fmt"
    "time"

    "github.com/NaMinhyeok/reservation-management/internal/model"
)

// leadTime is the minimum interval required between a reservation
// action and the exam's start.
const leadTime = 3 * 24 * time.Hour

// Clock supplies the current time. Injected so lead-time rules are
// deterministic under test; nil defaults to time.Now.
type Clock func() time.Time

// ReservationService is the reservation lifecycle engine. Every
// operation runs inside a single store transaction and either fully
// applies or fully rolls back.
//
// Admission is two-tiered on purpose: Create checks capacity against
// currently confirmed seats only, so pending requests from other users
// never block new pending requests, while Confirm re-checks under the
// schedule lock and is the sole hard gate against overbooking. Racing
// confirmations therefore resolve first-confirmed-first-served.
type ReservationService struct {
    store Store
    now   Clock
}

// NewReservationService builds the engine over the given store. A nil
// clock falls back to the wall clock.
func NewReservationService(store Store, clock Clock) *ReservationService {
    if store == nil {
        panic("nil store passed to NewReservationService")
    }
    if clock == nil {
        clock = time.Now
    }
    return &ReservationService{store: store, now: clock}
}

// CreateParams carries a reservation request: the exam window and the
// number of seats wanted.
type CreateParams struct {
    StartTime      time.Time
    EndTime        time.Time
    RequestedSeats uint32
}

// UpdateParams is a partial patch of an existing reservation. Nil
// fields are left unchanged; when only one side of the window is given
// the other side is inherited from the reservation's current schedule.
type UpdateParams struct {
    RequestedSeats *uint32
    StartTime      *time.Time
    EndTime        *time.Time
}

// Create admits a new PENDING reservation for the actor. The exam
// schedule for the requested window is created lazily when absent, and
// the lead-time rule is evaluated against the resolved schedule's start
// time. Capacity is checked optimistically against confirmed seats
// only; the hard gate is Confirm.
func (s *ReservationService) Create(ctx context.Context, p CreateParams, actor Actor) (*model.Reservation, error) {
    if p.RequestedSeats == 0 {
        return nil, reject(KindInvalidArgument, "requested_seats must be positive")
    }
    if !p.EndTime.After(p.StartTime) {
        return nil, reject(KindInvalidArgument, "end_time must be after start_time")
    }

    var created *model.Reservation
    err := s.store.InTx(ctx, func(tx Tx) error {
        sched, err := tx.FindOrCreateSchedule(ctx, p.StartTime, p.EndTime)
        if err != nil {
            return err
        }
        // Strict-or-equal: an exam starting exactly three days out is
        // already too soon.
        if !sched.StartTime.After(s.now().Add(leadTime)) {
            return reject(KindWindowTooSoon, fmt.Sprintf(
                "reservations must be made at least 3 days before the exam; exam starts %s",
                sched.StartTime.UTC().Format(time.RFC3339)))
        }
        confirmed, err := tx.ConfirmedSeats(ctx, sched.ID)
        if err != nil {
            return err
        }
        // Sum in uint64: a near-maximal request must not wrap the
        // uint32 sum below the cap.
        if uint64(confirmed)+uint64(p.RequestedSeats) > uint64(sched.MaxSeats) {
            return reject(KindCapacityExceeded, fmt.Sprintf(
                "not enough available seats: %d confirmed, %d requested, capacity %d",
                confirmed, p.RequestedSeats, sched.MaxSeats))
        }
        r := &model.Reservation{
            UserID:         actor.ID,
            ScheduleID:     sched.ID,
            RequestedSeats: p.RequestedSeats,
            Status:         model.StatusPending,
        }
        if err := tx.CreateReservation(ctx, r); err != nil {
            return err
        }
        created = r
        return nil
    })
    if err != nil {
        return nil, err
    }
    return created, nil
}

// Confirm transitions a PENDING reservation to CONFIRMED. Admin only.
// The capacity re-check runs while holding the schedule lock so two
// racing confirmations against the same schedule cannot both pass:
// whichever transaction wins the lock commits first and the loser sees
// its seats already counted.
func (s *ReservationService) Confirm(ctx context.Context, reservationID uint64, actor Actor) (*model.Reservation, error) {
    if !actor.IsAdmin() {
        return nil, reject(KindForbidden, "only administrators can confirm reservations")
    }
    var confirmed *model.Reservation
    err := s.store.InTx(ctx, func(tx Tx) error {
        r, err := tx.ReservationByID(ctx, reservationID)
        if err != nil {
            return asNotFound(err)
        }
        if r.Status != model.StatusPending {
            return reject(KindInvalidState, fmt.Sprintf(
                "only pending reservations can be confirmed; current status is %s", r.Status))
        }
        if err := tx.LockSchedule(ctx, r.ScheduleID); err != nil {
            return err
        }
        sched, err := tx.ScheduleByID(ctx, r.ScheduleID)
        if err != nil {
            return err
        }
        total, err := tx.ConfirmedSeats(ctx, r.ScheduleID)
        if err != nil {
            return err
        }
        if uint64(total)+uint64(r.RequestedSeats) > uint64(sched.MaxSeats) {
            return reject(KindCapacityExceeded, fmt.Sprintf(
                "seat capacity exceeded: %d confirmed, %d requested, capacity %d",
                total, r.RequestedSeats, sched.MaxSeats))
        }
        r.Status = model.StatusConfirmed
        if err := tx.SaveReservation(ctx, r); err != nil {
            return err
        }
        confirmed = r
        return nil
    })
    if err != nil {
        return nil, err
    }
    return confirmed, nil
}

// Update applies a partial patch to a reservation. Window changes
// re-point the reservation at a find-or-create schedule for the new
// window; the old schedule and its other reservations are untouched.
// Non-admin window changes are admitted against the confirmed seats of
// every schedule overlapping the destination window, excluding the
// reservation being moved.
func (s *ReservationService) Update(ctx context.Context, reservationID uint64, p UpdateParams, actor Actor) (*model.Reservation, error) {
    if p.RequestedSeats != nil && *p.RequestedSeats == 0 {
        return nil, reject(KindInvalidArgument, "requested_seats must be positive")
    }
    if p.StartTime != nil && p.EndTime != nil && !p.EndTime.After(*p.StartTime) {
        return nil, reject(KindInvalidArgument, "end_time must be after start_time")
    }

    var updated *model.Reservation
    err := s.store.InTx(ctx, func(tx Tx) error {
        r, err := tx.ReservationByID(ctx, reservationID)
        if err != nil {
            return asNotFound(err)
        }
        if !canModify(r, actor) {
            return reject(KindForbidden, "cannot modify another user's reservation")
        }
        if r.Status == model.StatusConfirmed && !canForceConfirmedChange(actor) {
            return reject(KindInvalidState, "cannot modify confirmed reservation")
        }
        if r.Status == model.StatusCancelled {
            return reject(KindInvalidState, "cannot modify cancelled reservation")
        }
        if p.StartTime != nil && !actor.IsAdmin() && p.StartTime.Before(s.now().Add(leadTime)) {
            return reject(KindWindowTooSoon, fmt.Sprintf(
                "reservations must be made at least 3 days before the exam; requested start is %s",
                p.StartTime.UTC().Format(time.RFC3339)))
        }
        if p.StartTime != nil || p.EndTime != nil {
            if err := s.moveWindow(ctx, tx, r, p, actor); err != nil {
                return err
            }
        }
        if p.RequestedSeats != nil {
            r.RequestedSeats = *p.RequestedSeats
        }
        if err := tx.SaveReservation(ctx, r); err != nil {
            return err
        }
        updated = r
        return nil
    })
    if err != nil {
        return nil, err
    }
    return updated, nil
}

// moveWindow resolves the effective destination window, admits the
// reservation's seats against it for non-admins, and re-points the
// reservation at the destination schedule.
func (s *ReservationService) moveWindow(ctx context.Context, tx Tx, r *model.Reservation, p UpdateParams, actor Actor) error {
    cur, err := tx.ScheduleByID(ctx, r.ScheduleID)
    if err != nil {
        return err
    }
    newStart, newEnd := cur.StartTime, cur.EndTime
    if p.StartTime != nil {
        newStart = *p.StartTime
    }
    if p.EndTime != nil {
        newEnd = *p.EndTime
    }
    // A half-patched window can still come out inverted.
    if !newEnd.After(newStart) {
        return reject(KindInvalidArgument, "end_time must be after start_time")
    }
    dest, err := tx.FindOrCreateSchedule(ctx, newStart, newEnd)
    if err != nil {
        return err
    }
    if !actor.IsAdmin() {
        if err := tx.LockSchedule(ctx, dest.ID); err != nil {
            return err
        }
        seats := r.RequestedSeats
        if p.RequestedSeats != nil {
            seats = *p.RequestedSeats
        }
        overlapping, err := tx.ConfirmedSeatsOverlapping(ctx, newStart, newEnd, r.ID)
        if err != nil {
            return err
        }
        if uint64(overlapping)+uint64(seats) > uint64(dest.MaxSeats) {
            return reject(KindCapacityExceeded, fmt.Sprintf(
                "not enough seats in the requested window: %d confirmed in overlapping schedules, %d requested, capacity %d",
                overlapping, seats, dest.MaxSeats))
        }
    }
    r.ScheduleID = dest.ID
    return nil
}

// Cancel marks a reservation CANCELLED. Non-admins may only cancel
// their own, still-unconfirmed reservations; admins may cancel any
// reservation that is not already cancelled.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uint64, actor Actor) error {
    return s.store.InTx(ctx, func(tx Tx) error {
        r, err := tx.ReservationByID(ctx, reservationID)
        if err != nil {
            return asNotFound(err)
        }
        if !canModify(r, actor) {
            return reject(KindForbidden, "cannot cancel another user's reservation")
        }
        if r.Status == model.StatusConfirmed && !canForceConfirmedChange(actor) {
            return reject(KindInvalidState, "cannot cancel confirmed reservation")
        }
        if r.Status == model.StatusCancelled {
            return reject(KindInvalidState, "reservation is already cancelled")
        }
        r.Status = model.StatusCancelled
        return tx.SaveReservation(ctx, r)
    })
}

// Get returns a single reservation visible to the actor: its owner or
// an admin.
func (s *ReservationService) Get(ctx context.Context, reservationID uint64, actor Actor) (*model.Reservation, error) {
    var out *model.Reservation
    err := s.store.InTx(ctx, func(tx Tx) error {
        r, err := tx.ReservationByID(ctx, reservationID)
        if err != nil {
            return asNotFound(err)
        }
        if !canModify(r, actor) {
            return reject(KindForbidden, "cannot view another user's reservation")
        }
        out = r
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// List returns all reservations for admins and only the actor's own
// reservations otherwise.
func (s *ReservationService) List(ctx context.Context, actor Actor) ([]model.Reservation, error) {
    var out []model.Reservation
    err := s.store.InTx(ctx, func(tx Tx) error {
        var err error
        if actor.IsAdmin() {
            out, err = tx.ListReservations(ctx)
        } else {
            out, err = tx.ListReservationsByUser(ctx, actor.ID)
        }
        return err
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}

// asNotFound maps the store's missing-reservation sentinel onto the
// client-facing rejection; other errors pass through as storage faults.
func asNotFound(err error) error {
    if err == ErrReservationNotFound {
        return reject(KindNotFound, "reservation does not exist")
    }
    return err
}
