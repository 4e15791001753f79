package model

import "time"

// ReservationStatus enumerates the lifecycle states of a reservation.
// Valid transitions are PENDING→CONFIRMED, PENDING→CANCELLED and
// CONFIRMED→CANCELLED; CANCELLED is terminal.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "PENDING"
    StatusConfirmed ReservationStatus = "CONFIRMED"
    StatusCancelled ReservationStatus = "CANCELLED"
)

// Reservation is a user's request for a block of seats against an exam
// schedule. It is created PENDING and only counts against the
// schedule's capacity once CONFIRMED by an administrator.
//
// Fields:
//  ID             – primary key identifier.
//  UserID         – owner of the reservation.
//  ScheduleID     – exam schedule the seats are requested against.
//  RequestedSeats – number of seats requested (positive).
//  Status         – current lifecycle state.
//  CreatedAt      – creation timestamp.
//  UpdatedAt      – last update timestamp.
type Reservation struct {
    ID             uint64            // reservations.id
    UserID         uint64            // reservations.user_id
    ScheduleID     uint64            // reservations.schedule_id
    RequestedSeats uint32            // reservations.requested_seats
    Status         ReservationStatus // reservations.status
    CreatedAt      time.Time         // reservations.created_at
    UpdatedAt      time.Time         // reservations.updated_at
}
