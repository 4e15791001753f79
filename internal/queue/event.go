// Package queue defines message payloads exchanged over the message
// broker plus the publisher and background consumer for them.
package queue

// ReservationConfirmedEvent is published when an administrator
// confirms a reservation. It carries enough information for downstream
// consumers to log, notify, or feed analytics without querying the
// primary database.
type ReservationConfirmedEvent struct {
    ReservationID  uint64 `json:"reservation_id"`
    UserID         uint64 `json:"user_id"`
    ScheduleID     uint64 `json:"schedule_id"`
    RequestedSeats uint32 `json:"requested_seats"`
    ConfirmedAt    string `json:"confirmed_at"`
}
