// Package service implements the reservation admission and lifecycle
// rules: whether a reservation may be created, confirmed, updated or
// cancelled given the reservations competing for the same or
// overlapping exam windows. Persistence and identity are collaborators
// supplied by the caller; the package itself holds no global state.
package service

import "errors"

// ErrorKind classifies a business-rule rejection. Handlers map kinds
// onto HTTP statuses; the engine itself never retries a rejection.
type ErrorKind int

const (
    // KindNotFound: the referenced reservation does not exist.
    KindNotFound ErrorKind = iota + 1
    // KindForbidden: the actor may not perform this operation on this
    // reservation.
    KindForbidden
    // KindInvalidState: the transition is illegal for the reservation's
    // current status.
    KindInvalidState
    // KindWindowTooSoon: the 3-day lead-time rule was violated.
    KindWindowTooSoon
    // KindCapacityExceeded: admitting the seats would breach the
    // schedule's capacity.
    KindCapacityExceeded
    // KindInvalidArgument: the request itself is malformed
    // (non-positive seats, end not after start).
    KindInvalidArgument
)

// Error is a business-rule rejection with a stable kind and a
// client-facing message. Capacity and lead-time messages carry the
// numeric context callers need for retry decisions.
type Error struct {
    Kind    ErrorKind
    Message string
}

func (e *Error) Error() string { return e.Message }

// KindOf extracts the ErrorKind from err, or 0 when err is not a
// business-rule rejection (e.g. a storage failure).
func KindOf(err error) ErrorKind {
    var se *Error
    if errors.As(err, &se) {
        return se.Kind
    }
    return 0
}

func reject(kind ErrorKind, msg string) *Error {
    return &Error{Kind: kind, Message: msg}
}
