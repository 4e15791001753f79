package service

import "github.com/NaMinhyeok/reservation-management/internal/model"

// Actor is the caller's identity capability: the resolved user id and
// role supplied by the authentication collaborator on every operation.
// It is passed explicitly so the engine never reads ambient identity
// state.
type Actor struct {
    ID   uint64
    Role string
}

// IsAdmin reports whether the actor carries the ADMIN role.
func (a Actor) IsAdmin() bool { return a.Role == model.RoleAdmin }

// canModify is the single ownership rule shared by update, cancel and
// read paths: admins may touch any reservation, users only their own.
func canModify(r *model.Reservation, actor Actor) bool {
    return actor.IsAdmin() || r.UserID == actor.ID
}

// canForceConfirmedChange reports whether the actor may mutate or
// cancel a reservation that is already CONFIRMED.
func canForceConfirmedChange(actor Actor) bool { return actor.IsAdmin() }
