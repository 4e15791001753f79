package handler

import (
    "context"
    "log"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/NaMinhyeok/reservation-management/internal/model"
    "github.com/NaMinhyeok/reservation-management/internal/queue"
    "github.com/NaMinhyeok/reservation-management/internal/service"
)

// ReservationHandler exposes the reservation lifecycle over HTTP. All
// methods assume that JWT authentication and role validation has
// already been performed by middleware; the business rules themselves
// (ownership, lead time, capacity) live in the service and are only
// translated to HTTP statuses here.
type ReservationHandler struct {
    Svc *service.ReservationService
}

// NewReservationHandler constructs a ReservationHandler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
    if svc == nil {
        panic("nil service passed to NewReservationHandler")
    }
    return &ReservationHandler{Svc: svc}
}

// ----- DTOs -----

type createReservationReq struct {
    StartTime      time.Time `json:"start_time"`
    EndTime        time.Time `json:"end_time"`
    RequestedSeats uint32    `json:"requested_seats"`
}

type updateReservationReq struct {
    StartTime      *time.Time `json:"start_time"`
    EndTime        *time.Time `json:"end_time"`
    RequestedSeats *uint32    `json:"requested_seats"`
}

type reservationResp struct {
    ID             uint64    `json:"id"`
    UserID         uint64    `json:"user_id"`
    ScheduleID     uint64    `json:"schedule_id"`
    RequestedSeats uint32    `json:"requested_seats"`
    Status         string    `json:"status"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}

func toReservationResp(r *model.Reservation) reservationResp {
    return reservationResp{
        ID:             r.ID,
        UserID:         r.UserID,
        ScheduleID:     r.ScheduleID,
        RequestedSeats: r.RequestedSeats,
        Status:         string(r.Status),
        CreatedAt:      r.CreatedAt,
        UpdatedAt:      r.UpdatedAt,
    }
}

// reservationID parses the :id path parameter.
func reservationID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return 0, false
    }
    return id, true
}

// Create handles POST /v1/reservations. The reservation is admitted in
// PENDING state; pending requests from other users do not block it, so
// a 201 here is not a seat guarantee, confirmation is.
func (h *ReservationHandler) Create(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var body createReservationReq
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    r, err := h.Svc.Create(c.Request().Context(), service.CreateParams{
        StartTime:      body.StartTime,
        EndTime:        body.EndTime,
        RequestedSeats: body.RequestedSeats,
    }, actor)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusCreated, toReservationResp(r))
}

// List handles GET /v1/reservations. Admins see every reservation;
// users only their own.
func (h *ReservationHandler) List(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    list, err := h.Svc.List(c.Request().Context(), actor)
    if err != nil {
        return writeServiceError(c, err)
    }
    out := make([]reservationResp, 0, len(list))
    for i := range list {
        out = append(out, toReservationResp(&list[i]))
    }
    return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/reservations/:id for the owner or an admin.
func (h *ReservationHandler) Get(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := reservationID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    r, err := h.Svc.Get(c.Request().Context(), id, actor)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// Confirm handles POST /v1/reservations/:id/confirm. Admin only; this
// is the hard capacity gate. On success a reservation.confirmed event
// is published for downstream consumers; publish failures are logged
// and do not fail the request.
func (h *ReservationHandler) Confirm(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := reservationID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    r, err := h.Svc.Confirm(c.Request().Context(), id, actor)
    if err != nil {
        return writeServiceError(c, err)
    }
    ev := queue.ReservationConfirmedEvent{
        ReservationID:  r.ID,
        UserID:         r.UserID,
        ScheduleID:     r.ScheduleID,
        RequestedSeats: r.RequestedSeats,
        ConfirmedAt:    time.Now().UTC().Format(time.RFC3339),
    }
    go func() {
        if err := queue.PublishReservationConfirmed(context.Background(), ev); err != nil {
            log.Printf("reservation.confirmed publish failed for id=%d: %v", r.ID, err)
        }
    }()
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// Update handles PATCH /v1/reservations/:id with a partial patch of
// seats and/or window.
func (h *ReservationHandler) Update(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := reservationID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    var body updateReservationReq
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    r, err := h.Svc.Update(c.Request().Context(), id, service.UpdateParams{
        StartTime:      body.StartTime,
        EndTime:        body.EndTime,
        RequestedSeats: body.RequestedSeats,
    }, actor)
    if err != nil {
        return writeServiceError(c, err)
    }
    return c.JSON(http.StatusOK, toReservationResp(r))
}

// Delete handles DELETE /v1/reservations/:id by marking the reservation
// cancelled.
func (h *ReservationHandler) Delete(c echo.Context) error {
    actor, err := actorFrom(c)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    id, ok := reservationID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    if err := h.Svc.Cancel(c.Request().Context(), id, actor); err != nil {
        return writeServiceError(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
