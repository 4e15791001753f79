package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/NaMinhyeok/reservation-management/internal/service"
)

// ScheduleHandler exposes public, read-only schedule queries. These
// routes carry no JWT middleware so prospective registrants can browse
// open exam slots before signing in.
type ScheduleHandler struct {
    Svc *service.ScheduleService
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
    if svc == nil {
        panic("nil service passed to NewScheduleHandler")
    }
    return &ScheduleHandler{Svc: svc}
}

type scheduleResp struct {
    ID             uint64    `json:"id"`
    StartTime      time.Time `json:"start_time"`
    EndTime        time.Time `json:"end_time"`
    MaxSeats       uint32    `json:"max_seats"`
    AvailableSeats uint32    `json:"available_seats"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}

// Available handles GET /v1/exam-schedules/available. It lists
// schedules still open for reservation (starting at least three days
// out) with their remaining confirmed-seat headroom.
func (h *ScheduleHandler) Available(c echo.Context) error {
    list, err := h.Svc.Available(c.Request().Context())
    if err != nil {
        return writeServiceError(c, err)
    }
    out := make([]scheduleResp, 0, len(list))
    for _, s := range list {
        out = append(out, scheduleResp{
            ID:             s.Schedule.ID,
            StartTime:      s.Schedule.StartTime,
            EndTime:        s.Schedule.EndTime,
            MaxSeats:       s.Schedule.MaxSeats,
            AvailableSeats: s.AvailableSeats,
            CreatedAt:      s.Schedule.CreatedAt,
            UpdatedAt:      s.Schedule.UpdatedAt,
        })
    }
    return c.JSON(http.StatusOK, out)
}
