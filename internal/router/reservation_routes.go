package router

import (
	"github.com/labstack/echo/v4"

	"github.com/NaMinhyeok/reservation-management/internal/handler"
	"github.com/NaMinhyeok/reservation-management/internal/middleware"
	"github.com/NaMinhyeok/reservation-management/internal/model"
)

// RegisterReservations registers the reservation lifecycle endpoints.
// Every route requires a valid access token; the finer admin/owner
// rules are enforced by the reservation engine itself, so both roles
// are admitted here. The confirm route is reachable by USER tokens too
// and answers 403 from the engine, keeping the policy in one place.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole(model.RoleAdmin, model.RoleUser))

	g.POST("", r.Create)
	g.GET("", r.List)
	g.GET("/:id", r.Get)
	g.POST("/:id/confirm", r.Confirm)
	g.PATCH("/:id", r.Update)
	g.DELETE("/:id", r.Delete)
}

// RegisterSchedules registers the public, read-only schedule browse
// endpoint. No JWT middleware: guests may inspect open exam slots. The
// optional cache middleware (Redis-backed) is applied by the caller so
// the route works with or without a cache.
func RegisterSchedules(e *echo.Echo, s *handler.ScheduleHandler, mws ...echo.MiddlewareFunc) {
	e.GET("/v1/exam-schedules/available", s.Available, mws...)
}
