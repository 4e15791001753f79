package handler // handler defines http handlers

import (
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/NaMinhyeok/reservation-management/internal/service"
)

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id")
    switch t := v.(type) {
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64: // JWT numeric claims decode as float64
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// actorFrom builds the caller's identity capability from the claims the
// JWT middleware stored in the context. The engine receives identity
// explicitly on every call instead of reading it ambiently.
func actorFrom(c echo.Context) (service.Actor, error) {
    uid, err := getUserID(c)
    if err != nil {
        return service.Actor{}, err
    }
    role, _ := c.Get("role").(string)
    return service.Actor{ID: uid, Role: role}, nil
}

// writeServiceError maps an engine rejection onto its stable HTTP
// status and JSON body. Unknown errors are reported as a 500 without
// leaking storage details.
func writeServiceError(c echo.Context, err error) error {
    var se *service.Error
    if errors.As(err, &se) {
        status := http.StatusBadRequest
        switch se.Kind {
        case service.KindNotFound:
            status = http.StatusNotFound
        case service.KindForbidden:
            status = http.StatusForbidden
        }
        return c.JSON(status, echo.Map{"error": se.Message})
    }
    c.Logger().Errorf("reservation operation failed: %v", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
}
