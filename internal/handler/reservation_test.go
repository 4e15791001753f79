package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaMinhyeok/reservation-management/internal/handler"
	"github.com/NaMinhyeok/reservation-management/internal/model"
	"github.com/NaMinhyeok/reservation-management/internal/repository"
	"github.com/NaMinhyeok/reservation-management/internal/service"
)

var handlerNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*handler.ReservationHandler, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	svc := service.NewReservationService(store, func() time.Time { return handlerNow })
	return handler.NewReservationHandler(svc), store
}

// call builds an echo context the way the JWT middleware would have
// left it: user_id and role claims stored on the context.
func call(e *echo.Echo, method, target, body string, userID uint64, role string, params ...string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", userID)
	c.Set("role", role)
	if len(params) > 0 {
		names := make([]string, 0, len(params)/2)
		values := make([]string, 0, len(params)/2)
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	return c, rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestCreateReturnsPendingReservation(t *testing.T) {
	h, _ := newHandler(t)
	e := echo.New()

	start := handlerNow.Add(10 * 24 * time.Hour)
	body := fmt.Sprintf(`{"start_time":%q,"end_time":%q,"requested_seats":100}`,
		start.Format(time.RFC3339), start.Add(2*time.Hour).Format(time.RFC3339))

	c, rec := call(e, http.MethodPost, "/v1/reservations", body, 2, model.RoleUser)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeBody(t, rec)
	assert.Equal(t, "PENDING", got["status"])
	assert.EqualValues(t, 2, got["user_id"])
	assert.EqualValues(t, 100, got["requested_seats"])
	assert.NotZero(t, got["id"])
}

func TestCreateRejectsBadBody(t *testing.T) {
	h, _ := newHandler(t)
	e := echo.New()

	c, rec := call(e, http.MethodPost, "/v1/reservations", `{"start_time":"nope"}`, 2, model.RoleUser)
	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateLeadTimeViolationIs400(t *testing.T) {
	h, _ := newHandler(t)
	e := echo.New()

	start := handlerNow.Add(24 * time.Hour)
	body := fmt.Sprintf(`{"start_time":%q,"end_time":%q,"requested_seats":1}`,
		start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339))

	c, rec := call(e, http.MethodPost, "/v1/reservations", body, 2, model.RoleUser)
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "3 days")
}

func TestGetEnforcesOwnership(t *testing.T) {
	h, store := newHandler(t)
	e := echo.New()
	start := handlerNow.Add(10 * 24 * time.Hour)
	schedID := store.SeedSchedule(start, start.Add(2*time.Hour), 100)
	resID := store.SeedReservation(2, schedID, 10, model.StatusPending)

	c, rec := call(e, http.MethodGet, "/v1/reservations/1", "", 3, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = call(e, http.MethodGet, "/v1/reservations/1", "", 2, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetMissingReservationIs404(t *testing.T) {
	h, _ := newHandler(t)
	e := echo.New()

	c, rec := call(e, http.MethodGet, "/v1/reservations/99", "", 1, model.RoleAdmin, "id", "99")
	require.NoError(t, h.Get(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeBody(t, rec)["error"], "does not exist")
}

func TestGetRejectsBadID(t *testing.T) {
	h, _ := newHandler(t)
	e := echo.New()

	c, rec := call(e, http.MethodGet, "/v1/reservations/abc", "", 1, model.RoleAdmin, "id", "abc")
	require.NoError(t, h.Get(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConfirmAdminOnly(t *testing.T) {
	h, store := newHandler(t)
	e := echo.New()
	start := handlerNow.Add(10 * 24 * time.Hour)
	schedID := store.SeedSchedule(start, start.Add(2*time.Hour), 100)
	resID := store.SeedReservation(2, schedID, 10, model.StatusPending)

	c, rec := call(e, http.MethodPost, "/v1/reservations/1/confirm", "", 2, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Confirm(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	c, rec = call(e, http.MethodPost, "/v1/reservations/1/confirm", "", 1, model.RoleAdmin, "id", fmt.Sprint(resID))
	require.NoError(t, h.Confirm(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CONFIRMED", decodeBody(t, rec)["status"])
}

func TestUpdatePatchesSeats(t *testing.T) {
	h, store := newHandler(t)
	e := echo.New()
	start := handlerNow.Add(10 * 24 * time.Hour)
	schedID := store.SeedSchedule(start, start.Add(2*time.Hour), 100)
	resID := store.SeedReservation(2, schedID, 10, model.StatusPending)

	c, rec := call(e, http.MethodPatch, "/v1/reservations/1", `{"requested_seats":42}`, 2, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 42, decodeBody(t, rec)["requested_seats"])
}

func TestDeleteCancels(t *testing.T) {
	h, store := newHandler(t)
	e := echo.New()
	start := handlerNow.Add(10 * 24 * time.Hour)
	schedID := store.SeedSchedule(start, start.Add(2*time.Hour), 100)
	resID := store.SeedReservation(2, schedID, 10, model.StatusPending)

	c, rec := call(e, http.MethodDelete, "/v1/reservations/1", "", 2, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// A second delete hits the already-cancelled transition.
	c, rec = call(e, http.MethodDelete, "/v1/reservations/1", "", 2, model.RoleUser, "id", fmt.Sprint(resID))
	require.NoError(t, h.Delete(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListScopesToCaller(t *testing.T) {
	h, store := newHandler(t)
	e := echo.New()
	start := handlerNow.Add(10 * 24 * time.Hour)
	schedID := store.SeedSchedule(start, start.Add(2*time.Hour), 100)
	store.SeedReservation(2, schedID, 10, model.StatusPending)
	store.SeedReservation(3, schedID, 20, model.StatusPending)

	c, rec := call(e, http.MethodGet, "/v1/reservations", "", 2, model.RoleUser)
	require.NoError(t, h.List(c))
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.EqualValues(t, 2, mine[0]["user_id"])

	c, rec = call(e, http.MethodGet, "/v1/reservations", "", 1, model.RoleAdmin)
	require.NoError(t, h.List(c))
	var all []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &all))
	assert.Len(t, all, 2)
}
