package repository

import (
    "context"
    "sort"
    "sync"
    "time"

    "github.com/NaMinhyeok/reservation-management/internal/model"
    "github.com/NaMinhyeok/reservation-management/internal/service"
)

// MemoryStore is an in-memory service.Store used by the engine and
// handler tests, where the lead-time and race properties need to be
// exercised deterministically without a live MySQL. A single mutex
// serializes transactions, giving the same atomicity contract as the
// SQL store: fn runs against a copy of the state that only becomes
// visible on commit.
type MemoryStore struct {
    mu    sync.Mutex
    state memState
}

type memState struct {
    schedules      map[uint64]model.ExamSchedule
    reservations   map[uint64]model.Reservation
    nextScheduleID uint64
    nextResID      uint64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
    return &MemoryStore{
        state: memState{
            schedules:      make(map[uint64]model.ExamSchedule),
            reservations:   make(map[uint64]model.Reservation),
            nextScheduleID: 1,
            nextResID:      1,
        },
    }
}

// InTx runs fn against a snapshot of the store; the snapshot replaces
// the live state only when fn succeeds.
func (m *MemoryStore) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
    m.mu.Lock()
    defer m.mu.Unlock()
    work := m.state.clone()
    if err := fn(&memTx{state: &work}); err != nil {
        return err
    }
    m.state = work
    return nil
}

// SeedSchedule inserts a schedule with an explicit capacity and returns
// its id. Tests use it to set up small seat caps.
func (m *MemoryStore) SeedSchedule(start, end time.Time, maxSeats uint32) uint64 {
    m.mu.Lock()
    defer m.mu.Unlock()
    id := m.state.nextScheduleID
    m.state.nextScheduleID++
    now := time.Now().UTC()
    m.state.schedules[id] = model.ExamSchedule{
        ID: id, StartTime: start.UTC(), EndTime: end.UTC(),
        MaxSeats: maxSeats, CreatedAt: now, UpdatedAt: now,
    }
    return id
}

// SeedReservation inserts a reservation in the given status and returns
// its id.
func (m *MemoryStore) SeedReservation(userID, scheduleID uint64, seats uint32, status model.ReservationStatus) uint64 {
    m.mu.Lock()
    defer m.mu.Unlock()
    id := m.state.nextResID
    m.state.nextResID++
    now := time.Now().UTC()
    m.state.reservations[id] = model.Reservation{
        ID: id, UserID: userID, ScheduleID: scheduleID,
        RequestedSeats: seats, Status: status, CreatedAt: now, UpdatedAt: now,
    }
    return id
}

func (s memState) clone() memState {
    out := memState{
        schedules:      make(map[uint64]model.ExamSchedule, len(s.schedules)),
        reservations:   make(map[uint64]model.Reservation, len(s.reservations)),
        nextScheduleID: s.nextScheduleID,
        nextResID:      s.nextResID,
    }
    for id, sched := range s.schedules {
        out.schedules[id] = sched
    }
    for id, r := range s.reservations {
        out.reservations[id] = r
    }
    return out
}

// memTx implements service.Tx over a state snapshot.
type memTx struct {
    state *memState
}

func (t *memTx) FindOrCreateSchedule(ctx context.Context, start, end time.Time) (*model.ExamSchedule, error) {
    start, end = start.UTC(), end.UTC()
    for _, s := range t.state.schedules {
        if s.StartTime.Equal(start) && s.EndTime.Equal(end) {
            out := s
            return &out, nil
        }
    }
    id := t.state.nextScheduleID
    t.state.nextScheduleID++
    now := time.Now().UTC()
    s := model.ExamSchedule{
        ID: id, StartTime: start, EndTime: end,
        MaxSeats: model.DefaultMaxSeats, CreatedAt: now, UpdatedAt: now,
    }
    t.state.schedules[id] = s
    return &s, nil
}

func (t *memTx) ScheduleByID(ctx context.Context, id uint64) (*model.ExamSchedule, error) {
    s, ok := t.state.schedules[id]
    if !ok {
        return nil, service.ErrScheduleNotFound
    }
    return &s, nil
}

// LockSchedule only verifies existence: the store mutex already makes
// transactions mutually exclusive.
func (t *memTx) LockSchedule(ctx context.Context, id uint64) error {
    if _, ok := t.state.schedules[id]; !ok {
        return service.ErrScheduleNotFound
    }
    return nil
}

func (t *memTx) ConfirmedSeats(ctx context.Context, scheduleID uint64) (uint32, error) {
    var total uint32
    for _, r := range t.state.reservations {
        if r.ScheduleID == scheduleID && r.Status == model.StatusConfirmed {
            total += r.RequestedSeats
        }
    }
    return total, nil
}

func (t *memTx) ConfirmedSeatsOverlapping(ctx context.Context, start, end time.Time, excludeReservationID uint64) (uint32, error) {
    var total uint32
    for _, r := range t.state.reservations {
        if r.ID == excludeReservationID || r.Status != model.StatusConfirmed {
            continue
        }
        s, ok := t.state.schedules[r.ScheduleID]
        if !ok {
            continue
        }
        if s.Overlaps(start, end) {
            total += r.RequestedSeats
        }
    }
    return total, nil
}

func (t *memTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
    r.ID = t.state.nextResID
    t.state.nextResID++
    now := time.Now().UTC()
    r.CreatedAt, r.UpdatedAt = now, now
    t.state.reservations[r.ID] = *r
    return nil
}

func (t *memTx) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    r, ok := t.state.reservations[id]
    if !ok {
        return nil, service.ErrReservationNotFound
    }
    return &r, nil
}

func (t *memTx) SaveReservation(ctx context.Context, r *model.Reservation) error {
    if _, ok := t.state.reservations[r.ID]; !ok {
        return service.ErrReservationNotFound
    }
    r.UpdatedAt = time.Now().UTC()
    t.state.reservations[r.ID] = *r
    return nil
}

func (t *memTx) ListReservations(ctx context.Context) ([]model.Reservation, error) {
    return t.collect(func(model.Reservation) bool { return true }), nil
}

func (t *memTx) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    return t.collect(func(r model.Reservation) bool { return r.UserID == userID }), nil
}

func (t *memTx) collect(keep func(model.Reservation) bool) []model.Reservation {
    out := make([]model.Reservation, 0)
    for _, r := range t.state.reservations {
        if keep(r) {
            out = append(out, r)
        }
    }
    sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
    return out
}

func (t *memTx) SchedulesWithConfirmedSeats(ctx context.Context, minStart time.Time) ([]service.ScheduleSeats, error) {
    out := make([]service.ScheduleSeats, 0)
    for _, s := range t.state.schedules {
        if s.StartTime.Before(minStart) {
            continue
        }
        confirmed, _ := t.ConfirmedSeats(ctx, s.ID)
        out = append(out, service.ScheduleSeats{Schedule: s, Confirmed: confirmed})
    }
    sort.Slice(out, func(i, j int) bool {
        return out[i].Schedule.StartTime.Before(out[j].Schedule.StartTime)
    })
    return out, nil
}
