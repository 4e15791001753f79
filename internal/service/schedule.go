package service

import (
    "context"
    "time"

    "github.com/NaMinhyeok/reservation-management/internal/model"
)

// ScheduleAvailability is an exam schedule annotated with the number of
// seats still open for confirmation.
type ScheduleAvailability struct {
    Schedule       model.ExamSchedule
    AvailableSeats uint32
}

// ScheduleService exposes read-side schedule queries backed by the same
// store as the lifecycle engine.
type ScheduleService struct {
    store Store
    now   Clock
}

// NewScheduleService builds the schedule query service. A nil clock
// falls back to the wall clock.
func NewScheduleService(store Store, clock Clock) *ScheduleService {
    if store == nil {
        panic("nil store passed to NewScheduleService")
    }
    if clock == nil {
        clock = time.Now
    }
    return &ScheduleService{store: store, now: clock}
}

// Available lists schedules that can still be reserved against: those
// starting at least the lead time from now, each with its remaining
// confirmed-seat headroom. Schedules with no confirmed reservations
// report their full capacity.
func (s *ScheduleService) Available(ctx context.Context) ([]ScheduleAvailability, error) {
    minStart := s.now().Add(leadTime)
    var out []ScheduleAvailability
    err := s.store.InTx(ctx, func(tx Tx) error {
        rows, err := tx.SchedulesWithConfirmedSeats(ctx, minStart)
        if err != nil {
            return err
        }
        out = make([]ScheduleAvailability, 0, len(rows))
        for _, row := range rows {
            avail := uint32(0)
            if row.Schedule.MaxSeats > row.Confirmed {
                avail = row.Schedule.MaxSeats - row.Confirmed
            }
            out = append(out, ScheduleAvailability{Schedule: row.Schedule, AvailableSeats: avail})
        }
        return nil
    })
    if err != nil {
        return nil, err
    }
    return out, nil
}
