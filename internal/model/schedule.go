package model

import "time"

// DefaultMaxSeats is the seat capacity assigned to an exam schedule
// created lazily on first reservation against a novel time window.
const DefaultMaxSeats uint32 = 50000

// ExamSchedule represents an exam time slot that reservations compete
// for. A schedule is identified by its exact (StartTime, EndTime) pair
// for lookup purposes; the `exam_schedules` table carries a unique key
// on that pair so concurrent identical create requests resolve to a
// single row. Once seats are confirmed against a schedule its window is
// never rewritten; moving a reservation re-points it at another
// schedule instead.
//
// Fields:
//  ID        – primary key identifier.
//  StartTime – when the exam begins (must precede EndTime).
//  EndTime   – when the exam ends.
//  MaxSeats  – seat capacity; confirmed seats must never exceed this.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type ExamSchedule struct {
    ID        uint64    // exam_schedules.id
    StartTime time.Time // exam_schedules.start_time
    EndTime   time.Time // exam_schedules.end_time
    MaxSeats  uint32    // exam_schedules.max_seats
    CreatedAt time.Time // exam_schedules.created_at
    UpdatedAt time.Time // exam_schedules.updated_at
}

// Overlaps reports whether the schedule's window intersects [start, end)
// using the strict-overlap rule: s.start < end AND s.end > start.
// Schedules that merely touch at a boundary do not overlap.
func (s *ExamSchedule) Overlaps(start, end time.Time) bool {
    return s.StartTime.Before(end) && s.EndTime.After(start)
}
