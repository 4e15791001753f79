// Package repository implements the persistence collaborators of the
// reservation engine on MySQL, plus an in-memory variant used by tests.
package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/go-sql-driver/mysql"

    "github.com/NaMinhyeok/reservation-management/internal/model"
    "github.com/NaMinhyeok/reservation-management/internal/service"
)

// txMaxAttempts bounds transparent retries of a transaction that lost a
// lock race. Retried transactions re-run the caller's function from
// scratch, so the caller observes a single request with a single result.
const txMaxAttempts = 3

// Store is the MySQL-backed service.Store. All timestamp columns are
// stored in UTC; the DSN must set parseTime=true (see database.Open).
type Store struct {
    db *sql.DB
}

// NewStore returns a Store bound to the given database handle.
func NewStore(db *sql.DB) *Store {
    if db == nil {
        panic("nil db passed to NewStore")
    }
    return &Store{db: db}
}

// DB exposes the underlying handle for collaborators that manage their
// own statements (schema bootstrap, seeding).
func (s *Store) DB() *sql.DB { return s.db }

// InTx runs fn inside a transaction and commits when fn returns nil.
// Deadlocks and lock wait timeouts (MySQL 1213/1205) are retried up to
// txMaxAttempts times; business-rule rejections and other errors roll
// back immediately and are returned unchanged.
func (s *Store) InTx(ctx context.Context, fn func(tx service.Tx) error) error {
    var lastErr error
    for attempt := 0; attempt < txMaxAttempts; attempt++ {
        tx, err := s.db.BeginTx(ctx, nil)
        if err != nil {
            return err
        }
        err = fn(&sqlTx{tx: tx})
        if err == nil {
            if err = tx.Commit(); err == nil {
                return nil
            }
        }
        _ = tx.Rollback()
        if !retryable(err) {
            return err
        }
        lastErr = err
    }
    return lastErr
}

// retryable reports whether err is transient lock contention worth
// re-running the transaction for.
func retryable(err error) bool {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me.Number == 1213 || me.Number == 1205
    }
    return false
}

// sqlTx implements service.Tx over a single *sql.Tx.
type sqlTx struct {
    tx *sql.Tx
}

const scheduleCols = "id, start_time, end_time, max_seats, created_at, updated_at"

func scanSchedule(row *sql.Row) (*model.ExamSchedule, error) {
    var s model.ExamSchedule
    err := row.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.MaxSeats, &s.CreatedAt, &s.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// FindOrCreateSchedule looks up the schedule with exactly the given
// window and inserts one with the default capacity when absent. The
// unique key uq_exam_window(start_time, end_time) is the serialization
// point: when two transactions race to create the same window, the
// loser hits a duplicate-key error (1062) and re-reads the winner's row.
func (t *sqlTx) FindOrCreateSchedule(ctx context.Context, start, end time.Time) (*model.ExamSchedule, error) {
    const sel = `SELECT ` + scheduleCols + ` FROM exam_schedules WHERE start_time = ? AND end_time = ?`
    s, err := scanSchedule(t.tx.QueryRowContext(ctx, sel, start.UTC(), end.UTC()))
    if err == nil {
        return s, nil
    }
    if err != sql.ErrNoRows {
        return nil, err
    }
    const ins = `INSERT INTO exam_schedules (start_time, end_time, max_seats) VALUES (?, ?, ?)`
    if _, err := t.tx.ExecContext(ctx, ins, start.UTC(), end.UTC(), model.DefaultMaxSeats); err != nil {
        var me *mysql.MySQLError
        if !errors.As(err, &me) || me.Number != 1062 {
            return nil, err
        }
        // Lost the create race; the row exists now.
    }
    return scanSchedule(t.tx.QueryRowContext(ctx, sel, start.UTC(), end.UTC()))
}

func (t *sqlTx) ScheduleByID(ctx context.Context, id uint64) (*model.ExamSchedule, error) {
    const q = `SELECT ` + scheduleCols + ` FROM exam_schedules WHERE id = ?`
    s, err := scanSchedule(t.tx.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, service.ErrScheduleNotFound
    }
    return s, err
}

// LockSchedule takes the schedule's row lock for the remainder of the
// transaction. Every capacity check-then-write sequence acquires this
// first, which serializes confirmations per schedule.
func (t *sqlTx) LockSchedule(ctx context.Context, id uint64) error {
    var got uint64
    err := t.tx.QueryRowContext(ctx,
        `SELECT id FROM exam_schedules WHERE id = ? FOR UPDATE`, id).Scan(&got)
    if err == sql.ErrNoRows {
        return service.ErrScheduleNotFound
    }
    return err
}

func (t *sqlTx) ConfirmedSeats(ctx context.Context, scheduleID uint64) (uint32, error) {
    const q = `SELECT COALESCE(SUM(requested_seats), 0) FROM reservations WHERE schedule_id = ? AND status = ?`
    var total int64
    err := t.tx.QueryRowContext(ctx, q, scheduleID, string(model.StatusConfirmed)).Scan(&total)
    if err != nil {
        return 0, err
    }
    return uint32(total), nil
}

// ConfirmedSeatsOverlapping sums confirmed seats across every schedule
// whose window strictly overlaps [start, end), excluding one
// reservation by id. FOR UPDATE locks the matched reservation rows so
// the admission decision stays valid until the transaction commits.
func (t *sqlTx) ConfirmedSeatsOverlapping(ctx context.Context, start, end time.Time, excludeReservationID uint64) (uint32, error) {
    const q = `SELECT COALESCE(SUM(r.requested_seats), 0)
               FROM reservations r
               JOIN exam_schedules s ON s.id = r.schedule_id
               WHERE s.start_time < ? AND s.end_time > ?
                 AND r.status = ?
                 AND r.id <> ?
               FOR UPDATE`
    var total int64
    err := t.tx.QueryRowContext(ctx, q, end.UTC(), start.UTC(),
        string(model.StatusConfirmed), excludeReservationID).Scan(&total)
    if err != nil {
        return 0, err
    }
    return uint32(total), nil
}

const reservationCols = "id, user_id, schedule_id, requested_seats, status, created_at, updated_at"

func scanReservation(row *sql.Row) (*model.Reservation, error) {
    var r model.Reservation
    err := row.Scan(&r.ID, &r.UserID, &r.ScheduleID, &r.RequestedSeats, &r.Status, &r.CreatedAt, &r.UpdatedAt)
    if err != nil {
        return nil, err
    }
    return &r, nil
}

func (t *sqlTx) CreateReservation(ctx context.Context, r *model.Reservation) error {
    const ins = `INSERT INTO reservations (user_id, schedule_id, requested_seats, status) VALUES (?, ?, ?, ?)`
    result, err := t.tx.ExecContext(ctx, ins, r.UserID, r.ScheduleID, r.RequestedSeats, string(r.Status))
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    // Query back the full row to populate timestamps and defaults.
    const sel = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
    got, err := scanReservation(t.tx.QueryRowContext(ctx, sel, uint64(id)))
    if err != nil {
        return err
    }
    *r = *got
    return nil
}

func (t *sqlTx) ReservationByID(ctx context.Context, id uint64) (*model.Reservation, error) {
    const q = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
    r, err := scanReservation(t.tx.QueryRowContext(ctx, q, id))
    if err == sql.ErrNoRows {
        return nil, service.ErrReservationNotFound
    }
    return r, err
}

func (t *sqlTx) SaveReservation(ctx context.Context, r *model.Reservation) error {
    const upd = `UPDATE reservations SET schedule_id = ?, requested_seats = ?, status = ?, updated_at = NOW() WHERE id = ?`
    if _, err := t.tx.ExecContext(ctx, upd, r.ScheduleID, r.RequestedSeats, string(r.Status), r.ID); err != nil {
        return err
    }
    const sel = `SELECT ` + reservationCols + ` FROM reservations WHERE id = ?`
    got, err := scanReservation(t.tx.QueryRowContext(ctx, sel, r.ID))
    if err != nil {
        return err
    }
    *r = *got
    return nil
}

func (t *sqlTx) ListReservations(ctx context.Context) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationCols + ` FROM reservations ORDER BY created_at DESC, id DESC`
    return t.listReservations(ctx, q)
}

func (t *sqlTx) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationCols + ` FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC`
    return t.listReservations(ctx, q, userID)
}

func (t *sqlTx) listReservations(ctx context.Context, query string, args ...interface{}) ([]model.Reservation, error) {
    rows, err := t.tx.QueryContext(ctx, query, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]model.Reservation, 0)
    for rows.Next() {
        var r model.Reservation
        if err := rows.Scan(&r.ID, &r.UserID, &r.ScheduleID, &r.RequestedSeats, &r.Status, &r.CreatedAt, &r.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, r)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

// SchedulesWithConfirmedSeats returns schedules starting at or after
// minStart with their confirmed seat totals. The LEFT JOIN keeps
// schedules that have no confirmed reservations; they report zero.
func (t *sqlTx) SchedulesWithConfirmedSeats(ctx context.Context, minStart time.Time) ([]service.ScheduleSeats, error) {
    const q = `SELECT s.id, s.start_time, s.end_time, s.max_seats, s.created_at, s.updated_at,
                      COALESCE(SUM(CASE WHEN r.status = ? THEN r.requested_seats ELSE 0 END), 0)
               FROM exam_schedules s
               LEFT JOIN reservations r ON r.schedule_id = s.id
               WHERE s.start_time >= ?
               GROUP BY s.id, s.start_time, s.end_time, s.max_seats, s.created_at, s.updated_at
               ORDER BY s.start_time, s.id`
    rows, err := t.tx.QueryContext(ctx, q, string(model.StatusConfirmed), minStart.UTC())
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    out := make([]service.ScheduleSeats, 0)
    for rows.Next() {
        var row service.ScheduleSeats
        var confirmed int64
        if err := rows.Scan(&row.Schedule.ID, &row.Schedule.StartTime, &row.Schedule.EndTime,
            &row.Schedule.MaxSeats, &row.Schedule.CreatedAt, &row.Schedule.UpdatedAt, &confirmed); err != nil {
            return nil, err
        }
        row.Confirmed = uint32(confirmed)
        out = append(out, row)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}
