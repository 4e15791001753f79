package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/NaMinhyeok/reservation-management/internal/model"
	"github.com/NaMinhyeok/reservation-management/internal/utils"
)

// SeedDemoData inserts a small demo data set: one admin, three users,
// three future exam schedules one week apart, and one reservation in
// each lifecycle state. It is a no-op when any user already exists, so
// repeated startups do not duplicate rows.
func SeedDemoData(ctx context.Context, db *sql.DB, bcryptCost int) error {
	var existing uint64
	err := db.QueryRowContext(ctx, "SELECT id FROM users LIMIT 1").Scan(&existing)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	users := []struct {
		name     string
		password string
		role     string
	}{
		{"admin", "admin-password", model.RoleAdmin},
		{"user1", "user1-password", model.RoleUser},
		{"user2", "user2-password", model.RoleUser},
		{"user3", "user3-password", model.RoleUser},
	}
	userIDs := make([]uint64, 0, len(users))
	for _, u := range users {
		hash, err := utils.HashPassword(u.password, bcryptCost)
		if err != nil {
			return err
		}
		res, err := db.ExecContext(ctx,
			"INSERT INTO users (name, password_hash, role) VALUES (?,?,?)",
			u.name, hash, u.role)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.name, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		userIDs = append(userIDs, uint64(id))
	}

	// Three schedules, each a two-hour morning slot a week apart.
	today := time.Now().UTC().Truncate(24 * time.Hour)
	scheduleIDs := make([]uint64, 0, 3)
	for i := 0; i < 3; i++ {
		start := today.Add(time.Duration(7*(i+1))*24*time.Hour + 9*time.Hour)
		end := start.Add(2 * time.Hour)
		res, err := db.ExecContext(ctx,
			"INSERT INTO exam_schedules (start_time, end_time, max_seats) VALUES (?,?,?)",
			start, end, model.DefaultMaxSeats)
		if err != nil {
			return fmt.Errorf("seed schedule %d: %w", i+1, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		scheduleIDs = append(scheduleIDs, uint64(id))
	}

	reservations := []struct {
		userID   uint64
		schedule uint64
		seats    uint32
		status   model.ReservationStatus
	}{
		{userIDs[1], scheduleIDs[0], 20000, model.StatusConfirmed},
		{userIDs[1], scheduleIDs[1], 15000, model.StatusPending},
		{userIDs[2], scheduleIDs[2], 10000, model.StatusCancelled},
	}
	for _, r := range reservations {
		_, err := db.ExecContext(ctx,
			"INSERT INTO reservations (user_id, schedule_id, requested_seats, status) VALUES (?,?,?,?)",
			r.userID, r.schedule, r.seats, string(r.status))
		if err != nil {
			return fmt.Errorf("seed reservation: %w", err)
		}
	}
	return nil
}
