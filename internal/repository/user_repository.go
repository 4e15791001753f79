package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/NaMinhyeok/reservation-management/internal/model"
	"github.com/NaMinhyeok/reservation-management/internal/utils"
)

// UserRepo provides CRUD access to the `users` table. Accounts are
// keyed by a unique login name.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var ErrNameExists = errors.New("name already exists")

// Create inserts a user and returns its ID. The password is bcrypt
// hashed with the given cost before storage.
func (r *UserRepo) Create(ctx context.Context, name, password, role string, cost int) (uint64, error) {
	name = strings.TrimSpace(name)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (name, password_hash, role) VALUES (?,?,?)",
		name, hash, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrNameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByName fetches a user by login name.
func (r *UserRepo) GetByName(ctx context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,password_hash,role,is_active,created_at,updated_at FROM users WHERE name=? LIMIT 1",
		name).Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,name,password_hash,role,is_active,created_at,updated_at FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
